package fogsim

// kernel.go is the boundary with the discrete-event kernel.  The routing and
// energy code only ever schedules future events through the Kernel interface;
// EvtKernel implements it over the evt event manager.
//
// Two guarantees are layered on top of evtm.  The clock handed to handlers is
// the exact float64 sum of the offsets that led to the event (no rounding to
// vrtime ticks), and events due at the same instant run in the order they were
// scheduled.  Both come from coalescing all events due at one instant into a
// single FIFO bucket, with one evtm event per bucket.

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// Handler is called by the kernel when an event comes due
type Handler func(k Kernel, context any, data any)

// Kernel is the scheduling primitive the simulation consumes
type Kernel interface {
	// Schedule arranges for handler(context, data) to be called offset time units from now
	Schedule(context any, data any, handler Handler, offset float64)

	// Now is the current simulation time
	Now() float64

	// Run executes events until none are left or the horizon is passed
	Run(horizon float64)
}

type pendingEvt struct {
	context any
	data    any
	handler Handler
}

// evtBucket holds all events due at one instant, in scheduling order
type evtBucket struct {
	at   float64
	evts []pendingEvt
}

// EvtKernel adapts an evtm.EventManager to the Kernel interface
type EvtKernel struct {
	evtMgr  *evtm.EventManager
	now     float64
	buckets map[float64]*evtBucket
	running bool
}

// CreateEvtKernel is a constructor
func CreateEvtKernel() *EvtKernel {
	ek := new(EvtKernel)
	ek.evtMgr = evtm.New()
	ek.buckets = make(map[float64]*evtBucket)
	return ek
}

// Schedule puts the event in the bucket for its due time, creating the bucket
// (and its evtm event) if this is the first event due then
func (ek *EvtKernel) Schedule(context any, data any, handler Handler, offset float64) {
	if offset < 0.0 {
		offset = 0.0
	}
	at := ek.now + offset
	evt := pendingEvt{context: context, data: data, handler: handler}

	bucket, present := ek.buckets[at]
	if present {
		bucket.evts = append(bucket.evts, evt)
		return
	}
	bucket = &evtBucket{at: at, evts: []pendingEvt{evt}}
	ek.buckets[at] = bucket
	ek.evtMgr.Schedule(ek, bucket, drainBucket, vrtime.SecondsToTime(offset))
}

// drainBucket is the evtm event handler.  Events scheduled for this same
// instant while draining are appended and run in the same pass
func drainBucket(evtMgr *evtm.EventManager, context any, data any) any {
	ek := context.(*EvtKernel)
	bucket := data.(*evtBucket)
	ek.now = bucket.at

	for idx := 0; idx < len(bucket.evts); idx++ {
		evt := bucket.evts[idx]
		evt.handler(ek, evt.context, evt.data)
	}
	delete(ek.buckets, bucket.at)

	// event-handlers are required to return _something_
	return nil
}

// Now returns the exact simulation time of the event being handled
func (ek *EvtKernel) Now() float64 {
	return ek.now
}

// Run hands control to the event manager until the horizon
func (ek *EvtKernel) Run(horizon float64) {
	ek.running = true
	ek.evtMgr.Run(horizon)
	ek.running = false
}

// Pending is the number of events scheduled but not yet run
func (ek *EvtKernel) Pending() int {
	n := 0
	for _, bucket := range ek.buckets {
		n += len(bucket.evts)
	}
	return n
}
