package fogsim

// scheduler.go holds the structs and methods that schedule module executions
// on a device.  Every module instance resident on a device has its own lane.
// A lane serves one task at a time, first-come first-serve, while the lanes
// of a device run side by side, each at its weighted share of the device's
// processing rate:
//
//	share(m) = device MIPS * MIPS(m) / sum of MIPS of the modules resident on the device
//
// A task needing procLength units of processing is in service for
// procLength / share(m) time units.  Time spent waiting in the lane adds to
// the delay the caller observes.

import (
	"golang.org/x/exp/slices"
)

// Task describes one execution of a module on a tuple
type Task struct {
	Module       string  // module whose lane the task joins
	arrive       float64 // time of task arrival
	started      float64 // time the task entered service
	req          float64 // required processing length
	service      float64 // time the task occupies the lane
	completeFunc Handler // call when finished
	context      any     // remember this from caller, to return when finished
	Msg          any     // the tuple being processed
}

// createTask is a constructor
func createTask(module string, arrive, req float64, msg any, context any, complete Handler) *Task {
	return &Task{Module: module, arrive: arrive, req: req, Msg: msg, context: context, completeFunc: complete}
}

// Arrived is the time the task joined its lane
func (task *Task) Arrived() float64 {
	return task.arrive
}

// Started is the time the task entered service
func (task *Task) Started() float64 {
	return task.started
}

// Waited is the time the task spent queued before service
func (task *Task) Waited() float64 {
	return task.started - task.arrive
}

// lane serializes the executions of one module instance
type lane struct {
	share     float64
	inservice *Task
	waiting   []*Task
}

// TaskScheduler holds the lanes of one device
type TaskScheduler struct {
	dev      *Device
	lanes    map[string]*lane
	order    []string // resident modules, sorted
	meter    *PowerMeter
	busy     int     // lanes with a task in service
	busyMIPS float64 // sum of the shares of lanes in service
	served   int
}

// CreateTaskScheduler is a constructor.  Shares are fixed here from the set
// of resident modules and do not depend on which lanes are in service. A
// lane with nothing to serve leaves its share unused
func CreateTaskScheduler(dev *Device, residents []*Module, meter *PowerMeter) *TaskScheduler {
	ts := new(TaskScheduler)
	ts.dev = dev
	ts.meter = meter
	ts.lanes = make(map[string]*lane)
	ts.order = make([]string, 0, len(residents))

	total := 0.0
	for _, mod := range residents {
		total += mod.MIPS
	}
	for _, mod := range residents {
		share := 0.0
		switch {
		case total > 0.0:
			share = dev.MIPS() * mod.MIPS / total
		default:
			// every resident asks for nothing, split evenly
			share = dev.MIPS() / float64(len(residents))
		}
		ts.lanes[mod.Name] = &lane{share: share, waiting: make([]*Task, 0)}
		ts.order = append(ts.order, mod.Name)
	}
	slices.Sort(ts.order)
	return ts
}

// Share is the processing rate the module's lane receives, zero if not resident
func (ts *TaskScheduler) Share(module string) float64 {
	ln, present := ts.lanes[module]
	if !present {
		return 0.0
	}
	return ln.share
}

// ServiceTime is how long a task needing procLength occupies the module's lane
func (ts *TaskScheduler) ServiceTime(module string, procLength float64) float64 {
	share := ts.Share(module)
	if !(share > 0.0) {
		return 0.0
	}
	return procLength / share
}

// Schedule puts an execution either in service or in its lane's queue.  Parameters are
// - module : the module whose lane serves the task
// - procLength : the processing requirement of the tuple
// - msg : the tuple being processed
// - complete : handler called when the execution has completed
// The return is true if the task went into service immediately.  It is false
// when the task was queued, and also when the module is not resident here, in
// which case nothing is scheduled.
func (ts *TaskScheduler) Schedule(k Kernel, module string, procLength float64,
	context any, msg any, complete Handler) bool {

	ln, present := ts.lanes[module]
	if !present {
		return false
	}
	task := createTask(module, k.Now(), procLength, msg, context, complete)
	return ts.joinQueue(k, ln, task)
}

// joinQueue is called to put a Task into the lane that governs its service
func (ts *TaskScheduler) joinQueue(k Kernel, ln *lane, task *Task) bool {
	if ln.inservice != nil {
		ln.waiting = append(ln.waiting, task)
		return false
	}

	task.started = k.Now()
	task.service = 0.0
	if ln.share > 0.0 {
		task.service = task.req / ln.share
	}
	ln.inservice = task
	ts.busy += 1
	ts.busyMIPS += ln.share
	ts.notify(k.Now())

	// the completion releases the lane before handing the task back
	k.Schedule(ts, task, taskComplete, task.service)
	return true
}

// taskComplete is called when a task has received all its service
func taskComplete(k Kernel, context any, data any) {
	ts := context.(*TaskScheduler)
	task := data.(*Task)
	ln := ts.lanes[task.Module]

	ln.inservice = nil
	ts.busy -= 1
	ts.busyMIPS -= ln.share
	if ts.busy == 0 {
		ts.busyMIPS = 0.0
	}
	ts.served += 1
	ts.notify(k.Now())

	ts.scheduleNxtTask(k, ln)

	if task.completeFunc != nil {
		task.completeFunc(k, task.context, task)
	}
}

// scheduleNxtTask pulls the head of the lane's queue into service
func (ts *TaskScheduler) scheduleNxtTask(k Kernel, ln *lane) bool {
	if len(ln.waiting) == 0 {
		return false
	}
	task := ln.waiting[0]
	ln.waiting = ln.waiting[1:]
	return ts.joinQueue(k, ln, task)
}

func (ts *TaskScheduler) notify(now float64) {
	if ts.meter == nil {
		return
	}
	ts.meter.Update(now, ts.busy > 0, ts.busyMIPS)
}

// Busy reports whether any lane of the device has a task in service
func (ts *TaskScheduler) Busy() bool {
	return ts.busy > 0
}

// Waiting is the number of tasks queued in the module's lane
func (ts *TaskScheduler) Waiting(module string) int {
	ln, present := ts.lanes[module]
	if !present {
		return 0
	}
	return len(ln.waiting)
}

// Served is the number of completed executions on the device
func (ts *TaskScheduler) Served() int {
	return ts.served
}

// Residents lists the modules with a lane on the device
func (ts *TaskScheduler) Residents() []string {
	return slices.Clone(ts.order)
}
