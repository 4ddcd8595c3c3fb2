package fogsim

// routing.go moves tuples through the placed application.  Every step is an
// event handler scheduled through the Kernel:
//
//	sensorEmit      -- a sensor creates a tuple and sends it toward the module its edge names
//	tupleArrive     -- a tuple reaches the device hosting its next module and joins that module's lane
//	moduleProcessed -- the module finished with the tuple; selectivity decides what is emitted
//	actuatorConsume -- a tuple reaches its actuator
//
// Transmission between devices takes the route latency plus payload over the
// route's bottleneck bandwidth, plus the latency of the sensor or actuator at an
// end of the path.  Tuples that cannot be routed are dropped and counted; the
// run goes on.

import (
	"errors"
	"fmt"
	"io"
	"math"

	logger "github.com/sirupsen/logrus"
)

// Engine owns the tuples in flight and everything measured about them
type Engine struct {
	topo     *Topology
	app      *Application
	bindings *Bindings
	assign   *ModuleAssignment
	kernel   Kernel
	log      *logger.Logger
	trace    *TraceManager

	scheds []*TaskScheduler // indexed by DeviceID
	meters []*PowerMeter    // indexed by DeviceID

	selAcc        selectivityAcc
	loopStats     []*DelayStats // indexed as app.Loops()
	tupleCPU      map[string]*DelayStats
	actuatorDelay map[string]*DelayStats

	// by sensor name: emission to arrival at the first module, and to the end of its processing
	sensorDelivery   map[string]*DelayStats
	sensorProcessing map[string]*DelayStats

	drops       int
	dropReasons map[string]int
	emitted     int
	processed   int
	consumed    int
	netUsage    float64

	nxtTupleID int
	horizon    float64
	started    bool
}

// CreateEngine is a constructor.  The topology, application and bindings are
// validated here, and a lane scheduler and power meter are built for every device.
// A nil log discards everything, a nil trace manager records nothing
func CreateEngine(tp *Topology, app *Application, bd *Bindings, ma *ModuleAssignment, k Kernel,
	log *logger.Logger, tm *TraceManager) (*Engine, error) {

	if k == nil {
		return nil, errors.New("engine needs a kernel")
	}
	if ma == nil {
		return nil, errors.New("engine needs a module assignment")
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if err := bd.Validate(tp, app); err != nil {
		return nil, err
	}
	for _, name := range ma.Modules() {
		if !app.IsModule(name) {
			return nil, &UnknownModuleError{Module: name, Where: "module assignment"}
		}
		for _, dev := range ma.Hosts(name) {
			if tp.Device(dev) == nil {
				return nil, &UnplaceableModuleError{Module: name, Strategy: ma.Strategy,
					Reason: fmt.Sprintf("assigned to unknown device %d", dev)}
			}
		}
	}

	if log == nil {
		log = logger.New()
		log.SetOutput(io.Discard)
	}
	if tm == nil {
		tm = CreateTraceManager(app.Name, false)
	}

	eng := &Engine{topo: tp, app: app, bindings: bd, assign: ma, kernel: k, log: log, trace: tm}
	eng.scheds = make([]*TaskScheduler, tp.NumDevices())
	eng.meters = make([]*PowerMeter, tp.NumDevices())
	for _, dev := range tp.Devices() {
		residents := make([]*Module, 0)
		for _, name := range ma.ResidentOn(dev.ID) {
			mod, _ := app.Module(name)
			residents = append(residents, mod)
		}
		eng.meters[dev.ID] = CreatePowerMeter(dev)
		eng.scheds[dev.ID] = CreateTaskScheduler(dev, residents, eng.meters[dev.ID])
		if err := tm.AddName(int(dev.ID), dev.Name, "device"); err != nil {
			return nil, err
		}
	}

	eng.selAcc = make(selectivityAcc)
	eng.loopStats = make([]*DelayStats, 0)
	for _, loop := range app.Loops() {
		eng.loopStats = append(eng.loopStats, CreateDelayStats(loop.Name))
	}
	eng.tupleCPU = make(map[string]*DelayStats)
	eng.actuatorDelay = make(map[string]*DelayStats)
	eng.sensorDelivery = make(map[string]*DelayStats)
	eng.sensorProcessing = make(map[string]*DelayStats)
	eng.dropReasons = make(map[string]int)
	return eng, nil
}

// Start schedules the first emission of every sensor
func (eng *Engine) Start() {
	if eng.started {
		return
	}
	eng.started = true
	for _, sensor := range eng.bindings.Sensors() {
		eng.scheduleEmission(sensor)
	}
	eng.log.Debugf("started %d sensors on %d devices", len(eng.bindings.Sensors()), eng.topo.NumDevices())
}

// scheduleEmission schedules the next emission of the sensor, unless it would fall past the horizon
func (eng *Engine) scheduleEmission(sensor *Sensor) {
	interval := sensor.Dist.NextInterval()
	if interval < 0.0 {
		interval = 0.0
	}
	if eng.horizon > 0.0 && eng.kernel.Now()+interval > eng.horizon {
		return
	}
	eng.kernel.Schedule(eng, sensor, sensorEmit, interval)
}

// Run starts the sensors, runs the kernel to the horizon and closes the
// books on every device
func (eng *Engine) Run(horizon float64) *Report {
	eng.horizon = horizon
	eng.Start()
	eng.kernel.Run(horizon)
	eng.Finalize(horizon)
	eng.log.Debugf("run ended: %d emitted, %d processed, %d consumed, %d dropped",
		eng.emitted, eng.processed, eng.consumed, eng.drops)
	return eng.Report(horizon)
}

// Finalize integrates every power meter up to the horizon
func (eng *Engine) Finalize(horizon float64) {
	for _, pm := range eng.meters {
		pm.Finalize(horizon)
	}
}

func (eng *Engine) nextID() int {
	eng.nxtTupleID += 1
	return eng.nxtTupleID
}

// sensorEmit creates a tuple at the sensor's gateway and sends it on the sensor's edge
func sensorEmit(k Kernel, context any, data any) {
	eng := context.(*Engine)
	sensor := data.(*Sensor)
	now := k.Now()

	edge, _ := eng.app.EdgeByTupleType(sensor.TupleType)
	id := eng.nextID()
	tpl := &Tuple{ID: id, Lineage: id, Type: sensor.TupleType, Edge: edge, Created: now, Emitted: now,
		NextModule: edge.Dst, Origin: sensor.Gateway, Device: sensor.Gateway, SensorName: sensor.Name,
		State: Created}
	tpl.mark(sensor.TupleType, now)
	eng.emitted += 1
	AddTupleTrace(eng.trace, now, tpl.Lineage, tpl, "emit", sensor.Name)

	eng.send(k, tpl, sensor.Gateway, sensor.Latency)
	eng.scheduleEmission(sensor)
}

// send puts the tuple in transit from device from toward its destination.
// extra is latency added on top of the route, e.g. by the sensor
func (eng *Engine) send(k Kernel, tpl *Tuple, from DeviceID, extra float64) {
	var dst DeviceID
	var handler Handler

	switch tpl.Edge.Kind {
	case ActuatorEdge:
		act := eng.bindings.ActuatorAt(tpl.Origin, tpl.Edge.Dst)
		if act == nil {
			eng.drop(k, tpl, &UnroutableTupleError{TupleID: tpl.ID, TupleType: tpl.Type,
				Reason: "no actuator of type " + tpl.Edge.Dst + " at origin gateway"})
			return
		}
		dst = act.Gateway
		extra += act.Latency
		tpl.Target = act.Name
		handler = actuatorConsume
	default:
		host, present := eng.assign.HostFor(eng.topo, tpl.NextModule, tpl.Origin)
		if !present {
			eng.drop(k, tpl, &UnroutableTupleError{TupleID: tpl.ID, TupleType: tpl.Type,
				Reason: "no instance of " + tpl.NextModule + " serves the origin gateway"})
			return
		}
		dst = host
		handler = tupleArrive
	}

	rt := eng.topo.Route(from, dst)
	if rt == nil {
		eng.drop(k, tpl, &UnroutableTupleError{TupleID: tpl.ID, TupleType: tpl.Type,
			Reason: "no route between devices"})
		return
	}
	delay := rt.TransmitDelay(tpl.Edge.Payload) + extra
	eng.netUsage += rt.Latency * tpl.Edge.Payload

	tpl.State = InTransit
	tpl.Device = dst
	tpl.ArriveAt = k.Now() + delay
	k.Schedule(eng, tpl, handler, delay)
}

// tupleArrive hands a delivered tuple to the lane of its module
func tupleArrive(k Kernel, context any, data any) {
	eng := context.(*Engine)
	tpl := data.(*Tuple)
	now := k.Now()

	tpl.State = Delivered
	tpl.Delay = now - tpl.Created
	tpl.mark(tpl.NextModule, now)
	if tpl.Edge.Kind == SensorEdge {
		eng.statsFor(eng.sensorDelivery, tpl.SensorName).Add(tpl.Delay)
	}
	AddTupleTrace(eng.trace, now, tpl.Lineage, tpl, "arrive", tpl.NextModule)

	ts := eng.scheds[tpl.Device]
	ts.Schedule(k, tpl.NextModule, tpl.Edge.ProcLength, eng, tpl, moduleProcessed)
	AddSchedulerTrace(eng.trace, now, tpl.Lineage, ts, tpl.NextModule, "schedule")
}

// moduleProcessed fires the selectivity rules of the module for the tuple's type
func moduleProcessed(k Kernel, context any, data any) {
	eng := context.(*Engine)
	task := data.(*Task)
	tpl := task.Msg.(*Tuple)
	now := k.Now()
	module := task.Module

	tpl.State = Processed
	eng.processed += 1
	eng.statsFor(eng.tupleCPU, tpl.Type).Add(now - task.Started())
	if tpl.Edge.Kind == SensorEdge {
		eng.statsFor(eng.sensorProcessing, tpl.SensorName).Add(now - tpl.Emitted)
	}
	AddTupleTrace(eng.trace, now, tpl.Lineage, tpl, "finish", module)

	eng.recordLoops(now, tpl)

	rules := eng.app.SelectivityFor(module, tpl.Type)
	for _, edge := range eng.app.OutEdges(module) {
		for _, sel := range rules {
			if sel.OutType != edge.TupleType {
				continue
			}
			n := eng.selAcc.emissions(tpl.Device, sel)
			for idx := 0; idx < n; idx++ {
				eng.spawn(k, tpl, edge)
			}
		}
	}
}

// spawn emits a tuple descending from parent on the given edge
func (eng *Engine) spawn(k Kernel, parent *Tuple, edge *AppEdge) {
	child := parent.descend(eng.nextID(), edge, k.Now())
	AddTupleTrace(eng.trace, k.Now(), child.Lineage, child, "emit", edge.Src)
	eng.send(k, child, parent.Device, 0.0)
}

// actuatorConsume ends the life of a tuple at its actuator
func actuatorConsume(k Kernel, context any, data any) {
	eng := context.(*Engine)
	tpl := data.(*Tuple)
	now := k.Now()

	tpl.State = Consumed
	tpl.Delay = now - tpl.Created
	tpl.mark(tpl.Edge.Dst, now)
	eng.consumed += 1
	eng.statsFor(eng.actuatorDelay, tpl.Target).Add(now - tpl.Emitted)
	AddTupleTrace(eng.trace, now, tpl.Lineage, tpl, "consume", tpl.Target)

	eng.recordLoops(now, tpl)
}

// recordLoops adds a sample to every loop the tuple's trail now ends with
func (eng *Engine) recordLoops(now float64, tpl *Tuple) {
	for idx, loop := range eng.app.Loops() {
		mark, matched := tpl.trailEndsWith(loop.Elements)
		if !matched {
			continue
		}
		eng.loopStats[idx].Add(now - mark.At)
	}
}

func (eng *Engine) statsFor(table map[string]*DelayStats, name string) *DelayStats {
	ds, present := table[name]
	if !present {
		ds = CreateDelayStats(name)
		table[name] = ds
	}
	return ds
}

// drop counts and logs a tuple that cannot go on
func (eng *Engine) drop(k Kernel, tpl *Tuple, err *UnroutableTupleError) {
	tpl.State = Dropped
	eng.drops += 1
	eng.dropReasons[err.Reason] += 1
	AddTupleTrace(eng.trace, k.Now(), tpl.Lineage, tpl, "drop", "")
	eng.log.WithFields(logger.Fields{
		"time":  k.Now(),
		"tuple": tpl.ID,
		"type":  tpl.Type,
	}).Debugf("dropped: %v", err)
}

// Drops is the number of tuples dropped so far
func (eng *Engine) Drops() int {
	return eng.drops
}

// LoopStats returns the statistics of the named loop
func (eng *Engine) LoopStats(name string) (*DelayStats, bool) {
	for _, ds := range eng.loopStats {
		if ds.Name == name {
			return ds, true
		}
	}
	return nil, false
}

// Meter returns the power meter of a device
func (eng *Engine) Meter(dev DeviceID) *PowerMeter {
	if int(dev) < 0 || int(dev) >= len(eng.meters) {
		return nil
	}
	return eng.meters[dev]
}

// Scheduler returns the lane scheduler of a device
func (eng *Engine) Scheduler(dev DeviceID) *TaskScheduler {
	if int(dev) < 0 || int(dev) >= len(eng.scheds) {
		return nil
	}
	return eng.scheds[dev]
}

// Energy is the energy a device has consumed up to now
func (eng *Engine) Energy(dev DeviceID, now float64) float64 {
	pm := eng.Meter(dev)
	if pm == nil {
		return math.NaN()
	}
	return pm.Energy(now)
}
