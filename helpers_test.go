package fogsim

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// listKernel is a minimal Kernel for tests: a time-sorted list with ties
// broken by scheduling order
type listKernel struct {
	now    float64
	seq    int
	events []listEvt
}

type listEvt struct {
	at      float64
	seq     int
	context any
	data    any
	handler Handler
}

func (lk *listKernel) Schedule(context any, data any, handler Handler, offset float64) {
	lk.seq += 1
	evt := listEvt{at: lk.now + offset, seq: lk.seq, context: context, data: data, handler: handler}
	idx := sort.Search(len(lk.events), func(i int) bool {
		return lk.events[i].at > evt.at || (lk.events[i].at == evt.at && lk.events[i].seq > evt.seq)
	})
	lk.events = append(lk.events, listEvt{})
	copy(lk.events[idx+1:], lk.events[idx:])
	lk.events[idx] = evt
}

func (lk *listKernel) Now() float64 {
	return lk.now
}

func (lk *listKernel) Run(horizon float64) {
	for len(lk.events) > 0 && lk.events[0].at <= horizon {
		evt := lk.events[0]
		lk.events = lk.events[1:]
		lk.now = evt.at
		evt.handler(lk, evt.context, evt.data)
	}
}

var agriStreams = []struct {
	tupleType, module, alert string
	period                   float64
}{
	{"SOIL_MOISTURE", "soil_moisture_module", "SOIL_ALERT", 5.0},
	{"TEMPERATURE", "temperature_module", "TEMP_ALERT", 6.0},
	{"HUMIDITY", "humidity_module", "HUMIDITY_ALERT", 7.0},
	{"PH", "pH_module", "PH_ALERT", 4.0},
	{"LIGHT_INTENSITY", "light_intensity_module", "LIGHT_ALERT", 5.0},
}

// agriTopology builds cloud <- proxy (latency 80) <- edges (latency 2)
func agriTopology(t *testing.T, edges int) *Topology {
	tp := CreateTopology("agri")
	cloud, err := tp.AddDevice(DeviceSpec{Name: "cloud", PEs: 1, MIPSPerPE: 44800, RAM: 40000,
		UpBw: 10000, DownBw: 10000, BusyPower: 107.339, IdlePower: 83.4333, RatePerMIPS: 0.01})
	require.NoError(t, err)
	proxy, err := tp.AddDevice(DeviceSpec{Name: "proxy-server", PEs: 1, MIPSPerPE: 2800, RAM: 4000,
		UpBw: 10000, DownBw: 10000, BusyPower: 107.339, IdlePower: 83.4333})
	require.NoError(t, err)
	require.NoError(t, tp.SetParent(proxy, cloud, 80))
	for idx := 1; idx <= edges; idx++ {
		edge, err := tp.AddDevice(DeviceSpec{Name: fmt.Sprintf("edge-zone-%d", idx), PEs: 1, MIPSPerPE: 2800,
			RAM: 2000, UpBw: 1000, DownBw: 1000, BusyPower: 87.53, IdlePower: 82.44, Groups: []string{"edge"}})
		require.NoError(t, err)
		require.NoError(t, tp.SetParent(edge, proxy, 2))
	}
	require.NoError(t, tp.Validate())
	return tp
}

// agriApplication builds the five sensor streams feeding data_analyzer, which drives IRRIGATION
func agriApplication(t *testing.T, controlFraction float64) *Application {
	app := CreateApplication("precision_agriculture")
	loops := [][]string{}
	for _, st := range agriStreams {
		require.NoError(t, app.AddModule(st.module, 10))
	}
	require.NoError(t, app.AddModule("data_analyzer", 20))
	for _, st := range agriStreams {
		require.NoError(t, app.AddEdge(st.tupleType, st.module, 1000, 1000, st.tupleType, Up, SensorEdge))
	}
	for _, st := range agriStreams {
		require.NoError(t, app.AddEdge(st.module, "data_analyzer", 500, 200, st.alert, Up, ModuleEdge))
		require.NoError(t, app.AddSelectivity(st.module, st.tupleType, st.alert, 1.0))
		loops = append(loops, []string{st.module, "data_analyzer"})
	}
	require.NoError(t, app.AddEdge("data_analyzer", "IRRIGATION", 100, 50, "CONTROL_SIGNAL", Down, ActuatorEdge))
	if controlFraction > 0.0 {
		for _, st := range agriStreams {
			require.NoError(t, app.AddSelectivity("data_analyzer", st.alert, "CONTROL_SIGNAL", controlFraction))
		}
	}
	require.NoError(t, app.SetLoops(loops))
	require.NoError(t, app.Validate())
	return app
}

// agriBindings attaches the five sensors and an irrigation actuator to every edge
func agriBindings(t *testing.T, tp *Topology) *Bindings {
	bd := CreateBindings()
	for _, dev := range tp.Devices() {
		if tp.LevelOf(dev.ID) != 2 {
			continue
		}
		for _, st := range agriStreams {
			name := fmt.Sprintf("%s-%s", st.tupleType, dev.Name)
			require.NoError(t, bd.AddSensor(name, st.tupleType, dev.ID, 1.0, &DeterministicDist{Value: st.period}))
		}
		require.NoError(t, bd.AddActuator("irrigation-"+dev.Name, "IRRIGATION", dev.ID, 1.0))
	}
	return bd
}

func agriModules() []string {
	names := []string{}
	for _, st := range agriStreams {
		names = append(names, st.module)
	}
	return append(names, "data_analyzer")
}

// allOn maps every module of the scenario to the named device
func allOn(device string) map[string][]string {
	hints := make(map[string][]string)
	for _, name := range agriModules() {
		hints[name] = []string{device}
	}
	return hints
}

func devID(t *testing.T, tp *Topology, name string) DeviceID {
	dev, present := tp.DeviceByName(name)
	require.True(t, present, "device %s", name)
	return dev.ID
}
