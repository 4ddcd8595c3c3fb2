package fogsim

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

// DelaySummary summarizes the delay samples of one loop, tuple type, actuator or sensor
type DelaySummary struct {
	Name   string  `json:"name" yaml:"name"`
	Count  int     `json:"count" yaml:"count"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	P95    float64 `json:"p95" yaml:"p95"`
}

// DeviceReport gives what one device consumed
type DeviceReport struct {
	Device   string   `json:"device" yaml:"device"`
	Level    int      `json:"level" yaml:"level"`
	Energy   float64  `json:"energy" yaml:"energy"`
	Cost     float64  `json:"cost" yaml:"cost"`
	BusyTime float64  `json:"busytime" yaml:"busytime"`
	Served   int      `json:"served" yaml:"served"`
	Modules  []string `json:"modules" yaml:"modules"`
}

// Report is the result of one run
type Report struct {
	Experiment   string              `json:"experiment" yaml:"experiment"`
	Strategy     string              `json:"strategy" yaml:"strategy"`
	Horizon      float64             `json:"horizon" yaml:"horizon"`
	Loops        []DelaySummary      `json:"loops" yaml:"loops"`
	Devices      []DeviceReport      `json:"devices" yaml:"devices"`
	TupleTypes   []DelaySummary      `json:"tupletypes" yaml:"tupletypes"`
	Actuators    []DelaySummary      `json:"actuators" yaml:"actuators"`
	Delivery     []DelaySummary      `json:"delivery" yaml:"delivery"`
	Processing   []DelaySummary      `json:"processing" yaml:"processing"`
	Emitted      int                 `json:"emitted" yaml:"emitted"`
	Processed    int                 `json:"processed" yaml:"processed"`
	Consumed     int                 `json:"consumed" yaml:"consumed"`
	Drops        int                 `json:"drops" yaml:"drops"`
	DropReasons  map[string]int      `json:"dropreasons" yaml:"dropreasons"`
	NetworkUsage float64             `json:"networkusage" yaml:"networkusage"`
	Placement    map[string][]string `json:"placement" yaml:"placement"`
}

func summarize(ds *DelayStats) DelaySummary {
	count, minV, maxV, mean := ds.Summary()
	return DelaySummary{Name: ds.Name, Count: count, Min: minV, Max: maxV, Mean: mean,
		StdDev: ds.StdDev(), P95: ds.P95()}
}

// summarizeTable lists the summaries of a table of stats, sorted by name
func summarizeTable(table map[string]*DelayStats) []DelaySummary {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	rtn := make([]DelaySummary, 0, len(names))
	for _, name := range names {
		rtn = append(rtn, summarize(table[name]))
	}
	return rtn
}

// Report gathers what the engine has measured, energy and cost taken at time now
func (eng *Engine) Report(now float64) *Report {
	rpt := &Report{Experiment: eng.app.Name, Strategy: eng.assign.Strategy, Horizon: now,
		Emitted: eng.emitted, Processed: eng.processed, Consumed: eng.consumed, Drops: eng.drops}

	rpt.Loops = make([]DelaySummary, 0, len(eng.loopStats))
	for _, ds := range eng.loopStats {
		rpt.Loops = append(rpt.Loops, summarize(ds))
	}

	rpt.Devices = make([]DeviceReport, 0, eng.topo.NumDevices())
	for _, dev := range eng.topo.Devices() {
		pm := eng.meters[dev.ID]
		rpt.Devices = append(rpt.Devices, DeviceReport{Device: dev.Name, Level: eng.topo.LevelOf(dev.ID),
			Energy: pm.Energy(now), Cost: pm.Cost(now), BusyTime: pm.BusyTime(now),
			Served: eng.scheds[dev.ID].Served(), Modules: eng.assign.ResidentOn(dev.ID)})
	}

	rpt.TupleTypes = summarizeTable(eng.tupleCPU)
	rpt.Actuators = summarizeTable(eng.actuatorDelay)
	rpt.Delivery = summarizeTable(eng.sensorDelivery)
	rpt.Processing = summarizeTable(eng.sensorProcessing)

	rpt.DropReasons = make(map[string]int)
	for reason, n := range eng.dropReasons {
		rpt.DropReasons[reason] = n
	}
	if now > 0.0 {
		rpt.NetworkUsage = eng.netUsage / now
	}
	rpt.Placement = eng.assign.Table(eng.topo)
	return rpt
}

// LoopByName returns the report of the named loop
func (rpt *Report) LoopByName(name string) (DelaySummary, bool) {
	return findSummary(rpt.Loops, name)
}

// SensorDelivery returns the delay from emission to arrival at the first module, for the named sensor
func (rpt *Report) SensorDelivery(name string) (DelaySummary, bool) {
	return findSummary(rpt.Delivery, name)
}

// SensorProcessing returns the delay from emission to the end of processing at the
// first module, for the named sensor
func (rpt *Report) SensorProcessing(name string) (DelaySummary, bool) {
	return findSummary(rpt.Processing, name)
}

func findSummary(list []DelaySummary, name string) (DelaySummary, bool) {
	for _, lr := range list {
		if lr.Name == name {
			return lr, true
		}
	}
	return DelaySummary{}, false
}

// DeviceByName returns the report of the named device
func (rpt *Report) DeviceByName(name string) (DeviceReport, bool) {
	for _, dr := range rpt.Devices {
		if dr.Device == name {
			return dr, true
		}
	}
	return DeviceReport{}, false
}

// TotalEnergy sums the energy of every device
func (rpt *Report) TotalEnergy() float64 {
	total := 0.0
	for _, dr := range rpt.Devices {
		total += dr.Energy
	}
	return total
}

// WriteToFile stores the report to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (rpt *Report) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(*rpt)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(*rpt, "", "\t")
	default:
		return fmt.Errorf("report file %s needs a .yaml or .json extension", filename)
	}
	if merr != nil {
		return merr
	}
	return os.WriteFile(filename, bytes, 0644)
}
