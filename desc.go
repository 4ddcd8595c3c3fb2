package fogsim

// desc.go holds the serializable descriptions of an experiment, and the code
// that builds the run-time objects from them.  A description is read from YAML
// or JSON, the choice made by the caller (usually from the file extension).

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// DeviceDesc describes a device and the link to its parent.  Parent is empty for the root
type DeviceDesc struct {
	DeviceSpec    `yaml:",inline"`
	Parent        string  `json:"parent" yaml:"parent"`
	UplinkLatency float64 `json:"uplinklatency" yaml:"uplinklatency"`
}

// TopoDesc describes the device tree
type TopoDesc struct {
	Name    string       `json:"name" yaml:"name"`
	Devices []DeviceDesc `json:"devices" yaml:"devices"`
}

// ModuleDesc describes a module
type ModuleDesc struct {
	Name string  `json:"name" yaml:"name"`
	MIPS float64 `json:"mips" yaml:"mips"`
}

// EdgeDesc describes an application edge.  Direction is "up" or "down",
// Kind is one of "sensor", "module", "actuator"
type EdgeDesc struct {
	Src        string  `json:"src" yaml:"src"`
	Dst        string  `json:"dst" yaml:"dst"`
	Payload    float64 `json:"payload" yaml:"payload"`
	ProcLength float64 `json:"proclength" yaml:"proclength"`
	TupleType  string  `json:"tupletype" yaml:"tupletype"`
	Direction  string  `json:"direction" yaml:"direction"`
	Kind       string  `json:"kind" yaml:"kind"`
}

// SelectivityDesc describes a selectivity rule
type SelectivityDesc struct {
	Module   string  `json:"module" yaml:"module"`
	InType   string  `json:"intype" yaml:"intype"`
	OutType  string  `json:"outtype" yaml:"outtype"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
}

// AppDesc describes the application graph
type AppDesc struct {
	Name        string            `json:"name" yaml:"name"`
	Modules     []ModuleDesc      `json:"modules" yaml:"modules"`
	Edges       []EdgeDesc        `json:"edges" yaml:"edges"`
	Selectivity []SelectivityDesc `json:"selectivity" yaml:"selectivity"`
	Loops       [][]string        `json:"loops" yaml:"loops"`
}

// DistDesc describes an inter-arrival distribution.  Type is "deterministic"
// (uses Value), "uniform" (Min, Max) or "exponential" (Mean)
type DistDesc struct {
	Type  string  `json:"type" yaml:"type"`
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Min   float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max   float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Mean  float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
}

// SensorDesc describes a sensor, Gateway naming a device
type SensorDesc struct {
	Name      string   `json:"name" yaml:"name"`
	TupleType string   `json:"tupletype" yaml:"tupletype"`
	Gateway   string   `json:"gateway" yaml:"gateway"`
	Latency   float64  `json:"latency" yaml:"latency"`
	Dist      DistDesc `json:"dist" yaml:"dist"`
}

// ActuatorDesc describes an actuator, Gateway naming a device
type ActuatorDesc struct {
	Name         string  `json:"name" yaml:"name"`
	ActuatorType string  `json:"actuatortype" yaml:"actuatortype"`
	Gateway      string  `json:"gateway" yaml:"gateway"`
	Latency      float64 `json:"latency" yaml:"latency"`
}

// PlacementDesc names the strategy and its hints, module name -> device names
type PlacementDesc struct {
	Strategy string              `json:"strategy" yaml:"strategy"`
	Hints    map[string][]string `json:"hints" yaml:"hints"`
}

// ExperimentDesc is everything needed to run one experiment
type ExperimentDesc struct {
	Name      string         `json:"name" yaml:"name"`
	Horizon   float64        `json:"horizon" yaml:"horizon"`
	Seed      int64          `json:"seed" yaml:"seed"`
	Topo      TopoDesc       `json:"topo" yaml:"topo"`
	App       AppDesc        `json:"app" yaml:"app"`
	Sensors   []SensorDesc   `json:"sensors" yaml:"sensors"`
	Actuators []ActuatorDesc `json:"actuators" yaml:"actuators"`
	Placement PlacementDesc  `json:"placement" yaml:"placement"`
}

// CreateExperimentDesc is a constructor
func CreateExperimentDesc(name string, horizon float64) *ExperimentDesc {
	xd := new(ExperimentDesc)
	xd.Name = name
	xd.Horizon = horizon
	xd.Sensors = make([]SensorDesc, 0)
	xd.Actuators = make([]ActuatorDesc, 0)
	xd.Placement.Hints = make(map[string][]string)
	return xd
}

// WriteToFile serializes the ExperimentDesc and writes it to the file whose name is given.
// Extension of the file name selects whether serialization is to json or to yaml format.
func (xd *ExperimentDesc) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(*xd)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(*xd, "", "\t")
	default:
		return fmt.Errorf("experiment file %s needs a .yaml or .json extension", filename)
	}
	if merr != nil {
		return merr
	}
	return os.WriteFile(filename, bytes, 0644)
}

// ReadExperimentDesc deserializes a byte slice holding a representation of an ExperimentDesc.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadExperimentDesc(filename string, useYAML bool, dict []byte) (*ExperimentDesc, error) {
	var err error

	// read from the file only if the byte slice is empty
	if len(dict) == 0 {
		fileInfo, err := os.Stat(filename)
		if err != nil || fileInfo.IsDir() {
			return nil, fmt.Errorf("experiment %s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}
	example := ExperimentDesc{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, err
	}
	return &example, nil
}

// BuildTopology creates the device tree a TopoDesc describes.  Problems with
// individual devices are gathered and reported together
func BuildTopology(td TopoDesc) (*Topology, error) {
	tp := CreateTopology(td.Name)
	errs := []error{}
	for _, dd := range td.Devices {
		if _, err := tp.AddDevice(dd.DeviceSpec); err != nil {
			errs = append(errs, err)
		}
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}

	for _, dd := range td.Devices {
		if len(dd.Parent) == 0 {
			continue
		}
		child, _ := tp.DeviceByName(dd.Name)
		parent, present := tp.DeviceByName(dd.Parent)
		if !present {
			errs = append(errs, &InvalidTopologyError{Device: dd.Name,
				Reason: fmt.Sprintf("unknown parent %s", dd.Parent)})
			continue
		}
		if err := tp.SetParent(child.ID, parent.ID, dd.UplinkLatency); err != nil {
			errs = append(errs, err)
		}
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	return tp, nil
}

// BuildApplication creates and validates the application an AppDesc describes
func BuildApplication(ad AppDesc) (*Application, error) {
	app := CreateApplication(ad.Name)
	errs := []error{}
	for _, md := range ad.Modules {
		if err := app.AddModule(md.Name, md.MIPS); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ed := range ad.Edges {
		direction, derr := ParseDirection(ed.Direction)
		kind, kerr := ParseEdgeKind(ed.Kind)
		if derr != nil || kerr != nil {
			errs = append(errs, &InvalidEdgeError{Src: ed.Src, Dst: ed.Dst,
				Reason: errors.Join(derr, kerr).Error()})
			continue
		}
		if err := app.AddEdge(ed.Src, ed.Dst, ed.Payload, ed.ProcLength, ed.TupleType, direction, kind); err != nil {
			errs = append(errs, err)
		}
	}
	for _, sd := range ad.Selectivity {
		if err := app.AddSelectivity(sd.Module, sd.InType, sd.OutType, sd.Fraction); err != nil {
			errs = append(errs, err)
		}
	}
	if err := app.SetLoops(ad.Loops); err != nil {
		errs = append(errs, err)
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// BuildBindings creates the sensors and actuators of the experiment.  The random
// streams are reseeded from the experiment seed first and created in sensor
// declaration order, so identical descriptions give identical variates
func BuildBindings(xd *ExperimentDesc, tp *Topology, app *Application) (*Bindings, error) {
	SeedStreams(xd.Seed)
	bd := CreateBindings()
	errs := []error{}
	for _, sd := range xd.Sensors {
		gw, present := tp.DeviceByName(sd.Gateway)
		if !present {
			errs = append(errs, &InvalidTopologyError{Device: sd.Gateway,
				Reason: fmt.Sprintf("unknown gateway of sensor %s", sd.Name)})
			continue
		}
		dist, err := CreateDistribution(sd.Dist, sd.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := bd.AddSensor(sd.Name, sd.TupleType, gw.ID, sd.Latency, dist); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ad := range xd.Actuators {
		gw, present := tp.DeviceByName(ad.Gateway)
		if !present {
			errs = append(errs, &InvalidTopologyError{Device: ad.Gateway,
				Reason: fmt.Sprintf("unknown gateway of actuator %s", ad.Name)})
			continue
		}
		if err := bd.AddActuator(ad.Name, ad.ActuatorType, gw.ID, ad.Latency); err != nil {
			errs = append(errs, err)
		}
	}
	if err := ReportErrs(errs); err != nil {
		return nil, err
	}
	if err := bd.Validate(tp, app); err != nil {
		return nil, err
	}
	return bd, nil
}

// BuildPlacement returns the strategy a PlacementDesc names
func BuildPlacement(pd PlacementDesc) (Placement, error) {
	return CreatePlacement(pd.Strategy, pd.Hints)
}
