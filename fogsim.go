package fogsim

// fogsim.go has the code that builds an experiment from its description and
// runs it: topology, application, bindings, placement, then the engine

import (
	"errors"
	"fmt"
	"path"

	logger "github.com/sirupsen/logrus"
)

// Experiment holds the run-time objects built from an ExperimentDesc
type Experiment struct {
	Desc      *ExperimentDesc
	Topo      *Topology
	App       *Application
	Bindings  *Bindings
	Placement Placement
	Assign    *ModuleAssignment
	Trace     *TraceManager
	Engine    *Engine
}

// IsYAML reports whether the file name's extension selects yaml
func IsYAML(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".yml" || ext == ".YAML"
}

// RunOverrides replace what the experiment description gives for the placement
// strategy and the horizon.  Zero values leave the description alone
type RunOverrides struct {
	Strategy string
	Horizon  float64
}

// LoadExperiment reads the experiment description and, if paramFile is not
// empty, the parameter overrides to apply to it, and builds the experiment
func LoadExperiment(expFile, paramFile string, ovr RunOverrides, traceOn bool) (*Experiment, error) {
	empty := make([]byte, 0)
	xd, err := ReadExperimentDesc(expFile, IsYAML(expFile), empty)
	if err != nil {
		return nil, fmt.Errorf("loading experiment: %w", err)
	}
	if len(ovr.Strategy) > 0 {
		xd.Placement.Strategy = ovr.Strategy
	}
	if ovr.Horizon > 0.0 {
		xd.Horizon = ovr.Horizon
	}

	var excfg *ExpCfg
	if len(paramFile) > 0 {
		excfg, err = ReadExpCfg(paramFile, IsYAML(paramFile), empty)
		if err != nil {
			return nil, fmt.Errorf("loading parameters %s: %w", paramFile, err)
		}
	}
	xp, err := BuildExperiment(xd, excfg, traceOn)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", xd.Name, err)
	}
	return xp, nil
}

// BuildExperiment applies the overrides to the description, builds every
// component and places the modules.  Construction errors are returned before
// anything is simulated
func BuildExperiment(xd *ExperimentDesc, excfg *ExpCfg, traceOn bool) (*Experiment, error) {
	if !(xd.Horizon > 0.0) {
		return nil, fmt.Errorf("experiment %s needs a positive horizon", xd.Name)
	}
	if err := ApplyExpCfg(xd, excfg); err != nil {
		return nil, err
	}

	xp := &Experiment{Desc: xd}
	var err error
	if xp.Topo, err = BuildTopology(xd.Topo); err != nil {
		return nil, err
	}
	if xp.App, err = BuildApplication(xd.App); err != nil {
		return nil, err
	}
	if xp.Bindings, err = BuildBindings(xd, xp.Topo, xp.App); err != nil {
		return nil, err
	}
	if xp.Placement, err = BuildPlacement(xd.Placement); err != nil {
		return nil, err
	}
	if xp.Assign, err = xp.Placement.Place(xp.Topo, xp.App, xp.Bindings); err != nil {
		return nil, err
	}
	xp.Trace = CreateTraceManager(xd.Name, traceOn)
	return xp, nil
}

// Run simulates the experiment to its horizon on the given kernel.  A nil
// kernel gets an evt-based one
func (xp *Experiment) Run(k Kernel, log *logger.Logger) (*Report, error) {
	if xp.Engine != nil {
		return nil, errors.New("experiment " + xp.Desc.Name + " has already run")
	}
	if k == nil {
		k = CreateEvtKernel()
	}
	eng, err := CreateEngine(xp.Topo, xp.App, xp.Bindings, xp.Assign, k, log, xp.Trace)
	if err != nil {
		return nil, err
	}
	xp.Engine = eng

	rpt := eng.Run(xp.Desc.Horizon)
	rpt.Experiment = xp.Desc.Name
	return rpt, nil
}
