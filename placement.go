package fogsim

// placement.go decides which device(s) host each module.  Two strategies share
// one contract: StaticMapping resolves an explicit table, EdgeWard pushes modules
// as close to their sensors as capacity allows.  Neither touches the topology or
// the application; the result is a ModuleAssignment side table.
//
// A module may have several instances, one per device listed for it.  A tuple
// headed for a module is delivered to the instance nearest its origin gateway on
// the gateway's path to the root.

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"
)

// capacity comparisons tolerate float round-off
const mipsEps = 1e-9

// Placement is the contract shared by the strategies
type Placement interface {
	Name() string
	Place(tp *Topology, app *Application, bd *Bindings) (*ModuleAssignment, error)
}

// ModuleAssignment maps module names to the devices hosting their instances
type ModuleAssignment struct {
	Strategy string
	hosts    map[string][]DeviceID
}

func createModuleAssignment(strategy string) *ModuleAssignment {
	return &ModuleAssignment{Strategy: strategy, hosts: make(map[string][]DeviceID)}
}

func (ma *ModuleAssignment) add(module string, dev DeviceID) {
	if slices.Contains(ma.hosts[module], dev) {
		return
	}
	ma.hosts[module] = append(ma.hosts[module], dev)
}

// Hosts lists the devices hosting the module, in placement order
func (ma *ModuleAssignment) Hosts(module string) []DeviceID {
	return slices.Clone(ma.hosts[module])
}

// Placed reports whether the module has at least one instance
func (ma *ModuleAssignment) Placed(module string) bool {
	return len(ma.hosts[module]) > 0
}

// Modules lists the placed modules, sorted by name
func (ma *ModuleAssignment) Modules() []string {
	names := make([]string, 0, len(ma.hosts))
	for name := range ma.hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResidentOn lists the modules with an instance on dev, sorted by name
func (ma *ModuleAssignment) ResidentOn(dev DeviceID) []string {
	names := make([]string, 0)
	for name, devs := range ma.hosts {
		if slices.Contains(devs, dev) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HostFor returns the instance of module that serves tuples originating at
// origin: the first host met walking from origin to the root
func (ma *ModuleAssignment) HostFor(tp *Topology, module string, origin DeviceID) (DeviceID, bool) {
	devs := ma.hosts[module]
	if len(devs) == 0 {
		return NoParent, false
	}
	for _, hop := range tp.PathToRoot(origin) {
		if slices.Contains(devs, hop.Device) {
			return hop.Device, true
		}
	}
	return NoParent, false
}

// UsedMIPS sums the MIPS requirement of the instances on each device
func (ma *ModuleAssignment) UsedMIPS(app *Application) map[DeviceID]float64 {
	used := make(map[DeviceID]float64)
	for name, devs := range ma.hosts {
		mod, present := app.Module(name)
		if !present {
			continue
		}
		for _, dev := range devs {
			used[dev] += mod.MIPS
		}
	}
	return used
}

// Table gives the assignment by device name, in the form of StaticMapping hints
func (ma *ModuleAssignment) Table(tp *Topology) map[string][]string {
	table := make(map[string][]string)
	for name, devs := range ma.hosts {
		for _, dev := range devs {
			table[name] = append(table[name], tp.Device(dev).Name)
		}
	}
	return table
}

// Equal compares two assignments instance by instance
func (ma *ModuleAssignment) Equal(other *ModuleAssignment) bool {
	if len(ma.hosts) != len(other.hosts) {
		return false
	}
	for name, devs := range ma.hosts {
		if !slices.Equal(devs, other.hosts[name]) {
			return false
		}
	}
	return true
}

// CreatePlacement returns the strategy with the given name
func CreatePlacement(strategy string, hints map[string][]string) (Placement, error) {
	switch strategy {
	case "mapping", "static", "cloud":
		return &StaticMapping{Hints: hints}, nil
	case "edgeward", "edge-ward", "fog":
		return &EdgeWard{Hints: hints}, nil
	}
	return nil, fmt.Errorf("unrecognized placement strategy %q", strategy)
}

// StaticMapping places each module exactly where its hints say
type StaticMapping struct {
	Hints map[string][]string
}

func (sm *StaticMapping) Name() string {
	return "mapping"
}

// Place resolves the hints table.  Every module of the application needs an entry
func (sm *StaticMapping) Place(tp *Topology, app *Application, bd *Bindings) (*ModuleAssignment, error) {
	ma := createModuleAssignment(sm.Name())

	hinted := make([]string, 0, len(sm.Hints))
	for name := range sm.Hints {
		hinted = append(hinted, name)
	}
	sort.Strings(hinted)
	for _, name := range hinted {
		if !app.IsModule(name) {
			return nil, &UnknownModuleError{Module: name, Where: "module mapping"}
		}
	}

	for _, mod := range app.Modules() {
		devNames := sm.Hints[mod.Name]
		if len(devNames) == 0 {
			return nil, &UnplaceableModuleError{Module: mod.Name, Strategy: sm.Name(),
				Reason: "module absent from mapping"}
		}
		for _, devName := range devNames {
			dev, present := tp.DeviceByName(devName)
			if !present {
				return nil, &UnplaceableModuleError{Module: mod.Name, Strategy: sm.Name(),
					Reason: fmt.Sprintf("unknown device %s", devName)}
			}
			ma.add(mod.Name, dev.ID)
		}
	}
	return ma, nil
}

// EdgeWard places modules as close to the sensors feeding them as capacity
// allows.  Hints pin modules to the devices they name
type EdgeWard struct {
	Hints map[string][]string
}

func (ew *EdgeWard) Name() string {
	return "edgeward"
}

// edgeWardState carries the bookkeeping of one Place call
type edgeWardState struct {
	tp   *Topology
	app  *Application
	ma   *ModuleAssignment
	used map[DeviceID]float64
}

func (st *edgeWardState) fits(dev DeviceID, mod *Module) bool {
	return st.tp.Device(dev).MIPS()-st.used[dev]+mipsEps >= mod.MIPS
}

func (st *edgeWardState) assign(dev DeviceID, mod *Module) {
	st.ma.add(mod.Name, dev)
	st.used[dev] += mod.MIPS
}

// ascend returns the lowest device at or above start with room for mod
func (st *edgeWardState) ascend(start DeviceID, mod *Module) (DeviceID, bool) {
	for _, hop := range st.tp.PathToRoot(start) {
		if st.fits(hop.Device, mod) {
			return hop.Device, true
		}
	}
	return NoParent, false
}

// Place runs the heuristic.  Modules are visited in topological order (ties broken
// by edge order), so that every module is placed after the modules feeding it
func (ew *EdgeWard) Place(tp *Topology, app *Application, bd *Bindings) (*ModuleAssignment, error) {
	if !app.Validated() {
		if err := app.Validate(); err != nil {
			return nil, err
		}
	}
	st := &edgeWardState{tp: tp, app: app, ma: createModuleAssignment(ew.Name()), used: make(map[DeviceID]float64)}

	hinted := make([]string, 0, len(ew.Hints))
	for name := range ew.Hints {
		hinted = append(hinted, name)
	}
	sort.Strings(hinted)
	for _, name := range hinted {
		if !app.IsModule(name) {
			return nil, &UnknownModuleError{Module: name, Where: "edge-ward hints"}
		}
	}

	// pinned modules first, they consume capacity before anything is pushed down
	pinned := make(map[string]bool)
	for _, name := range app.TopoOrder() {
		devNames, present := ew.Hints[name]
		if !present || len(devNames) == 0 {
			continue
		}
		mod, _ := app.Module(name)
		for _, devName := range devNames {
			dev, present := tp.DeviceByName(devName)
			if !present {
				return nil, &UnplaceableModuleError{Module: name, Strategy: ew.Name(),
					Reason: fmt.Sprintf("unknown device %s", devName)}
			}
			if !st.fits(dev.ID, mod) {
				return nil, &UnplaceableModuleError{Module: name, Strategy: ew.Name(),
					Reason: fmt.Sprintf("pinned device %s lacks capacity", devName)}
			}
			st.assign(dev.ID, mod)
		}
		pinned[name] = true
	}

	// gateways feeding each module, in sensor declaration order
	feeders := make(map[string][]DeviceID)
	for _, sensor := range bd.Sensors() {
		for _, name := range app.ReachableFrom(sensor.TupleType) {
			if !slices.Contains(feeders[name], sensor.Gateway) {
				feeders[name] = append(feeders[name], sensor.Gateway)
			}
		}
	}

	root := tp.Root()
	for _, name := range app.TopoOrder() {
		if pinned[name] {
			continue
		}
		mod, _ := app.Module(name)
		gateways := feeders[name]

		// no sensor ancestry: the sink defaults to the root
		if len(gateways) == 0 {
			if !st.fits(root, mod) {
				return nil, &UnplaceableModuleError{Module: name, Strategy: ew.Name(),
					Reason: "root lacks capacity for module without sensor ancestry"}
			}
			st.assign(root, mod)
			continue
		}

		inEdges := app.InEdges(name)
		if len(inEdges) > 1 {
			if err := st.placeAggregate(mod, inEdges, gateways); err != nil {
				return nil, err
			}
			continue
		}
		for _, gw := range gateways {
			if err := st.placeOnPath(mod, inEdges, gw); err != nil {
				return nil, err
			}
		}
	}
	return st.ma, nil
}

// placeOnPath places (or reuses) the instance of a single-input module serving gateway gw
func (st *edgeWardState) placeOnPath(mod *Module, inEdges []*AppEdge, gw DeviceID) error {
	if _, present := st.ma.HostFor(st.tp, mod.Name, gw); present {
		return nil
	}

	start := gw
	if len(inEdges) == 1 && inEdges[0].Kind == ModuleEdge {
		predHost, present := st.ma.HostFor(st.tp, inEdges[0].Src, gw)
		if !present {
			return &UnplaceableModuleError{Module: mod.Name, Strategy: "edgeward",
				Reason: fmt.Sprintf("predecessor %s has no instance above gateway %s",
					inEdges[0].Src, st.tp.Device(gw).Name)}
		}
		start = predHost
	}

	dev, found := st.ascend(start, mod)
	if !found {
		return &UnplaceableModuleError{Module: mod.Name, Strategy: "edgeward",
			Reason: fmt.Sprintf("no device between %s and the root has capacity %g", st.tp.Device(start).Name, mod.MIPS)}
	}
	st.assign(dev, mod)
	return nil
}

// placeAggregate places the single instance of a module joining several inputs,
// at or above the common ancestor of every gateway feeding it
func (st *edgeWardState) placeAggregate(mod *Module, inEdges []*AppEdge, gateways []DeviceID) error {
	start := st.tp.LCA(gateways...)

	// an already placed predecessor above the common ancestor raises the floor
	for _, gw := range gateways {
		for _, edge := range inEdges {
			if edge.Kind != ModuleEdge {
				continue
			}
			predHost, present := st.ma.HostFor(st.tp, edge.Src, gw)
			if !present {
				continue
			}
			if st.tp.IsAncestorOrSelf(predHost, start) && st.tp.LevelOf(predHost) < st.tp.LevelOf(start) {
				start = predHost
			}
		}
	}

	dev, found := st.ascend(start, mod)
	if !found {
		return &UnplaceableModuleError{Module: mod.Name, Strategy: "edgeward",
			Reason: fmt.Sprintf("no device between %s and the root has capacity %g", st.tp.Device(start).Name, mod.MIPS)}
	}
	st.assign(dev, mod)
	return nil
}
