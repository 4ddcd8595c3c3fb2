package fogsim

// app.go holds the application graph: modules, the typed edges between sensors,
// modules and actuators, the selectivity rules that say what a module emits, and
// the loops whose delay is reported.  The graph is validated once, after which it
// is not mutated.

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Direction of travel of a tuple on an edge, with respect to the root
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// ParseDirection accepts "up" or "down", in any case
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, fmt.Errorf("unrecognized edge direction %q", s)
}

// EdgeKind distinguishes what sits at the ends of an edge
type EdgeKind int

const (
	SensorEdge EdgeKind = iota
	ModuleEdge
	ActuatorEdge
)

func (k EdgeKind) String() string {
	switch k {
	case SensorEdge:
		return "sensor"
	case ActuatorEdge:
		return "actuator"
	}
	return "module"
}

// ParseEdgeKind accepts "sensor", "module" or "actuator"
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch strings.ToLower(s) {
	case "sensor":
		return SensorEdge, nil
	case "module":
		return ModuleEdge, nil
	case "actuator":
		return ActuatorEdge, nil
	}
	return ModuleEdge, fmt.Errorf("unrecognized edge kind %q", s)
}

// Module is a unit of application logic
type Module struct {
	Name string
	MIPS float64
	idx  int
}

// AppEdge is a directed, typed connection.  For a sensor edge Src is the
// sensor's tuple type, for an actuator edge Dst is the actuator type
type AppEdge struct {
	Src, Dst   string
	Payload    float64
	ProcLength float64
	TupleType  string
	Direction  Direction
	Kind       EdgeKind
	idx        int
}

// Loop is a monitored sequence of element names
type Loop struct {
	Name     string
	Elements []string
}

// Application owns the modules, edges, selectivity rules and loops of one application
type Application struct {
	Name string

	modules      []*Module
	moduleByName map[string]*Module

	edges       []*AppEdge
	edgeByTuple map[string]*AppEdge

	selectivity []*Selectivity
	loops       []*Loop

	// built by Validate
	validated bool
	modGraph  *simple.DirectedGraph
	order     []string
}

// CreateApplication is a constructor
func CreateApplication(name string) *Application {
	app := new(Application)
	app.Name = name
	app.modules = make([]*Module, 0)
	app.moduleByName = make(map[string]*Module)
	app.edges = make([]*AppEdge, 0)
	app.edgeByTuple = make(map[string]*AppEdge)
	app.selectivity = make([]*Selectivity, 0)
	app.loops = make([]*Loop, 0)
	return app
}

// AddModule includes a module with the given MIPS requirement
func (app *Application) AddModule(name string, mips float64) error {
	if app.validated {
		return fmt.Errorf("application %s already validated", app.Name)
	}
	if len(name) == 0 {
		return fmt.Errorf("module with empty name in application %s", app.Name)
	}
	if _, present := app.moduleByName[name]; present {
		return fmt.Errorf("module %s already present in application %s", name, app.Name)
	}
	if mips < 0.0 {
		return fmt.Errorf("module %s has negative MIPS requirement", name)
	}
	mod := &Module{Name: name, MIPS: mips, idx: len(app.modules)}
	app.modules = append(app.modules, mod)
	app.moduleByName[name] = mod
	return nil
}

// AddEdge includes an edge.  Module references are checked at Validate,
// the consistency of direction and kind is checked here
func (app *Application) AddEdge(src, dst string, payload, procLength float64, tupleType string,
	direction Direction, kind EdgeKind) error {
	if app.validated {
		return fmt.Errorf("application %s already validated", app.Name)
	}
	if len(tupleType) == 0 {
		return &InvalidEdgeError{Src: src, Dst: dst, Reason: "empty tuple type"}
	}
	if payload < 0.0 || procLength < 0.0 {
		return &InvalidEdgeError{Src: src, Dst: dst, Reason: "negative payload or processing length"}
	}
	if kind == SensorEdge && direction != Up {
		return &InvalidEdgeError{Src: src, Dst: dst, Reason: "sensor edges must be directed up"}
	}
	if kind == ActuatorEdge && direction != Down {
		return &InvalidEdgeError{Src: src, Dst: dst, Reason: "actuator edges must be directed down"}
	}
	if _, present := app.edgeByTuple[tupleType]; present {
		return &InvalidEdgeError{Src: src, Dst: dst, Reason: fmt.Sprintf("tuple type %s carried by more than one edge", tupleType)}
	}

	edge := &AppEdge{Src: src, Dst: dst, Payload: payload, ProcLength: procLength, TupleType: tupleType,
		Direction: direction, Kind: kind, idx: len(app.edges)}
	app.edges = append(app.edges, edge)
	app.edgeByTuple[tupleType] = edge
	return nil
}

// AddSelectivity says that a tuple of inType arriving at module produces
// fraction tuples of outType, in expectation
func (app *Application) AddSelectivity(module, inType, outType string, fraction float64) error {
	if app.validated {
		return fmt.Errorf("application %s already validated", app.Name)
	}
	if !(fraction > 0.0) || fraction > 1.0 {
		return &InvalidEdgeError{Src: inType, Dst: outType,
			Reason: fmt.Sprintf("selectivity fraction %g on module %s outside (0,1]", fraction, module)}
	}
	app.selectivity = append(app.selectivity, &Selectivity{Module: module, InType: inType, OutType: outType, Fraction: fraction})
	return nil
}

// SetLoops replaces the monitored loops
func (app *Application) SetLoops(loops [][]string) error {
	if app.validated {
		return fmt.Errorf("application %s already validated", app.Name)
	}
	app.loops = make([]*Loop, 0, len(loops))
	for _, elements := range loops {
		if len(elements) == 0 {
			return fmt.Errorf("empty loop in application %s", app.Name)
		}
		app.loops = append(app.loops, &Loop{Name: strings.Join(elements, "->"), Elements: slices.Clone(elements)})
	}
	return nil
}

// Validate checks every reference and builds the module graph.  After a successful
// call the application is frozen
func (app *Application) Validate() error {
	if app.validated {
		return nil
	}

	for _, edge := range app.edges {
		switch edge.Kind {
		case SensorEdge:
			if app.IsModule(edge.Src) {
				return &InvalidEdgeError{Src: edge.Src, Dst: edge.Dst, Reason: "sensor edge originates at a module"}
			}
			if !app.IsModule(edge.Dst) {
				return &UnknownModuleError{Module: edge.Dst, Where: "sensor edge " + edge.TupleType}
			}
		case ActuatorEdge:
			if !app.IsModule(edge.Src) {
				return &UnknownModuleError{Module: edge.Src, Where: "actuator edge " + edge.TupleType}
			}
			if app.IsModule(edge.Dst) {
				return &InvalidEdgeError{Src: edge.Src, Dst: edge.Dst, Reason: "actuator edge terminates at a module"}
			}
		default:
			if !app.IsModule(edge.Src) {
				return &UnknownModuleError{Module: edge.Src, Where: "edge " + edge.TupleType}
			}
			if !app.IsModule(edge.Dst) {
				return &UnknownModuleError{Module: edge.Dst, Where: "edge " + edge.TupleType}
			}
		}
	}

	for _, sel := range app.selectivity {
		if !app.IsModule(sel.Module) {
			return &UnknownModuleError{Module: sel.Module, Where: "selectivity " + sel.InType + "->" + sel.OutType}
		}
		in, present := app.edgeByTuple[sel.InType]
		if !present || in.Dst != sel.Module {
			return &InvalidEdgeError{Src: sel.InType, Dst: sel.Module,
				Reason: "selectivity input is not a tuple type arriving at the module"}
		}
		out, present := app.edgeByTuple[sel.OutType]
		if !present || out.Src != sel.Module {
			return &InvalidEdgeError{Src: sel.Module, Dst: sel.OutType,
				Reason: "selectivity output is not a tuple type leaving the module"}
		}
	}

	for _, loop := range app.loops {
		last := len(loop.Elements) - 1
		for idx, elm := range loop.Elements {
			if app.IsModule(elm) {
				continue
			}
			if idx == 0 && app.isSensorType(elm) {
				continue
			}
			if idx == last && app.isActuatorType(elm) {
				continue
			}
			return &UnknownModuleError{Module: elm, Where: "loop " + loop.Name}
		}
	}

	// module graph, node ids are module indices
	g := simple.NewDirectedGraph()
	for _, mod := range app.modules {
		g.AddNode(simple.Node(mod.idx))
	}
	for _, edge := range app.edges {
		if edge.Kind != ModuleEdge {
			continue
		}
		from := app.moduleByName[edge.Src].idx
		to := app.moduleByName[edge.Dst].idx
		if from == to {
			return &InvalidEdgeError{Src: edge.Src, Dst: edge.Dst, Reason: "self loop"}
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	// rank modules by the first edge that mentions them, so ties in the
	// topological order are broken by edge order
	rank := app.edgeRank()
	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return rank[nodes[i].ID()] < rank[nodes[j].ID()] })
	})
	if err != nil {
		return &InvalidEdgeError{Src: app.Name, Dst: app.Name, Reason: "module graph has a cycle: " + err.Error()}
	}

	app.order = make([]string, 0, len(sorted))
	for _, node := range sorted {
		app.order = append(app.order, app.modules[node.ID()].Name)
	}
	app.modGraph = g
	app.validated = true
	return nil
}

// edgeRank gives each module the index of the first edge naming it, modules that
// no edge names come after, in the order they were added
func (app *Application) edgeRank() map[int64]int {
	rank := make(map[int64]int)
	for _, edge := range app.edges {
		for _, name := range []string{edge.Src, edge.Dst} {
			mod, present := app.moduleByName[name]
			if !present {
				continue
			}
			if _, seen := rank[int64(mod.idx)]; !seen {
				rank[int64(mod.idx)] = edge.idx
			}
		}
	}
	for _, mod := range app.modules {
		if _, seen := rank[int64(mod.idx)]; !seen {
			rank[int64(mod.idx)] = len(app.edges) + mod.idx
		}
	}
	return rank
}

// Validated reports whether Validate has succeeded
func (app *Application) Validated() bool {
	return app.validated
}

// IsModule is true if name is a module of the application
func (app *Application) IsModule(name string) bool {
	_, present := app.moduleByName[name]
	return present
}

func (app *Application) isSensorType(name string) bool {
	edge, present := app.edgeByTuple[name]
	return present && edge.Kind == SensorEdge
}

func (app *Application) isActuatorType(name string) bool {
	for _, edge := range app.edges {
		if edge.Kind == ActuatorEdge && edge.Dst == name {
			return true
		}
	}
	return false
}

// Module returns the named module
func (app *Application) Module(name string) (*Module, bool) {
	mod, present := app.moduleByName[name]
	return mod, present
}

// Modules lists the modules in the order they were added
func (app *Application) Modules() []*Module {
	return slices.Clone(app.modules)
}

// Edges lists the edges in the order they were added
func (app *Application) Edges() []*AppEdge {
	return slices.Clone(app.edges)
}

// EdgeByTupleType returns the unique edge carrying tuples of the given type
func (app *Application) EdgeByTupleType(tupleType string) (*AppEdge, bool) {
	edge, present := app.edgeByTuple[tupleType]
	return edge, present
}

// InEdges lists the edges terminating at the module, in edge order
func (app *Application) InEdges(module string) []*AppEdge {
	in := make([]*AppEdge, 0)
	for _, edge := range app.edges {
		if edge.Dst == module && edge.Kind != ActuatorEdge {
			in = append(in, edge)
		}
	}
	return in
}

// OutEdges lists the edges leaving the module, in edge order
func (app *Application) OutEdges(module string) []*AppEdge {
	out := make([]*AppEdge, 0)
	for _, edge := range app.edges {
		if edge.Src == module && edge.Kind != SensorEdge {
			out = append(out, edge)
		}
	}
	return out
}

// SelectivityFor lists the rules fired by a tuple of inType arriving at module
func (app *Application) SelectivityFor(module, inType string) []*Selectivity {
	rules := make([]*Selectivity, 0)
	for _, sel := range app.selectivity {
		if sel.Module == module && sel.InType == inType {
			rules = append(rules, sel)
		}
	}
	return rules
}

// Selectivity lists all the rules
func (app *Application) Selectivity() []*Selectivity {
	return slices.Clone(app.selectivity)
}

// Loops lists the monitored loops
func (app *Application) Loops() []*Loop {
	return slices.Clone(app.loops)
}

// TopoOrder lists the modules so that every module follows its predecessors,
// ties broken by edge order.  Empty before Validate
func (app *Application) TopoOrder() []string {
	return slices.Clone(app.order)
}

// ReachableFrom lists, in topological order, the modules reached from sensors of
// the given tuple type by following edges toward the sink
func (app *Application) ReachableFrom(tupleType string) []string {
	edge, present := app.edgeByTuple[tupleType]
	if !present || edge.Kind != SensorEdge || !app.validated {
		return nil
	}
	return app.walkFrom(edge.Dst, true)
}

// Downstream lists, in topological order, the modules reached from the named
// module, not counting the module itself
func (app *Application) Downstream(module string) []string {
	if !app.validated || !app.IsModule(module) {
		return nil
	}
	return app.walkFrom(module, false)
}

// walkFrom does the breadth-first walk of the module graph from start
func (app *Application) walkFrom(start string, withStart bool) []string {
	reached := make(map[string]bool)
	var bf traverse.BreadthFirst
	bf.Visit = func(n graph.Node) {
		reached[app.modules[n.ID()].Name] = true
	}
	bf.Walk(app.modGraph, simple.Node(app.moduleByName[start].idx), nil)
	if !withStart {
		delete(reached, start)
	}

	rtn := make([]string, 0, len(reached))
	for _, name := range app.order {
		if reached[name] {
			rtn = append(rtn, name)
		}
	}
	return rtn
}

// Successors lists the modules the named module sends tuples to, in edge order
func (app *Application) Successors(module string) []string {
	succ := make([]string, 0)
	for _, edge := range app.OutEdges(module) {
		if edge.Kind == ModuleEdge && !slices.Contains(succ, edge.Dst) {
			succ = append(succ, edge.Dst)
		}
	}
	return succ
}

// Transform produces the serializable description of the application
func (app *Application) Transform() AppDesc {
	ad := AppDesc{Name: app.Name}
	for _, mod := range app.modules {
		ad.Modules = append(ad.Modules, ModuleDesc{Name: mod.Name, MIPS: mod.MIPS})
	}
	for _, edge := range app.edges {
		ad.Edges = append(ad.Edges, EdgeDesc{Src: edge.Src, Dst: edge.Dst, Payload: edge.Payload,
			ProcLength: edge.ProcLength, TupleType: edge.TupleType,
			Direction: edge.Direction.String(), Kind: edge.Kind.String()})
	}
	for _, sel := range app.selectivity {
		ad.Selectivity = append(ad.Selectivity, SelectivityDesc{Module: sel.Module, InType: sel.InType,
			OutType: sel.OutType, Fraction: sel.Fraction})
	}
	for _, loop := range app.loops {
		ad.Loops = append(ad.Loops, slices.Clone(loop.Elements))
	}
	return ad
}
