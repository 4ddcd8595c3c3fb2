package fogsim

// topo.go holds the hierarchical device topology.  Devices live in an arena
// (a slice indexed by DeviceID) and refer to their parent by id, so the tree
// carries no back-pointers.  The root (the cloud) is at level 0, and every
// other device sits one level below its parent.

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// DeviceID is the index of a device in its Topology
type DeviceID int

// NoParent marks the root of the tree
const NoParent DeviceID = -1

// DeviceSpec carries the per-device characteristics given at AddDevice
type DeviceSpec struct {
	Name string `json:"name" yaml:"name"`

	// number of processing elements and rate of each, total capacity is the product
	PEs       int     `json:"pes" yaml:"pes"`
	MIPSPerPE float64 `json:"mipsperpe" yaml:"mipsperpe"`

	RAM int `json:"ram" yaml:"ram"`

	// bandwidth of the link to the parent (UpBw) and from the parent (DownBw)
	UpBw   float64 `json:"upbw" yaml:"upbw"`
	DownBw float64 `json:"downbw" yaml:"downbw"`

	// power drawn while some module is processing, and otherwise
	BusyPower float64 `json:"busypower" yaml:"busypower"`
	IdlePower float64 `json:"idlepower" yaml:"idlepower"`

	// cost per MIPS per time unit of busy execution
	RatePerMIPS float64 `json:"ratepermips" yaml:"ratepermips"`

	Groups []string `json:"groups" yaml:"groups"`
}

// Device is the run-time representation of a compute node
type Device struct {
	DeviceSpec
	ID            DeviceID
	Parent        DeviceID
	UplinkLatency float64
	Level         int
}

// MIPS returns the total compute capacity of the device
func (dev *Device) MIPS() float64 {
	return float64(dev.PEs) * dev.MIPSPerPE
}

// IsRoot is true for the device with no parent
func (dev *Device) IsRoot() bool {
	return dev.Parent == NoParent
}

// PathHop is one step of a path toward the root.  Latency is the latency of
// the link that was crossed to reach Device, zero for the first step
type PathHop struct {
	Device  DeviceID
	Latency float64
}

// Topology owns the devices of one experiment
type Topology struct {
	Name    string
	devices []*Device
	byName  map[string]DeviceID

	// levels are recomputed lazily after any parent change
	levelsDirty bool

	// route cache, keyed by (src,dst)
	rtCache map[rtEndpts]*Route
}

// CreateTopology is a constructor
func CreateTopology(name string) *Topology {
	tp := new(Topology)
	tp.Name = name
	tp.devices = make([]*Device, 0)
	tp.byName = make(map[string]DeviceID)
	tp.rtCache = make(map[rtEndpts]*Route)
	return tp
}

// AddDevice includes a new parentless device and returns its id
func (tp *Topology) AddDevice(spec DeviceSpec) (DeviceID, error) {
	if len(spec.Name) == 0 {
		return NoParent, &InvalidTopologyError{Reason: "device with empty name"}
	}
	if _, present := tp.byName[spec.Name]; present {
		return NoParent, &InvalidTopologyError{Device: spec.Name, Reason: "duplicated device name"}
	}
	if spec.PEs < 1 || !(spec.MIPSPerPE > 0.0) {
		return NoParent, &InvalidTopologyError{Device: spec.Name, Reason: "compute capacity must be positive"}
	}
	if spec.BusyPower < 0.0 || spec.IdlePower < 0.0 {
		return NoParent, &InvalidTopologyError{Device: spec.Name, Reason: "negative power coefficient"}
	}

	dev := &Device{DeviceSpec: spec, ID: DeviceID(len(tp.devices)), Parent: NoParent}
	dev.Groups = slices.Clone(spec.Groups)
	tp.devices = append(tp.devices, dev)
	tp.byName[spec.Name] = dev.ID
	tp.levelsDirty = true
	return dev.ID, nil
}

func (tp *Topology) known(id DeviceID) bool {
	return id >= 0 && int(id) < len(tp.devices)
}

// SetParent links child below parent, with the given latency on the link
func (tp *Topology) SetParent(child, parent DeviceID, uplinkLatency float64) error {
	if !tp.known(child) {
		return &InvalidTopologyError{Reason: fmt.Sprintf("unknown device id %d", child)}
	}
	childDev := tp.devices[child]
	if !tp.known(parent) {
		return &InvalidTopologyError{Device: childDev.Name, Reason: fmt.Sprintf("unknown parent id %d", parent)}
	}
	if uplinkLatency < 0.0 || math.IsNaN(uplinkLatency) {
		return &InvalidTopologyError{Device: childDev.Name, Reason: "negative uplink latency"}
	}

	// the new link closes a cycle iff child is parent or one of its ancestors
	for here := parent; here != NoParent; here = tp.devices[here].Parent {
		if here == child {
			return &InvalidTopologyError{Device: childDev.Name,
				Reason: fmt.Sprintf("parent %s would create a cycle", tp.devices[parent].Name)}
		}
	}

	childDev.Parent = parent
	childDev.UplinkLatency = uplinkLatency
	tp.levelsDirty = true
	tp.rtCache = make(map[rtEndpts]*Route)
	return nil
}

// Validate checks that the devices form a single tree and assigns levels
func (tp *Topology) Validate() error {
	if len(tp.devices) == 0 {
		return &InvalidTopologyError{Reason: "topology has no devices"}
	}
	roots := []string{}
	for _, dev := range tp.devices {
		if dev.IsRoot() {
			roots = append(roots, dev.Name)
			continue
		}
		if !(dev.UpBw > 0.0) || !(dev.DownBw > 0.0) {
			return &InvalidTopologyError{Device: dev.Name, Reason: "link bandwidth to parent must be positive"}
		}
	}
	if len(roots) != 1 {
		return &InvalidTopologyError{Reason: fmt.Sprintf("expected exactly one root, found %v", roots)}
	}
	tp.computeLevels()
	return nil
}

// computeLevels walks each device to the root.  SetParent refuses cycles so every walk terminates
func (tp *Topology) computeLevels() {
	if !tp.levelsDirty {
		return
	}
	for _, dev := range tp.devices {
		level := 0
		for here := dev.Parent; here != NoParent; here = tp.devices[here].Parent {
			level += 1
		}
		dev.Level = level
	}
	tp.levelsDirty = false
}

// Device returns the device with the given id, or nil
func (tp *Topology) Device(id DeviceID) *Device {
	if !tp.known(id) {
		return nil
	}
	return tp.devices[id]
}

// DeviceByName looks up a device by its name
func (tp *Topology) DeviceByName(name string) (*Device, bool) {
	id, present := tp.byName[name]
	if !present {
		return nil, false
	}
	return tp.devices[id], true
}

// Devices lists the devices in the order they were added
func (tp *Topology) Devices() []*Device {
	return slices.Clone(tp.devices)
}

// NumDevices is the size of the arena
func (tp *Topology) NumDevices() int {
	return len(tp.devices)
}

// Root returns the id of the parentless device (NoParent if there is not exactly one)
func (tp *Topology) Root() DeviceID {
	root := NoParent
	for _, dev := range tp.devices {
		if dev.IsRoot() {
			if root != NoParent {
				return NoParent
			}
			root = dev.ID
		}
	}
	return root
}

// LevelOf returns the depth of the device in the tree, the root being at 0
func (tp *Topology) LevelOf(id DeviceID) int {
	tp.computeLevels()
	return tp.devices[id].Level
}

// PathToRoot lists the devices from id up to the root, inclusive.  The
// latency of each step is the uplink latency of the device just left
func (tp *Topology) PathToRoot(id DeviceID) []PathHop {
	if !tp.known(id) {
		return nil
	}
	path := []PathHop{{Device: id, Latency: 0.0}}
	here := tp.devices[id]
	for !here.IsRoot() {
		path = append(path, PathHop{Device: here.Parent, Latency: here.UplinkLatency})
		here = tp.devices[here.Parent]
	}
	return path
}

// IsAncestorOrSelf reports whether anc lies on the path from dev to the root
func (tp *Topology) IsAncestorOrSelf(anc, dev DeviceID) bool {
	for here := dev; here != NoParent; here = tp.devices[here].Parent {
		if here == anc {
			return true
		}
	}
	return false
}

// LCA returns the lowest common ancestor of the listed devices
func (tp *Topology) LCA(ids ...DeviceID) DeviceID {
	if len(ids) == 0 {
		return NoParent
	}
	tp.computeLevels()
	lca := ids[0]
	for _, id := range ids[1:] {
		a, b := lca, id
		for tp.devices[a].Level > tp.devices[b].Level {
			a = tp.devices[a].Parent
		}
		for tp.devices[b].Level > tp.devices[a].Level {
			b = tp.devices[b].Parent
		}
		for a != b {
			a = tp.devices[a].Parent
			b = tp.devices[b].Parent
		}
		lca = a
	}
	return lca
}

// Transform produces the serializable description of the topology
func (tp *Topology) Transform() TopoDesc {
	td := TopoDesc{Name: tp.Name, Devices: make([]DeviceDesc, 0, len(tp.devices))}
	for _, dev := range tp.devices {
		dd := DeviceDesc{DeviceSpec: dev.DeviceSpec, UplinkLatency: dev.UplinkLatency}
		if !dev.IsRoot() {
			dd.Parent = tp.devices[dev.Parent].Name
		}
		td.Devices = append(td.Devices, dd)
	}
	return td
}
