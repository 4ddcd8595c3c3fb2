package fogsim

import "fmt"

// TupleState tracks where a tuple is in its life
type TupleState int

const (
	Created TupleState = iota
	InTransit
	Delivered
	Processed
	Consumed
	Dropped
)

func (ts TupleState) String() string {
	switch ts {
	case Created:
		return "created"
	case InTransit:
		return "in-transit"
	case Delivered:
		return "delivered"
	case Processed:
		return "processed"
	case Consumed:
		return "consumed"
	case Dropped:
		return "dropped"
	}
	return fmt.Sprintf("state(%d)", int(ts))
}

// TrailMark records the time a tuple, or the tuple it descends from, reached an element
type TrailMark struct {
	Name string
	At   float64
}

// Tuple is the unit of data flowing through the application.  A tuple emitted by
// a module inherits the trail and origin gateway of the tuple that caused it
type Tuple struct {
	ID         int
	Lineage    int // id of the sensor tuple this one descends from
	Type       string
	Edge       *AppEdge
	Created    float64 // time the tuple left its source
	Emitted    float64 // time of the sensor emission the tuple descends from
	Delay      float64 // time spent between Created and the last delivery
	NextModule string  // destination module, empty for actuator tuples
	Target     string  // destination actuator name, for actuator tuples
	Origin     DeviceID
	Device     DeviceID // device the tuple is on, or is headed to while in transit
	ArriveAt   float64
	SensorName string
	Trail      []TrailMark
	State      TupleState
}

// mark appends an element to the trail
func (tpl *Tuple) mark(name string, at float64) {
	tpl.Trail = append(tpl.Trail, TrailMark{Name: name, At: at})
}

// trailEndsWith returns the mark where elements begin, if the trail's suffix equals elements
func (tpl *Tuple) trailEndsWith(elements []string) (TrailMark, bool) {
	n := len(elements)
	if n == 0 || n > len(tpl.Trail) {
		return TrailMark{}, false
	}
	base := len(tpl.Trail) - n
	for idx, elm := range elements {
		if tpl.Trail[base+idx].Name != elm {
			return TrailMark{}, false
		}
	}
	return tpl.Trail[base], true
}

// descend builds the tuple a module emits in response to tpl
func (tpl *Tuple) descend(id int, edge *AppEdge, now float64) *Tuple {
	child := &Tuple{ID: id, Lineage: tpl.Lineage, Type: edge.TupleType, Edge: edge, Created: now, Emitted: tpl.Emitted,
		Origin: tpl.Origin, Device: tpl.Device, SensorName: tpl.SensorName, State: Created}
	child.Trail = make([]TrailMark, len(tpl.Trail))
	copy(child.Trail, tpl.Trail)
	if edge.Kind == ModuleEdge {
		child.NextModule = edge.Dst
	}
	return child
}
