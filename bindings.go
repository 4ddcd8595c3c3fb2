package fogsim

// bindings.go holds the sensors and actuators of an experiment, each attached
// to exactly one gateway device

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Sensor emits tuples of one type into its gateway device
type Sensor struct {
	Name      string
	TupleType string
	Gateway   DeviceID
	Latency   float64
	Dist      Distribution
}

// Actuator consumes tuples sent to its type, from its gateway device
type Actuator struct {
	Name         string
	ActuatorType string
	Gateway      DeviceID
	Latency      float64
}

// Bindings owns the sensors and actuators
type Bindings struct {
	sensors   []*Sensor
	actuators []*Actuator
	names     map[string]bool
}

// CreateBindings is a constructor
func CreateBindings() *Bindings {
	bd := new(Bindings)
	bd.sensors = make([]*Sensor, 0)
	bd.actuators = make([]*Actuator, 0)
	bd.names = make(map[string]bool)
	return bd
}

// AddSensor attaches a sensor to a gateway
func (bd *Bindings) AddSensor(name, tupleType string, gateway DeviceID, latency float64, dist Distribution) error {
	if bd.names[name] {
		return fmt.Errorf("sensor or actuator name %s already used", name)
	}
	if dist == nil {
		return fmt.Errorf("sensor %s has no inter-arrival distribution", name)
	}
	if latency < 0.0 {
		return fmt.Errorf("sensor %s has negative latency", name)
	}
	bd.names[name] = true
	bd.sensors = append(bd.sensors, &Sensor{Name: name, TupleType: tupleType, Gateway: gateway,
		Latency: latency, Dist: dist})
	return nil
}

// AddActuator attaches an actuator to a gateway
func (bd *Bindings) AddActuator(name, actuatorType string, gateway DeviceID, latency float64) error {
	if bd.names[name] {
		return fmt.Errorf("sensor or actuator name %s already used", name)
	}
	if latency < 0.0 {
		return fmt.Errorf("actuator %s has negative latency", name)
	}
	bd.names[name] = true
	bd.actuators = append(bd.actuators, &Actuator{Name: name, ActuatorType: actuatorType, Gateway: gateway,
		Latency: latency})
	return nil
}

// Validate checks the gateways against the topology and the types against the application
func (bd *Bindings) Validate(tp *Topology, app *Application) error {
	for _, sensor := range bd.sensors {
		if tp.Device(sensor.Gateway) == nil {
			return &InvalidTopologyError{Reason: fmt.Sprintf("sensor %s attached to unknown gateway %d",
				sensor.Name, sensor.Gateway)}
		}
		if !app.isSensorType(sensor.TupleType) {
			return &InvalidEdgeError{Src: sensor.Name, Dst: sensor.TupleType,
				Reason: "no sensor edge carries the sensor's tuple type"}
		}
	}
	for _, act := range bd.actuators {
		if tp.Device(act.Gateway) == nil {
			return &InvalidTopologyError{Reason: fmt.Sprintf("actuator %s attached to unknown gateway %d",
				act.Name, act.Gateway)}
		}
		if !app.isActuatorType(act.ActuatorType) {
			return &InvalidEdgeError{Src: act.ActuatorType, Dst: act.Name,
				Reason: "no actuator edge terminates at the actuator's type"}
		}
	}
	return nil
}

// Sensors lists the sensors in declaration order
func (bd *Bindings) Sensors() []*Sensor {
	return slices.Clone(bd.sensors)
}

// Actuators lists the actuators in declaration order
func (bd *Bindings) Actuators() []*Actuator {
	return slices.Clone(bd.actuators)
}

// ActuatorAt returns the first actuator of the given type attached to the gateway, or nil
func (bd *Bindings) ActuatorAt(gateway DeviceID, actuatorType string) *Actuator {
	for _, act := range bd.actuators {
		if act.Gateway == gateway && act.ActuatorType == actuatorType {
			return act
		}
	}
	return nil
}
