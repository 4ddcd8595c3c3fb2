package fogsim

// energy.go integrates device power over time.  A device draws BusyPower while
// any module instance on it is in service and IdlePower otherwise; the meter
// is told of every transition and integrates piecewise.  Execution cost accrues
// only while busy, in proportion to the MIPS actually in service.

// PowerMeter accumulates energy and cost for one device
type PowerMeter struct {
	dev        *Device
	active     bool
	busyMIPS   float64
	lastUpdate float64
	energy     float64
	cost       float64
	busyTime   float64
	finalized  bool
}

// CreatePowerMeter is a constructor, the device starts idle at time zero
func CreatePowerMeter(dev *Device) *PowerMeter {
	pm := new(PowerMeter)
	pm.dev = dev
	return pm
}

// accrued returns what the current state adds over (lastUpdate, now]
func (pm *PowerMeter) accrued(now float64) (energy, cost, busy float64) {
	dt := now - pm.lastUpdate
	if !(dt > 0.0) || pm.finalized {
		return 0.0, 0.0, 0.0
	}
	if pm.active {
		return pm.dev.BusyPower * dt, pm.dev.RatePerMIPS * pm.busyMIPS * dt, dt
	}
	return pm.dev.IdlePower * dt, 0.0, 0.0
}

func (pm *PowerMeter) advance(now float64) {
	energy, cost, busy := pm.accrued(now)
	pm.energy += energy
	pm.cost += cost
	pm.busyTime += busy
	if now > pm.lastUpdate {
		pm.lastUpdate = now
	}
}

// Update closes the interval ending at now and records the new state
func (pm *PowerMeter) Update(now float64, active bool, busyMIPS float64) {
	if pm.finalized {
		return
	}
	pm.advance(now)
	pm.active = active
	pm.busyMIPS = busyMIPS
}

// Energy is the energy consumed up to now, without changing the meter
func (pm *PowerMeter) Energy(now float64) float64 {
	energy, _, _ := pm.accrued(now)
	return pm.energy + energy
}

// Cost is the execution cost accrued up to now, without changing the meter
func (pm *PowerMeter) Cost(now float64) float64 {
	_, cost, _ := pm.accrued(now)
	return pm.cost + cost
}

// BusyTime is the time spent busy up to now, without changing the meter
func (pm *PowerMeter) BusyTime(now float64) float64 {
	_, _, busy := pm.accrued(now)
	return pm.busyTime + busy
}

// Finalize integrates up to the horizon and freezes the meter
func (pm *PowerMeter) Finalize(horizon float64) {
	if pm.finalized {
		return
	}
	pm.advance(horizon)
	pm.finalized = true
}

// Active reports whether the device is currently busy
func (pm *PowerMeter) Active() bool {
	return pm.active
}
