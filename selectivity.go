package fogsim

import "math"

// Selectivity maps a tuple type arriving at a module to a tuple type it emits.
// Fraction is the expected number of emitted tuples per arrival
type Selectivity struct {
	Module   string
	InType   string
	OutType  string
	Fraction float64
}

// emissions are accounted deterministically: each firing adds Fraction to a
// credit kept per (device, module, in, out), and a whole tuple is emitted each
// time the credit reaches one.  Over n firings floor(n*Fraction) tuples leave.
type selKey struct {
	dev     DeviceID
	module  string
	inType  string
	outType string
}

// credits absorb the rounding error of repeated float additions
const creditEps = 1e-9

type selectivityAcc map[selKey]float64

func (acc selectivityAcc) emissions(dev DeviceID, sel *Selectivity) int {
	key := selKey{dev: dev, module: sel.Module, inType: sel.InType, outType: sel.OutType}
	credit := acc[key] + sel.Fraction
	n := int(math.Floor(credit + creditEps))
	credit -= float64(n)
	if credit < 0.0 {
		credit = 0.0
	}
	acc[key] = credit
	return n
}
