package fogsim

// dist.go holds the inter-arrival distributions sensors draw from.  Random
// variates come from rngstream streams, one per sensor.  A stream's state is
// taken from the package seed when it is created, not from its name, so
// SeedStreams must precede the creation of a run's streams.

import (
	"fmt"
	"math"
	"strings"

	"github.com/iti/rngstream"
)

// maxMasterSeed keeps the six successive package seeds below the modulus m2
const maxMasterSeed uint64 = 4294944443 - 6

// SeedStreams resets the package seed of the random streams.  Streams created
// afterwards, in the same order, draw the same variates
func SeedStreams(seed int64) {
	rngstream.SetRngStreamMasterSeed(uint64(seed) % maxMasterSeed)
}

// Distribution yields successive inter-arrival times
type Distribution interface {
	NextInterval() float64
}

// DeterministicDist always returns the same interval
type DeterministicDist struct {
	Value float64
}

func (dd *DeterministicDist) NextInterval() float64 {
	return dd.Value
}

// UniformDist draws uniformly from [Min, Max)
type UniformDist struct {
	Min, Max float64
	rng      *rngstream.RngStream
}

// CreateUniformDist is a constructor, the stream is named by rngName
func CreateUniformDist(min, max float64, rngName string) *UniformDist {
	return &UniformDist{Min: min, Max: max, rng: rngstream.New(rngName)}
}

func (ud *UniformDist) NextInterval() float64 {
	return ud.Min + (ud.Max-ud.Min)*ud.rng.RandU01()
}

// ExponentialDist draws exponentially distributed intervals with the given mean
type ExponentialDist struct {
	Mean float64
	rng  *rngstream.RngStream
}

// CreateExponentialDist is a constructor, the stream is named by rngName
func CreateExponentialDist(mean float64, rngName string) *ExponentialDist {
	return &ExponentialDist{Mean: mean, rng: rngstream.New(rngName)}
}

func (ed *ExponentialDist) NextInterval() float64 {
	u01 := ed.rng.RandU01()
	return -ed.Mean * math.Log(1.0-u01)
}

// CreateDistribution builds the distribution a DistDesc describes
func CreateDistribution(dd DistDesc, rngName string) (Distribution, error) {
	switch strings.ToLower(dd.Type) {
	case "deterministic", "constant", "":
		if !(dd.Value > 0.0) {
			return nil, fmt.Errorf("deterministic distribution for %s needs a positive value", rngName)
		}
		return &DeterministicDist{Value: dd.Value}, nil
	case "uniform":
		if dd.Min < 0.0 || !(dd.Max > dd.Min) {
			return nil, fmt.Errorf("uniform distribution for %s needs 0 <= min < max", rngName)
		}
		return CreateUniformDist(dd.Min, dd.Max, rngName), nil
	case "exponential", "exp":
		if !(dd.Mean > 0.0) {
			return nil, fmt.Errorf("exponential distribution for %s needs a positive mean", rngName)
		}
		return CreateExponentialDist(dd.Mean, rngName), nil
	}
	return nil, fmt.Errorf("unrecognized distribution type %q for %s", dd.Type, rngName)
}
