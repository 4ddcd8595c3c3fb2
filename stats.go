package fogsim

import (
	"math"
	"sort"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// DelayStats summarizes a stream of delay samples.  Count, Min, Max and Mean
// are maintained as samples arrive, the spread is computed on demand
type DelayStats struct {
	Name    string
	Count   int
	Min     float64
	Max     float64
	Mean    float64
	samples []float64
}

// CreateDelayStats is a constructor
func CreateDelayStats(name string) *DelayStats {
	return &DelayStats{Name: name, Min: math.Inf(1), Max: math.Inf(-1), samples: make([]float64, 0)}
}

// Add includes a sample
func (ds *DelayStats) Add(sample float64) {
	ds.Count += 1
	ds.Mean += (sample - ds.Mean) / float64(ds.Count)
	ds.Min = math.Min(ds.Min, sample)
	ds.Max = math.Max(ds.Max, sample)

	// the running mean may drift outside [Min, Max] by round-off
	ds.Mean = math.Max(ds.Min, math.Min(ds.Max, ds.Mean))
	ds.samples = append(ds.samples, sample)
}

// StdDev is the sample standard deviation, zero with fewer than two samples
func (ds *DelayStats) StdDev() float64 {
	if ds.Count < 2 {
		return 0.0
	}
	return stat.StdDev(ds.samples, nil)
}

// Quantile returns the empirical p-quantile of the samples, zero if there are none
func (ds *DelayStats) Quantile(p float64) float64 {
	if ds.Count == 0 {
		return 0.0
	}
	sorted := slices.Clone(ds.samples)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// P95 is the empirical 95th percentile
func (ds *DelayStats) P95() float64 {
	return ds.Quantile(0.95)
}

// Summary gives the statistics with zero standing in for the bounds of an empty stream
func (ds *DelayStats) Summary() (count int, minV, maxV, mean float64) {
	if ds.Count == 0 {
		return 0, 0.0, 0.0, 0.0
	}
	return ds.Count, ds.Min, ds.Max, ds.Mean
}
