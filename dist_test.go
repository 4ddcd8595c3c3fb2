package fogsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicDist(t *testing.T) {
	dist, err := CreateDistribution(DistDesc{Type: "deterministic", Value: 5.0}, "soil")
	require.NoError(t, err)
	for idx := 0; idx < 5; idx++ {
		assert.Equal(t, 5.0, dist.NextInterval())
	}

	dist, err = CreateDistribution(DistDesc{Value: 7.0}, "humidity")
	require.NoError(t, err)
	assert.Equal(t, 7.0, dist.NextInterval())
}

func TestUniformDistBounds(t *testing.T) {
	dist, err := CreateDistribution(DistDesc{Type: "uniform", Min: 2.0, Max: 6.0}, "uniform-test")
	require.NoError(t, err)
	for idx := 0; idx < 1000; idx++ {
		v := dist.NextInterval()
		assert.GreaterOrEqual(t, v, 2.0)
		assert.Less(t, v, 6.0)
	}
}

func TestExponentialDist(t *testing.T) {
	dist, err := CreateDistribution(DistDesc{Type: "Exponential", Mean: 5.0}, "exp-test")
	require.NoError(t, err)
	sum := 0.0
	n := 20000
	for idx := 0; idx < n; idx++ {
		v := dist.NextInterval()
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 5.0, sum/float64(n), 0.25)
}

func TestCreateDistributionErrors(t *testing.T) {
	bad := []DistDesc{
		{Type: "deterministic"},
		{Type: "deterministic", Value: -1.0},
		{Type: "uniform", Min: 3.0, Max: 3.0},
		{Type: "uniform", Min: -1.0, Max: 3.0},
		{Type: "exponential"},
		{Type: "pareto", Mean: 1.0},
	}
	for _, dd := range bad {
		_, err := CreateDistribution(dd, "bad")
		assert.Error(t, err, "%+v", dd)
	}
}
