package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile_TruncatesNearestRank(t *testing.T) {
	sorted := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	cases := []struct {
		p    float64
		want float64
	}{
		{0, 0},
		{2.5, 0},  // int(0.25)
		{10, 1},   // int(1.0)
		{15, 1},   // int(1.5)，截断而非四舍五入
		{50, 5},   // int(5.0)
		{90, 9},   // int(9.0)
		{97.5, 9}, // int(9.75)
		{100, 9},  // 上限 n-1
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Percentile(sorted, tc.p), "p=%v", tc.p)
	}

	assert.Equal(t, 20.0, Percentile([]float64{10, 20, 30}, 50))
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestPercentile_ReferenceIndexAtTenThousand(t *testing.T) {
	sorted := make([]float64, 10000)
	for i := range sorted {
		sorted[i] = float64(i)
	}
	assert.Equal(t, 250.0, Percentile(sorted, P2_5))
	assert.Equal(t, 1000.0, Percentile(sorted, P10))
	assert.Equal(t, 5000.0, Percentile(sorted, P50))
	assert.Equal(t, 9000.0, Percentile(sorted, P90))
	assert.Equal(t, 9750.0, Percentile(sorted, P97_5))
}

func TestSummarize(t *testing.T) {
	impacts := []float64{4, 1, 3, 2}

	res := Summarize(impacts, 2)
	require.NotNil(t, res)

	assert.Equal(t, []float64{1, 2, 3, 4}, impacts, "impacts are sorted in place")
	assert.Equal(t, [3]float64{1, 3, 4}, res.ImpactBands)
	assert.Equal(t, [2]float64{1, 4}, res.ConfidenceIntervals)
	assert.Equal(t, 2.5, res.MeanImpact)
	assert.InDelta(t, math.Sqrt(1.25), res.StdImpact, 1e-15)
	assert.Equal(t, res.StdImpact, res.RiskDeltas.UncertaintyExposure)
	assert.Equal(t, 1.25, res.RiskDeltas.AccelerationSensitivity)
	assert.Equal(t, 1.0, res.MaxDrawdown)
	assert.Equal(t, 4.0, res.UpsidePotential)
}

func TestSummarize_ZeroDriftAndEmpty(t *testing.T) {
	res := Summarize([]float64{-1, 1}, 0)
	assert.Equal(t, 0.0, res.RiskDeltas.AccelerationSensitivity)
	assert.Equal(t, 0.0, res.MeanImpact)
	assert.Equal(t, 1.0, res.RiskDeltas.UncertaintyExposure)

	empty := Summarize(nil, 0.1)
	assert.Equal(t, &SimulationResult{}, empty)
}

func TestRiskDeltas_Map(t *testing.T) {
	m := RiskDeltas{AccelerationSensitivity: 0.3, UncertaintyExposure: 0.05}.Map()
	assert.Equal(t, map[string]float64{
		"acceleration_sensitivity": 0.3,
		"uncertainty_exposure":     0.05,
	}, m)
}
