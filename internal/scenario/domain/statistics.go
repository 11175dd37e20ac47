package domain

import (
	"math"
	"sort"
)

// 分位点（百分数）
const (
	P2_5  = 2.5
	P10   = 10.0
	P50   = 50.0
	P90   = 90.0
	P97_5 = 97.5
)

// Percentile 截断式最近秩分位数：idx = int(n * (p/100))，上限 n-1。
// sorted 必须已升序；空序列返回 NaN。
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := int(float64(n) * (p / 100))
	if idx > n-1 {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Summarize 把冲击分布汇总为 SimulationResult。impacts 会被原地升序排序。
// mu == 0 时 AccelerationSensitivity 固定为 0，这是有意的分支而非错误。
func Summarize(impacts []float64, mu float64) *SimulationResult {
	res := &SimulationResult{}
	n := len(impacts)
	if n == 0 {
		return res
	}

	sort.Float64s(impacts)

	res.ImpactBands = [3]float64{
		Percentile(impacts, P10),
		Percentile(impacts, P50),
		Percentile(impacts, P90),
	}
	res.ConfidenceIntervals = [2]float64{
		Percentile(impacts, P2_5),
		Percentile(impacts, P97_5),
	}

	var sum float64
	for _, v := range impacts {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range impacts {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n))

	res.MeanImpact = mean
	res.StdImpact = std
	res.RiskDeltas.UncertaintyExposure = std
	if mu != 0 {
		res.RiskDeltas.AccelerationSensitivity = mean / mu
	}
	res.MaxDrawdown = impacts[0]
	res.UpsidePotential = impacts[n-1]
	return res
}
