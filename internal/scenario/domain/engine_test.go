package domain

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seedPtr(s uint64) *uint64 { return &s }

func newTestEngine(t *testing.T, cfg SimulationConfig, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	e, err := NewEngine(cfg, opts...)
	require.NoError(t, err)
	return e
}

func baselineRequest(seed uint64) SimulationRequest {
	return SimulationRequest{BaseValue: 1.0, Mu: 0.05, Sigma: 0.20, Exposure: 0.10, Seed: seedPtr(seed)}
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name  string
		cfg   SimulationConfig
		field string
	}{
		{"zero paths", SimulationConfig{Paths: 0, Steps: 5}, "paths"},
		{"negative paths", SimulationConfig{Paths: -10, Steps: 5}, "paths"},
		{"zero steps", SimulationConfig{Paths: 100, Steps: 0}, "steps"},
		{"negative workers", SimulationConfig{Paths: 100, Steps: 5, Workers: -1}, "workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewEngine(tc.cfg)
			require.Error(t, err)
			assert.Nil(t, e)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestNewEngine_DefaultsWorkers(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 3, Steps: 5, Workers: 64})
	assert.Equal(t, 3, e.Config().Workers)

	e = newTestEngine(t, DefaultSimulationConfig())
	assert.Positive(t, e.Config().Workers)
	assert.Equal(t, DefaultPaths, e.Config().Paths)
	assert.Equal(t, DefaultSteps, e.Config().Steps)
}

func TestEngine_Run_RejectsInvalidInput(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 100, Steps: 5})

	cases := []struct {
		name  string
		req   SimulationRequest
		field string
	}{
		{"negative sigma", SimulationRequest{BaseValue: 1, Mu: 0.05, Sigma: -0.01, Exposure: 0.1}, "sigma"},
		{"nan mu", SimulationRequest{BaseValue: 1, Mu: math.NaN(), Sigma: 0.2, Exposure: 0.1}, "mu"},
		{"inf exposure", SimulationRequest{BaseValue: 1, Mu: 0.05, Sigma: 0.2, Exposure: math.Inf(1)}, "exposure"},
		{"zero base", SimulationRequest{BaseValue: 0, Mu: 0.05, Sigma: 0.2, Exposure: 0.1}, "base_value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Run(tc.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var valErr *DomainValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tc.field, valErr.Field)
		})
	}
}

func TestEngine_Run_DeterministicWithSeed(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 5000, Steps: 5, Workers: 4})

	first, err := e.Run(baselineRequest(42))
	require.NoError(t, err)
	second, err := e.Run(baselineRequest(42))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, uint64(42), first.Seed)
	assert.Equal(t, 5000, first.Paths)
	assert.Equal(t, 5, first.Steps)

	other, err := e.Run(baselineRequest(43))
	require.NoError(t, err)
	assert.NotEqual(t, first.MeanImpact, other.MeanImpact)
}

func TestEngine_Run_IndependentOfWorkerCount(t *testing.T) {
	single := newTestEngine(t, SimulationConfig{Paths: 2000, Steps: 5, Workers: 1})
	many := newTestEngine(t, SimulationConfig{Paths: 2000, Steps: 5, Workers: 7})

	a, err := single.Run(baselineRequest(7))
	require.NoError(t, err)
	b, err := many.Run(baselineRequest(7))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

type fixedSeeds struct{ seed uint64 }

func (f fixedSeeds) Uint64() uint64 { return f.seed }

func TestEngine_Run_UsesInjectedSeedSource(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 1000, Steps: 5}, WithSeedSource(fixedSeeds{seed: 99}))

	req := baselineRequest(0)
	req.Seed = nil
	drawn, err := e.Run(req)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), drawn.Seed)

	explicit, err := e.Run(baselineRequest(99))
	require.NoError(t, err)
	assert.Equal(t, explicit, drawn)
}

func TestEngine_Run_PercentilesMonotonic(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 4000, Steps: 5})

	reqs := []SimulationRequest{
		baselineRequest(1),
		{BaseValue: 1, Mu: -0.05, Sigma: 0.35, Exposure: 0.3, Seed: seedPtr(2)},
		{BaseValue: 2.5, Mu: 0.15, Sigma: 0.05, Exposure: 1, Seed: seedPtr(3)},
	}
	for _, req := range reqs {
		res, err := e.Run(req)
		require.NoError(t, err)

		assert.LessOrEqual(t, res.ImpactBands[0], res.ImpactBands[1])
		assert.LessOrEqual(t, res.ImpactBands[1], res.ImpactBands[2])
		assert.LessOrEqual(t, res.ConfidenceIntervals[0], res.ImpactBands[0])
		assert.GreaterOrEqual(t, res.ConfidenceIntervals[1], res.ImpactBands[2])
		assert.LessOrEqual(t, res.MaxDrawdown, res.ConfidenceIntervals[0])
		assert.GreaterOrEqual(t, res.UpsidePotential, res.ConfidenceIntervals[1])
	}
}

func TestEngine_Run_BoundsMatchRawSample(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 3000, Steps: 5, Workers: 3})
	req := baselineRequest(11)

	impacts, seed, err := e.SampleImpacts(req)
	require.NoError(t, err)
	require.Len(t, impacts, 3000)
	assert.Equal(t, uint64(11), seed)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range impacts {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	res, err := e.Run(req)
	require.NoError(t, err)
	assert.Equal(t, lo, res.MaxDrawdown)
	assert.Equal(t, hi, res.UpsidePotential)
	for _, v := range impacts {
		assert.True(t, res.MaxDrawdown <= v && v <= res.UpsidePotential)
	}
}

func TestEngine_Run_ZeroDriftGuard(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 1000, Steps: 5})

	for _, sigma := range []float64{0, 0.1, 0.4} {
		res, err := e.Run(SimulationRequest{BaseValue: 1, Mu: 0, Sigma: sigma, Exposure: 0.7, Seed: seedPtr(5)})
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.RiskDeltas.AccelerationSensitivity)
		assert.Equal(t, 0.0, res.RiskDeltas.Map()["acceleration_sensitivity"])
	}
}

func TestEngine_Run_ScalesLinearlyWithExposure(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 2000, Steps: 5})

	base, err := e.Run(SimulationRequest{BaseValue: 1, Mu: 0.08, Sigma: 0.25, Exposure: 0.1, Seed: seedPtr(21)})
	require.NoError(t, err)

	for _, k := range []float64{2, 3, 10} {
		scaled, err := e.Run(SimulationRequest{BaseValue: 1, Mu: 0.08, Sigma: 0.25, Exposure: 0.1 * k, Seed: seedPtr(21)})
		require.NoError(t, err)

		for i := range base.ImpactBands {
			assert.InDelta(t, k*base.ImpactBands[i], scaled.ImpactBands[i], 1e-12)
		}
		for i := range base.ConfidenceIntervals {
			assert.InDelta(t, k*base.ConfidenceIntervals[i], scaled.ConfidenceIntervals[i], 1e-12)
		}
		assert.InDelta(t, k*base.MeanImpact, scaled.MeanImpact, 1e-12)
		assert.InDelta(t, k*base.StdImpact, scaled.StdImpact, 1e-12)
		assert.InDelta(t, k*base.MaxDrawdown, scaled.MaxDrawdown, 1e-12)
		assert.InDelta(t, k*base.UpsidePotential, scaled.UpsidePotential, 1e-12)
		assert.InDelta(t, k*base.RiskDeltas.AccelerationSensitivity, scaled.RiskDeltas.AccelerationSensitivity, 1e-10)
		assert.InDelta(t, k*base.RiskDeltas.UncertaintyExposure, scaled.RiskDeltas.UncertaintyExposure, 1e-12)
	}
}

func TestEngine_Run_ZeroVolatilityIsDegenerate(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 500, Steps: 5})

	res, err := e.Run(SimulationRequest{BaseValue: 1, Mu: 0.04, Sigma: 0, Exposure: 0.5, Seed: seedPtr(3)})
	require.NoError(t, err)

	want := (math.Exp(0.04*5) - 1) * 0.5
	assert.InDelta(t, want, res.MeanImpact, 1e-12)
	assert.InDelta(t, 0, res.StdImpact, 1e-12)
	assert.Equal(t, res.MaxDrawdown, res.UpsidePotential)
	assert.Equal(t, res.ImpactBands[0], res.ImpactBands[2])
}

func TestEngine_Run_ReferenceScenario(t *testing.T) {
	e := newTestEngine(t, DefaultSimulationConfig())

	res, err := e.Run(baselineRequest(20240601))
	require.NoError(t, err)

	// 对数正态终值：中位数 exp((mu-sigma^2/2)T)，均值 exp(mu*T)
	median := (math.Exp((0.05-0.02)*5) - 1) * 0.10
	mean := (math.Exp(0.05*5) - 1) * 0.10
	assert.InDelta(t, 0.0161, median, 0.0001)

	assert.InDelta(t, median, res.ImpactBands[1], 0.0025)
	assert.InDelta(t, mean, res.MeanImpact, 0.0025)
	assert.Greater(t, res.RiskDeltas.UncertaintyExposure, 0.0)
	assert.InDelta(t, res.MeanImpact/0.05, res.RiskDeltas.AccelerationSensitivity, 1e-12)
}

func TestEngine_Run_ConcurrentCallers(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 1000, Steps: 5, Workers: 2})

	want, err := e.Run(baselineRequest(8))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*SimulationResult, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Run(baselineRequest(8))
			if err == nil {
				results[i] = res
			}
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestEngine_Run_ImpactMeasuredFromUnitBaseline(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 100, Steps: 5})

	res, err := e.Run(SimulationRequest{BaseValue: 2, Mu: 0.02, Sigma: 0, Exposure: 0.5, Seed: seedPtr(1)})
	require.NoError(t, err)

	// 参照点固定为 1.0 而非 BaseValue
	want := (2*math.Exp(0.02*5) - 1) * 0.5
	assert.InDelta(t, want, res.MeanImpact, 1e-12)
	assert.InDelta(t, want, res.ImpactBands[1], 1e-12)
}

func TestEngine_Run_RejectsOverflow(t *testing.T) {
	e := newTestEngine(t, SimulationConfig{Paths: 100, Steps: 5, Workers: 4})

	cases := []struct {
		name string
		req  SimulationRequest
	}{
		// exp(1000) = +Inf，乘以零敞口为 NaN
		{"terminal value overflow", SimulationRequest{BaseValue: 1, Mu: 200, Sigma: 0, Exposure: 0, Seed: seedPtr(1)}},
		{"terminal value overflow with exposure", SimulationRequest{BaseValue: 1, Mu: 200, Sigma: 0, Exposure: 0.1, Seed: seedPtr(1)}},
		// 每条路径有限，但求和溢出
		{"mean overflow", SimulationRequest{BaseValue: 1, Mu: 141.5, Sigma: 0, Exposure: 1, Seed: seedPtr(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Run(tc.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var valErr *DomainValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, "mu", valErr.Field)
		})
	}

	impacts, _, err := e.SampleImpacts(SimulationRequest{BaseValue: 1, Mu: 200, Sigma: 0, Exposure: 0.1, Seed: seedPtr(1)})
	require.Error(t, err)
	assert.Nil(t, impacts)
}
