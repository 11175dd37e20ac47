package domain

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicAssumptionProvider_Profiles(t *testing.T) {
	p := NewHeuristicAssumptionProvider(nil)

	cases := []struct {
		scenario string
		mu       float64
		sigma    float64
	}{
		{"Bull Case", 0.15, 0.20},
		{"rapid-expansion", 0.15, 0.20},
		{"Supply Shock", -0.05, 0.35},
		{"chip choke", -0.05, 0.35},
		{"baseline", 0.05, 0.25},
		{"", 0.05, 0.25},
	}
	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			a, err := p.Assume(context.Background(), "quantum-computing", tc.scenario)
			require.NoError(t, err)
			assert.Equal(t, tc.mu, a.Mu)
			assert.Equal(t, tc.sigma, a.Sigma)
			require.Len(t, a.Narrative, 3)
			assert.Contains(t, a.Narrative[1], "quantum-computing")
		})
	}
}

func TestHeuristicAssumptionProvider_JitterBounded(t *testing.T) {
	p := NewHeuristicAssumptionProvider(rand.New(rand.NewPCG(1, 2)))

	seen := map[float64]bool{}
	for range 200 {
		a, err := p.Assume(context.Background(), "fusion", "bear")
		require.NoError(t, err)
		assert.InDelta(t, -0.05, a.Mu, 0.01)
		assert.InDelta(t, 0.35, a.Sigma, 0.02)
		seen[a.Mu] = true
	}
	assert.Greater(t, len(seen), 1)
}
