package domain

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// Assumptions 情景的量化假设
type Assumptions struct {
	Mu        float64
	Sigma     float64
	Narrative []string
}

// AssumptionProvider 为主题与情景类型提供漂移/波动率假设
type AssumptionProvider interface {
	Assume(ctx context.Context, topic, scenarioType string) (Assumptions, error)
}

type scenarioProfile struct {
	keywords []string
	mu       float64
	sigma    float64
}

var (
	bullProfile = scenarioProfile{keywords: []string{"bull", "expansion", "growth"}, mu: 0.15, sigma: 0.20}
	bearProfile = scenarioProfile{keywords: []string{"bear", "contraction", "shock", "choke"}, mu: -0.05, sigma: 0.35}
	baseProfile = scenarioProfile{mu: 0.05, sigma: 0.25}
)

// HeuristicAssumptionProvider 按情景类型关键词给出假设，可叠加小幅抖动
type HeuristicAssumptionProvider struct {
	lock sync.Mutex
	rand *rand.Rand // nil 表示不抖动
}

// NewHeuristicAssumptionProvider r 为 nil 时关闭抖动
func NewHeuristicAssumptionProvider(r *rand.Rand) *HeuristicAssumptionProvider {
	return &HeuristicAssumptionProvider{rand: r}
}

// Assume 实现 AssumptionProvider
func (p *HeuristicAssumptionProvider) Assume(_ context.Context, topic, scenarioType string) (Assumptions, error) {
	profile := matchProfile(scenarioType)
	mu, sigma := profile.mu, profile.sigma

	if p.rand != nil {
		p.lock.Lock()
		mu += p.uniform(-0.01, 0.01)
		sigma += p.uniform(-0.02, 0.02)
		p.lock.Unlock()
	}
	sigma = max(sigma, 0)

	return Assumptions{
		Mu:    mu,
		Sigma: sigma,
		Narrative: []string{
			fmt.Sprintf("Modeled dynamic for %s scenario", scenarioType),
			fmt.Sprintf("Adjusted %s yield curve assumptions", topic),
			"Supply chain volatility adjustment applied",
		},
	}, nil
}

func (p *HeuristicAssumptionProvider) uniform(lo, hi float64) float64 {
	return lo + p.rand.Float64()*(hi-lo)
}

func matchProfile(scenarioType string) scenarioProfile {
	s := strings.ToLower(scenarioType)
	for _, profile := range []scenarioProfile{bullProfile, bearProfile} {
		for _, w := range profile.keywords {
			if strings.Contains(s, w) {
				return profile
			}
		}
	}
	return baseProfile
}
