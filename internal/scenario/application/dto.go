package application

import (
	"time"

	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
)

// PortfolioProfile 组合画像
type PortfolioProfile struct {
	AssetAllocation    map[string]float64 `json:"asset_allocation"`
	PublicPrivateSplit map[string]float64 `json:"public_private_split,omitempty"`
	InfraExposure      float64            `json:"infra_exposure,omitempty"`
	RiskTolerance      string             `json:"risk_tolerance,omitempty"`
}

// RunScenarioCommand 运行场景模拟命令
type RunScenarioCommand struct {
	TopicID      string           `json:"topic_id" binding:"required"`
	ScenarioType string           `json:"scenario_type" binding:"required"`
	Portfolio    PortfolioProfile `json:"portfolio_data"`
	// 可选覆盖，优先于假设来源
	Mu    *float64 `json:"mu,omitempty"`
	Sigma *float64 `json:"sigma,omitempty"`
	Seed  *uint64  `json:"seed,omitempty,string"`
}

// ScenarioRunDTO 场景运行结果
type ScenarioRunDTO struct {
	RunID                string             `json:"run_id"`
	TopicID              string             `json:"topic_id"`
	ScenarioType         string             `json:"scenario_type"`
	Status               string             `json:"status"`
	Horizon              int                `json:"horizon"`
	ImpactBands          []float64          `json:"impact_bands"`
	RiskDeltas           map[string]float64 `json:"risk_deltas"`
	ConfidenceIntervals  []float64          `json:"confidence_intervals"`
	MeanImpact           float64            `json:"mean_impact"`
	MaxDrawdown          float64            `json:"max_drawdown"`
	UpsidePotential      float64            `json:"upside_potential"`
	AssumptionsExplicit  map[string]float64 `json:"assumptions_explicit"`
	AugmentedAssumptions []string           `json:"augmented_assumptions"`
	Paths                int                `json:"paths"`
	Steps                int                `json:"steps"`
	Seed                 uint64             `json:"seed,string"`
	CreatedAt            time.Time          `json:"created_at"`
}

func toScenarioRunDTO(run *domain.ScenarioRun) *ScenarioRunDTO {
	if run == nil {
		return nil
	}
	res := run.Result
	return &ScenarioRunDTO{
		RunID:               run.RunID,
		TopicID:             run.TopicID,
		ScenarioType:        run.ScenarioType,
		Status:              string(run.Status),
		Horizon:             run.Horizon,
		ImpactBands:         res.ImpactBands[:],
		RiskDeltas:          res.RiskDeltas.Map(),
		ConfidenceIntervals: res.ConfidenceIntervals[:],
		MeanImpact:          res.MeanImpact,
		MaxDrawdown:         res.MaxDrawdown,
		UpsidePotential:     res.UpsidePotential,
		AssumptionsExplicit: map[string]float64{
			"mu":       run.Mu,
			"sigma":    run.Sigma,
			"exposure": run.Exposure,
		},
		AugmentedAssumptions: run.Assumptions,
		Paths:                res.Paths,
		Steps:                res.Steps,
		Seed:                 res.Seed,
		CreatedAt:            run.CreatedAt,
	}
}

func toScenarioRunDTOs(runs []*domain.ScenarioRun) []*ScenarioRunDTO {
	dtos := make([]*ScenarioRunDTO, 0, len(runs))
	for _, r := range runs {
		dtos = append(dtos, toScenarioRunDTO(r))
	}
	return dtos
}
