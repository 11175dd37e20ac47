package mysql

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"gorm.io/gorm"
)

// ScenarioRunModel 场景运行数据库模型。decimal 列只用于查询，精确输入与完整结果以 JSON 保存
type ScenarioRunModel struct {
	gorm.Model
	RunID        string `gorm:"column:run_id;type:varchar(36);uniqueIndex;not null"`
	TopicID      string `gorm:"column:topic_id;type:varchar(128);index;not null"`
	ScenarioType string `gorm:"column:scenario_type;type:varchar(64);not null"`
	Status       string `gorm:"column:status;type:varchar(20);default:'COMPLETED'"`

	BaseValue decimal.Decimal `gorm:"column:base_value;type:decimal(20,8)"`
	Mu        decimal.Decimal `gorm:"column:mu;type:decimal(12,8)"`
	Sigma     decimal.Decimal `gorm:"column:sigma;type:decimal(12,8)"`
	Exposure  decimal.Decimal `gorm:"column:exposure;type:decimal(20,8)"`
	Horizon   int             `gorm:"column:horizon;type:int"`

	MeanImpact decimal.Decimal `gorm:"column:mean_impact;type:decimal(20,10)"`
	P10Impact  decimal.Decimal `gorm:"column:p10_impact;type:decimal(20,10)"`
	P50Impact  decimal.Decimal `gorm:"column:p50_impact;type:decimal(20,10)"`
	P90Impact  decimal.Decimal `gorm:"column:p90_impact;type:decimal(20,10)"`
	Paths      int             `gorm:"column:paths;type:int"`
	Seed       string          `gorm:"column:seed;type:varchar(20)"`

	Inputs      string `gorm:"column:inputs;type:text"`
	Result      string `gorm:"column:result;type:text"`
	Assumptions string `gorm:"column:assumptions;type:text"`
}

// runInputs 模拟输入的原始 float64，避免 decimal 列的舍入
type runInputs struct {
	BaseValue float64 `json:"base_value"`
	Mu        float64 `json:"mu"`
	Sigma     float64 `json:"sigma"`
	Exposure  float64 `json:"exposure"`
}

func (ScenarioRunModel) TableName() string { return "scenario_runs" }

// mapping helpers

func toScenarioRunModel(run *domain.ScenarioRun) (*ScenarioRunModel, error) {
	result, err := json.Marshal(run.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	assumptions, err := json.Marshal(run.Assumptions)
	if err != nil {
		return nil, fmt.Errorf("marshal assumptions: %w", err)
	}
	inputs, err := json.Marshal(runInputs{
		BaseValue: run.BaseValue,
		Mu:        run.Mu,
		Sigma:     run.Sigma,
		Exposure:  run.Exposure,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal inputs: %w", err)
	}

	return &ScenarioRunModel{
		Model: gorm.Model{
			ID:        run.ID,
			CreatedAt: run.CreatedAt,
		},
		RunID:        run.RunID,
		TopicID:      run.TopicID,
		ScenarioType: run.ScenarioType,
		Status:       string(run.Status),
		BaseValue:    decimal.NewFromFloat(run.BaseValue),
		Mu:           decimal.NewFromFloat(run.Mu),
		Sigma:        decimal.NewFromFloat(run.Sigma),
		Exposure:     decimal.NewFromFloat(run.Exposure),
		Horizon:      run.Horizon,
		MeanImpact:   decimal.NewFromFloat(run.Result.MeanImpact),
		P10Impact:    decimal.NewFromFloat(run.Result.ImpactBands[0]),
		P50Impact:    decimal.NewFromFloat(run.Result.ImpactBands[1]),
		P90Impact:    decimal.NewFromFloat(run.Result.ImpactBands[2]),
		Paths:        run.Result.Paths,
		Seed:         strconv.FormatUint(run.Result.Seed, 10),
		Inputs:       string(inputs),
		Result:       string(result),
		Assumptions:  string(assumptions),
	}, nil
}

func toScenarioRun(m *ScenarioRunModel) (*domain.ScenarioRun, error) {
	run := &domain.ScenarioRun{
		ID:           m.ID,
		RunID:        m.RunID,
		TopicID:      m.TopicID,
		ScenarioType: m.ScenarioType,
		Status:       domain.ScenarioRunStatus(m.Status),
		BaseValue:    m.BaseValue.InexactFloat64(),
		Mu:           m.Mu.InexactFloat64(),
		Sigma:        m.Sigma.InexactFloat64(),
		Exposure:     m.Exposure.InexactFloat64(),
		Horizon:      m.Horizon,
		CreatedAt:    m.CreatedAt,
	}
	if m.Inputs != "" {
		var in runInputs
		if err := json.Unmarshal([]byte(m.Inputs), &in); err != nil {
			return nil, fmt.Errorf("unmarshal inputs of %s: %w", m.RunID, err)
		}
		run.BaseValue, run.Mu, run.Sigma, run.Exposure = in.BaseValue, in.Mu, in.Sigma, in.Exposure
	}
	if m.Result != "" {
		if err := json.Unmarshal([]byte(m.Result), &run.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result of %s: %w", m.RunID, err)
		}
	}
	if m.Assumptions != "" {
		if err := json.Unmarshal([]byte(m.Assumptions), &run.Assumptions); err != nil {
			return nil, fmt.Errorf("unmarshal assumptions of %s: %w", m.RunID, err)
		}
	}
	return run, nil
}
