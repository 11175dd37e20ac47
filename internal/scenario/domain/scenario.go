package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScenarioRunStatus 场景运行状态
type ScenarioRunStatus string

const (
	ScenarioRunStatusCompleted ScenarioRunStatus = "COMPLETED"
)

// ScenarioRun 一次场景模拟的结果记录
type ScenarioRun struct {
	ID           uint              `json:"id"`
	RunID        string            `json:"run_id"`
	TopicID      string            `json:"topic_id"`
	ScenarioType string            `json:"scenario_type"`
	Status       ScenarioRunStatus `json:"status"`

	// 显式假设
	BaseValue float64 `json:"base_value"`
	Mu        float64 `json:"mu"`
	Sigma     float64 `json:"sigma"`
	Exposure  float64 `json:"exposure"`
	Horizon   int     `json:"horizon"` // 年，与引擎步数一致

	Result      SimulationResult `json:"result"`
	Assumptions []string         `json:"assumptions"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewScenarioRun 由一次完成的模拟构造运行记录
func NewScenarioRun(topicID, scenarioType string, req SimulationRequest, assumptions Assumptions, res *SimulationResult) *ScenarioRun {
	return &ScenarioRun{
		RunID:        uuid.NewString(),
		TopicID:      topicID,
		ScenarioType: scenarioType,
		Status:       ScenarioRunStatusCompleted,
		BaseValue:    req.BaseValue,
		Mu:           req.Mu,
		Sigma:        req.Sigma,
		Exposure:     req.Exposure,
		Horizon:      res.Steps,
		Result:       *res,
		Assumptions:  assumptions.Narrative,
		CreatedAt:    time.Now(),
	}
}

// ScenarioRunRepository 场景运行仓储接口
type ScenarioRunRepository interface {
	Save(ctx context.Context, run *ScenarioRun) error
	// Get 不存在时返回 (nil, nil)
	Get(ctx context.Context, runID string) (*ScenarioRun, error)
	// List 按创建时间倒序，topicID 为空时不过滤
	List(ctx context.Context, topicID string, limit int) ([]*ScenarioRun, error)
}

// ScenarioRunReadRepository 场景运行读模型缓存
type ScenarioRunReadRepository interface {
	Save(ctx context.Context, run *ScenarioRun) error
	Get(ctx context.Context, runID string) (*ScenarioRun, error)
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
