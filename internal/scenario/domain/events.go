package domain

import "time"

const (
	ScenarioRunCompletedEventType = "scenario.run.completed"
)

// ScenarioRunCompletedEvent 场景模拟完成事件
type ScenarioRunCompletedEvent struct {
	RunID               string     `json:"run_id"`
	TopicID             string     `json:"topic_id"`
	ScenarioType        string     `json:"scenario_type"`
	Mu                  float64    `json:"mu"`
	Sigma               float64    `json:"sigma"`
	Exposure            float64    `json:"exposure"`
	ImpactBands         [3]float64 `json:"impact_bands"`
	ConfidenceIntervals [2]float64 `json:"confidence_intervals"`
	MeanImpact          float64    `json:"mean_impact"`
	Seed                uint64     `json:"seed,string"`
	Timestamp           time.Time  `json:"timestamp"`
}

// NewScenarioRunCompletedEvent 由运行记录生成事件
func NewScenarioRunCompletedEvent(run *ScenarioRun) ScenarioRunCompletedEvent {
	return ScenarioRunCompletedEvent{
		RunID:               run.RunID,
		TopicID:             run.TopicID,
		ScenarioType:        run.ScenarioType,
		Mu:                  run.Mu,
		Sigma:               run.Sigma,
		Exposure:            run.Exposure,
		ImpactBands:         run.Result.ImpactBands,
		ConfidenceIntervals: run.Result.ConfidenceIntervals,
		MeanImpact:          run.Result.MeanImpact,
		Seed:                run.Result.Seed,
		Timestamp:           run.CreatedAt,
	}
}
