package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"github.com/wyfcoding/scenariosim/pkg/logger"
)

// 运行结果状态（指标标签）
const (
	RunStatusCompleted = "completed"
	RunStatusRejected  = "rejected"
	RunStatusFailed    = "failed"
)

// RunObserver 记录场景运行指标
type RunObserver interface {
	ObserveRun(status string, paths int, duration time.Duration)
}

// Options 场景服务参数
type Options struct {
	// ExposureKey 从组合资产配置中读取敞口的键
	ExposureKey string
	// DefaultExposure 组合未配置 ExposureKey 时的敞口
	DefaultExposure float64
	// BaseValue 模拟起始值
	BaseValue float64
}

// DefaultOptions 默认参数：DeepTech 敞口，缺省 10%，起始值 1.0
func DefaultOptions() Options {
	return Options{ExposureKey: "DeepTech", DefaultExposure: 0.1, BaseValue: 1.0}
}

// ScenarioCommandService 场景模拟命令服务
type ScenarioCommandService struct {
	engine      *domain.Engine
	assumptions domain.AssumptionProvider
	repo        domain.ScenarioRunRepository
	readRepo    domain.ScenarioRunReadRepository
	publisher   domain.EventPublisher
	observer    RunObserver
	opts        Options
}

// NewScenarioCommandService 创建场景模拟命令服务实例。readRepo、publisher、observer 可为 nil
func NewScenarioCommandService(
	engine *domain.Engine,
	assumptions domain.AssumptionProvider,
	repo domain.ScenarioRunRepository,
	readRepo domain.ScenarioRunReadRepository,
	publisher domain.EventPublisher,
	observer RunObserver,
	opts Options,
) *ScenarioCommandService {
	return &ScenarioCommandService{
		engine:      engine,
		assumptions: assumptions,
		repo:        repo,
		readRepo:    readRepo,
		publisher:   publisher,
		observer:    observer,
		opts:        opts,
	}
}

// RunScenario 解析假设、运行模拟、持久化并发布完成事件
func (s *ScenarioCommandService) RunScenario(ctx context.Context, cmd RunScenarioCommand) (*ScenarioRunDTO, error) {
	start := time.Now()
	paths := s.engine.Config().Paths

	if cmd.TopicID == "" || cmd.ScenarioType == "" {
		s.observe(RunStatusRejected, 0, start)
		return nil, fmt.Errorf("%w: topic_id and scenario_type are required", domain.ErrInvalidInput)
	}

	// 1. 假设
	assumptions, err := s.assumptions.Assume(ctx, cmd.TopicID, cmd.ScenarioType)
	if err != nil {
		s.observe(RunStatusFailed, 0, start)
		return nil, fmt.Errorf("resolve assumptions for %s: %w", cmd.TopicID, err)
	}
	if cmd.Mu != nil {
		assumptions.Mu = *cmd.Mu
	}
	if cmd.Sigma != nil {
		assumptions.Sigma = *cmd.Sigma
	}

	// 2. 敞口
	exposure := s.resolveExposure(cmd.Portfolio)

	// 3. 模拟
	req := domain.SimulationRequest{
		BaseValue: s.opts.BaseValue,
		Mu:        assumptions.Mu,
		Sigma:     assumptions.Sigma,
		Exposure:  exposure,
		Seed:      cmd.Seed,
	}
	res, err := s.engine.Run(req)
	if err != nil {
		s.observe(RunStatusRejected, 0, start)
		logger.Warn(ctx, "scenario run rejected", "topic_id", cmd.TopicID, "scenario_type", cmd.ScenarioType, "error", err)
		return nil, err
	}

	// 4. 持久化
	run := domain.NewScenarioRun(cmd.TopicID, cmd.ScenarioType, req, assumptions, res)
	if err := s.repo.Save(ctx, run); err != nil {
		s.observe(RunStatusFailed, paths, start)
		return nil, fmt.Errorf("save scenario run: %w", err)
	}
	if s.readRepo != nil {
		if err := s.readRepo.Save(ctx, run); err != nil {
			logger.Warn(ctx, "failed to cache scenario run", "run_id", run.RunID, "error", err)
		}
	}

	// 5. 事件
	if s.publisher != nil {
		event := domain.NewScenarioRunCompletedEvent(run)
		if err := s.publisher.Publish(ctx, domain.ScenarioRunCompletedEventType, run.RunID, event); err != nil {
			logger.Error(ctx, "failed to publish scenario run event", "run_id", run.RunID, "error", err)
		}
	}

	s.observe(RunStatusCompleted, paths, start)
	logger.Info(ctx, "Scenario run completed",
		"run_id", run.RunID,
		"topic_id", run.TopicID,
		"mu", run.Mu,
		"sigma", run.Sigma,
		"exposure", run.Exposure,
		"mean_impact", res.MeanImpact,
		"duration", time.Since(start),
	)
	return toScenarioRunDTO(run), nil
}

func (s *ScenarioCommandService) resolveExposure(p PortfolioProfile) float64 {
	if v, ok := p.AssetAllocation[s.opts.ExposureKey]; ok {
		return v
	}
	return s.opts.DefaultExposure
}

func (s *ScenarioCommandService) observe(status string, paths int, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveRun(status, paths, time.Since(start))
	}
}
