package application

import (
	"context"

	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
)

// ScenarioApplicationService 场景模拟服务门面，整合命令服务和查询服务
type ScenarioApplicationService struct {
	commandService *ScenarioCommandService
	queryService   *ScenarioQueryService
}

// NewScenarioApplicationService 创建场景模拟服务门面实例
func NewScenarioApplicationService(
	engine *domain.Engine,
	assumptions domain.AssumptionProvider,
	repo domain.ScenarioRunRepository,
	readRepo domain.ScenarioRunReadRepository,
	publisher domain.EventPublisher,
	observer RunObserver,
	opts Options,
) *ScenarioApplicationService {
	return &ScenarioApplicationService{
		commandService: NewScenarioCommandService(engine, assumptions, repo, readRepo, publisher, observer, opts),
		queryService:   NewScenarioQueryService(repo, readRepo),
	}
}

// RunScenario 运行场景模拟
func (s *ScenarioApplicationService) RunScenario(ctx context.Context, cmd RunScenarioCommand) (*ScenarioRunDTO, error) {
	return s.commandService.RunScenario(ctx, cmd)
}

// GetScenarioRun 获取场景运行结果
func (s *ScenarioApplicationService) GetScenarioRun(ctx context.Context, runID string) (*ScenarioRunDTO, error) {
	return s.queryService.GetScenarioRun(ctx, runID)
}

// ListScenarioRuns 列出场景运行结果
func (s *ScenarioApplicationService) ListScenarioRuns(ctx context.Context, topicID string, limit int) ([]*ScenarioRunDTO, error) {
	return s.queryService.ListScenarioRuns(ctx, topicID, limit)
}
