package application

import (
	"context"

	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ScenarioQueryService 场景模拟查询服务
type ScenarioQueryService struct {
	repo     domain.ScenarioRunRepository
	readRepo domain.ScenarioRunReadRepository
}

// NewScenarioQueryService 创建场景模拟查询服务实例
func NewScenarioQueryService(repo domain.ScenarioRunRepository, readRepo domain.ScenarioRunReadRepository) *ScenarioQueryService {
	return &ScenarioQueryService{repo: repo, readRepo: readRepo}
}

// GetScenarioRun 先查缓存，未命中时回源并回填
func (s *ScenarioQueryService) GetScenarioRun(ctx context.Context, runID string) (*ScenarioRunDTO, error) {
	if s.readRepo != nil {
		if cached, err := s.readRepo.Get(ctx, runID); err == nil && cached != nil {
			return toScenarioRunDTO(cached), nil
		}
	}
	run, err := s.repo.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, domain.ErrScenarioNotFound
	}

	if s.readRepo != nil {
		_ = s.readRepo.Save(ctx, run)
	}
	return toScenarioRunDTO(run), nil
}

// ListScenarioRuns 列出最近的场景运行，limit 取值 [1, 100]
func (s *ScenarioQueryService) ListScenarioRuns(ctx context.Context, topicID string, limit int) ([]*ScenarioRunDTO, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	runs, err := s.repo.List(ctx, topicID, limit)
	if err != nil {
		return nil, err
	}
	return toScenarioRunDTOs(runs), nil
}
