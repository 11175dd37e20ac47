// Package mysql 提供场景运行仓储接口的 GORM 实现，支持 MySQL/PostgreSQL/SQLite
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScenarioRunRepository 场景运行仓储实现
type ScenarioRunRepository struct {
	db *gorm.DB
}

// NewScenarioRunRepository 创建场景运行仓储实例
func NewScenarioRunRepository(db *gorm.DB) *ScenarioRunRepository {
	return &ScenarioRunRepository{db: db}
}

// AutoMigrate 同步表结构
func (r *ScenarioRunRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&ScenarioRunModel{})
}

// Save 按 run_id 插入或更新
func (r *ScenarioRunRepository) Save(ctx context.Context, run *domain.ScenarioRun) error {
	m, err := toScenarioRunModel(run)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to save scenario run %s: %w", run.RunID, err)
	}
	run.ID = m.ID
	run.CreatedAt = m.CreatedAt
	return nil
}

// Get 不存在时返回 (nil, nil)
func (r *ScenarioRunRepository) Get(ctx context.Context, runID string) (*domain.ScenarioRun, error) {
	var m ScenarioRunModel
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scenario run %s: %w", runID, err)
	}
	return toScenarioRun(&m)
}

// List 按创建时间倒序，topicID 为空时不过滤
func (r *ScenarioRunRepository) List(ctx context.Context, topicID string, limit int) ([]*domain.ScenarioRun, error) {
	q := r.db.WithContext(ctx).Model(&ScenarioRunModel{})
	if topicID != "" {
		q = q.Where("topic_id = ?", topicID)
	}

	var models []ScenarioRunModel
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list scenario runs: %w", err)
	}

	runs := make([]*domain.ScenarioRun, 0, len(models))
	for i := range models {
		run, err := toScenarioRun(&models[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
