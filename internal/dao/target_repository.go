// Package dao 实现数据访问层
package dao

import (
	"context"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// targetRepository 实现 domain.TargetRepository 接口
type targetRepository struct {
	dao *Dao
}

// NewTargetRepository 创建 TargetRepository 实例
func NewTargetRepository(dao *Dao) domain.TargetRepository {
	return &targetRepository{dao: dao}
}

// toDomain 将数据库模型转换为领域模型
func (r *targetRepository) toDomain(m *model.Target) *domain.Target {
	if m == nil {
		return nil
	}
	return &domain.Target{
		ID:           m.ID,
		Name:         m.Name,
		WorldPath:    m.WorldPath,
		ProcessName:  m.ProcessName,
		StartCommand: m.StartCommand,
		WorkingDir:   m.WorkingDir,
		MemoryMB:     m.MemoryMB,
		Status:       m.Status,
		PID:          m.PID,
		Enabled:      m.Enabled,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// toModel 将领域模型转换为数据库模型
func (r *targetRepository) toModel(t *domain.Target) *model.Target {
	if t == nil {
		return nil
	}
	return &model.Target{
		ID:           t.ID,
		Name:         t.Name,
		WorldPath:    t.WorldPath,
		ProcessName:  t.ProcessName,
		StartCommand: t.StartCommand,
		WorkingDir:   t.WorkingDir,
		MemoryMB:     t.MemoryMB,
		Status:       t.Status,
		PID:          t.PID,
		Enabled:      t.Enabled,
	}
}

func (r *targetRepository) GetByID(ctx context.Context, id int64) (*domain.Target, error) {
	var m model.Target
	err := r.dao.DB().WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *targetRepository) GetByName(ctx context.Context, name string) (*domain.Target, error) {
	var m model.Target
	err := r.dao.DB().WithContext(ctx).Where("name = ?", name).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *targetRepository) Create(ctx context.Context, target *domain.Target) (*domain.Target, error) {
	m := r.toModel(target)
	if err := r.dao.DB().WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, m.ID)
}

func (r *targetRepository) Update(ctx context.Context, target *domain.Target) (*domain.Target, error) {
	m := r.toModel(target)
	err := r.dao.DB().WithContext(ctx).Model(&model.Target{}).
		Where("id = ?", target.ID).
		Select("name", "world_path", "process_name", "start_command", "working_dir", "memory_mb", "enabled").
		Updates(m).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, target.ID)
}

func (r *targetRepository) SetStatus(ctx context.Context, id int64, status int, pid int32) error {
	return r.dao.DB().WithContext(ctx).Model(&model.Target{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": status,
			"pid":    pid,
		}).Error
}

func (r *targetRepository) Delete(ctx context.Context, id int64) error {
	return r.dao.DB().WithContext(ctx).Where("id = ?", id).Delete(&model.Target{}).Error
}

func (r *targetRepository) List(ctx context.Context) ([]*domain.Target, error) {
	var ms []*model.Target
	if err := r.dao.DB().WithContext(ctx).Order("id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	targets := make([]*domain.Target, 0, len(ms))
	for _, m := range ms {
		targets = append(targets, r.toDomain(m))
	}
	return targets, nil
}

func (r *targetRepository) ListEnabled(ctx context.Context) ([]*domain.Target, error) {
	var ms []*model.Target
	if err := r.dao.DB().WithContext(ctx).Where("enabled = ?", true).Order("id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	targets := make([]*domain.Target, 0, len(ms))
	for _, m := range ms {
		targets = append(targets, r.toDomain(m))
	}
	return targets, nil
}
