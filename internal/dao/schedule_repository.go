package dao

import (
	"context"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// scheduleRepository 实现 domain.ScheduleRepository 接口
type scheduleRepository struct {
	dao *Dao
}

// NewScheduleRepository 创建 ScheduleRepository 实例
func NewScheduleRepository(dao *Dao) domain.ScheduleRepository {
	return &scheduleRepository{dao: dao}
}

func (r *scheduleRepository) toDomain(m *model.BackupSchedule) *domain.BackupSchedule {
	if m == nil {
		return nil
	}
	return &domain.BackupSchedule{
		ID:            m.ID,
		TargetID:      m.TargetID,
		Type:          domain.ScheduleType(m.Type),
		Hour:          m.Hour,
		Minute:        m.Minute,
		RetentionDays: m.RetentionDays,
		Enabled:       m.Enabled,
		LastRun:       m.LastRun,
		LastStatus:    m.LastStatus,
		LastMessage:   m.LastMessage,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r *scheduleRepository) toModel(s *domain.BackupSchedule) *model.BackupSchedule {
	if s == nil {
		return nil
	}
	return &model.BackupSchedule{
		ID:            s.ID,
		TargetID:      s.TargetID,
		Type:          string(s.Type),
		Hour:          s.Hour,
		Minute:        s.Minute,
		RetentionDays: s.RetentionDays,
		Enabled:       s.Enabled,
		LastRun:       s.LastRun,
		LastStatus:    s.LastStatus,
		LastMessage:   s.LastMessage,
	}
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*domain.BackupSchedule, error) {
	var m model.BackupSchedule
	err := r.dao.DB().WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *scheduleRepository) GetByTargetID(ctx context.Context, targetID int64) (*domain.BackupSchedule, error) {
	var m model.BackupSchedule
	err := r.dao.DB().WithContext(ctx).Where("target_id = ?", targetID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *domain.BackupSchedule) (*domain.BackupSchedule, error) {
	m := r.toModel(schedule)
	if err := r.dao.DB().WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, m.ID)
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *domain.BackupSchedule) (*domain.BackupSchedule, error) {
	m := r.toModel(schedule)
	err := r.dao.DB().WithContext(ctx).Model(&model.BackupSchedule{}).
		Where("id = ?", schedule.ID).
		Select("type", "hour", "minute", "retention_days", "enabled").
		Updates(m).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, schedule.ID)
}

func (r *scheduleRepository) UpdateLastRun(ctx context.Context, id int64, status int, message string) error {
	return r.dao.DB().WithContext(ctx).Model(&model.BackupSchedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_run":     time.Now(),
			"last_status":  status,
			"last_message": message,
		}).Error
}

func (r *scheduleRepository) Delete(ctx context.Context, id int64) error {
	return r.dao.DB().WithContext(ctx).Where("id = ?", id).Delete(&model.BackupSchedule{}).Error
}

func (r *scheduleRepository) List(ctx context.Context) ([]*domain.BackupSchedule, error) {
	var ms []*model.BackupSchedule
	if err := r.dao.DB().WithContext(ctx).Order("id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	schedules := make([]*domain.BackupSchedule, 0, len(ms))
	for _, m := range ms {
		schedules = append(schedules, r.toDomain(m))
	}
	return schedules, nil
}

func (r *scheduleRepository) ListEnabled(ctx context.Context) ([]*domain.BackupSchedule, error) {
	var ms []*model.BackupSchedule
	if err := r.dao.DB().WithContext(ctx).Where("enabled = ?", true).Order("id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	schedules := make([]*domain.BackupSchedule, 0, len(ms))
	for _, m := range ms {
		schedules = append(schedules, r.toDomain(m))
	}
	return schedules, nil
}
