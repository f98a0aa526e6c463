package service

import (
	"context"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/dto"
	"github.com/craftops/game-backup-service/pkg/code"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// ScheduleStore 备份计划管理，负责校验、持久化并同步调度引擎
type ScheduleStore interface {
	// AddSchedule 为目标新增计划，每个目标至多一条
	AddSchedule(ctx context.Context, req *dto.ScheduleAddRequest) (*dto.ScheduleDTO, *code.Code)

	// UpdateSchedule 更新计划并重新注册 cron 任务
	UpdateSchedule(ctx context.Context, req *dto.ScheduleUpdateRequest) (*dto.ScheduleDTO, *code.Code)

	// RemoveSchedule 删除计划并注销 cron 任务
	RemoveSchedule(ctx context.Context, id int64) *code.Code

	// GetScheduleStatus 获取单个计划的状态
	GetScheduleStatus(ctx context.Context, id int64) (*dto.ScheduleDTO, *code.Code)

	// ListSchedules 获取全部计划
	ListSchedules(ctx context.Context) ([]*dto.ScheduleDTO, *code.Code)
}

type scheduleStore struct {
	scheduleRepo domain.ScheduleRepository
	targetRepo   domain.TargetRepository
	trigger      TriggerEngine
	logger       *zap.Logger
}

// NewScheduleStore 创建计划管理服务
func NewScheduleStore(
	scheduleRepo domain.ScheduleRepository,
	targetRepo domain.TargetRepository,
	trigger TriggerEngine,
	logger *zap.Logger,
) ScheduleStore {
	return &scheduleStore{
		scheduleRepo: scheduleRepo,
		targetRepo:   targetRepo,
		trigger:      trigger,
		logger:       logger,
	}
}

func (s *scheduleStore) AddSchedule(ctx context.Context, req *dto.ScheduleAddRequest) (*dto.ScheduleDTO, *code.Code) {
	scheduleType := domain.ScheduleType(req.Type)
	if !scheduleType.Valid() {
		return nil, code.ErrorScheduleInvalid.Clone().WithDetails("unknown schedule type: " + req.Type)
	}

	target, err := s.targetRepo.GetByID(ctx, req.TargetID)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if target == nil {
		return nil, code.ErrorTargetNotFound.Clone()
	}

	existing, err := s.scheduleRepo.GetByTargetID(ctx, req.TargetID)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if existing != nil {
		return nil, code.ErrorScheduleExists.Clone()
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	schedule := &domain.BackupSchedule{
		TargetID:      req.TargetID,
		Type:          scheduleType,
		Hour:          req.Hour,
		Minute:        req.Minute,
		RetentionDays: req.RetentionDays,
		Enabled:       enabled,
	}
	created, err := s.scheduleRepo.Create(ctx, schedule)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}

	if created.Enabled {
		if err := s.trigger.Register(created); err != nil {
			s.logger.Error("failed to register new schedule",
				zap.Int64("scheduleId", created.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("schedule added",
		zap.Int64("scheduleId", created.ID),
		zap.Int64("targetId", created.TargetID),
		zap.String("type", string(created.Type)))
	return s.toDTO(created), nil
}

func (s *scheduleStore) UpdateSchedule(ctx context.Context, req *dto.ScheduleUpdateRequest) (*dto.ScheduleDTO, *code.Code) {
	scheduleType := domain.ScheduleType(req.Type)
	if !scheduleType.Valid() {
		return nil, code.ErrorScheduleInvalid.Clone().WithDetails("unknown schedule type: " + req.Type)
	}

	schedule, err := s.scheduleRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if schedule == nil {
		return nil, code.ErrorScheduleNotFound.Clone()
	}

	schedule.Type = scheduleType
	schedule.Hour = req.Hour
	schedule.Minute = req.Minute
	schedule.RetentionDays = req.RetentionDays
	if req.Enabled != nil {
		schedule.Enabled = *req.Enabled
	}

	updated, err := s.scheduleRepo.Update(ctx, schedule)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}

	// 先注销再按需注册，禁用的计划不留 cron 条目
	s.trigger.Unregister(updated.ID)
	if updated.Enabled {
		if err := s.trigger.Register(updated); err != nil {
			s.logger.Error("failed to re-register schedule",
				zap.Int64("scheduleId", updated.ID),
				zap.Error(err))
		}
	}

	return s.toDTO(updated), nil
}

func (s *scheduleStore) RemoveSchedule(ctx context.Context, id int64) *code.Code {
	schedule, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if schedule == nil {
		return code.ErrorScheduleNotFound.Clone()
	}

	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		return code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	s.trigger.Unregister(id)

	s.logger.Info("schedule removed", zap.Int64("scheduleId", id))
	return nil
}

func (s *scheduleStore) GetScheduleStatus(ctx context.Context, id int64) (*dto.ScheduleDTO, *code.Code) {
	schedule, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if schedule == nil {
		return nil, code.ErrorScheduleNotFound.Clone()
	}
	return s.toDTO(schedule), nil
}

func (s *scheduleStore) ListSchedules(ctx context.Context) ([]*dto.ScheduleDTO, *code.Code) {
	schedules, err := s.scheduleRepo.List(ctx)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}

	out := make([]*dto.ScheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, s.toDTO(schedule))
	}
	return out, nil
}

func (s *scheduleStore) toDTO(schedule *domain.BackupSchedule) *dto.ScheduleDTO {
	out := &dto.ScheduleDTO{}
	_ = copier.Copy(out, schedule)
	out.Type = string(schedule.Type)
	out.NextRun = s.trigger.NextRun(schedule.ID)
	return out
}
