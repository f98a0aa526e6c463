package service

import (
	"context"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/dto"
	"github.com/craftops/game-backup-service/pkg/code"
	"github.com/craftops/game-backup-service/pkg/fileurl"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// TargetStore 备份目标管理
type TargetStore interface {
	// AddTarget 新增目标，名称唯一且存档目录必须存在
	AddTarget(ctx context.Context, req *dto.TargetAddRequest) (*dto.TargetDTO, *code.Code)

	// UpdateTarget 更新目标
	UpdateTarget(ctx context.Context, req *dto.TargetUpdateRequest) (*dto.TargetDTO, *code.Code)

	// RemoveTarget 删除目标及其计划
	RemoveTarget(ctx context.Context, id int64) *code.Code

	// GetTarget 获取单个目标，附带实时进程状态
	GetTarget(ctx context.Context, id int64) (*dto.TargetDTO, *code.Code)

	// ListTargets 获取全部目标
	ListTargets(ctx context.Context) ([]*dto.TargetDTO, *code.Code)
}

type targetStore struct {
	targetRepo   domain.TargetRepository
	scheduleRepo domain.ScheduleRepository
	process      ProcessController
	trigger      TriggerEngine
	logger       *zap.Logger
}

// NewTargetStore 创建目标管理服务
func NewTargetStore(
	targetRepo domain.TargetRepository,
	scheduleRepo domain.ScheduleRepository,
	process ProcessController,
	trigger TriggerEngine,
	logger *zap.Logger,
) TargetStore {
	return &targetStore{
		targetRepo:   targetRepo,
		scheduleRepo: scheduleRepo,
		process:      process,
		trigger:      trigger,
		logger:       logger,
	}
}

func (s *targetStore) AddTarget(ctx context.Context, req *dto.TargetAddRequest) (*dto.TargetDTO, *code.Code) {
	if !fileurl.IsDir(req.WorldPath) {
		return nil, code.ErrorTargetPathInvalid.Clone().WithDetails(req.WorldPath)
	}

	existing, err := s.targetRepo.GetByName(ctx, req.Name)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if existing != nil {
		return nil, code.ErrorInvalidParams.Clone().WithDetails("target name already exists: " + req.Name)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	target := &domain.Target{
		Name:         req.Name,
		WorldPath:    req.WorldPath,
		ProcessName:  req.ProcessName,
		StartCommand: req.StartCommand,
		WorkingDir:   req.WorkingDir,
		MemoryMB:     req.MemoryMB,
		Enabled:      enabled,
	}
	created, err := s.targetRepo.Create(ctx, target)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}

	s.logger.Info("target added",
		zap.Int64("targetId", created.ID),
		zap.String("name", created.Name))
	return s.toDTO(ctx, created), nil
}

func (s *targetStore) UpdateTarget(ctx context.Context, req *dto.TargetUpdateRequest) (*dto.TargetDTO, *code.Code) {
	target, err := s.targetRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if target == nil {
		return nil, code.ErrorTargetNotFound.Clone()
	}

	if !fileurl.IsDir(req.WorldPath) {
		return nil, code.ErrorTargetPathInvalid.Clone().WithDetails(req.WorldPath)
	}

	target.Name = req.Name
	target.WorldPath = req.WorldPath
	target.ProcessName = req.ProcessName
	target.StartCommand = req.StartCommand
	target.WorkingDir = req.WorkingDir
	target.MemoryMB = req.MemoryMB
	if req.Enabled != nil {
		target.Enabled = *req.Enabled
	}

	updated, err := s.targetRepo.Update(ctx, target)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	return s.toDTO(ctx, updated), nil
}

func (s *targetStore) RemoveTarget(ctx context.Context, id int64) *code.Code {
	target, err := s.targetRepo.GetByID(ctx, id)
	if err != nil {
		return code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if target == nil {
		return code.ErrorTargetNotFound.Clone()
	}

	// 级联移除计划，避免孤儿 cron 条目
	if schedule, err := s.scheduleRepo.GetByTargetID(ctx, id); err == nil && schedule != nil {
		s.trigger.Unregister(schedule.ID)
		if err := s.scheduleRepo.Delete(ctx, schedule.ID); err != nil {
			return code.ErrorServerInternal.Clone().WithDetails(err.Error())
		}
	}

	if err := s.targetRepo.Delete(ctx, id); err != nil {
		return code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}

	s.logger.Info("target removed", zap.Int64("targetId", id))
	return nil
}

func (s *targetStore) GetTarget(ctx context.Context, id int64) (*dto.TargetDTO, *code.Code) {
	target, err := s.targetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	if target == nil {
		return nil, code.ErrorTargetNotFound.Clone()
	}
	return s.toDTO(ctx, target), nil
}

func (s *targetStore) ListTargets(ctx context.Context) ([]*dto.TargetDTO, *code.Code) {
	targets, err := s.targetRepo.List(ctx)
	if err != nil {
		return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}

	out := make([]*dto.TargetDTO, 0, len(targets))
	for _, target := range targets {
		out = append(out, s.toDTO(ctx, target))
	}
	return out, nil
}

// toDTO probes the live process state instead of trusting the stored column
// toDTO 以实时探测结果覆盖数据库里的进程状态
func (s *targetStore) toDTO(ctx context.Context, target *domain.Target) *dto.TargetDTO {
	out := &dto.TargetDTO{}
	_ = copier.Copy(out, target)

	if s.process != nil {
		if running, pid := s.process.IsRunning(ctx, target); running {
			out.Status = domain.ProcessStatusRunning
			out.PID = pid
		} else {
			out.Status = domain.ProcessStatusStopped
			out.PID = 0
		}
	}
	return out
}
