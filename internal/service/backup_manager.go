package service

import (
	"context"
	"path/filepath"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/internal/dto"
	"github.com/craftops/game-backup-service/pkg/code"
	"github.com/craftops/game-backup-service/pkg/fileurl"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BackupManager 面向 API 的备份门面，封装执行、验证、清理与历史查询
type BackupManager interface {
	// ExecuteBackup 手动触发一次备份，同步等待结果
	ExecuteBackup(ctx context.Context, targetID int64) (*dto.BackupResultDTO, *code.Code)

	// VerifyArchive 对指定归档执行验证，可选修复
	VerifyArchive(ctx context.Context, req *dto.VerifyRequest) (*domain.VerificationReport, *code.Code)

	// Cleanup 手动触发保留清理，targetID 为 0 时清理全部目标
	Cleanup(ctx context.Context, targetID int64) ([]*domain.RetentionReport, *code.Code)

	// ListHistory 分页查询备份历史
	ListHistory(ctx context.Context, req *dto.BackupHistoryListRequest) ([]*dto.BackupHistoryDTO, int64, *code.Code)
}

type backupManager struct {
	backupRoot   string
	executor     BackupExecutor
	verifier     VerificationEngine
	retention    RetentionManager
	targetRepo   domain.TargetRepository
	scheduleRepo domain.ScheduleRepository
	historyRepo  domain.HistoryRepository
	logger       *zap.Logger
}

// NewBackupManager 创建备份门面
func NewBackupManager(
	backupRoot string,
	executor BackupExecutor,
	verifier VerificationEngine,
	retention RetentionManager,
	targetRepo domain.TargetRepository,
	scheduleRepo domain.ScheduleRepository,
	historyRepo domain.HistoryRepository,
	logger *zap.Logger,
) BackupManager {
	return &backupManager{
		backupRoot:   backupRoot,
		executor:     executor,
		verifier:     verifier,
		retention:    retention,
		targetRepo:   targetRepo,
		scheduleRepo: scheduleRepo,
		historyRepo:  historyRepo,
		logger:       logger,
	}
}

func (m *backupManager) ExecuteBackup(ctx context.Context, targetID int64) (*dto.BackupResultDTO, *code.Code) {
	result := m.executor.Execute(ctx, targetID, 0, domain.TriggerManual)

	out := &dto.BackupResultDTO{}
	_ = copier.Copy(out, result)
	out.DurationMs = result.Duration.Milliseconds()

	switch {
	case result.Status == domain.BackupStatusSuccess:
		return out, nil
	case errors.Is(result.Cause, ErrTargetNotFound):
		return out, code.ErrorTargetNotFound.Clone()
	case errors.Is(result.Cause, ErrAlreadyRunning):
		return out, code.ErrorBackupRunning.Clone()
	case errors.Is(result.Cause, ErrProcessStop):
		return out, code.ErrorProcessControl.Clone().WithDetails(result.Message)
	case errors.Is(result.Cause, ErrVerification):
		return out, code.ErrorVerificationFailed.Clone().WithDetails(result.Message)
	case errors.Is(result.Cause, ErrDiskSpace):
		return out, code.ErrorDiskSpaceLow.Clone().WithDetails(result.Message)
	case errors.Is(result.Cause, ErrArchiveCreate):
		return out, code.ErrorArchiveCreate.Clone().WithDetails(result.Message)
	default:
		return out, code.ErrorServerInternal.Clone().WithDetails(result.Message)
	}
}

func (m *backupManager) VerifyArchive(ctx context.Context, req *dto.VerifyRequest) (*domain.VerificationReport, *code.Code) {
	if !fileurl.IsFile(req.ArchivePath) {
		return nil, code.ErrorNotFound.Clone().WithDetails(req.ArchivePath)
	}

	report := m.verifier.Verify(ctx, req.ArchivePath, req.Checksum, false)
	if !report.Valid && req.Repair {
		report.Repair = m.verifier.Repair(ctx, req.ArchivePath)
		if report.Repair.Succeeded {
			// 修复后重新验证，替换原报告
			report = m.verifier.Verify(ctx, req.ArchivePath, "", false)
		}
	}
	return report, nil
}

func (m *backupManager) Cleanup(ctx context.Context, targetID int64) ([]*domain.RetentionReport, *code.Code) {
	var targets []*domain.Target
	if targetID > 0 {
		target, err := m.targetRepo.GetByID(ctx, targetID)
		if err != nil {
			return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
		}
		if target == nil {
			return nil, code.ErrorTargetNotFound.Clone()
		}
		targets = append(targets, target)
	} else {
		all, err := m.targetRepo.List(ctx)
		if err != nil {
			return nil, code.ErrorServerInternal.Clone().WithDetails(err.Error())
		}
		targets = all
	}

	// 多目标并行清理，单目标内部仍保持顺序删除
	reports := make([]*domain.RetentionReport, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			schedule, err := m.scheduleRepo.GetByTargetID(gctx, target.ID)
			if err != nil || schedule == nil {
				return nil
			}
			reports[i] = m.retention.Apply(gctx, target.ID, filepath.Join(m.backupRoot, target.Name), schedule.RetentionDays)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*domain.RetentionReport, 0, len(reports))
	var cleanupErrs []string
	for _, report := range reports {
		if report != nil {
			out = append(out, report)
			cleanupErrs = append(cleanupErrs, report.Errors...)
		}
	}
	// 部分删除失败时报告仍然返回，错误通过 code 透出给操作者
	if len(cleanupErrs) > 0 {
		return out, code.ErrorRetentionCleanup.Clone().WithDetails(cleanupErrs...)
	}
	return out, nil
}

func (m *backupManager) ListHistory(ctx context.Context, req *dto.BackupHistoryListRequest) ([]*dto.BackupHistoryDTO, int64, *code.Code) {
	records, err := m.historyRepo.ListByTarget(ctx, req.TargetID, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}
	total, err := m.historyRepo.CountByTarget(ctx, req.TargetID)
	if err != nil {
		return nil, 0, code.ErrorServerInternal.Clone().WithDetails(err.Error())
	}

	out := make([]*dto.BackupHistoryDTO, 0, len(records))
	for _, record := range records {
		item := &dto.BackupHistoryDTO{}
		_ = copier.Copy(item, record)
		out = append(out, item)
	}
	return out, total, nil
}
