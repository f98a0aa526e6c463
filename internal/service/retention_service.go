package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/pkg/diskusage"
	"github.com/craftops/game-backup-service/pkg/logger"

	"go.uber.org/zap"
)

// RetentionConfig 保留策略配置
type RetentionConfig struct {
	// MinRetained 每个目标至少保留的归档数
	MinRetained int
	// WarnPercent 磁盘使用率告警水位
	WarnPercent float64
	// EmergencyPercent 触发紧急清理的水位
	EmergencyPercent float64
}

// DefaultRetentionConfig 默认保留策略
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		MinRetained:      1,
		WarnPercent:      90,
		EmergencyPercent: 95,
	}
}

// DiskUsageFunc 磁盘使用率探针，返回使用百分比
type DiskUsageFunc func(path string) (float64, error)

// RetentionManager 归档保留策略
type RetentionManager interface {
	// Apply 删除超过 retentionDays 的归档，始终保留 MinRetained 个
	Apply(ctx context.Context, targetID int64, backupDir string, retentionDays int) *domain.RetentionReport

	// EmergencyCleanup 磁盘水位超限时跨目标删除最旧归档，降到水位以下
	EmergencyCleanup(ctx context.Context, backupRoot string) *domain.RetentionReport
}

type retentionManager struct {
	config      RetentionConfig
	diskUsage   DiskUsageFunc
	historyRepo domain.HistoryRepository
	logger      *zap.Logger
}

// NewRetentionManager 创建 RetentionManager 实例
// usage 为 nil 时使用 gopsutil 探针
func NewRetentionManager(config RetentionConfig, usage DiskUsageFunc, historyRepo domain.HistoryRepository, logger *zap.Logger) RetentionManager {
	if config.MinRetained <= 0 {
		config.MinRetained = 1
	}
	if usage == nil {
		usage = func(path string) (float64, error) {
			u, err := diskusage.Get(path)
			if err != nil {
				return 0, err
			}
			return u.UsedPercent, nil
		}
	}
	return &retentionManager{
		config:      config,
		diskUsage:   usage,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// archiveInfo 目录扫描得到的归档条目
type archiveInfo struct {
	path    string
	size    int64
	modTime time.Time
}

// listArchives returns the tar.gz archives in dir, oldest first
// listArchives 返回目录下的 tar.gz 归档，按时间从旧到新排序
func listArchives(dir string) ([]archiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var archives []archiveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tar.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		archives = append(archives, archiveInfo{
			path:    filepath.Join(dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].modTime.Before(archives[j].modTime)
	})
	return archives, nil
}

// Apply is idempotent: a second run with no new archives deletes nothing
// Apply 幂等：没有新归档时重复执行不会产生新的删除
func (m *retentionManager) Apply(ctx context.Context, targetID int64, backupDir string, retentionDays int) *domain.RetentionReport {
	report := &domain.RetentionReport{TargetID: targetID}

	archives, err := listArchives(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return report
		}
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.Scanned = len(archives)

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removable := len(archives) - m.config.MinRetained

	for _, a := range archives {
		if removable <= 0 {
			break
		}
		if !a.modTime.Before(cutoff) {
			// 从旧到新排序，遇到未过期归档即可停止
			break
		}
		if err := m.remove(ctx, a); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Removed++
		report.RemovedPaths = append(report.RemovedPaths, a.path)
		report.FreedBytes += a.size
		removable--
	}

	if report.Removed > 0 {
		m.logger.Info("retention cleanup finished",
			zap.Int64("targetId", targetID),
			zap.Int("removed", report.Removed),
			zap.Int64("freedBytes", report.FreedBytes))
	}

	return report
}

// EmergencyCleanup removes oldest archives across target directories until the
// disk usage drops below the warn watermark, keeping MinRetained per target
// EmergencyCleanup 跨目标目录删除最旧归档直到磁盘使用率降到告警水位以下
// 每个目标仍保留 MinRetained 个归档
func (m *retentionManager) EmergencyCleanup(ctx context.Context, backupRoot string) *domain.RetentionReport {
	report := &domain.RetentionReport{}

	percent, err := m.diskUsage(backupRoot)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	if percent < m.config.EmergencyPercent {
		return report
	}

	report.Triggered = true
	m.logger.Warn("emergency disk cleanup triggered",
		zap.Float64("usedPercent", percent),
		zap.Float64("emergencyPercent", m.config.EmergencyPercent))

	for {
		victim, ok := m.oldestRemovable(backupRoot, report)
		if !ok {
			break
		}
		if err := m.remove(ctx, victim); err != nil {
			report.Errors = append(report.Errors, err.Error())
			break
		}
		report.Removed++
		report.RemovedPaths = append(report.RemovedPaths, victim.path)
		report.FreedBytes += victim.size

		percent, err = m.diskUsage(backupRoot)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			break
		}
		if percent < m.config.WarnPercent {
			break
		}
	}

	m.logger.Info("emergency disk cleanup finished",
		zap.Int("removed", report.Removed),
		zap.Int64("freedBytes", report.FreedBytes))

	return report
}

// oldestRemovable finds the globally oldest archive among target directories
// that still hold more than MinRetained archives
// oldestRemovable 在仍持有超过 MinRetained 个归档的目标目录中找全局最旧归档
func (m *retentionManager) oldestRemovable(backupRoot string, report *domain.RetentionReport) (archiveInfo, bool) {
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return archiveInfo{}, false
	}

	var oldest archiveInfo
	found := false
	consider := func(archives []archiveInfo) {
		if len(archives) <= m.config.MinRetained {
			return
		}
		candidate := archives[0]
		if !found || candidate.modTime.Before(oldest.modTime) {
			oldest = candidate
			found = true
		}
	}

	// 根目录下直接存放的归档也参与清理
	if rootArchives, err := listArchives(backupRoot); err == nil {
		consider(rootArchives)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		archives, err := listArchives(filepath.Join(backupRoot, entry.Name()))
		if err != nil {
			continue
		}
		consider(archives)
	}

	return oldest, found
}

// remove deletes the archive file and its history record
// remove 删除归档文件及其历史记录
func (m *retentionManager) remove(ctx context.Context, a archiveInfo) error {
	if err := os.Remove(a.path); err != nil {
		return err
	}
	if m.historyRepo != nil {
		if err := m.historyRepo.DeleteByFilePath(ctx, a.path); err != nil {
			m.logger.Warn("failed to delete history record for removed archive",
				zap.String(logger.FieldArchive, a.path),
				zap.Error(err))
		}
	}
	return nil
}
