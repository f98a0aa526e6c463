package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
	"github.com/craftops/game-backup-service/pkg/archive"
	"github.com/craftops/game-backup-service/pkg/checksum"
	"github.com/craftops/game-backup-service/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 质量扣分权重，损坏类失败重于结构类失败
const (
	deductChecksum      = 30
	deductIntegrity     = 40
	deductWorldRequired = 20
	deductWorldOptional = 5
	deductRestore       = 25
)

// 区块文件头固定 8 KiB（4 KiB 位置表 + 4 KiB 时间戳表）
const regionHeaderBytes = 8192

// VerificationEngine 归档多阶段验证
type VerificationEngine interface {
	// Verify 依次执行 checksum、integrity、world、可选 restore 阶段
	// expectedChecksum 为空时只记录摘要不比对
	Verify(ctx context.Context, archivePath string, expectedChecksum string, includeRestoreTest bool) *domain.VerificationReport

	// Repair 对结构可打开的归档做尽力修复，返回尝试明细
	Repair(ctx context.Context, archivePath string) *domain.RepairReport
}

type verificationEngine struct {
	worldValidator WorldValidator
	scratchDir     string
	sampleCount    int
	logger         *zap.Logger
}

// NewVerificationEngine 创建 VerificationEngine 实例
// scratchDir 用于恢复抽验的临时解包目录
// sampleCount 为恢复抽验时深检的区块文件数量，<= 0 时取 3
func NewVerificationEngine(worldValidator WorldValidator, scratchDir string, sampleCount int, logger *zap.Logger) VerificationEngine {
	if sampleCount <= 0 {
		sampleCount = 3
	}
	return &verificationEngine{
		worldValidator: worldValidator,
		scratchDir:     scratchDir,
		sampleCount:    sampleCount,
		logger:         logger,
	}
}

// Verify runs all stages and never short-circuits diagnostics
// A failed integrity stage still lets later stages run to fill the report
// Verify 运行全部阶段且不截断诊断信息
// integrity 阶段失败时后续阶段仍会执行以补全报告
func (e *verificationEngine) Verify(ctx context.Context, archivePath string, expectedChecksum string, includeRestoreTest bool) *domain.VerificationReport {
	report := &domain.VerificationReport{
		ArchivePath: archivePath,
		VerifiedAt:  time.Now(),
	}
	score := 100
	corrupted := false

	// Stage 1: checksum 永远先执行并记录
	stage := e.runChecksumStage(archivePath, expectedChecksum)
	report.Stages = append(report.Stages, stage)
	if !stage.Passed {
		score -= deductChecksum
		corrupted = true
	}

	// Stage 2: 归档结构完整性
	stage, entries := e.runIntegrityStage(archivePath)
	report.Stages = append(report.Stages, stage)
	if !stage.Passed {
		score -= deductIntegrity
		corrupted = true
	}

	// Stage 3: 存档结构（基于归档清单）
	stage = e.runWorldStage(entries)
	report.Stages = append(report.Stages, stage)
	if !stage.Passed {
		score -= 100 - stage.Score
	}

	// Stage 4: 恢复抽验（可选）
	if includeRestoreTest {
		stage = e.runRestoreStage(ctx, archivePath)
		report.Stages = append(report.Stages, stage)
		if !stage.Passed {
			score -= deductRestore
		}
	}

	if score < 0 {
		score = 0
	}
	report.Score = score
	report.Quality = domain.QualityForScore(score)
	report.CorruptionDetected = corrupted

	valid := true
	for _, s := range report.Stages {
		if !s.Passed {
			valid = false
			break
		}
	}
	report.Valid = valid && !corrupted

	e.logger.Info("archive verification finished",
		zap.String(logger.FieldArchive, archivePath),
		zap.Int("score", report.Score),
		zap.String("quality", report.Quality),
		zap.Bool("valid", report.Valid))

	return report
}

func (e *verificationEngine) runChecksumStage(archivePath string, expected string) domain.StageResult {
	start := time.Now()
	stage := domain.StageResult{Stage: domain.StageChecksum}

	digest, err := checksum.FileSHA256(archivePath)
	switch {
	case err != nil:
		stage.Message = err.Error()
	case expected != "" && digest != expected:
		stage.Digest = digest
		stage.Message = "checksum mismatch: got " + digest
	default:
		stage.Passed = true
		stage.Score = 100
		stage.Digest = digest
		stage.Message = "checksum recorded"
	}

	stage.Duration = time.Since(start)
	return stage
}

func (e *verificationEngine) runIntegrityStage(archivePath string) (domain.StageResult, []archive.Entry) {
	start := time.Now()
	stage := domain.StageResult{Stage: domain.StageIntegrity}

	err := func() error {
		info, err := os.Stat(archivePath)
		if err != nil {
			return errors.Wrap(err, "stat archive")
		}
		if info.Size() == 0 {
			return errors.New("archive is zero bytes")
		}
		if err := archive.CheckMagic(archivePath); err != nil {
			return err
		}
		return archive.CheckIntegrity(archivePath)
	}()
	if err != nil {
		stage.Message = err.Error()
		stage.Duration = time.Since(start)
		return stage, nil
	}

	entries, err := archive.List(archivePath)
	if err != nil {
		stage.Message = err.Error()
		stage.Duration = time.Since(start)
		return stage, nil
	}
	if len(entries) == 0 {
		stage.Message = "archive contains no entries"
		stage.Duration = time.Since(start)
		return stage, entries
	}

	stage.Passed = true
	stage.Score = 100
	stage.Message = "archive structure intact"
	stage.Duration = time.Since(start)
	return stage, entries
}

// runWorldStage checks required world entries inside the archive listing
// runWorldStage 基于归档清单检查必需的存档条目
func (e *verificationEngine) runWorldStage(entries []archive.Entry) domain.StageResult {
	start := time.Now()
	stage := domain.StageResult{Stage: domain.StageWorld}

	if entries == nil {
		stage.Message = "archive unreadable, world structure unknown"
		stage.Duration = time.Since(start)
		return stage
	}

	sizes := make(map[string]int64, len(entries))
	dirs := make(map[string]bool)
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name, "/")
		if entry.IsDir {
			dirs[name] = true
		} else {
			sizes[name] = entry.Size
			if d := filepath.Dir(name); d != "." {
				dirs[strings.Split(d, "/")[0]] = true
			}
		}
	}

	score := 100
	var problems []string
	for _, name := range worldRequiredFiles {
		size, ok := sizes[name]
		if !ok {
			problems = append(problems, "missing "+name)
			score -= deductWorldRequired
			continue
		}
		if size == 0 {
			problems = append(problems, "empty "+name)
			score -= deductWorldRequired
		}
	}
	for _, name := range worldRequiredDirs {
		if !dirs[name] {
			problems = append(problems, "missing "+name)
			score -= deductWorldRequired
		}
	}
	for _, name := range worldOptionalEntries {
		if _, ok := sizes[name]; !ok && !dirs[name] {
			problems = append(problems, "optional "+name+" absent")
			score -= deductWorldOptional
		}
	}
	if score < 0 {
		score = 0
	}

	stage.Score = score
	stage.Duration = time.Since(start)
	// 可选条目缺失不判失败
	failed := false
	for _, p := range problems {
		if !strings.HasPrefix(p, "optional ") {
			failed = true
			break
		}
	}
	if failed {
		stage.Message = strings.Join(problems, "; ")
		return stage
	}

	stage.Passed = true
	if len(problems) > 0 {
		stage.Message = strings.Join(problems, "; ")
	} else {
		stage.Message = "world structure complete"
	}
	return stage
}

// runRestoreStage extracts to a scratch dir and re-validates the world tree
// runRestoreStage 解包到临时目录后重新校验存档结构
func (e *verificationEngine) runRestoreStage(ctx context.Context, archivePath string) domain.StageResult {
	start := time.Now()
	stage := domain.StageResult{Stage: domain.StageRestore}

	scratch := filepath.Join(e.scratchDir, "restore_probe_"+time.Now().Format("20060102150405.000"))
	if err := os.MkdirAll(scratch, 0755); err != nil {
		stage.Message = err.Error()
		stage.Duration = time.Since(start)
		return stage
	}
	defer os.RemoveAll(scratch)

	if err := archive.Extract(ctx, archivePath, scratch); err != nil {
		stage.Message = "extract failed: " + err.Error()
		stage.Duration = time.Since(start)
		return stage
	}

	result, err := e.worldValidator.Validate(scratch)
	if err != nil {
		stage.Message = err.Error()
		stage.Duration = time.Since(start)
		return stage
	}
	if !result.Valid {
		stage.Message = "restored tree invalid: missing " + strings.Join(append(result.MissingEntries, result.EmptyFiles...), ", ")
		stage.Duration = time.Since(start)
		return stage
	}

	if problems := e.sampleRegionCheck(scratch); len(problems) > 0 {
		stage.Message = "sampled region files failed: " + strings.Join(problems, "; ")
		stage.Duration = time.Since(start)
		return stage
	}

	stage.Passed = true
	stage.Score = 100
	stage.Message = "restored tree validated"
	stage.Duration = time.Since(start)
	return stage
}

// sampleRegionCheck spot-checks up to sampleCount restored region files for a
// complete header, catching truncation a structural extract cannot see
// sampleRegionCheck 对恢复出的区块文件抽样深检，发现解包无法暴露的截断
func (e *verificationEngine) sampleRegionCheck(root string) []string {
	entries, err := os.ReadDir(filepath.Join(root, "region"))
	if err != nil {
		return []string{"read region dir: " + err.Error()}
	}

	var files []os.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry)
		}
	}
	if len(files) == 0 {
		return nil
	}

	// 均匀抽样，覆盖目录首尾
	n := e.sampleCount
	if n > len(files) {
		n = len(files)
	}
	step := len(files) / n

	var problems []string
	for i := 0; i < n; i++ {
		entry := files[i*step]
		info, err := entry.Info()
		if err != nil {
			problems = append(problems, entry.Name()+": "+err.Error())
			continue
		}
		if info.Size() < regionHeaderBytes {
			problems = append(problems, fmt.Sprintf("%s truncated: %d bytes", entry.Name(), info.Size()))
		}
	}
	return problems
}

// Repair salvages readable entries into a fresh archive and swaps it in
// The report records every method tried and whether the original was replaced
// Repair 将可读条目抢救到新归档并替换原文件
// 报告记录每个尝试过的手段以及原归档是否被替换
func (e *verificationEngine) Repair(ctx context.Context, archivePath string) *domain.RepairReport {
	report := &domain.RepairReport{Attempted: true}

	// 完全无法打开的归档不可修复
	if err := archive.CheckMagic(archivePath); err != nil {
		report.MethodsTried = append(report.MethodsTried, "magic-check")
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.MethodsTried = append(report.MethodsTried, "magic-check")

	salvagePath := archivePath + ".repair"
	recovered, err := archive.Salvage(archivePath, salvagePath)
	report.MethodsTried = append(report.MethodsTried, "salvage-entries")
	if err != nil || recovered == 0 {
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
		} else {
			report.Errors = append(report.Errors, "no entries recoverable")
		}
		_ = os.Remove(salvagePath)
		return report
	}

	if err := archive.CheckIntegrity(salvagePath); err != nil {
		report.Errors = append(report.Errors, "salvaged archive still corrupted: "+err.Error())
		_ = os.Remove(salvagePath)
		return report
	}

	// 替换原归档并记录该动作
	if err := os.Rename(salvagePath, archivePath); err != nil {
		report.Errors = append(report.Errors, "replace original: "+err.Error())
		_ = os.Remove(salvagePath)
		return report
	}
	report.MethodsTried = append(report.MethodsTried, "replace-original")
	report.Succeeded = true

	e.logger.Warn("archive repaired in place",
		zap.String(logger.FieldArchive, archivePath),
		zap.Int("recoveredEntries", recovered))

	return report
}
