package domain

import "time"

// 验证阶段名称
const (
	StageChecksum  = "checksum"
	StageIntegrity = "integrity"
	StageWorld     = "world"
	StageRestore   = "restore"
)

// 质量评级
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
	QualityCritical  = "critical"
)

// StageResult 单个验证阶段的结果
type StageResult struct {
	// Stage 阶段名称
	Stage string `json:"stage"`
	// Passed 是否通过
	Passed bool `json:"passed"`
	// Score 阶段得分 0-100
	Score int `json:"score"`
	// Message 阶段结论描述
	Message string `json:"message"`
	// Digest checksum 阶段计算出的 SHA-256 摘要
	Digest string `json:"digest,omitempty"`
	// Duration 阶段耗时
	Duration time.Duration `json:"duration"`
}

// RepairReport 归档修复尝试的结果
type RepairReport struct {
	// Attempted 是否尝试过修复
	Attempted bool `json:"attempted"`
	// Succeeded 修复是否成功
	Succeeded bool `json:"succeeded"`
	// MethodsTried 尝试过的修复手段
	MethodsTried []string `json:"methodsTried"`
	// Errors 各手段的失败原因
	Errors []string `json:"errors,omitempty"`
}

// VerificationReport 归档验证的汇总报告
type VerificationReport struct {
	// ArchivePath 被验证的归档
	ArchivePath string `json:"archivePath"`
	// Stages 各阶段结果，按执行顺序排列
	Stages []StageResult `json:"stages"`
	// Score 加权总分 0-100
	Score int `json:"score"`
	// Quality 总分对应的质量评级
	Quality string `json:"quality"`
	// Valid 归档是否可用于恢复
	Valid bool `json:"valid"`
	// CorruptionDetected 任一完整性比对阶段失败后置位，不再清除
	CorruptionDetected bool `json:"corruptionDetected"`
	// Repair 修复尝试结果，未尝试时为 nil
	Repair *RepairReport `json:"repair,omitempty"`
	// VerifiedAt 验证时间
	VerifiedAt time.Time `json:"verifiedAt"`
}

// QualityForScore maps a 0-100 score to a quality bucket
// QualityForScore 将 0-100 得分映射为质量评级
func QualityForScore(score int) string {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 75:
		return QualityGood
	case score >= 60:
		return QualityFair
	case score >= 40:
		return QualityPoor
	default:
		return QualityCritical
	}
}
