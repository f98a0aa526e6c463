package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTargetID 目标服务器 ID 字段
	FieldTargetID = "targetId"

	// FieldAttempt 重试次数字段
	FieldAttempt = "attempt"

	// FieldArchive 归档文件路径字段
	FieldArchive = "archive"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldSize 文件大小字段
	FieldSize = "size"
)
