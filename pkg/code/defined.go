package code

// 成功码
var (
	Success = NewSuss(1, lang{"Success", "成功"})
)

// 通用错误码
var (
	ErrorInvalidParams  = NewError(10001, lang{"Invalid request parameters", "请求参数错误"})
	ErrorNotFound       = NewError(10002, lang{"Resource not found", "资源不存在"})
	ErrorServerInternal = NewError(10003, lang{"Internal server error", "服务内部错误"})
)

// 备份目标与计划错误码
var (
	ErrorTargetNotFound    = NewError(20001, lang{"Backup target not found", "备份目标不存在"})
	ErrorTargetPathInvalid = NewError(20002, lang{"Backup target path does not exist or is not a directory", "备份目标路径不存在或不是目录"})
	ErrorScheduleInvalid   = NewError(20101, lang{"Invalid backup schedule", "备份计划配置无效"})
	ErrorScheduleNotFound  = NewError(20102, lang{"Backup schedule not found", "备份计划不存在"})
	ErrorScheduleExists    = NewError(20103, lang{"Backup schedule already exists for this target", "该目标已存在备份计划"})
)

// 备份执行错误码
var (
	ErrorBackupRunning      = NewError(20201, lang{"A backup is already running for this target", "该目标已有备份正在执行"})
	ErrorArchiveCreate      = NewError(20202, lang{"Failed to create backup archive", "备份归档创建失败"})
	ErrorVerificationFailed = NewError(20203, lang{"Backup archive verification failed", "备份归档校验失败"})
	ErrorProcessControl     = NewError(20204, lang{"Game server process control failed", "游戏服务器进程控制失败"})
	ErrorDiskSpaceLow       = NewError(20205, lang{"Insufficient disk space for backup", "磁盘空间不足，无法备份"})
	ErrorRetentionCleanup   = NewError(20301, lang{"Retention cleanup failed", "备份清理失败"})
)
