package domain

import (
	"fmt"
	"time"
)

// ScheduleType 备份计划周期类型，闭合枚举
type ScheduleType string

const (
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
)

// Valid reports whether t is one of the known schedule types
// Valid 判断是否为已知计划类型
func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return true
	}
	return false
}

// BackupSchedule 备份计划领域模型
// 每个备份目标最多持有一条计划
type BackupSchedule struct {
	ID int64
	// TargetID 关联的备份目标，唯一
	TargetID int64
	// Type 周期类型 daily/weekly/monthly
	Type ScheduleType
	// Hour 执行小时 0-23
	Hour int
	// Minute 执行分钟 0-59
	Minute int
	// RetentionDays 归档保留天数 1-365
	RetentionDays int
	// Enabled 是否启用
	Enabled bool
	// LastRun 上次执行时间，零值表示从未执行
	LastRun time.Time
	// LastStatus 上次执行状态
	LastStatus int
	// LastMessage 上次执行结果消息
	LastMessage string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CronExpression maps the schedule to a cron spec
// weekly runs on Sunday, monthly on day 1
// CronExpression 将计划映射为 cron 表达式
// weekly 固定周日执行，monthly 固定每月 1 号执行
func (s *BackupSchedule) CronExpression() string {
	switch s.Type {
	case ScheduleWeekly:
		return fmt.Sprintf("%d %d * * 0", s.Minute, s.Hour)
	case ScheduleMonthly:
		return fmt.Sprintf("%d %d 1 * *", s.Minute, s.Hour)
	default:
		return fmt.Sprintf("%d %d * * *", s.Minute, s.Hour)
	}
}
