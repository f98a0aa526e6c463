package model

import "time"

const TableNameBackupSchedule = "backup_schedule"

// BackupSchedule mapped from table <backup_schedule>
// 每个目标至多一条计划，由唯一索引保证
type BackupSchedule struct {
	ID            int64     `gorm:"column:id;primaryKey" json:"id" form:"id"`
	TargetID      int64     `gorm:"column:target_id;not null;uniqueIndex:idx_schedule_target" json:"targetId" form:"targetId"`
	Type          string    `gorm:"column:type;not null" json:"type" form:"type"`
	Hour          int       `gorm:"column:hour;not null" json:"hour" form:"hour"`
	Minute        int       `gorm:"column:minute;not null" json:"minute" form:"minute"`
	RetentionDays int       `gorm:"column:retention_days;not null;default:7" json:"retentionDays" form:"retentionDays"`
	Enabled       bool      `gorm:"column:enabled;default:true" json:"enabled" form:"enabled"`
	LastRun       time.Time `gorm:"column:last_run;default:NULL" json:"lastRun" form:"lastRun"`
	LastStatus    int       `gorm:"column:last_status;default:0" json:"lastStatus" form:"lastStatus"`
	LastMessage   string    `gorm:"column:last_message" json:"lastMessage" form:"lastMessage"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt" form:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt" form:"updatedAt"`
}

// TableName BackupSchedule's table name
func (*BackupSchedule) TableName() string {
	return TableNameBackupSchedule
}
