package model

import "time"

const TableNameBackupHistory = "backup_history"

// BackupHistory mapped from table <backup_history>
type BackupHistory struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id" form:"id"`
	TargetID   int64     `gorm:"column:target_id;not null;index:idx_history_target" json:"targetId" form:"targetId"`
	ScheduleID int64     `gorm:"column:schedule_id;default:0" json:"scheduleId" form:"scheduleId"`
	Trigger    string    `gorm:"column:trigger_type" json:"trigger" form:"trigger"`
	StartTime  time.Time `gorm:"column:start_time" json:"startTime" form:"startTime"`
	EndTime    time.Time `gorm:"column:end_time" json:"endTime" form:"endTime"`
	Status     int       `gorm:"column:status;default:0" json:"status" form:"status"`
	FilePath   string    `gorm:"column:file_path;index:idx_history_file_path" json:"filePath" form:"filePath"`
	FileSize   int64     `gorm:"column:file_size;default:0" json:"fileSize" form:"fileSize"`
	FileCount  int64     `gorm:"column:file_count;default:0" json:"fileCount" form:"fileCount"`
	Checksum   string    `gorm:"column:checksum" json:"checksum" form:"checksum"`
	Attempts   int       `gorm:"column:attempts;default:0" json:"attempts" form:"attempts"`
	Score      int       `gorm:"column:score;default:0" json:"score" form:"score"`
	Message    string    `gorm:"column:message" json:"message" form:"message"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt" form:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt" form:"updatedAt"`
}

// TableName BackupHistory's table name
func (*BackupHistory) TableName() string {
	return TableNameBackupHistory
}
