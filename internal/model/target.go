package model

import "time"

const TableNameTarget = "target"

// Target mapped from table <target>
type Target struct {
	ID           int64     `gorm:"column:id;primaryKey" json:"id" form:"id"`
	Name         string    `gorm:"column:name;not null;uniqueIndex:idx_target_name" json:"name" form:"name"`
	WorldPath    string    `gorm:"column:world_path;not null" json:"worldPath" form:"worldPath"`
	ProcessName  string    `gorm:"column:process_name" json:"processName" form:"processName"`
	StartCommand string    `gorm:"column:start_command" json:"startCommand" form:"startCommand"`
	WorkingDir   string    `gorm:"column:working_dir" json:"workingDir" form:"workingDir"`
	MemoryMB     int       `gorm:"column:memory_mb;default:0" json:"memoryMb" form:"memoryMb"`
	Status       int       `gorm:"column:status;default:0" json:"status" form:"status"`
	PID          int32     `gorm:"column:pid;default:0" json:"pid" form:"pid"`
	Enabled      bool      `gorm:"column:enabled;default:true" json:"enabled" form:"enabled"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt" form:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt" form:"updatedAt"`
}

// TableName Target's table name
func (*Target) TableName() string {
	return TableNameTarget
}
