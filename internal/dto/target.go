package dto

import "time"

// TargetAddRequest 新增备份目标请求
type TargetAddRequest struct {
	Name         string `json:"name" form:"name" binding:"required" example:"survival-world"`
	WorldPath    string `json:"worldPath" form:"worldPath" binding:"required" example:"/srv/minecraft/world"`
	ProcessName  string `json:"processName" form:"processName" example:"java"`
	StartCommand string `json:"startCommand" form:"startCommand" example:"java -jar server.jar nogui"`
	WorkingDir   string `json:"workingDir" form:"workingDir" example:"/srv/minecraft"`
	MemoryMB     int    `json:"memoryMb" form:"memoryMb" binding:"min=0" example:"4096"`
	Enabled      *bool  `json:"enabled" form:"enabled" example:"true"`
}

// TargetUpdateRequest 更新备份目标请求
type TargetUpdateRequest struct {
	ID           int64  `json:"id" form:"id" binding:"required" example:"1"`
	Name         string `json:"name" form:"name" binding:"required" example:"survival-world"`
	WorldPath    string `json:"worldPath" form:"worldPath" binding:"required" example:"/srv/minecraft/world"`
	ProcessName  string `json:"processName" form:"processName" example:"java"`
	StartCommand string `json:"startCommand" form:"startCommand" example:"java -jar server.jar nogui"`
	WorkingDir   string `json:"workingDir" form:"workingDir" example:"/srv/minecraft"`
	MemoryMB     int    `json:"memoryMb" form:"memoryMb" binding:"min=0" example:"4096"`
	Enabled      *bool  `json:"enabled" form:"enabled" example:"true"`
}

// TargetIDRequest 按ID操作备份目标的请求
type TargetIDRequest struct {
	ID int64 `json:"id" form:"id" binding:"required" example:"1"`
}

// TargetDTO 备份目标 DTO
type TargetDTO struct {
	ID           int64     `json:"id"`           // 目标ID
	Name         string    `json:"name"`         // 目标名称
	WorldPath    string    `json:"worldPath"`    // 存档目录
	ProcessName  string    `json:"processName"`  // 进程名
	StartCommand string    `json:"startCommand"` // 启动命令
	WorkingDir   string    `json:"workingDir"`   // 工作目录
	MemoryMB     int       `json:"memoryMb"`     // 内存（MB）
	Status       int       `json:"status"`       // 进程状态 (0:Unknown, 1:Running, 2:Stopped)
	PID          int32     `json:"pid"`          // 进程号
	Enabled      bool      `json:"enabled"`      // 是否启用
	CreatedAt    time.Time `json:"createdAt"`    // 创建时间
	UpdatedAt    time.Time `json:"updatedAt"`    // 更新时间
}
