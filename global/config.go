package global

import (
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config 全局配置实例
var Config *config

// server HTTP 服务配置
type server struct {
	RunMode         string `yaml:"run-mode" default:"release"`
	HttpPort        string `yaml:"http-port" default:"8000"`
	PrivatePort     string `yaml:"private-port" default:"8001"`
	ReadTimeout     int    `yaml:"read-timeout" default:"60"`
	WriteTimeout    int    `yaml:"write-timeout" default:"60"`
	ShutdownTimeout int    `yaml:"shutdown-timeout" default:"30"`
}

// log 日志配置
type log struct {
	Level      string `yaml:"level" default:"info"`
	File       string `yaml:"file" default:"storage/logs/backup.log"`
	Production bool   `yaml:"production" default:"false"`
}

// Database 数据库配置
type Database struct {
	Type         string `yaml:"type" default:"sqlite"`
	Path         string `yaml:"path" default:"storage/database/backup.db"`
	UserName     string `yaml:"username"`
	Password     string `yaml:"password"`
	Host         string `yaml:"host"`
	Name         string `yaml:"name"`
	Charset      string `yaml:"charset" default:"utf8mb4"`
	ParseTime    bool   `yaml:"parse-time" default:"true"`
	TablePrefix  string `yaml:"table-prefix" default:"gb_"`
	MaxIdleConns int    `yaml:"max-idle-conns" default:"10"`
	MaxOpenConns int    `yaml:"max-open-conns" default:"30"`
}

// Backup 备份引擎配置
type Backup struct {
	// Dir 备份归档存放根目录，按目标名建子目录
	Dir string `yaml:"dir" default:"storage/backups"`
	// MaxWorkers 并发备份任务数上限
	MaxWorkers int `yaml:"max-workers" default:"4"`
	// QueueSize 备份任务队列大小
	QueueSize int `yaml:"queue-size" default:"64"`
	// MaxRetries 单次备份失败后的最大重试次数
	MaxRetries int `yaml:"max-retries" default:"3"`
	// StopTimeout 停止游戏服务器进程的等待秒数，超时后强制结束
	StopTimeout int `yaml:"stop-timeout" default:"30"`
	// DiskWarnPercent 磁盘使用率告警阈值
	DiskWarnPercent float64 `yaml:"disk-warn-percent" default:"90"`
	// DiskEmergencyPercent 磁盘使用率紧急清理阈值
	DiskEmergencyPercent float64 `yaml:"disk-emergency-percent" default:"95"`
	// DiskGuardInterval 磁盘水位巡检间隔（秒）
	DiskGuardInterval int `yaml:"disk-guard-interval" default:"300"`
	// RestoreSampleCount 恢复抽样校验的文件数量
	RestoreSampleCount int `yaml:"restore-sample-count" default:"3"`
	// RestoreTest 验证阶段是否执行恢复抽验
	RestoreTest bool `yaml:"restore-test" default:"false"`
}

// email 邮件告警配置
type email struct {
	Enabled  bool     `yaml:"enabled" default:"false"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port" default:"465"`
	UserName string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// webhook Webhook 告警配置
type webhook struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout" default:"10"`
}

// alert 告警配置
type alert struct {
	Email   email   `yaml:"email"`
	Webhook webhook `yaml:"webhook"`
}

// tracer 请求追踪配置
type tracer struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Header  string `yaml:"header" default:"X-Trace-ID"`
}

// app 应用通用配置
type app struct {
	DefaultLang string `yaml:"default-lang" default:"en"`
	TempPath    string `yaml:"temp-path" default:"storage/temp"`
}

type config struct {
	Server   server   `yaml:"server"`
	Log      log      `yaml:"log"`
	Database Database `yaml:"database"`
	Backup   Backup   `yaml:"backup"`
	Alert    alert    `yaml:"alert"`
	Tracer   tracer   `yaml:"tracer"`
	App      app      `yaml:"app"`
	// File 配置文件绝对路径，用于 Save 回写
	File string `yaml:"-"`
}

// ConfigLoad loads yaml config from path, applying struct defaults first
// ConfigLoad 从指定路径加载 yaml 配置，先应用结构体默认值
func ConfigLoad(path string) (*config, error) {
	c := &config{}
	if err := defaults.Set(c); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	c.File = absPath

	Config = c
	return c, nil
}

// Save writes the current config back to its source file
// Save 将当前配置回写到其来源文件
func (c *config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.File, data, 0644)
}
