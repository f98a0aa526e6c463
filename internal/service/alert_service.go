package service

import (
	"context"
	"fmt"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// 告警规则名称
const (
	AlertRuleBackupFailure    = "backup_failure"
	AlertRuleFailureRate      = "failure_rate"
	AlertRuleCorruption       = "corruption_detected"
	AlertRuleScheduleFailure  = "schedule_execution_failure"
	AlertRuleDiskUsageWarning = "disk_usage_warning"
	AlertRuleDiskUsageDanger  = "disk_usage_critical"
)

// AlertContext 随告警传递的结构化上下文
type AlertContext struct {
	Rule     string                 `json:"rule"`
	TargetID int64                  `json:"targetId,omitempty"`
	Message  string                 `json:"message"`
	Snapshot domain.MetricsSnapshot `json:"snapshot"`
	Time     time.Time              `json:"time"`
}

// AlertSink 告警投递端
type AlertSink interface {
	Name() string
	Notify(ctx context.Context, alert *AlertContext) error
}

// mailSink 通过 SMTP 投递告警邮件
type mailSink struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

// NewEmailSink 创建邮件告警端
func NewEmailSink(host string, port int, username, password, from string, to []string) AlertSink {
	return &mailSink{host: host, port: port, username: username, password: password, from: from, to: to}
}

func (s *mailSink) Name() string { return "email" }

func (s *mailSink) Notify(ctx context.Context, alert *AlertContext) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", fmt.Sprintf("[game-backup] alert: %s", alert.Rule))
	m.SetBody("text/plain", fmt.Sprintf(
		"rule: %s\ntarget: %d\ntime: %s\n\n%s\n\nsuccess rate: %.2f\nconsecutive failures: %d\ndisk usage: %.1f%%\n",
		alert.Rule,
		alert.TargetID,
		alert.Time.Format(time.RFC3339),
		alert.Message,
		alert.Snapshot.SuccessRate,
		alert.Snapshot.ConsecutiveFailures,
		alert.Snapshot.DiskUsagePercent,
	))

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	return d.DialAndSend(m)
}

// webhookSink POST 告警到外部 webhook
type webhookSink struct {
	url    string
	client *resty.Client
}

// NewWebhookSink 创建 webhook 告警端
func NewWebhookSink(url string, timeout time.Duration) AlertSink {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &webhookSink{url: url, client: client}
}

func (s *webhookSink) Name() string { return "webhook" }

func (s *webhookSink) Notify(ctx context.Context, alert *AlertContext) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(alert).
		Post(s.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded %d", resp.StatusCode())
	}
	return nil
}

// AlertNotifier 评估阈值并向所有投递端转发告警
// 投递是异步且吞错的，绝不阻塞备份执行
type AlertNotifier interface {
	// NotifyResult 依据单次备份结果评估规则
	NotifyResult(result *domain.BackupResult, snapshot domain.MetricsSnapshot)

	// NotifyScheduleFailure 调度执行失败告警
	NotifyScheduleFailure(targetID int64, message string, snapshot domain.MetricsSnapshot)

	// NotifyDiskUsage 磁盘水位告警
	NotifyDiskUsage(percent float64, warn float64, critical float64, snapshot domain.MetricsSnapshot)
}

// AlertConfig 告警阈值配置
type AlertConfig struct {
	// FailureRateThreshold 成功率低于该值且样本足够时告警
	FailureRateThreshold float64
	// MinSamples 评估成功率所需的最少备份次数
	MinSamples int64
}

// DefaultAlertConfig 默认告警阈值
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		FailureRateThreshold: 0.5,
		MinSamples:           5,
	}
}

type alertNotifier struct {
	config AlertConfig
	sinks  []AlertSink
	logger *zap.Logger
}

// NewAlertNotifier 创建 AlertNotifier 实例
func NewAlertNotifier(config AlertConfig, sinks []AlertSink, logger *zap.Logger) AlertNotifier {
	return &alertNotifier{config: config, sinks: sinks, logger: logger}
}

// dispatch sends to every sink in its own goroutine, swallowing failures
// dispatch 向每个投递端异步发送，吞掉投递失败
func (n *alertNotifier) dispatch(alert *AlertContext) {
	for _, sink := range n.sinks {
		go func(sink AlertSink) {
			defer func() {
				if r := recover(); r != nil {
					n.logger.Error("alert sink panicked",
						zap.String("sink", sink.Name()),
						zap.Any("panic", r))
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := sink.Notify(ctx, alert); err != nil {
				n.logger.Warn("alert delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("rule", alert.Rule),
					zap.Error(err))
			}
		}(sink)
	}
}

func (n *alertNotifier) NotifyResult(result *domain.BackupResult, snapshot domain.MetricsSnapshot) {
	if result.Status != domain.BackupStatusSuccess {
		n.dispatch(&AlertContext{
			Rule:     AlertRuleBackupFailure,
			TargetID: result.TargetID,
			Message:  result.Message,
			Snapshot: snapshot,
			Time:     time.Now(),
		})
	}

	if result.Verification != nil && result.Verification.CorruptionDetected {
		n.dispatch(&AlertContext{
			Rule:     AlertRuleCorruption,
			TargetID: result.TargetID,
			Message:  "corruption detected in archive " + result.ArchivePath,
			Snapshot: snapshot,
			Time:     time.Now(),
		})
	}

	if snapshot.TotalBackups >= n.config.MinSamples && snapshot.SuccessRate < n.config.FailureRateThreshold {
		n.dispatch(&AlertContext{
			Rule:     AlertRuleFailureRate,
			TargetID: result.TargetID,
			Message:  fmt.Sprintf("backup success rate dropped to %.2f", snapshot.SuccessRate),
			Snapshot: snapshot,
			Time:     time.Now(),
		})
	}
}

func (n *alertNotifier) NotifyScheduleFailure(targetID int64, message string, snapshot domain.MetricsSnapshot) {
	n.dispatch(&AlertContext{
		Rule:     AlertRuleScheduleFailure,
		TargetID: targetID,
		Message:  message,
		Snapshot: snapshot,
		Time:     time.Now(),
	})
}

func (n *alertNotifier) NotifyDiskUsage(percent float64, warn float64, critical float64, snapshot domain.MetricsSnapshot) {
	if percent >= critical {
		n.dispatch(&AlertContext{
			Rule:     AlertRuleDiskUsageDanger,
			Message:  fmt.Sprintf("backup volume at %.1f%% (critical watermark %.1f%%)", percent, critical),
			Snapshot: snapshot,
			Time:     time.Now(),
		})
		return
	}
	if percent >= warn {
		n.dispatch(&AlertContext{
			Rule:     AlertRuleDiskUsageWarning,
			Message:  fmt.Sprintf("backup volume at %.1f%% (warning watermark %.1f%%)", percent, warn),
			Snapshot: snapshot,
			Time:     time.Now(),
		})
	}
}
