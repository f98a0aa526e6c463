package service

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/craftops/game-backup-service/internal/domain"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// memoryPlaceholder 启动命令中的内存占位符，替换为目标的 MemoryMB
const memoryPlaceholder = "{memory_mb}"

// ProcessController 管理游戏服务器进程的停止与重启
type ProcessController interface {
	// IsRunning 探测目标进程是否存活，返回存活状态与 PID
	IsRunning(ctx context.Context, target *domain.Target) (bool, int32)

	// Stop 先发送终止信号等待退出，超时后强制结束
	Stop(ctx context.Context, target *domain.Target) error

	// Start 按目标的启动命令重新拉起进程，返回新 PID
	Start(ctx context.Context, target *domain.Target) (int32, error)
}

type processController struct {
	// stopTimeout 优雅停止的最长等待时间
	stopTimeout time.Duration
	logger      *zap.Logger
}

// NewProcessController 创建 ProcessController 实例
func NewProcessController(stopTimeout time.Duration, logger *zap.Logger) ProcessController {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	return &processController{stopTimeout: stopTimeout, logger: logger}
}

// findProcess locates the target process by recorded PID first, then by name
// findProcess 先按记录的 PID 查找进程，找不到再按进程名扫描
func (c *processController) findProcess(ctx context.Context, target *domain.Target) *process.Process {
	if target.PID > 0 {
		if p, err := process.NewProcessWithContext(ctx, target.PID); err == nil {
			if running, _ := p.IsRunningWithContext(ctx); running {
				return p
			}
		}
	}

	if target.ProcessName == "" {
		return nil
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if name != target.ProcessName {
			continue
		}
		// 同名进程按命令行中的工作目录区分
		if target.WorkingDir != "" {
			cwd, err := p.CwdWithContext(ctx)
			if err == nil && cwd != target.WorkingDir {
				continue
			}
		}
		return p
	}
	return nil
}

func (c *processController) IsRunning(ctx context.Context, target *domain.Target) (bool, int32) {
	p := c.findProcess(ctx, target)
	if p == nil {
		return false, 0
	}
	return true, p.Pid
}

// Stop terminates gracefully, waits up to stopTimeout, then kills
// Stop 优雅终止并等待，超时后强制 Kill
func (c *processController) Stop(ctx context.Context, target *domain.Target) error {
	p := c.findProcess(ctx, target)
	if p == nil {
		// 本来就没在运行
		return nil
	}

	c.logger.Info("stopping game server process",
		zap.Int64("targetId", target.ID),
		zap.Int32("pid", p.Pid))

	if err := p.TerminateWithContext(ctx); err != nil {
		return errors.Wrapf(err, "terminate pid %d", p.Pid)
	}

	deadline := time.Now().Add(c.stopTimeout)
	for time.Now().Before(deadline) {
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	// 超时，升级为强制结束
	c.logger.Warn("graceful stop timed out, killing process",
		zap.Int64("targetId", target.ID),
		zap.Int32("pid", p.Pid))
	if err := p.KillWithContext(ctx); err != nil {
		return errors.Wrapf(err, "kill pid %d", p.Pid)
	}

	return nil
}

// Start relaunches the target with its configured command and memory allocation
// Start 按配置的命令与内存参数重新拉起目标进程
func (c *processController) Start(ctx context.Context, target *domain.Target) (int32, error) {
	if target.StartCommand == "" {
		return 0, errors.New("target has no start command")
	}

	command := target.StartCommand
	if target.MemoryMB > 0 {
		command = strings.ReplaceAll(command, memoryPlaceholder, strconv.Itoa(target.MemoryMB))
	}

	fields := strings.Fields(command)
	cmd := exec.Command(fields[0], fields[1:]...)
	if target.WorkingDir != "" {
		cmd.Dir = target.WorkingDir
	}

	if err := cmd.Start(); err != nil {
		return 0, errors.Wrapf(err, "start %s", fields[0])
	}

	pid := int32(cmd.Process.Pid)
	c.logger.Info("game server process started",
		zap.Int64("targetId", target.ID),
		zap.Int32("pid", pid),
		zap.Int("memoryMb", target.MemoryMB))

	// 回收僵尸进程
	go func() { _ = cmd.Wait() }()

	return pid, nil
}
