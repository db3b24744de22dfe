package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/metrics"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// CommandResult 单条命令的回显
type CommandResult struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// Executor 在会话上执行命令并维护配置模式标记，实现 device.Runner
type Executor struct {
	s *Session
}

var _ device.Runner = (*Executor)(nil)

// Run 执行一条操作命令：处于配置模式时先退出；回显为 Invalid input 时退出配置模式后重试一次
func (e *Executor) Run(ctx context.Context, command string) (string, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.begin()
	defer e.s.end()
	return e.run(ctx, command)
}

// RunMany 依次执行多条操作命令；传输错误时返回已完成的部分
func (e *Executor) RunMany(ctx context.Context, commands []string) ([]CommandResult, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.begin()
	defer e.s.end()

	results := make([]CommandResult, 0, len(commands))
	for _, cmd := range commands {
		out, err := e.run(ctx, cmd)
		res := CommandResult{Command: cmd, Output: out}
		if err != nil {
			if !errors.Is(err, device.ErrInvalidInput) {
				return results, err
			}
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

// RunConfigBatch 进入配置模式逐行下发；save 为 true 时最后保存配置。
// 传输错误时中止且不回滚，已下发的行可能已生效
func (e *Executor) RunConfigBatch(ctx context.Context, lines []string, save bool) ([]CommandResult, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.begin()
	defer e.s.end()

	drv := e.s.driver
	results := make([]CommandResult, 0, len(lines)+2)
	if !e.s.configMode {
		out, err := e.send(ctx, drv.EnterConfig(), "config")
		if err != nil {
			return results, err
		}
		e.s.configMode = true
		results = append(results, CommandResult{Command: drv.EnterConfig(), Output: out})
	}

	for i, line := range lines {
		out, err := e.send(ctx, line, "config")
		if err != nil {
			logger.Warn("Config batch aborted, partial configuration may have been applied",
				"device_id", e.s.Key.DeviceID, "hostname", e.s.Device.Hostname,
				"sent", i, "total", len(lines), "error", err)
			return results, fmt.Errorf("partial configuration may have been applied (%d of %d lines sent): %w", i, len(lines), err)
		}
		if line == drv.ExitConfig() {
			e.s.configMode = false
		}
		res := CommandResult{Command: line, Output: out}
		if device.ContainsInvalidInput(out) {
			res.Error = device.ErrInvalidInput.Error()
			logger.Warn("Config line rejected", "hostname", e.s.Device.Hostname, "line", line)
		}
		results = append(results, res)
	}

	if save {
		res, err := e.save(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SaveConfig 保存运行配置
func (e *Executor) SaveConfig(ctx context.Context) (CommandResult, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.begin()
	defer e.s.end()
	return e.save(ctx)
}

func (e *Executor) save(ctx context.Context) (CommandResult, error) {
	if err := e.exitConfig(ctx); err != nil {
		return CommandResult{}, err
	}
	cmd := e.s.driver.SaveConfigCommand()
	out, err := e.send(ctx, cmd, "exec")
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{Command: cmd, Output: out}, nil
}

func (e *Executor) run(ctx context.Context, command string) (string, error) {
	if err := e.exitConfig(ctx); err != nil {
		return "", err
	}
	out, err := e.send(ctx, command, "exec")
	if err != nil {
		return "", err
	}
	if !device.ContainsInvalidInput(out) {
		return out, nil
	}

	// 可能仍处于配置模式：退出后重试一次
	if e.s.driver.IsInConfig(e.s.transport.Prompt()) {
		e.s.configMode = true
		if err := e.exitConfig(ctx); err != nil {
			return "", err
		}
	}
	out, err = e.send(ctx, command, "exec")
	if err != nil {
		return "", err
	}
	if device.ContainsInvalidInput(out) {
		metrics.CommandErrors.WithLabelValues(e.s.Device.OSVariant, "invalid_input").Inc()
		return out, fmt.Errorf("%q: %w", command, device.ErrInvalidInput)
	}
	return out, nil
}

func (e *Executor) exitConfig(ctx context.Context) error {
	if !e.s.configMode {
		return nil
	}
	if _, err := e.send(ctx, e.s.driver.ExitConfig(), "config"); err != nil {
		return err
	}
	e.s.configMode = false
	return nil
}

// send 发送一条命令；传输错误时标记会话失效
func (e *Executor) send(ctx context.Context, command, kind string) (string, error) {
	start := time.Now()
	out, err := e.s.transport.Send(ctx, command)
	metrics.CommandDuration.WithLabelValues(e.s.Device.OSVariant, kind).Observe(time.Since(start).Seconds())
	if err != nil {
		e.s.broken.Store(true)
		metrics.CommandErrors.WithLabelValues(e.s.Device.OSVariant, "transport").Inc()
		return out, fmt.Errorf("%w: %q on %s: %w", ErrTransport, command, e.s.Device.Hostname, err)
	}
	logger.DebugCommandOutput(command, out, 5)
	return out, nil
}
