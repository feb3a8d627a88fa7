// Package shell provides one-shot shell command execution with timeout,
// process-group cleanup, and output truncation.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/toolgate/backend/internal/shared/types"
)

// Config bounds shell execution.
type Config struct {
	WorkDir         string
	MaxExecSeconds  int
	MaxInputLength  int
	MaxOutputLength int
}

// Provider executes shell commands under the configured limits.
type Provider struct {
	cfg Config
}

// New creates a shell provider.
func New(cfg Config) *Provider {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.MaxExecSeconds <= 0 {
		cfg.MaxExecSeconds = 300
	}
	if cfg.MaxInputLength <= 0 {
		cfg.MaxInputLength = 1000000
	}
	if cfg.MaxOutputLength <= 0 {
		cfg.MaxOutputLength = 1000000
	}
	return &Provider{cfg: cfg}
}

// Descriptors returns the shell toolset. The command argument reaches
// bash, so the descriptor is flagged for denylist scanning.
func (p *Provider) Descriptors() []types.ToolDescriptor {
	return []types.ToolDescriptor{
		{
			Name:        "execute_shell",
			Description: "Execute a shell command with bash. Supports pipes, redirection, and environment variables.",
			Mode:        types.ModeLocal,
			Parameters: []types.Parameter{
				{Name: "command", Type: "string", Description: "The shell command to run", Required: true},
				{Name: "timeout", Type: "integer", Description: "Execution timeout in seconds", Required: false},
			},
			InterpreterArgs: true,
			Timeout:         time.Duration(p.cfg.MaxExecSeconds+5) * time.Second,
			Handler:         p.execute,
		},
	}
}

func (p *Provider) execute(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return types.Fail(types.ErrKindExecutionError, "command must be a non-empty string"), nil
	}
	if len(command) > p.cfg.MaxInputLength {
		return types.Fail(types.ErrKindExecutionError,
			fmt.Sprintf("command exceeds maximum length of %d characters", p.cfg.MaxInputLength)), nil
	}

	timeout := p.cfg.MaxExecSeconds
	if v, ok := args["timeout"].(float64); ok && v >= 1 && v <= float64(p.cfg.MaxExecSeconds) {
		timeout = int(v)
	}

	if err := os.MkdirAll(p.cfg.WorkDir, 0o755); err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("working directory unavailable: %v", err)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.Command("/bin/bash", "-c", command)
	cmd.Dir = p.cfg.WorkDir
	// New process group so a timeout kills the whole tree, not just bash.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("failed to start command: %v", err)), nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return types.Fail(types.ErrKindTimeout,
			fmt.Sprintf("execution timeout after %ds, process group killed", timeout)), nil
	}

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return types.Fail(types.ErrKindExecutionError, waitErr.Error()), nil
		}
	}

	outText, outTrunc := p.truncate(stdout.String())
	errText, errTrunc := p.truncate(stderr.String())

	result := &types.ExecutionResult{
		Success: exitCode == 0,
		Output: map[string]interface{}{
			"stdout":      outText,
			"stderr":      errText,
			"return_code": exitCode,
		},
		Truncated: outTrunc || errTrunc,
	}
	if exitCode != 0 {
		result.ErrorKind = types.ErrKindExecutionError
		result.Error = fmt.Sprintf("command exited with code %d", exitCode)
	}
	result.WithDuration(time.Since(start))
	return result, nil
}

func (p *Provider) truncate(s string) (string, bool) {
	if len(s) > p.cfg.MaxOutputLength {
		return s[:p.cfg.MaxOutputLength] + "... [truncated]", true
	}
	return s, false
}
