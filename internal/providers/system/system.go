// Package system provides host and runtime introspection tools.
package system

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/toolgate/backend/internal/shared/types"
)

// Descriptors returns the system toolset.
func Descriptors() []types.ToolDescriptor {
	startTime := time.Now()

	return []types.ToolDescriptor{
		{
			Name:        "system_info",
			Description: "Get server runtime and host information",
			Mode:        types.ModeLocal,
			Handler: func(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
				return info(startTime)
			},
		},
		{
			Name:        "system_time",
			Description: "Get current server time",
			Mode:        types.ModeLocal,
			Handler: func(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
				return currentTime()
			},
		},
	}
}

func info(startTime time.Time) (*types.ExecutionResult, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	hostname, _ := os.Hostname()

	return types.OK(map[string]interface{}{
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"cpus":           runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"hostname":       hostname,
		"pid":            os.Getpid(),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	}), nil
}

func currentTime() (*types.ExecutionResult, error) {
	now := time.Now()
	return types.OK(map[string]interface{}{
		"timestamp": now.Unix(),
		"iso":       now.Format(time.RFC3339),
		"timezone":  now.Location().String(),
	}), nil
}
