// Package fileops provides text file tools: reading with line ranges,
// whole-file writes, and line-range replacement with dry-run preview.
package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/toolgate/backend/internal/shared/types"
)

// Config bounds file operations.
type Config struct {
	MaxInputLength  int
	MaxOutputLength int
}

// Provider implements the file toolset.
type Provider struct {
	cfg Config
}

// New creates a fileops provider.
func New(cfg Config) *Provider {
	if cfg.MaxInputLength <= 0 {
		cfg.MaxInputLength = 1000000
	}
	if cfg.MaxOutputLength <= 0 {
		cfg.MaxOutputLength = 1000000
	}
	return &Provider{cfg: cfg}
}

// Descriptors returns the file toolset.
func (p *Provider) Descriptors() []types.ToolDescriptor {
	return []types.ToolDescriptor{
		{
			Name:        "read_file",
			Description: "Read a text file, optionally a 1-based line range",
			Mode:        types.ModeLocal,
			Parameters: []types.Parameter{
				{Name: "file_path", Type: "string", Description: "Absolute path of the file", Required: true},
				{Name: "start_line", Type: "integer", Description: "First line to read (1-based)", Required: false},
				{Name: "end_line", Type: "integer", Description: "Last line to read, -1 for end of file", Required: false},
			},
			Handler: p.readFile,
		},
		{
			Name:        "write_file",
			Description: "Write content to a file, creating parent directories",
			Mode:        types.ModeLocal,
			Parameters: []types.Parameter{
				{Name: "file_path", Type: "string", Description: "Absolute path of the file", Required: true},
				{Name: "content", Type: "string", Description: "Content to write", Required: true},
				{Name: "append", Type: "boolean", Description: "Append instead of overwrite", Required: false},
			},
			Handler: p.writeFile,
		},
		{
			Name:        "replace_lines",
			Description: "Replace an inclusive 1-based line range with new content",
			Mode:        types.ModeLocal,
			Parameters: []types.Parameter{
				{Name: "file_path", Type: "string", Description: "Absolute path of the file", Required: true},
				{Name: "start_line", Type: "integer", Description: "First line to replace (1-based)", Required: true},
				{Name: "end_line", Type: "integer", Description: "Last line to replace (inclusive)", Required: true},
				{Name: "new_content", Type: "string", Description: "Replacement text", Required: true},
				{Name: "dry_run", Type: "boolean", Description: "Preview without writing", Required: false},
			},
			Handler: p.replaceLines,
		},
	}
}

func (p *Provider) readFile(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
	path, _ := args["file_path"].(string)
	if path == "" {
		return types.Fail(types.ErrKindExecutionError, "file_path must be a non-empty string"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("failed to read file: %v", err)), nil
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)

	start := intArg(args, "start_line", 1)
	end := intArg(args, "end_line", -1)
	if start < 1 {
		start = 1
	}
	if end < 0 || end > total {
		end = total
	}
	if start > total {
		return types.Fail(types.ErrKindExecutionError,
			fmt.Sprintf("start_line %d exceeds file length %d", start, total)), nil
	}

	content := strings.Join(lines[start-1:end], "\n")
	truncated := false
	if len(content) > p.cfg.MaxOutputLength {
		content = content[:p.cfg.MaxOutputLength] + "... [truncated]"
		truncated = true
	}

	res := types.OK(map[string]interface{}{
		"content":     content,
		"total_lines": total,
		"start_line":  start,
		"end_line":    end,
	})
	res.Truncated = truncated
	return res, nil
}

func (p *Provider) writeFile(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
	path, _ := args["file_path"].(string)
	if path == "" {
		return types.Fail(types.ErrKindExecutionError, "file_path must be a non-empty string"), nil
	}
	content, ok := args["content"].(string)
	if !ok {
		return types.Fail(types.ErrKindExecutionError, "content must be a string"), nil
	}
	if len(content) > p.cfg.MaxInputLength {
		return types.Fail(types.ErrKindExecutionError,
			fmt.Sprintf("content exceeds maximum length of %d characters", p.cfg.MaxInputLength)), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("failed to create directory: %v", err)), nil
	}

	appendMode, _ := args["append"].(bool)
	start := time.Now()
	var err error
	if appendMode {
		var f *os.File
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			_, err = f.WriteString(content)
			f.Close()
		}
	} else {
		err = os.WriteFile(path, []byte(content), 0o644)
	}
	if err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("failed to write file: %v", err)), nil
	}

	return types.OK(map[string]interface{}{
		"file_path":     path,
		"bytes_written": len(content),
		"append":        appendMode,
	}).WithDuration(time.Since(start)), nil
}

func (p *Provider) replaceLines(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
	path, _ := args["file_path"].(string)
	if path == "" {
		return types.Fail(types.ErrKindExecutionError, "file_path must be a non-empty string"), nil
	}
	start := intArg(args, "start_line", 0)
	end := intArg(args, "end_line", 0)
	if start < 1 || end < 1 {
		return types.Fail(types.ErrKindExecutionError, "line numbers are 1-based"), nil
	}
	if start > end {
		return types.Fail(types.ErrKindExecutionError,
			fmt.Sprintf("start_line (%d) cannot exceed end_line (%d)", start, end)), nil
	}

	newContent, _ := args["new_content"].(string)
	if len(newContent) > p.cfg.MaxInputLength {
		return types.Fail(types.ErrKindExecutionError,
			fmt.Sprintf("new_content exceeds maximum length of %d characters", p.cfg.MaxInputLength)), nil
	}
	dryRun, _ := args["dry_run"].(bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("failed to read file: %v", err)), nil
	}

	lines := strings.SplitAfter(string(data), "\n")
	// SplitAfter leaves a trailing empty element when the file ends in \n.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)
	if start > total {
		return types.Fail(types.ErrKindExecutionError,
			fmt.Sprintf("start_line %d exceeds file length %d", start, total)), nil
	}
	if end > total {
		end = total
	}

	if newContent != "" && !strings.HasSuffix(newContent, "\n") {
		newContent += "\n"
	}

	original := strings.Join(lines[start-1:end], "")
	var sb strings.Builder
	sb.WriteString(strings.Join(lines[:start-1], ""))
	sb.WriteString(newContent)
	sb.WriteString(strings.Join(lines[end:], ""))
	updated := sb.String()

	output := map[string]interface{}{
		"file_path":         path,
		"start_line":        start,
		"end_line":          end,
		"replaced_lines":    end - start + 1,
		"original_content":  original,
		"dry_run":           dryRun,
		"new_total_lines":   len(strings.SplitAfter(updated, "\n")) - 1,
		"replacement_lines": strings.Count(newContent, "\n"),
	}

	if dryRun {
		output["preview"] = newContent
		return types.OK(output), nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("failed to write file: %v", err)), nil
	}
	return types.OK(output), nil
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
