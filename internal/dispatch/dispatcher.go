package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/toolgate/backend/internal/bridge"
	"github.com/toolgate/backend/internal/infrastructure/logging"
	"github.com/toolgate/backend/internal/infrastructure/monitoring"
	"github.com/toolgate/backend/internal/security"
	"github.com/toolgate/backend/internal/shared/types"
)

// RemoteInvoker forwards a command to a connected agent and awaits the
// correlated response. Implemented by bridge.Manager.
type RemoteInvoker interface {
	Invoke(ctx context.Context, identity, tool string, args map[string]interface{}, timeout time.Duration) (map[string]interface{}, error)
}

// Dispatcher is the single entry point for tool execution.
type Dispatcher struct {
	registry       *Registry
	gate           *security.Gate
	remote         RemoteInvoker
	defaultTimeout time.Duration
	logger         *logging.Logger
	metrics        *monitoring.Metrics
}

// NewDispatcher creates a dispatcher. remote may be nil when the bridge is
// disabled; remote tools then fail with not_connected.
func NewDispatcher(registry *Registry, gate *security.Gate, remote RemoteInvoker, defaultTimeout time.Duration, logger *logging.Logger) *Dispatcher {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &Dispatcher{
		registry:       registry,
		gate:           gate,
		remote:         remote,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// WithMetrics attaches a metrics collector.
func (d *Dispatcher) WithMetrics(m *monitoring.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Registry exposes the registry for listing endpoints.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch authorizes, validates, and executes a tool call. The result
// always carries a success flag and, on failure, an error kind and a
// human-readable reason; callers never see a raw error or a hang beyond
// the configured timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, credential, toolName string, args map[string]interface{}) *types.ExecutionResult {
	start := time.Now()
	if args == nil {
		args = map[string]interface{}{}
	}

	desc, found := d.registry.Get(toolName)

	scanArgs := found && desc.InterpreterArgs
	if decision := d.gate.Authorize(credential, toolName, args, scanArgs); !decision.Allowed {
		d.logger.Warn("Tool call denied",
			zap.String("tool", toolName),
			zap.String("reason", decision.Reason),
		)
		if d.metrics != nil {
			d.metrics.RecordDenial(toolName, decision.Reason)
		}
		return d.finish(toolName, types.Fail(types.ErrKindSecurityDenied, decision.Reason), start)
	}

	if !found {
		return d.finish(toolName, types.Fail(types.ErrKindNotFound, fmt.Sprintf("tool not found: %s", toolName)), start)
	}

	if reason := validateArgs(desc, args); reason != "" {
		return d.finish(toolName, types.Fail(types.ErrKindSchemaValidation, reason), start)
	}

	var result *types.ExecutionResult
	switch desc.Mode {
	case types.ModeRemote:
		result = d.invokeRemote(ctx, desc, args)
	default:
		result = d.invokeLocal(ctx, desc, args)
	}
	return d.finish(toolName, result, start)
}

func (d *Dispatcher) finish(toolName string, result *types.ExecutionResult, start time.Time) *types.ExecutionResult {
	elapsed := time.Since(start)
	if result.DurationMS == 0 {
		result.WithDuration(elapsed)
	}
	if d.metrics != nil {
		outcome := "ok"
		if !result.Success {
			outcome = string(result.ErrorKind)
		}
		d.metrics.RecordDispatch(toolName, outcome, elapsed)
	}
	return result
}

// invokeLocal runs the in-process handler, recovering panics into a
// normalized failure.
func (d *Dispatcher) invokeLocal(ctx context.Context, desc *types.ToolDescriptor, args map[string]interface{}) (result *types.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked",
				zap.String("tool", desc.Name),
				zap.Any("panic", r),
			)
			result = types.Fail(types.ErrKindExecutionError, fmt.Sprintf("handler panic: %v", r))
		}
	}()

	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := desc.Handler(ctx, args)
	if err != nil {
		return types.Fail(types.ErrKindExecutionError, err.Error())
	}
	if res == nil {
		return types.Fail(types.ErrKindExecutionError, "handler returned no result")
	}
	return res
}

// invokeRemote forwards the call over the bridge and maps transport
// failures onto error kinds.
func (d *Dispatcher) invokeRemote(ctx context.Context, desc *types.ToolDescriptor, args map[string]interface{}) *types.ExecutionResult {
	if d.remote == nil {
		return types.Fail(types.ErrKindNotConnected, "agent bridge is disabled")
	}

	identity := desc.AgentID
	if override, ok := args["agent_id"].(string); ok && override != "" {
		identity = override
		delete(args, "agent_id")
	}

	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}

	payload, err := d.remote.Invoke(ctx, identity, desc.Name, args, timeout)
	if err != nil {
		return remoteFailure(identity, err)
	}
	return types.OK(payload)
}

func remoteFailure(identity string, err error) *types.ExecutionResult {
	var remoteErr *bridge.RemoteError
	switch {
	case errors.Is(err, bridge.ErrNotConnected):
		return types.Fail(types.ErrKindNotConnected, fmt.Sprintf("no agent connected for identity %q", identity))
	case errors.Is(err, bridge.ErrTimeout):
		return types.Fail(types.ErrKindTimeout, "no response from agent within timeout")
	case errors.Is(err, bridge.ErrConnectionLost):
		return types.Fail(types.ErrKindConnectionLost, "agent connection lost while request was outstanding")
	case errors.As(err, &remoteErr):
		return types.Fail(types.ErrKindRemoteError, remoteErr.Message)
	default:
		return types.Fail(types.ErrKindExecutionError, err.Error())
	}
}

// validateArgs checks required fields and value shapes against the
// descriptor's parameters. Unknown arguments pass through untouched; the
// remote agent or handler owns their interpretation.
func validateArgs(desc *types.ToolDescriptor, args map[string]interface{}) string {
	for _, p := range desc.Parameters {
		val, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Sprintf("missing required argument: %s", p.Name)
			}
			continue
		}
		if !typeMatches(p.Type, val) {
			return fmt.Sprintf("argument %s must be of type %s", p.Name, p.Type)
		}
	}
	return ""
}

// typeMatches checks a decoded JSON value against a declared type. JSON
// numbers always decode to float64, so integer checks accept whole floats.
func typeMatches(declared string, val interface{}) bool {
	if val == nil {
		return false
	}
	switch declared {
	case "string":
		_, ok := val.(string)
		return ok
	case "number":
		switch val.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := val.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "object":
		_, ok := val.(map[string]interface{})
		return ok
	case "array":
		_, ok := val.([]interface{})
		return ok
	default:
		// Unknown declared types are permissive rather than fatal.
		return true
	}
}
