package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/toolgate/backend/internal/api/middleware"
	"github.com/toolgate/backend/internal/bridge"
	"github.com/toolgate/backend/internal/dispatch"
	"github.com/toolgate/backend/internal/infrastructure/logging"
	"github.com/toolgate/backend/internal/security"
	"github.com/toolgate/backend/internal/shared/types"
)

// Handlers carries the HTTP endpoint implementations.
type Handlers struct {
	dispatcher *dispatch.Dispatcher
	gate       *security.Gate
	bridge     *bridge.Manager
	logger     *logging.Logger
	startTime  time.Time
}

// NewHandlers creates HTTP handlers. bridge may be nil when disabled.
func NewHandlers(dispatcher *dispatch.Dispatcher, gate *security.Gate, br *bridge.Manager, logger *logging.Logger) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		gate:       gate,
		bridge:     br,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// MCP serves the JSON-RPC 2.0 endpoint: initialize, tools/list, and
// tools/call. Protocol failures become JSON-RPC errors; tool failures
// stay inside the tools/call result with isError set.
func (h *Handlers) MCP(c *gin.Context) {
	credential := middleware.Credential(c)
	if !h.gate.ValidCredential(credential) {
		c.JSON(http.StatusUnauthorized, rpcFail(nil, codeUnauthorized, "invalid or missing API key"))
		return
	}

	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, rpcFail(nil, codeParseError, "Parse error: invalid JSON"))
		return
	}

	switch req.Method {
	case "initialize":
		c.JSON(http.StatusOK, rpcResult(req.ID, h.initializeResult()))
	case "tools/list":
		c.JSON(http.StatusOK, rpcResult(req.ID, gin.H{"tools": h.listTools(credential)}))
	case "tools/call":
		h.toolsCall(c, credential, req)
	default:
		c.JSON(http.StatusOK, rpcFail(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method)))
	}
}

func (h *Handlers) initializeResult() gin.H {
	return gin.H{
		"protocolVersion": protocolVersion,
		"capabilities": gin.H{
			"tools":     gin.H{},
			"resources": gin.H{},
			"prompts":   gin.H{},
		},
		"serverInfo": gin.H{
			"name":    "toolgate",
			"version": "1.0.0",
		},
	}
}

func (h *Handlers) toolsCall(c *gin.Context, credential string, req rpcRequest) {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		c.JSON(http.StatusOK, rpcFail(req.ID, codeInvalidParams, "Invalid params: tool name is required"))
		return
	}

	result := h.dispatcher.Dispatch(c.Request.Context(), credential, params.Name, params.Arguments)
	c.JSON(http.StatusOK, rpcResult(req.ID, formatToolResult(result)))
}

// formatToolResult renders an execution result as a tools/call payload.
func formatToolResult(result *types.ExecutionResult) toolCallResult {
	text := result.Error
	if result.Success {
		if encoded, err := json.Marshal(result.Output); err == nil {
			text = string(encoded)
		} else {
			text = fmt.Sprintf("%v", result.Output)
		}
	}

	meta := map[string]interface{}{
		"duration_ms": result.DurationMS,
	}
	if !result.Success {
		meta["error_kind"] = string(result.ErrorKind)
	}
	if result.Truncated {
		meta["truncated"] = true
	}

	return toolCallResult{
		Content:  []toolContent{{Type: "text", Text: text}},
		IsError:  !result.Success,
		Metadata: meta,
	}
}

// listTools returns the descriptors the credential's policy permits,
// rendered with a JSON Schema for their parameters.
func (h *Handlers) listTools(credential string) []gin.H {
	tools := make([]gin.H, 0)
	for _, desc := range h.dispatcher.Registry().List() {
		if !h.gate.Permits(credential, desc.Name) {
			continue
		}
		tools = append(tools, gin.H{
			"name":        desc.Name,
			"description": desc.Description,
			"inputSchema": parameterSchema(desc.Parameters),
		})
	}
	return tools
}

func parameterSchema(params []types.Parameter) gin.H {
	properties := gin.H{}
	required := make([]string, 0)
	for _, p := range params {
		properties[p.Name] = gin.H{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return gin.H{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Health reports server liveness and basic stats.
func (h *Handlers) Health(c *gin.Context) {
	status := gin.H{
		"status":  "healthy",
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
		"tools":   h.dispatcher.Registry().Count(),
		"devMode": h.gate.DevMode(),
	}
	if h.bridge != nil {
		status["bridge_sessions"] = len(h.bridge.Sessions())
	}
	c.JSON(http.StatusOK, status)
}

// Tools lists the tools the caller's credential may see.
func (h *Handlers) Tools(c *gin.Context) {
	credential := middleware.Credential(c)
	if !h.gate.ValidCredential(credential) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
		return
	}
	tools := h.listTools(credential)
	c.JSON(http.StatusOK, gin.H{"tools": tools, "count": len(tools)})
}

// BridgeSessions lists connected agent sessions.
func (h *Handlers) BridgeSessions(c *gin.Context) {
	if h.bridge == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "sessions": []bridge.SessionInfo{}})
		return
	}
	sessions := h.bridge.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"enabled":  true,
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// Execute serves the REST tool invocation route. It accepts the same
// arguments as tools/call but returns the execution result directly.
func (h *Handlers) Execute(c *gin.Context) {
	credential := middleware.Credential(c)
	if !h.gate.ValidCredential(credential) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
		return
	}

	var body struct {
		Tool      string                 `json:"tool" binding:"required"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tool is required"})
		return
	}

	result := h.dispatcher.Dispatch(c.Request.Context(), credential, body.Tool, body.Arguments)
	h.logger.Debug("Tool executed",
		zap.String("tool", body.Tool),
		zap.Bool("success", result.Success),
	)
	c.JSON(http.StatusOK, result)
}
