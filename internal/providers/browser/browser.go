// Package browser declares the remote browser toolset. The tools run
// inside a connected agent that drives a real browser; this package only
// describes them, and the dispatcher forwards calls over the bridge.
package browser

import (
	"time"

	"github.com/toolgate/backend/internal/shared/types"
)

// Descriptors returns the browser toolset bound to the given default
// agent identity. Callers may override per call with an agent_id argument.
func Descriptors(agentID string, invokeTimeout time.Duration) []types.ToolDescriptor {
	remote := func(name, description string, params []types.Parameter) types.ToolDescriptor {
		return types.ToolDescriptor{
			Name:        name,
			Description: description,
			Mode:        types.ModeRemote,
			AgentID:     agentID,
			Parameters:  params,
			Timeout:     invokeTimeout,
		}
	}

	return []types.ToolDescriptor{
		remote("web_navigate", "Navigate the agent's browser to a URL", []types.Parameter{
			{Name: "url", Type: "string", Description: "Destination URL", Required: true},
			{Name: "wait_until", Type: "string", Description: "Load state to wait for (load, domcontentloaded, networkidle)", Required: false},
		}),
		remote("web_click", "Click an element identified by a CSS selector", []types.Parameter{
			{Name: "selector", Type: "string", Description: "CSS selector of the element", Required: true},
			{Name: "timeout", Type: "integer", Description: "Wait timeout in milliseconds", Required: false},
		}),
		remote("web_fill", "Fill a form field identified by a CSS selector", []types.Parameter{
			{Name: "selector", Type: "string", Description: "CSS selector of the input", Required: true},
			{Name: "value", Type: "string", Description: "Text to enter", Required: true},
		}),
		remote("web_screenshot", "Capture a screenshot of the current page", []types.Parameter{
			{Name: "selector", Type: "string", Description: "CSS selector to capture a single element", Required: false},
			{Name: "full_page", Type: "boolean", Description: "Capture the full scrollable page", Required: false},
		}),
		remote("web_get_url", "Get the browser's current URL", nil),
		remote("web_get_title", "Get the current page title", nil),
		remote("web_get_viewport", "Get the browser viewport dimensions", nil),
	}
}
