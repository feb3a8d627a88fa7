package dispatch

import (
	"fmt"
	"sort"

	"github.com/toolgate/backend/internal/shared/types"
)

// Registry maps tool names to descriptors. It is built once at startup and
// read-only afterwards; duplicate names are a configuration error.
type Registry struct {
	tools map[string]*types.ToolDescriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*types.ToolDescriptor)}
}

// Register adds a descriptor. Fails on empty or duplicate names, on local
// tools without a handler, and on remote tools without a default agent.
func (r *Registry) Register(desc types.ToolDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("tool already registered: %s", desc.Name)
	}
	switch desc.Mode {
	case types.ModeLocal:
		if desc.Handler == nil {
			return fmt.Errorf("local tool %s has no handler", desc.Name)
		}
	case types.ModeRemote:
		if desc.AgentID == "" {
			return fmt.Errorf("remote tool %s has no default agent", desc.Name)
		}
	default:
		return fmt.Errorf("tool %s has unknown execution mode %q", desc.Name, desc.Mode)
	}

	d := desc
	r.tools[desc.Name] = &d
	return nil
}

// RegisterAll adds every descriptor, stopping at the first failure.
func (r *Registry) RegisterAll(descs []types.ToolDescriptor) error {
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a descriptor by name.
func (r *Registry) Get(name string) (*types.ToolDescriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// List returns all descriptors sorted by name.
func (r *Registry) List() []types.ToolDescriptor {
	out := make([]types.ToolDescriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}
