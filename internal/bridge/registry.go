package bridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
)

// Registry is a concurrency-safe ports.ToolRegistry.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ports.ToolExecutor
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ports.ToolExecutor)}
}

// Register adds a tool to the registry. Duplicate names are rejected.
func (r *Registry) Register(tool ports.ToolExecutor) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool definition has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (ports.ToolExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return tool, nil
}

// List returns the definitions of all registered tools, sorted by name.
func (r *Registry) List() []ports.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ports.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
