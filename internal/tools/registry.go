package tools

import (
	"fmt"
	"sync"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// Definition describes a tool to the model and to API clients. Parameters
// is a JSON Schema object.
type Definition struct {
	Name        domain.ToolName
	Description string
	Parameters  map[string]any
}

// Registry stores tool definitions keyed by tool name, in registration order.
type Registry struct {
	mu    sync.RWMutex
	defs  map[domain.ToolName]Definition
	order []domain.ToolName
}

// DefaultRegistry is the shared catalog of session tools.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[domain.ToolName]Definition),
	}
}

// Register adds a tool definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if !def.Name.Known() {
		return fmt.Errorf("no handler exists for %s", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Get returns the definition for name.
func (r *Registry) Get(name domain.ToolName) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Items converts the catalog into API list items.
func (r *Registry) Items() []domain.ToolListItem {
	defs := r.List()
	items := make([]domain.ToolListItem, 0, len(defs))
	for _, def := range defs {
		items = append(items, domain.ToolListItem{
			Name:        def.Name,
			Description: def.Description,
			Schema:      def.Parameters,
			Mutating:    def.Name.Mutating(),
		})
	}
	return items
}

// Register adds a definition to the default registry.
func Register(def Definition) error {
	return DefaultRegistry.Register(def)
}

// MustRegister adds a definition to the default registry or panics.
func MustRegister(def Definition) {
	if err := Register(def); err != nil {
		panic(err)
	}
}
