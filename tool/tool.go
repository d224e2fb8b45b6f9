// Package tool defines callable health calculators and the registry the
// assessment step draws from. Tools are described to the oracle as JSON
// schemas; the Invoker turns the oracle's tool-call plan back into real
// invocations.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	errorskg "github.com/sweetpotato0/health-agent/errors"
)

// Parameter describes one tool argument.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, integer, boolean
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Tool is one callable function.
type Tool struct {
	Name        string                                               `json:"name"`
	Description string                                               `json:"description"`
	Parameters  []Parameter                                          `json:"parameters"`
	Handler     func(ctx context.Context, args Args) (string, error) `json:"-"`
}

// Execute validates the arguments and runs the handler.
func (t *Tool) Execute(ctx context.Context, args Args) (string, error) {
	if t.Handler == nil {
		return "", fmt.Errorf("tool %s has no handler: %w", t.Name, errorskg.ErrInvalidInput)
	}
	for _, param := range t.Parameters {
		if param.Required {
			if _, ok := args[param.Name]; !ok {
				return "", fmt.Errorf("missing required parameter %s: %w", param.Name, errorskg.ErrInvalidInput)
			}
		}
	}
	return t.Handler(ctx, args)
}

// Schema renders the tool as the function-call JSON schema the oracle is
// prompted with.
func (t *Tool) Schema() map[string]any {
	properties := make(map[string]any, len(t.Parameters))
	required := make([]string, 0)
	for _, param := range t.Parameters {
		prop := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}
	return map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"parameters": map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// Provider supplies externally defined tools, e.g. from an MCP server.
type Provider interface {
	// Tools returns the provider's current tool definitions.
	Tools(ctx context.Context) ([]*Tool, error)
	// Close releases resources owned by the provider.
	Close() error
	// ToolsChanged fires when the tool set is updated. Providers without
	// live updates return nil.
	ToolsChanged() <-chan struct{}
}

// Registry is a thread-safe collection of tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool, rejecting duplicates.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool name cannot be empty: %w", errorskg.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s: %w", t.Name, errorskg.ErrAlreadyExists)
	}
	r.tools[t.Name] = t
	return nil
}

// Upsert adds or replaces a tool definition.
func (r *Registry) Upsert(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool name cannot be empty: %w", errorskg.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %s: %w", name, errorskg.ErrNotFound)
	}
	return t, nil
}

// List returns all registered tools.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

// Schemas renders every registered tool as a JSON schema.
func (r *Registry) Schemas() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]map[string]any, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}

// Execute runs a tool by name.
func (r *Registry) Execute(ctx context.Context, name string, args Args) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx, args)
}

// MarshalJSON renders the registry as its schema list.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Schemas())
}
