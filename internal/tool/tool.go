// Package tool provides callable capabilities the model can invoke during
// a chat turn, and the registry that advertises them.
package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownTool is returned when the model requests a tool that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Definition describes a tool to the model: its name, what it does, and
// the JSON-schema shape of its input.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Tool is a callable capability. Execute must honor ctx cancellation and
// return a result payload the model can read; contract-level failures
// (bad input, missing data) are returned as errors and surfaced to the
// model as failed tool results, never as loop aborts.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// Registry maps tool names to implementations. It keeps no execution
// state; every invocation is independent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its declared name.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return errors.New("tool must declare a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = t
	r.order = append(r.order, def.Name)
	return nil
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Definitions returns the tool catalog advertised to the model, in
// registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ValidateInput checks input against the tool's declared schema before
// execution: required properties must be present and primitive property
// types must match. Validation failure is a tool-level error.
func ValidateInput(def Definition, input map[string]any) error {
	required, _ := def.InputSchema["required"].([]string)
	if required == nil {
		if raw, ok := def.InputSchema["required"].([]any); ok {
			for _, v := range raw {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
	}
	for _, key := range required {
		if _, present := input[key]; !present {
			return fmt.Errorf("missing required input %q for tool %s", key, def.Name)
		}
	}

	props, _ := def.InputSchema["properties"].(map[string]any)
	for key, value := range input {
		prop, ok := props[key].(map[string]any)
		if !ok {
			continue
		}
		want, _ := prop["type"].(string)
		if !typeMatches(want, value) {
			return fmt.Errorf("input %q for tool %s must be of type %s", key, def.Name, want)
		}
	}
	return nil
}

func typeMatches(want string, value any) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "number", "integer":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return true
	}
}
