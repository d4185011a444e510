package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// ErrDuplicateTool is returned by [Registry.Register] for a name that is
// already taken.
var ErrDuplicateTool = errors.New("tool: duplicate tool name")

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry is the set of tools offered to the model, in registration order.
// Parameter schemas are compiled when a tool is registered so that malformed
// schemas surface at startup rather than mid-run. It is safe for concurrent
// use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registered
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registered)}
}

// Register adds t to the registry.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool: name must not be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool: %q has no handler", name)
	}

	var schema *jsonschema.Schema
	if len(t.Definition.Parameters) > 0 {
		var err error
		if schema, err = compileSchema(name, t.Definition.Parameters); err != nil {
			return fmt.Errorf("tool: %q: %w", name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.tools[name] = registered{tool: t, schema: schema}
	r.order = append(r.order, name)
	return nil
}

// RegisterAll registers every tool of p, stopping at the first failure.
func (r *Registry) RegisterAll(p Provider) error {
	for _, t := range p.Tools() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[name]
	return reg.tool, ok
}

// Definitions returns the tool schemas in registration order, ready to be
// sent with a completion request.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].tool.Definition)
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// validate checks args against the compiled schema of the named tool.
func (r *Registry) validate(name string, args map[string]any) error {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok || reg.schema == nil {
		return nil
	}
	inst, err := canonicalJSON(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := reg.schema.Validate(inst); err != nil {
		return fmt.Errorf("invalid arguments for %s: %s", name, strings.ReplaceAll(err.Error(), "\n", "; "))
	}
	return nil
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	doc, err := canonicalJSON(params)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	url := "tool-" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// canonicalJSON round-trips v through JSON so that Go-typed values ([]string,
// int, nested structs) reach the validator in their JSON form.
func canonicalJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}
