// Package tool holds the tool registry and dispatcher that sit between the
// agent loop and the individual tool implementations.
//
// A [Tool] pairs the definition offered to the model with a [Handler].
// Handlers receive arguments as a plain map, typically [Bind] them into a
// typed struct, and return a [Result] or a Go error. The [Dispatcher] is the
// single boundary that turns every failure (unknown name, malformed
// arguments, handler error, panic) into a Result with status "error", so a
// misbehaving tool never aborts a run.
package tool

import (
	"context"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// Handler executes one tool call. args has already been normalized to a
// JSON object and validated against the tool's schema.
type Handler func(ctx context.Context, args map[string]any) (Result, error)

// Tool is a named operation the model may invoke.
type Tool struct {
	// Definition is what the model sees: name, description, JSON Schema.
	Definition llm.ToolDefinition

	// Handler runs the tool.
	Handler Handler
}

// Name returns the tool's wire name.
func (t Tool) Name() string { return t.Definition.Name }

// Provider supplies a set of tools, e.g. a built-in package or an external
// MCP server.
type Provider interface {
	Tools() []Tool
}

// Set is a fixed list of tools. It implements [Provider].
type Set []Tool

// Tools returns the tools in s.
func (s Set) Tools() []Tool { return s }
