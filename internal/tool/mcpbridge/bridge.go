// Package mcpbridge imports tools from external Model Context Protocol
// servers so the agent can call them alongside the built-in tools.
//
// It connects to MCP servers via stdio or streamable-HTTP transports using the
// official MCP Go SDK (github.com/modelcontextprotocol/go-sdk) and exposes
// every discovered tool as a [tool.Tool].
//
// Typical usage:
//
//	b := mcpbridge.New()
//	defer b.Close()
//
//	err := b.Connect(ctx, mcpbridge.ServerConfig{
//	    Name:      "geo",
//	    Transport: mcpbridge.TransportStdio,
//	    Command:   "/usr/local/bin/mcp-geo-server",
//	})
//
//	err = registry.RegisterAll(b)
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// Transport selects the connection mechanism for an MCP server.
type Transport string

const (
	// TransportStdio spawns a subprocess and communicates over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP communicates via the MCP Streamable HTTP protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ServerConfig describes one MCP server.
type ServerConfig struct {
	Name string

	// Transport defaults to [TransportStdio] when empty.
	Transport Transport

	// Command is split on whitespace into executable and arguments.
	Command string

	// URL is the endpoint for [TransportStreamableHTTP].
	URL string

	// Env is added to the subprocess environment.
	Env map[string]string
}

// Bridge holds live MCP sessions and the tools discovered on them.
//
// The zero value is NOT usable; create instances with [New].
type Bridge struct {
	mu       sync.RWMutex
	client   *mcpsdk.Client
	sessions map[string]*mcpsdk.ClientSession
	tools    []tool.Tool
}

// Compile-time check: Bridge is a tool provider.
var _ tool.Provider = (*Bridge)(nil)

// New creates an empty Bridge.
func New() *Bridge {
	return &Bridge{
		client:   mcpsdk.NewClient(&mcpsdk.Implementation{Name: "tableagent", Version: "1.0.0"}, nil),
		sessions: make(map[string]*mcpsdk.ClientSession),
	}
}

// Connect opens a session to the server described by cfg and imports its
// tool catalogue.
func (b *Bridge) Connect(ctx context.Context, cfg ServerConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("mcpbridge: server config must have a non-empty name")
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	if !cfg.Transport.IsValid() {
		return fmt.Errorf("mcpbridge: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}

	var transport mcpsdk.Transport
	switch cfg.Transport {
	case TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return fmt.Errorf("mcpbridge: stdio server %q requires a non-empty command", cfg.Name)
		}
		cmd := exec.CommandContext(ctx, executable, args...)
		if len(cfg.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return fmt.Errorf("mcpbridge: streamable-http server %q requires a non-empty URL", cfg.Name)
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}
	}

	return b.ConnectTransport(ctx, cfg.Name, transport)
}

// ConnectTransport opens a session over an already constructed transport.
func (b *Bridge) ConnectTransport(ctx context.Context, name string, transport mcpsdk.Transport) error {
	b.mu.RLock()
	_, dup := b.sessions[name]
	b.mu.RUnlock()
	if dup {
		return fmt.Errorf("mcpbridge: server %q already connected", name)
	}

	session, err := b.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcpbridge: failed to connect to server %q: %w", name, err)
	}

	var discovered []tool.Tool
	for t, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("mcpbridge: failed to list tools for server %q: %w", name, err)
		}
		discovered = append(discovered, remoteTool(session, t))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[name] = session
	b.tools = append(b.tools, discovered...)
	return nil
}

// Tools returns every tool discovered so far, in discovery order.
func (b *Bridge) Tools() []tool.Tool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]tool.Tool(nil), b.tools...)
}

// Close shuts down all sessions. The Bridge must not be used afterwards.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for name, s := range b.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcpbridge: error closing server %q: %w", name, err)
		}
		delete(b.sessions, name)
	}
	b.tools = nil
	return firstErr
}

func remoteTool(session *mcpsdk.ClientSession, t *mcpsdk.Tool) tool.Tool {
	name := t.Name
	return tool.Tool{
		Definition: llm.ToolDefinition{
			Name:        name,
			Description: t.Description,
			Parameters:  schemaToMap(t.InputSchema),
		},
		Handler: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
			if err != nil {
				return tool.Result{}, fmt.Errorf("mcpbridge: call to tool %q failed: %w", name, err)
			}
			return convertResult(res), nil
		},
	}
}

// convertResult maps an MCP call result onto a tool result. Text that is a
// JSON object is taken as the result itself; anything else becomes the
// message.
func convertResult(res *mcpsdk.CallToolResult) tool.Result {
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	text := sb.String()

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		r := tool.ParseMap(obj)
		if res.IsError {
			r.Status = tool.StatusError
		}
		if r.Status == tool.StatusError && r.Message == "" {
			r.Message = text
		}
		return r
	}
	if res.IsError {
		return tool.Failure(text)
	}
	return tool.Result{Status: tool.StatusSuccess, Message: text}
}

// schemaToMap converts any schema value to a map[string]any.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// splitCommand splits a command string into executable and arguments.
func splitCommand(command string) (executable string, args []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
