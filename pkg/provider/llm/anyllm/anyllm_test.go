package anyllm

import (
	"context"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// ── convertMessage ────────────────────────────────────────────────────────────

// TestConvertMessage_System checks that system-role messages are converted correctly.
func TestConvertMessage_System(t *testing.T) {
	m := llm.Message{Role: llm.RoleSystem, Content: "You are a table analyst."}
	got := convertMessage(m)
	if got.Role != "system" {
		t.Errorf("expected role system, got %q", got.Role)
	}
	if got.ContentString() != "You are a table analyst." {
		t.Errorf("expected content %q, got %q", "You are a table analyst.", got.ContentString())
	}
}

// TestConvertMessage_AssistantWithToolCalls checks tool call conversion.
func TestConvertMessage_AssistantWithToolCalls(t *testing.T) {
	m := llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "filter_csv_data", Arguments: `{"column":"city"}`},
		},
	}
	got := convertMessage(m)
	if len(got.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(got.ToolCalls))
	}
	tc := got.ToolCalls[0]
	if tc.ID != "call_1" {
		t.Errorf("expected ID call_1, got %q", tc.ID)
	}
	if tc.Function.Name != "filter_csv_data" {
		t.Errorf("expected function name filter_csv_data, got %q", tc.Function.Name)
	}
	if tc.Function.Arguments != `{"column":"city"}` {
		t.Errorf("unexpected arguments: %q", tc.Function.Arguments)
	}
	if tc.Type != "function" {
		t.Errorf("expected type function, got %q", tc.Type)
	}
}

// TestConvertMessage_Tool checks tool-result message conversion.
func TestConvertMessage_Tool(t *testing.T) {
	m := llm.Message{Role: llm.RoleTool, Content: `{"status":"success"}`, ToolCallID: "call_1", Name: "read_csv_info"}
	got := convertMessage(m)
	if got.Role != "tool" {
		t.Errorf("expected role tool, got %q", got.Role)
	}
	if got.ToolCallID != "call_1" {
		t.Errorf("expected ToolCallID call_1, got %q", got.ToolCallID)
	}
	if got.Name != "read_csv_info" {
		t.Errorf("expected name read_csv_info, got %q", got.Name)
	}
}

// ── modelCapabilities ─────────────────────────────────────────────────────────

func TestModelCapabilities(t *testing.T) {
	tests := []struct {
		model      string
		window     int
		reasoning  bool
		toolCalled bool
	}{
		{"claude-sonnet-4-5", 200_000, false, true},
		{"claude-3-opus-20240229", 200_000, false, true},
		{"gemini-1.5-pro", 2_097_152, false, true},
		{"gemini-2.0-flash", 1_048_576, false, true},
		{"deepseek-reasoner", 64_000, true, true},
		{"my-custom-model", 128_000, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			caps := modelCapabilities(tt.model)
			if caps.ContextWindow != tt.window {
				t.Errorf("expected context window %d, got %d", tt.window, caps.ContextWindow)
			}
			if caps.SupportsReasoning != tt.reasoning {
				t.Errorf("expected SupportsReasoning=%v", tt.reasoning)
			}
			if caps.SupportsToolCalling != tt.toolCalled {
				t.Errorf("expected SupportsToolCalling=%v", tt.toolCalled)
			}
		})
	}
}

// TestModelCapabilities_CaseInsensitive checks that model name matching is case-insensitive.
func TestModelCapabilities_CaseInsensitive(t *testing.T) {
	lower := modelCapabilities("claude-sonnet-4-5")
	upper := modelCapabilities("CLAUDE-SONNET-4-5")
	if lower.ContextWindow != upper.ContextWindow {
		t.Errorf("case should not matter: got %d vs %d", lower.ContextWindow, upper.ContextWindow)
	}
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_EmptyBackendName(t *testing.T) {
	if _, err := New("", "claude-sonnet-4-5"); err == nil {
		t.Fatal("expected error for empty backend name")
	}
}

func TestNew_EmptyModel(t *testing.T) {
	if _, err := New("anthropic", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNew_UnsupportedBackend(t *testing.T) {
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

func TestNew_Anthropic_WithAPIKey(t *testing.T) {
	p, err := New("anthropic", "claude-sonnet-4-5", anyllmlib.WithAPIKey("sk-ant-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "claude-sonnet-4-5" {
		t.Errorf("expected model claude-sonnet-4-5, got %q", p.model)
	}
}

// TestNew_Ollama_NoAPIKey checks that Ollama works without an API key.
func TestNew_Ollama_NoAPIKey(t *testing.T) {
	p, err := New("ollama", "qwen3:14b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "qwen3:14b"}
	params := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Tools:       []llm.ToolDefinition{{Name: "task_done", Parameters: map[string]any{"type": "object"}}},
		Temperature: 0.7,
	})
	if params.Model != "qwen3:14b" {
		t.Errorf("unexpected model %q", params.Model)
	}
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", params.Temperature)
	}
	if params.MaxTokens != nil {
		t.Errorf("expected nil MaxTokens, got %v", *params.MaxTokens)
	}
	if len(params.Tools) != 1 || params.Tools[0].Function.Name != "task_done" {
		t.Errorf("unexpected tools: %+v", params.Tools)
	}
}

func TestComplete_NoMessages(t *testing.T) {
	p := &Provider{model: "qwen3:14b"}
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error for empty messages")
	}
}
