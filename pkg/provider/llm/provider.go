// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (an OpenAI-compatible
// endpoint such as Volcengine Ark, Anthropic, a local Ollama instance, ...) and
// exposes a uniform interface for the agent loop to request completions and
// inspect model capabilities without coupling to any specific SDK.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting information returned by the LLM backend.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history, system prompt included.
	Messages []Message

	// Tools is the set of function/tool definitions offered to the model.
	Tools []ToolDefinition

	// Temperature controls output randomness. Zero leaves the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means provider default.
	MaxTokens int

	// ReasoningEffort is forwarded to reasoning models ("low", "medium",
	// "high"). Empty leaves the provider default. Backends that do not support
	// it ignore the field.
	ReasoningEffort string
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply. May be empty when the
	// model responds exclusively with tool calls.
	Content string

	// ReasoningContent is the model's separate reasoning trace, when the
	// backend exposes one.
	ReasoningContent string

	// ToolCalls lists all tool invocations requested by the model, in the order
	// the backend returned them.
	ToolCalls []ToolCall

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or if ctx is cancelled before the
	// completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing what this provider's
	// underlying model supports.
	Capabilities() ModelCapabilities
}
