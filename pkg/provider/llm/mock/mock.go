// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the agent loop sends correct
// CompletionRequests and to feed a controlled sequence of responses without a
// live LLM backend. All fields are safe to set before calling any method;
// mutating them during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    Script: []mock.Step{
//	        {Response: &llm.CompletionResponse{ToolCalls: []llm.ToolCall{{Name: "read_csv_info", Arguments: `{"file_path":"a.csv"}`}}}},
//	        {Response: &llm.CompletionResponse{Content: "done"}},
//	    },
//	}
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// Step is one scripted reply. Exactly one of Response or Err is normally set.
type Step struct {
	Response *llm.CompletionResponse
	Err      error
}

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is a copy of the CompletionRequest passed to Complete. Messages are
	// cloned so later appends by the caller do not alter the record.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
//
// Complete consumes Script in order. Once the script is exhausted it returns
// CompleteResponse, CompleteErr on every further call.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Script is the queue of replies returned by successive Complete calls.
	Script []Step

	// CompleteResponse is returned by Complete after Script is exhausted. May
	// be nil (returns nil, nil).
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned by Complete after Script is exhausted.
	CompleteErr error

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities llm.ModelCapabilities

	// --- Call records (read after test) ---

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	// CapabilitiesCallCount is the number of times Capabilities was called.
	CapabilitiesCallCount int

	next int
}

// Complete records the call and returns the next scripted step.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec := req
	rec.Messages = slices.Clone(req.Messages)
	rec.Tools = slices.Clone(req.Tools)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: rec})

	if p.next < len(p.Script) {
		step := p.Script[p.next]
		p.next++
		return step.Response, step.Err
	}
	return p.CompleteResponse, p.CompleteErr
}

// Capabilities records the call and returns ModelCapabilities.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CapabilitiesCallCount++
	return p.ModelCapabilities
}

// Calls returns the number of Complete invocations so far. Thread-safe.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// Reset clears all recorded calls and rewinds the script. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.CapabilitiesCallCount = 0
	p.next = 0
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
