// Package gateway is the agent loop's single entry point to language models.
//
// A [Gateway] owns a primary LLM backend and an ordered list of fallbacks,
// each guarded by its own [Breaker]. [Gateway.Request] tries the backends in
// order until one answers and reports the outcome as a [Response] whose
// Status distinguishes success from failure, so callers never have to
// interpret transport errors themselves. An optional token-bucket limiter
// spaces requests out for endpoints with strict quotas.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/observe"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// ErrAllFailed is wrapped by the error of a failed [Response] when every
// backend failed or had an open breaker.
var ErrAllFailed = errors.New("all backends failed")

// errEmptyResponse is reported when a backend returns neither a response nor
// an error.
var errEmptyResponse = errors.New("backend returned no response")

// Status is the outcome of a gateway request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is the result of [Gateway.Request].
type Response struct {
	// Status is StatusSuccess when a backend produced a completion.
	Status Status

	// Content is the assistant's free text.
	Content string

	// ReasoningContent is the backend's separate reasoning trace, if any.
	ReasoningContent string

	// ToolCalls are the structured calls the model requested. The agent loop
	// honours only the first one.
	ToolCalls []llm.ToolCall

	// Message describes the failure when Status is StatusError.
	Message string

	// Err is the underlying error when Status is StatusError.
	Err error

	// Backend names the backend that served the request.
	Backend string

	// Usage is the token accounting reported by the backend.
	Usage llm.Usage
}

// OK reports whether the response carries a completion.
func (r Response) OK() bool { return r.Status == StatusSuccess }

// Backend names an LLM provider participating in a [Gateway].
type Backend struct {
	Name     string
	Provider llm.Provider
}

type entry struct {
	name     string
	provider llm.Provider
	breaker  *Breaker
}

// Gateway routes completion requests to the first healthy backend.
// It is safe for concurrent use.
type Gateway struct {
	entries []entry

	limiter         *rate.Limiter
	temperature     float64
	maxTokens       int
	reasoningEffort string
	metrics         *observe.Metrics

	fallbacks  []Backend
	breakerCfg BreakerConfig
}

// Option configures a [Gateway].
type Option func(*Gateway)

// WithFallbacks appends fallback backends, tried in order after the primary.
func WithFallbacks(backends ...Backend) Option {
	return func(g *Gateway) { g.fallbacks = append(g.fallbacks, backends...) }
}

// WithBreaker sets the circuit breaker configuration used for every backend.
func WithBreaker(cfg BreakerConfig) Option {
	return func(g *Gateway) { g.breakerCfg = cfg }
}

// WithRateLimit limits requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(t float64) Option {
	return func(g *Gateway) { g.temperature = t }
}

// WithMaxTokens caps completion tokens per request.
func WithMaxTokens(n int) Option {
	return func(g *Gateway) { g.maxTokens = n }
}

// WithReasoningEffort sets the reasoning effort hint ("low", "medium", "high").
func WithReasoningEffort(effort string) Option {
	return func(g *Gateway) { g.reasoningEffort = effort }
}

// WithMetrics overrides the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a Gateway with primary as the preferred backend.
func New(primary Backend, opts ...Option) (*Gateway, error) {
	if primary.Provider == nil {
		return nil, fmt.Errorf("gateway: primary backend %q has no provider", primary.Name)
	}
	g := &Gateway{}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}

	for _, b := range append([]Backend{primary}, g.fallbacks...) {
		if b.Provider == nil {
			return nil, fmt.Errorf("gateway: backend %q has no provider", b.Name)
		}
		g.entries = append(g.entries, entry{
			name:     b.Name,
			provider: b.Provider,
			breaker:  NewBreaker(b.Name, g.breakerCfg),
		})
	}
	g.fallbacks = nil
	return g, nil
}

// Capabilities returns the primary backend's model capabilities.
func (g *Gateway) Capabilities() llm.ModelCapabilities {
	return g.entries[0].provider.Capabilities()
}

// Check returns an error when the breaker of every backend is open, meaning
// the next request would fail without reaching any provider.
func (g *Gateway) Check(context.Context) error {
	for i := range g.entries {
		if g.entries[i].breaker.State() != BreakerOpen {
			return nil
		}
	}
	return fmt.Errorf("gateway: %w: every circuit is open", ErrAllFailed)
}

// Request sends the conversation and tool schemas to the first backend that
// answers. It never returns a Go error: failures are reported through
// Response.Status, Response.Message and Response.Err.
func (g *Gateway) Request(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) Response {
	ctx, span := observe.StartSpan(ctx, "gateway.request")
	resp := g.request(ctx, messages, tools)
	span.SetAttributes(
		attribute.String("gateway.status", string(resp.Status)),
		attribute.String("gateway.backend", resp.Backend),
		attribute.Int("gateway.tool_calls", len(resp.ToolCalls)),
	)
	observe.EndSpan(span, resp.Err)
	return resp
}

func (g *Gateway) request(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) Response {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return failure(fmt.Errorf("gateway: rate limit: %w", err))
		}
	}

	req := llm.CompletionRequest{
		Messages:        messages,
		Tools:           tools,
		Temperature:     g.temperature,
		MaxTokens:       g.maxTokens,
		ReasoningEffort: g.reasoningEffort,
	}

	log := observe.Logger(ctx)
	var errs []error
	for i := range g.entries {
		e := &g.entries[i]

		var out *llm.CompletionResponse
		start := time.Now()
		err := e.breaker.Do(func() error {
			var cerr error
			out, cerr = e.provider.Complete(ctx, req)
			if cerr == nil && out == nil {
				cerr = errEmptyResponse
			}
			return cerr
		})
		if !errors.Is(err, ErrCircuitOpen) {
			g.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.String("backend", e.name)))
		}

		if err == nil {
			if i > 0 {
				log.Info("served by fallback backend", "backend", e.name)
			}
			return Response{
				Status:           StatusSuccess,
				Content:          out.Content,
				ReasoningContent: out.ReasoningContent,
				ToolCalls:        out.ToolCalls,
				Backend:          e.name,
				Usage:            out.Usage,
			}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return failure(fmt.Errorf("gateway: %s: %w", e.name, ctxErr))
		}

		errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		if errors.Is(err, ErrCircuitOpen) {
			log.Debug("skipping backend (circuit open)", "backend", e.name)
			continue
		}
		g.metrics.RecordLLMError(ctx, e.name, errorKind(err))
		log.Warn("backend failed", "backend", e.name, "err", err)
	}

	return failure(fmt.Errorf("gateway: %w: %w", ErrAllFailed, errors.Join(errs...)))
}

func failure(err error) Response {
	return Response{Status: StatusError, Message: err.Error(), Err: err}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errEmptyResponse):
		return "empty_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "request"
	}
}
