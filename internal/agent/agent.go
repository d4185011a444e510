// Package agent runs the round-based loop that lets a language model work on
// a CSV file through tools.
//
// Each round the [Agent] sends the conversation and the tool schemas through
// the gateway, extracts at most one tool call from the reply, dispatches it
// and feeds the result back as a tool message. A run ends when a tool result
// sets task_finished (COMPLETED), when the round budget is used up
// (EXHAUSTED), when the gateway fails (ABORTED) or when the context is
// cancelled (INTERRUPTED). Whatever the ending, the [Outcome] carries every
// round recorded so far.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/gateway"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/observe"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/prompt"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool/table"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/trace"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// DefaultMaxRounds is the round budget used when none is configured.
const DefaultMaxRounds = 10

// csvPathMarker joins the user request and the file path in the first user
// turn.
const csvPathMarker = "\n\nCSV_PATH: "

// Requester sends a conversation to a language model. [*gateway.Gateway]
// implements it.
type Requester interface {
	Request(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) gateway.Response
}

// Outcome is the result of [Agent.Run].
type Outcome struct {
	State State

	// Trace holds one entry per executed round, in order.
	Trace []trace.Entry

	// Summary partitions Trace by round type.
	Summary trace.Summary

	// Err explains ABORTED and INTERRUPTED runs.
	Err error

	// FinalMessage is the message of the result that finished the task.
	FinalMessage string

	// Messages is the conversation as it stood when the run ended.
	Messages []llm.Message
}

// Agent drives runs. It holds no per-run state and may start several runs
// one after another.
type Agent struct {
	requester    Requester
	dispatcher   *tool.Dispatcher
	maxRounds    int
	output       string
	systemPrompt string
	metrics      *observe.Metrics
	now          func() time.Time
	newID        func() string
}

// Option configures an [Agent].
type Option func(*Agent)

// WithMaxRounds sets the round budget. Non-positive values keep the default.
func WithMaxRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithOutputOverride forces the file_path argument of every write_to_csv
// call to path, whatever the model asked for. Replacing a different path is
// logged at Warn.
func WithOutputOverride(path string) Option {
	return func(a *Agent) { a.output = path }
}

// WithSystemPrompt replaces the built-in system prompt.
func WithSystemPrompt(p string) Option {
	return func(a *Agent) { a.systemPrompt = p }
}

// WithMetrics overrides the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithClock overrides the source of trace timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// WithIDGenerator overrides how missing call identifiers are generated.
func WithIDGenerator(f func() string) Option {
	return func(a *Agent) { a.newID = f }
}

// New creates an Agent that talks to the model through r and runs tools
// through d.
func New(r Requester, d *tool.Dispatcher, opts ...Option) (*Agent, error) {
	if r == nil {
		return nil, errors.New("agent: requester must not be nil")
	}
	if d == nil {
		return nil, errors.New("agent: dispatcher must not be nil")
	}
	a := &Agent{
		requester:    r,
		dispatcher:   d,
		maxRounds:    DefaultMaxRounds,
		systemPrompt: prompt.Default(),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a, nil
}

// run is the mutable state of one Run call.
type run struct {
	conv     *Conversation
	recorder *trace.Recorder
	state    State
	err      error
	final    string
}

// Run works on csvPath according to request until a terminal state.
func (a *Agent) Run(ctx context.Context, request, csvPath string) Outcome {
	ctx, span := observe.StartSpan(ctx, "agent.run")
	log := observe.Logger(ctx)

	r := &run{
		conv:     NewConversation(a.systemPrompt, request+csvPathMarker+csvPath),
		recorder: trace.NewRecorder(),
		state:    StateRunning,
	}
	log.Info("run started", "csv", csvPath, "max_rounds", a.maxRounds)

	for round := 1; round <= a.maxRounds && r.state == StateRunning; round++ {
		if err := ctx.Err(); err != nil {
			r.state, r.err = StateInterrupted, err
			break
		}
		a.round(ctx, r, round)
	}
	if r.state == StateRunning {
		r.state = StateExhausted
	}

	out := Outcome{
		State:        r.state,
		Trace:        r.recorder.Entries(),
		Summary:      r.recorder.Summary(),
		Err:          r.err,
		FinalMessage: r.final,
		Messages:     r.conv.Messages(),
	}

	a.metrics.RecordRun(ctx, out.State.String())
	span.SetAttributes(
		attribute.String("agent.state", out.State.String()),
		attribute.Int("agent.rounds", out.Summary.Rounds),
	)
	observe.EndSpan(span, out.Err)

	switch out.State {
	case StateCompleted:
		log.Info("task completed", "rounds", out.Summary.Rounds, "message", out.FinalMessage)
	case StateExhausted:
		log.Warn("round limit reached, task incomplete", "max_rounds", a.maxRounds)
	default:
		log.Error("run stopped", "state", out.State.String(), "rounds", out.Summary.Rounds, "err", out.Err)
	}
	return out
}

// round executes one round and moves r to a terminal state when the run
// should stop.
func (a *Agent) round(ctx context.Context, r *run, n int) {
	ctx, span := observe.StartSpan(ctx, "agent.round")
	span.SetAttributes(attribute.Int("agent.round", n))
	log := observe.Logger(ctx).With("round", n)
	var spanErr error
	defer func() { observe.EndSpan(span, spanErr) }()

	log.Info("requesting completion", "messages", r.conv.Len(), "tokens_estimate", r.conv.TokenEstimate())
	resp := a.requester.Request(ctx, r.conv.Messages(), a.dispatcher.Registry().Definitions())
	if !resp.OK() {
		spanErr = responseError(resp)
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.state, r.err = StateInterrupted, ctxErr
			return
		}
		r.state, r.err = StateAborted, spanErr
		return
	}

	thought := resp.ReasoningContent
	if thought == "" {
		thought = resp.Content
	}
	entry := trace.Entry{
		Round:            n,
		Timestamp:        a.now(),
		ModelThought:     thought,
		ReasoningContent: resp.ReasoningContent,
		AssistantContent: resp.Content,
		Conversation:     trace.Exchange{User: r.conv.LastUser(), Assistant: resp.Content},
	}
	log.Debug("model replied", "content", resp.Content, "reasoning", resp.ReasoningContent, "backend", resp.Backend)

	ext := Extract(resp)
	if !ext.Found() {
		r.conv.AppendAssistantText(resp.Content)
		entry.Type = trace.KindConversation
		log.Info("no tool call, continuing conversation")
		a.record(ctx, r, entry)
		return
	}

	call := ext.Call
	callID := call.ID
	if callID == "" {
		callID = a.newID()
	}
	args := tool.NormalizeArguments(call.Arguments)
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = []byte("{}")
	}
	r.conv.AppendAssistantCall(llm.ToolCall{ID: callID, Name: call.Name, Arguments: string(encoded)})

	if call.Name == table.WriteToolName && a.output != "" {
		if p, _ := args["file_path"].(string); p != a.output {
			log.Warn("overriding write target", "requested", args["file_path"], "output", a.output)
		}
		args["file_path"] = a.output
	}

	log.Info("tool call", "tool", call.Name, "source", ext.Kind.String(), "call_id", callID)
	res := a.dispatcher.Dispatch(ctx, call.Name, args)
	log.Info("tool result", "tool", call.Name, "status", string(res.Status), "message", res.Message)

	content, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		content = []byte(fmt.Sprintf(`{"status":"error","message":%q}`, err.Error()))
	}
	r.conv.AppendToolResult(callID, call.Name, string(content))

	entry.Type = trace.KindToolCall
	entry.Function = call.Name
	entry.Arguments = args
	entry.CallID = callID
	entry.Result = &res
	a.record(ctx, r, entry)

	if res.TaskFinished && r.state == StateRunning {
		r.state = StateCompleted
		r.final = res.Message
	}
}

func (a *Agent) record(ctx context.Context, r *run, e trace.Entry) {
	if err := r.recorder.Append(e); err != nil {
		r.state, r.err = StateAborted, fmt.Errorf("agent: %w", err)
		return
	}
	a.metrics.RecordRound(ctx, string(e.Type))
}

func responseError(resp gateway.Response) error {
	if resp.Err != nil {
		return resp.Err
	}
	if resp.Message != "" {
		return errors.New(resp.Message)
	}
	return fmt.Errorf("agent: gateway returned status %q", resp.Status)
}
