// Package trace records what happened in each round of an agent run: what
// the model thought and said, which tool it called and what came back.
//
// A [Recorder] accepts entries strictly in round order and never rewrites
// them. [WriteReport] renders the human-readable end-of-run summary and
// [WriteJSON] exports the raw entries.
package trace

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
)

// ErrRoundOrder is returned by [Recorder.Append] when an entry's round is not
// the next one.
var ErrRoundOrder = errors.New("trace: entry out of round order")

// Kind classifies a round.
type Kind string

const (
	// KindConversation is a round in which the model called no tool.
	KindConversation Kind = "conversation_only"

	// KindToolCall is a round in which exactly one tool was dispatched.
	KindToolCall Kind = "tool_call"
)

// Exchange is the user turn and the assistant reply of a round.
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Entry is the record of one round.
type Entry struct {
	Round     int       `json:"round"`
	Timestamp time.Time `json:"timestamp"`

	// ModelThought is ReasoningContent when present, else AssistantContent.
	ModelThought     string   `json:"model_thought"`
	ReasoningContent string   `json:"reasoning_content"`
	AssistantContent string   `json:"assistant_content"`
	Conversation     Exchange `json:"conversation"`

	Type Kind `json:"type"`

	// Set on tool_call rounds only.
	Function  string         `json:"function,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Result    *tool.Result   `json:"result,omitempty"`
}

// Finished reports whether the round's tool result ended the run.
func (e Entry) Finished() bool {
	return e.Result != nil && e.Result.TaskFinished
}

// Summary partitions a trace by round type.
type Summary struct {
	Rounds           int
	ToolCalls        int
	ConversationOnly int

	// Finished is true when the last entry carries a task_finished result.
	Finished bool
}

// Recorder is an append-only list of entries. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append adds e, which must be for round Len()+1. Nothing may follow an
// entry whose result finished the task.
func (r *Recorder) Append(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if want := len(r.entries) + 1; e.Round != want {
		return fmt.Errorf("%w: got round %d, want %d", ErrRoundOrder, e.Round, want)
	}
	if n := len(r.entries); n > 0 && r.entries[n-1].Finished() {
		return fmt.Errorf("%w: round %d follows a finished task", ErrRoundOrder, e.Round)
	}
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of recorded rounds.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Summary counts the recorded rounds by type.
func (r *Recorder) Summary() Summary {
	return Summarize(r.Entries())
}

// Summarize counts entries by type.
func Summarize(entries []Entry) Summary {
	s := Summary{Rounds: len(entries)}
	for _, e := range entries {
		if e.Type == KindToolCall {
			s.ToolCalls++
		} else {
			s.ConversationOnly++
		}
	}
	if n := len(entries); n > 0 {
		s.Finished = entries[n-1].Finished()
	}
	return s
}
