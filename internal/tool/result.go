package tool

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Status is the outcome reported by a tool.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCompleted Status = "completed"
)

// Result is what a tool reports back to the model. On the wire it is a single
// flat JSON object: status, message and task_finished sit next to the
// tool-specific fields held in Data.
type Result struct {
	Status Status

	// Message is a human-readable description. Always set on errors.
	Message string

	// TaskFinished ends the agent run when true.
	TaskFinished bool

	// Data holds the tool-specific payload fields.
	Data map[string]any
}

// Success returns a success result carrying data.
func Success(data map[string]any) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// Failure returns an error result with the given message.
func Failure(message string) Result {
	return Result{Status: StatusError, Message: message}
}

// Failuref returns an error result with a formatted message.
func Failuref(format string, args ...any) Result {
	return Failure(fmt.Sprintf(format, args...))
}

// Completed returns the result that terminates a run.
func Completed(message string) Result {
	return Result{Status: StatusCompleted, Message: message, TaskFinished: true}
}

// WithMessage returns a copy of r with Message set.
func (r Result) WithMessage(message string) Result {
	r.Message = message
	return r
}

// Get returns the payload field key, or nil.
func (r Result) Get(key string) any {
	return r.Data[key]
}

// reserved keys are owned by Result and never taken from Data.
var reserved = []string{"status", "message", "task_finished"}

// MarshalJSON flattens the result into one object.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Data)+3)
	maps.Copy(out, r.Data)
	for _, k := range reserved {
		delete(out, k)
	}
	out["status"] = r.Status
	if r.Message != "" {
		out["message"] = r.Message
	}
	if r.TaskFinished {
		out["task_finished"] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON. Unknown fields land in Data.
func (r *Result) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = ParseMap(raw)
	return nil
}

// ParseMap builds a Result from a decoded JSON object. A missing status
// defaults to success; a non-boolean task_finished is treated as false.
func ParseMap(raw map[string]any) Result {
	r := Result{Status: StatusSuccess}
	if s, ok := raw["status"].(string); ok && s != "" {
		r.Status = Status(s)
	}
	if m, ok := raw["message"].(string); ok {
		r.Message = m
	}
	if f, ok := raw["task_finished"].(bool); ok {
		r.TaskFinished = f
	}
	for k, v := range raw {
		switch k {
		case "status", "message", "task_finished":
			continue
		}
		if r.Data == nil {
			r.Data = make(map[string]any, len(raw))
		}
		r.Data[k] = v
	}
	return r
}
