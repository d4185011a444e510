package agent

import (
	"encoding/json"
	"strings"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/gateway"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// ExtractionKind says where a tool call was found.
type ExtractionKind int

const (
	// ExtractNone means the reply carries no usable call.
	ExtractNone ExtractionKind = iota

	// ExtractStructured means the call came from the API's tool-call field.
	ExtractStructured

	// ExtractEmbedded means the call was recovered from a JSON object in the
	// reply text.
	ExtractEmbedded
)

// String returns the lowercase name of the kind.
func (k ExtractionKind) String() string {
	switch k {
	case ExtractStructured:
		return "structured"
	case ExtractEmbedded:
		return "embedded"
	default:
		return "none"
	}
}

// Call is a tool invocation extracted from a model reply.
type Call struct {
	// ID is the provider's call identifier. Embedded calls never have one.
	ID string

	Name string

	// Arguments is the decoded JSON value when decoding succeeded, otherwise
	// the raw string. It is normalized to an object only at dispatch.
	Arguments any
}

// Extraction is the outcome of [Extract]. Call is meaningful only when Kind
// is not ExtractNone.
type Extraction struct {
	Kind ExtractionKind
	Call Call
}

// Found reports whether a call was extracted.
func (e Extraction) Found() bool { return e.Kind != ExtractNone }

// Extract finds the tool call in resp. Structured calls win over anything in
// the text; of several structured calls only the first is taken.
func Extract(resp gateway.Response) Extraction {
	if call, ok := structuredCall(resp.ToolCalls); ok {
		return Extraction{Kind: ExtractStructured, Call: call}
	}
	if call, ok := embeddedCall(resp.Content); ok {
		return Extraction{Kind: ExtractEmbedded, Call: call}
	}
	return Extraction{Kind: ExtractNone}
}

func structuredCall(calls []llm.ToolCall) (Call, bool) {
	if len(calls) == 0 {
		return Call{}, false
	}
	tc := calls[0]
	return Call{ID: tc.ID, Name: tc.Name, Arguments: decodeArguments(tc.Arguments)}, true
}

// decodeArguments decodes a JSON argument string. Empty or null input is an
// empty object; undecodable input is kept verbatim.
func decodeArguments(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	if v == nil {
		return map[string]any{}
	}
	return v
}

// embeddedCall looks for {"name": ..., "arguments": ...} spanning the first
// "{" to the last "}" of text.
func embeddedCall(text string) (Call, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Call{}, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil || obj == nil {
		return Call{}, false
	}
	name, _ := obj["name"].(string)
	if name == "" {
		return Call{}, false
	}
	args, ok := obj["arguments"]
	if !ok || args == nil {
		args = map[string]any{}
	}
	return Call{Name: name, Arguments: args}, true
}
