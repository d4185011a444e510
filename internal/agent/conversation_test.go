package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

func TestConversation(t *testing.T) {
	c := NewConversation("sys", "do it\n\nCSV_PATH: a.csv")
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "do it\n\nCSV_PATH: a.csv", c.LastUser())

	c.AppendAssistantText("thinking")
	c.AppendAssistantCall(llm.ToolCall{ID: "c1", Name: "read_csv_info", Arguments: `{"file_path":"a.csv"}`})
	c.AppendToolResult("c1", "read_csv_info", `{"status":"success"}`)

	msgs := c.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "thinking"}, msgs[2])
	assert.Empty(t, msgs[3].Content)
	assert.Equal(t, "c1", msgs[3].ToolCalls[0].ID)
	assert.Equal(t, llm.Message{Role: llm.RoleTool, Name: "read_csv_info", Content: `{"status":"success"}`, ToolCallID: "c1"}, msgs[4])

	msgs[0].Content = "mutated"
	assert.Equal(t, "sys", c.Messages()[0].Content, "Messages must return a copy")
}

func TestConversation_TokenEstimate(t *testing.T) {
	c := NewConversation("", "")
	before := c.TokenEstimate()
	assert.Positive(t, before, "roles alone count")

	c.AppendAssistantText(string(make([]byte, 400)))
	assert.GreaterOrEqual(t, c.TokenEstimate()-before, 100)
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateRunning:     "RUNNING",
		StateCompleted:   "COMPLETED",
		StateExhausted:   "EXHAUSTED",
		StateAborted:     "ABORTED",
		StateInterrupted: "INTERRUPTED",
		State(99):        "UNKNOWN",
	}
	for s, want := range tests {
		assert.Equal(t, want, s.String())
	}
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateAborted.Terminal())
}
