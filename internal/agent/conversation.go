package agent

import (
	"slices"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// charsPerToken is the heuristic ratio used for token estimation.
const charsPerToken = 4

// Conversation is the ordered message history of one run. It is owned by a
// single run and not safe for concurrent use.
type Conversation struct {
	messages []llm.Message
	lastUser string
	tokens   int
}

// NewConversation seeds a conversation with the system prompt and the first
// user turn.
func NewConversation(systemPrompt, user string) *Conversation {
	c := &Conversation{}
	c.append(llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	c.append(llm.Message{Role: llm.RoleUser, Content: user})
	c.lastUser = user
	return c
}

// AppendAssistantText records a reply without a tool call.
func (c *Conversation) AppendAssistantText(content string) {
	c.append(llm.Message{Role: llm.RoleAssistant, Content: content})
}

// AppendAssistantCall records a reply that requested call. The content is
// left empty.
func (c *Conversation) AppendAssistantCall(call llm.ToolCall) {
	c.append(llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{call}})
}

// AppendToolResult records the result of the call identified by callID.
func (c *Conversation) AppendToolResult(callID, name, content string) {
	c.append(llm.Message{Role: llm.RoleTool, Name: name, Content: content, ToolCallID: callID})
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []llm.Message {
	return slices.Clone(c.messages)
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// LastUser returns the most recent user turn.
func (c *Conversation) LastUser() string { return c.lastUser }

// TokenEstimate returns a rough token count for the whole history.
func (c *Conversation) TokenEstimate() int { return c.tokens }

func (c *Conversation) append(m llm.Message) {
	c.messages = append(c.messages, m)
	c.tokens += estimateTokens(m)
}

// estimateTokens returns a rough token count for a single message using
// the 1-token-per-4-characters heuristic.
func estimateTokens(m llm.Message) int {
	chars := len(m.Content) + len(m.Role) + len(m.Name)
	for _, tc := range m.ToolCalls {
		chars += len(tc.Name) + len(tc.Arguments) + len(tc.ID)
	}
	tokens := chars / charsPerToken
	if tokens == 0 && chars > 0 {
		tokens = 1
	}
	return tokens
}
