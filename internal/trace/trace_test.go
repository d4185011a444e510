package trace

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
)

var ts = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func toolEntry(round int, fn string, res tool.Result) Entry {
	return Entry{
		Round:            round,
		Timestamp:        ts,
		ModelThought:     "thinking",
		AssistantContent: "",
		Type:             KindToolCall,
		Function:         fn,
		Arguments:        map[string]any{"file_path": "a.csv"},
		CallID:           "call_1",
		Result:           &res,
	}
}

func chatEntry(round int, text string) Entry {
	return Entry{
		Round:            round,
		Timestamp:        ts,
		ModelThought:     text,
		AssistantContent: text,
		Conversation:     Exchange{User: "question", Assistant: text},
		Type:             KindConversation,
	}
}

func TestRecorder_AppendInOrder(t *testing.T) {
	r := NewRecorder()

	require.NoError(t, r.Append(chatEntry(1, "hello")))
	require.NoError(t, r.Append(toolEntry(2, "read_csv_info", tool.Success(nil))))

	assert.ErrorIs(t, r.Append(chatEntry(2, "dup")), ErrRoundOrder)
	assert.ErrorIs(t, r.Append(chatEntry(4, "gap")), ErrRoundOrder)
	assert.Equal(t, 2, r.Len())
}

func TestRecorder_NothingAfterFinish(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Append(toolEntry(1, "task_done", tool.Completed("done"))))

	err := r.Append(chatEntry(2, "more"))
	assert.ErrorIs(t, err, ErrRoundOrder)
}

func TestRecorder_EntriesIsCopy(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Append(chatEntry(1, "hello")))

	got := r.Entries()
	got[0].Round = 99
	assert.Equal(t, 1, r.Entries()[0].Round)
}

func TestSummary(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Append(chatEntry(1, "a")))
	require.NoError(t, r.Append(toolEntry(2, "calculate_csv_data", tool.Success(nil))))
	require.NoError(t, r.Append(toolEntry(3, "task_done", tool.Completed("ok"))))

	assert.Equal(t, Summary{Rounds: 3, ToolCalls: 2, ConversationOnly: 1, Finished: true}, r.Summary())
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestWriteReport(t *testing.T) {
	long := strings.Repeat("思", 600)
	entries := []Entry{
		chatEntry(1, long),
		toolEntry(2, "filter_csv_data", tool.Failure("column 'x' does not exist in file")),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, entries))
	out := buf.String()

	assert.Contains(t, out, "Round 1:")
	assert.Contains(t, out, "Time: 2025-03-14 09:26:53")
	assert.Contains(t, out, "Type: conversation only")
	assert.Contains(t, out, "Model thought: "+strings.Repeat("思", thoughtLimit)+"...")
	assert.Contains(t, out, "Assistant: "+strings.Repeat("思", assistantLimit)+"...")
	assert.Contains(t, out, "Tool: filter_csv_data")
	assert.Contains(t, out, `Arguments: {"file_path":"a.csv"}`)
	assert.Contains(t, out, "Result: error")
	assert.Contains(t, out, "Result message: column 'x' does not exist in file")
	assert.Contains(t, out, "Recorded 2 rounds")
	assert.Contains(t, out, "Tool calls: 1, conversation only: 1")
	assert.NotContains(t, out, "\x1b[", "no escape codes off-terminal")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "数据...", truncate("数据表格", 2))
	assert.Equal(t, "", truncate("", 5))
}

func TestWriteJSON(t *testing.T) {
	entries := []Entry{
		chatEntry(1, "<hi>"),
		toolEntry(2, "task_done", tool.Completed("done")),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, entries))
	assert.Contains(t, buf.String(), "<hi>", "HTML must not be escaped")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "conversation_only", decoded[0]["type"])
	assert.NotContains(t, decoded[0], "result")

	result := decoded[1]["result"].(map[string]any)
	assert.Equal(t, "completed", result["status"])
	assert.Equal(t, true, result["task_finished"])
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, SaveJSON(path, []Entry{chatEntry(1, "x")}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "x", decoded[0].AssistantContent)
	assert.True(t, decoded[0].Timestamp.Equal(ts))
}
