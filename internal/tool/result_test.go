package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_MarshalFlattens(t *testing.T) {
	r := Success(map[string]any{"rows": 3, "columns": 2}).WithMessage("ok")

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","message":"ok","rows":3,"columns":2}`, string(b))
}

func TestResult_MarshalOmitsEmptyMessage(t *testing.T) {
	b, err := json.Marshal(Success(map[string]any{"total_rows": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","total_rows":1}`, string(b))
}

func TestResult_ReservedKeysWin(t *testing.T) {
	r := Result{Status: StatusError, Message: "real", Data: map[string]any{"status": "success", "message": "fake"}}

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"real"}`, string(b))
}

func TestResult_Completed(t *testing.T) {
	b, err := json.Marshal(Completed("all done"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"completed","message":"all done","task_finished":true}`, string(b))
}

func TestResult_Unmarshal(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{"status":"completed","message":"m","task_finished":true,"extra":"x"}`), &r))

	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, "m", r.Message)
	assert.True(t, r.TaskFinished)
	assert.Equal(t, "x", r.Get("extra"))
}

func TestParseMap_Defaults(t *testing.T) {
	r := ParseMap(map[string]any{"answer": 42.0, "task_finished": "yes"})

	assert.Equal(t, StatusSuccess, r.Status)
	assert.False(t, r.TaskFinished, "non-boolean task_finished must not terminate")
	assert.Equal(t, 42.0, r.Get("answer"))
}

func TestFailuref(t *testing.T) {
	r := Failuref("column '%s' not found in %s", "age", "a.csv")
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "column 'age' not found in a.csv", r.Message)
}
