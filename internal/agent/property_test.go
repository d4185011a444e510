package agent

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/gateway"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool/finish"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
)

// Reply kinds drawn by the generators below.
const (
	replyText = iota
	replyUnknownTool
	replyDone
)

// scriptedRequester answers with one reply per kind in order and plain text
// once the kinds run out.
func scriptedRequester(kinds []int) Requester {
	i := 0
	return requesterFunc(func(context.Context, []llm.Message, []llm.ToolDefinition) gateway.Response {
		kind := replyText
		if i < len(kinds) {
			kind = kinds[i]
		}
		i++
		resp := gateway.Response{Status: gateway.StatusSuccess}
		switch kind {
		case replyUnknownTool:
			resp.ToolCalls = []llm.ToolCall{{Name: "no_such_tool", Arguments: "{}"}}
		case replyDone:
			resp.ToolCalls = []llm.ToolCall{{Name: finish.ToolName, Arguments: `{"message":"done"}`}}
		default:
			resp.Content = "thinking"
		}
		return resp
	})
}

func TestRun_Properties(t *testing.T) {
	d := newDispatcher(t, testMetrics(t))
	m := testMetrics(t)

	runOnce := func(maxRounds int, kinds []int) Outcome {
		a, err := New(scriptedRequester(kinds), d, WithMaxRounds(maxRounds), WithMetrics(m))
		if err != nil {
			t.Fatal(err)
		}
		return a.Run(context.Background(), "q", "x.csv")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	kinds := gen.SliceOf(gen.IntRange(replyText, replyDone))

	properties.Property("trace never exceeds the round budget", prop.ForAll(
		func(maxRounds int, kinds []int) bool {
			return len(runOnce(maxRounds, kinds).Trace) <= maxRounds
		},
		gen.IntRange(1, 12), kinds,
	))

	properties.Property("rounds are numbered 1..n without gaps", prop.ForAll(
		func(maxRounds int, kinds []int) bool {
			for i, e := range runOnce(maxRounds, kinds).Trace {
				if e.Round != i+1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12), kinds,
	))

	properties.Property("only the last entry may finish the task", prop.ForAll(
		func(maxRounds int, kinds []int) bool {
			tr := runOnce(maxRounds, kinds).Trace
			for i, e := range tr {
				if e.Finished() && i != len(tr)-1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12), kinds,
	))

	properties.Property("state matches the trace", prop.ForAll(
		func(maxRounds int, kinds []int) bool {
			out := runOnce(maxRounds, kinds)
			n := len(out.Trace)
			finished := n > 0 && out.Trace[n-1].Finished()
			switch out.State {
			case StateCompleted:
				return finished
			case StateExhausted:
				return !finished && n == maxRounds
			default:
				return false
			}
		},
		gen.IntRange(1, 12), kinds,
	))

	properties.Property("every tool round is answered by one tool message", prop.ForAll(
		func(maxRounds int, kinds []int) bool {
			out := runOnce(maxRounds, kinds)
			tools := 0
			for _, msg := range out.Messages {
				if msg.Role == llm.RoleTool {
					tools++
				}
			}
			// system + user, then one assistant message per round plus one
			// tool message per tool round.
			return tools == out.Summary.ToolCalls &&
				len(out.Messages) == 2+out.Summary.Rounds+out.Summary.ToolCalls
		},
		gen.IntRange(1, 12), kinds,
	))

	properties.TestingRun(t)
}

func TestExtract_StructuredAlwaysWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a structured call beats an embedded one", prop.ForAll(
		func(apiName, textName string) bool {
			ext := Extract(gateway.Response{
				Content:   `{"name":"` + textName + `","arguments":{}}`,
				ToolCalls: []llm.ToolCall{{Name: apiName, Arguments: "{}"}},
			})
			return ext.Kind == ExtractStructured && ext.Call.Name == apiName
		},
		gen.Identifier(), gen.Identifier(),
	))

	properties.TestingRun(t)
}
