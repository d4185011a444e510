package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Preview limits, in runes.
const (
	thoughtLimit   = 500
	assistantLimit = 150
	argsLimit      = 150
	messageLimit   = 100
)

const rule = "============================================================"

type palette struct {
	title, label, good, bad func(...string) string
}

func plain(s ...string) string { return strings.Join(s, " ") }

func newPalette(w io.Writer) palette {
	if !isTerminal(w) {
		return palette{title: plain, label: plain, good: plain, bad: plain}
	}
	r := lipgloss.NewRenderer(w)
	return palette{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Render,
		label: r.NewStyle().Foreground(lipgloss.Color("8")).Render,
		good:  r.NewStyle().Foreground(lipgloss.Color("10")).Render,
		bad:   r.NewStyle().Foreground(lipgloss.Color("9")).Render,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WriteReport renders the per-round summary of entries to w. Colors are
// used only when w is a terminal.
func WriteReport(w io.Writer, entries []Entry) error {
	p := newPalette(w)
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s\n%s\n%s\n", rule, p.title("Execution trace"), rule)

	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s\n", p.title(fmt.Sprintf("Round %d:", e.Round)))
		line(&sb, p, "Time", e.Timestamp.Format("2006-01-02 15:04:05"))

		kind := "conversation only"
		if e.Type == KindToolCall {
			kind = "tool call"
		}
		line(&sb, p, "Type", kind)

		thought := e.ReasoningContent
		if thought == "" {
			thought = e.ModelThought
		}
		line(&sb, p, "Model thought", truncate(thought, thoughtLimit))
		line(&sb, p, "Assistant", truncate(e.AssistantContent, assistantLimit))

		if e.Type != KindToolCall {
			continue
		}
		line(&sb, p, "Tool", e.Function)
		args, _ := json.Marshal(e.Arguments)
		line(&sb, p, "Arguments", truncate(string(args), argsLimit))
		status := "unknown"
		var message string
		if e.Result != nil {
			status = string(e.Result.Status)
			message = e.Result.Message
		}
		if status == "error" {
			status = p.bad(status)
		} else {
			status = p.good(status)
		}
		line(&sb, p, "Result", status)
		if message != "" {
			line(&sb, p, "Result message", truncate(message, messageLimit))
		}
	}

	s := Summarize(entries)
	fmt.Fprintf(&sb, "\n%s\n", rule)
	fmt.Fprintf(&sb, "Recorded %d rounds\n", s.Rounds)
	fmt.Fprintf(&sb, "Tool calls: %d, conversation only: %d\n", s.ToolCalls, s.ConversationOnly)
	fmt.Fprintf(&sb, "%s\n", rule)

	_, err := io.WriteString(w, sb.String())
	return err
}

func line(sb *strings.Builder, p palette, label, value string) {
	fmt.Fprintf(sb, "  %s %s\n", p.label(label+":"), value)
}

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// WriteJSON writes entries to w as an indented JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("trace: encode: %w", err)
	}
	return nil
}

// SaveJSON writes entries to the file at path, replacing it.
func SaveJSON(path string, entries []Entry) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("trace: open file: %w", err)
	}
	if err := WriteJSON(f, entries); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("trace: close file: %w", err)
	}
	return nil
}
