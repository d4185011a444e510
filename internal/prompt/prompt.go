// Package prompt supplies the system prompt that opens every agent run.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

//go:embed default_prompt.txt
var defaultPrompt string

// Default returns the built-in system prompt.
func Default() string { return defaultPrompt }

// Load returns the contents of the file at path. An empty path, or a file
// that does not exist, yields the built-in prompt; the latter is logged at
// Warn. Other read errors are returned.
func Load(path string) (string, error) {
	if path == "" {
		return defaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("prompt file not found, using built-in prompt", "path", path)
		return defaultPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("prompt: read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt: %s is empty", path)
	}
	return text, nil
}
