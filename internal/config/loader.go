package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool/mcpbridge"
)

// KnownLLMNames lists the backend names main registers. [Validate] warns
// about names outside this list.
var KnownLLMNames = []string{
	"doubao", "openai",
	"anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

var validReasoningEfforts = []string{"low", "medium", "high"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// LLM
	validateLLMName("llm", cfg.LLM.Name)
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f is out of range [0, 2]", cfg.LLM.Temperature))
	}
	if cfg.LLM.ReasoningEffort != "" && !slices.Contains(validReasoningEfforts, cfg.LLM.ReasoningEffort) {
		errs = append(errs, fmt.Errorf("llm.reasoning_effort %q is invalid; valid values: low, medium, high", cfg.LLM.ReasoningEffort))
	}
	if cfg.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must not be negative"))
	}
	if cfg.LLM.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("llm.requests_per_second must not be negative"))
	}
	if cfg.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must not be negative"))
	}
	if cfg.LLM.CircuitBreaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("llm.circuit_breaker.max_failures must not be negative"))
	}
	for i, fb := range cfg.LLM.Fallbacks {
		prefix := fmt.Sprintf("llm.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			validateLLMName(prefix, fb.Name)
		}
		if fb.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required", prefix))
		}
	}

	// Agent
	if cfg.Agent.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("agent.max_rounds %d must not be negative", cfg.Agent.MaxRounds))
	}

	// MCP servers
	namesSeen := make(map[string]int, len(cfg.MCP.Servers))
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of mcp.servers[%d]", prefix, srv.Name, prev))
			}
			namesSeen[srv.Name] = i
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if (srv.Transport == mcpbridge.TransportStdio || srv.Transport == "") && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == mcpbridge.TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	return errors.Join(errs...)
}

func validateLLMName(field, name string) {
	if name == "" || slices.Contains(KnownLLMNames, name) {
		return
	}
	slog.Warn("unknown LLM backend name; it must be registered before use",
		"field", field,
		"name", name,
		"known", KnownLLMNames,
	)
}
