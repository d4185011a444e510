// Package config provides the configuration schema, loader, and LLM backend
// registry for tableagent.
package config

import (
	"time"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool/mcpbridge"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultBackend         = "doubao"
	DefaultMaxRounds       = 10
	DefaultTemperature     = 0.7
	DefaultReasoningEffort = "low"
	DefaultTimeout         = 120 * time.Second
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// command-line flags override individual fields afterwards.
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level"`
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	MCP       MCPConfig       `yaml:"mcp"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProviderEntry is the configuration block for one LLM backend. The Name
// field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered backend (e.g., "doubao", "openai", "ollama").
	Name string `yaml:"name"`

	// Model selects the model or Ark endpoint ID within the backend.
	Model string `yaml:"model"`

	// APIKey is the authentication key for the backend's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each HTTP request to the backend. Zero uses [DefaultTimeout].
	Timeout time.Duration `yaml:"timeout"`

	// Options holds backend-specific values not covered by the fields above.
	Options map[string]any `yaml:"options"`
}

// LLMConfig configures the primary backend, its fallbacks and request
// parameters shared by all of them.
type LLMConfig struct {
	ProviderEntry `yaml:",inline"`

	// Temperature is the sampling temperature. Zero uses [DefaultTemperature].
	Temperature float64 `yaml:"temperature"`

	// ReasoningEffort is sent to reasoning-capable models: low, medium or high.
	ReasoningEffort string `yaml:"reasoning_effort"`

	// MaxTokens caps completion tokens. Zero leaves the backend default.
	MaxTokens int `yaml:"max_tokens"`

	// RequestsPerSecond rate-limits gateway requests. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the limiter's bucket size. Default: 1.
	Burst int `yaml:"burst"`

	// Fallbacks are tried in order when the primary fails.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`

	// CircuitBreaker tunes the per-backend breaker.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig tunes the breaker placed in front of every backend.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// AgentConfig holds the round controller settings.
type AgentConfig struct {
	// MaxRounds is the round budget. Zero uses [DefaultMaxRounds].
	MaxRounds int `yaml:"max_rounds"`

	// Output, when set, replaces the file_path argument of every write_to_csv
	// call.
	Output string `yaml:"output"`

	// PromptFile overrides the built-in system prompt.
	PromptFile string `yaml:"prompt_file"`
}

// MCPConfig holds the list of Model Context Protocol servers whose tools are
// offered to the model alongside the built-in ones.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes how to connect to a single MCP tool server.
type MCPServerConfig struct {
	// Name is a unique human-readable identifier for this server (used in logs).
	Name string `yaml:"name"`

	// Transport specifies the connection mechanism.
	Transport mcpbridge.Transport `yaml:"transport"`

	// Command is the executable (with optional arguments) launched when
	// Transport is "stdio".
	Command string `yaml:"command"`

	// URL is the MCP endpoint used when Transport is "streamable-http".
	URL string `yaml:"url"`

	// Env holds additional environment variables for stdio subprocesses.
	Env map[string]string `yaml:"env"`
}

// TelemetryConfig configures metric and span export.
type TelemetryConfig struct {
	// MetricsAddr, when set, serves Prometheus metrics on /metrics at this
	// address for the duration of the run.
	MetricsAddr string `yaml:"metrics_addr"`

	// TraceFile, when set, receives OpenTelemetry spans as JSON.
	TraceFile string `yaml:"trace_file"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.LLM.Name == "" {
		cfg.LLM.Name = DefaultBackend
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = DefaultTemperature
	}
	if cfg.LLM.ReasoningEffort == "" {
		cfg.LLM.ReasoningEffort = DefaultReasoningEffort
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = DefaultTimeout
	}
	if cfg.Agent.MaxRounds == 0 {
		cfg.Agent.MaxRounds = DefaultMaxRounds
	}
}
