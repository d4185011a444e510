package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/config"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
log_level: debug

llm:
  name: doubao
  model: ep-20250101-abcde
  api_key: ark-test
  base_url: https://ark.cn-beijing.volces.com/api/v3
  temperature: 0.3
  reasoning_effort: medium
  timeout: 45s
  requests_per_second: 2
  fallbacks:
    - name: ollama
      model: qwen3:14b
  circuit_breaker:
    max_failures: 2
    reset_timeout: 1m

agent:
  max_rounds: 6
  output: answers.csv
  prompt_file: prompt.txt

mcp:
  servers:
    - name: search
      transport: streamable-http
      url: http://localhost:9000/mcp

telemetry:
  metrics_addr: ":9464"
  trace_file: spans.json
`

// ── LoadFromReader ───────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.LLM.Name != "doubao" || cfg.LLM.Model != "ep-20250101-abcde" {
		t.Errorf("llm = %q/%q", cfg.LLM.Name, cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("llm.timeout = %v, want 45s", cfg.LLM.Timeout)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("llm.temperature = %v, want 0.3", cfg.LLM.Temperature)
	}
	if len(cfg.LLM.Fallbacks) != 1 || cfg.LLM.Fallbacks[0].Name != "ollama" {
		t.Errorf("llm.fallbacks = %+v", cfg.LLM.Fallbacks)
	}
	if cfg.LLM.CircuitBreaker.ResetTimeout != time.Minute {
		t.Errorf("llm.circuit_breaker.reset_timeout = %v, want 1m", cfg.LLM.CircuitBreaker.ResetTimeout)
	}
	if cfg.Agent.MaxRounds != 6 || cfg.Agent.Output != "answers.csv" {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if len(cfg.MCP.Servers) != 1 || cfg.MCP.Servers[0].URL != "http://localhost:9000/mcp" {
		t.Errorf("mcp.servers = %+v", cfg.MCP.Servers)
	}
	if cfg.Telemetry.MetricsAddr != ":9464" {
		t.Errorf("telemetry.metrics_addr = %q", cfg.Telemetry.MetricsAddr)
	}
}

func TestLoadFromReader_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty config should be valid, got: %v", err)
	}
	if cfg.LLM.Name != config.DefaultBackend {
		t.Errorf("llm.name = %q, want %q", cfg.LLM.Name, config.DefaultBackend)
	}
	if cfg.Agent.MaxRounds != config.DefaultMaxRounds {
		t.Errorf("agent.max_rounds = %d, want %d", cfg.Agent.MaxRounds, config.DefaultMaxRounds)
	}
	if cfg.LLM.Temperature != config.DefaultTemperature {
		t.Errorf("llm.temperature = %v, want %v", cfg.LLM.Temperature, config.DefaultTemperature)
	}
	if cfg.LLM.ReasoningEffort != "low" {
		t.Errorf("llm.reasoning_effort = %q, want low", cfg.LLM.ReasoningEffort)
	}
	if cfg.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("llm:\n  modle: typo\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tableagent.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.PromptFile != "prompt.txt" {
		t.Errorf("agent.prompt_file = %q", cfg.Agent.PromptFile)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "nope.yaml") {
		t.Errorf("error should name the file, got: %v", err)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownLLM(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_RegisteredLLM(t *testing.T) {
	reg := config.NewRegistry()
	want := &mock.Provider{}
	var got config.ProviderEntry
	reg.RegisterLLM("test", func(e config.ProviderEntry) (llm.Provider, error) {
		got = e
		return want, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "test", Model: "m1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != want {
		t.Error("CreateLLM returned a different provider")
	}
	if got.Model != "m1" {
		t.Errorf("factory received model %q, want m1", got.Model)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("bad key")
	reg.RegisterLLM("broken", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, wantErr
	})
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"}); !errors.Is(err, wantErr) {
		t.Errorf("expected factory error, got: %v", err)
	}
}

func TestRegistry_LLMNamesSorted(t *testing.T) {
	reg := config.NewRegistry()
	for _, n := range []string{"openai", "doubao", "ollama"} {
		reg.RegisterLLM(n, func(config.ProviderEntry) (llm.Provider, error) { return nil, nil })
	}
	got := strings.Join(reg.LLMNames(), ",")
	if got != "doubao,ollama,openai" {
		t.Errorf("LLMNames = %s", got)
	}
}
