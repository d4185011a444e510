// Command tableagent lets a language model answer a request about a CSV file
// by calling inspection, filtering, aggregation and writing tools in rounds.
//
//	tableagent data.csv "write 5 question/answer pairs about sales" \
//	    --provider ep-20250101-xxxx --output pairs.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/agent"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/config"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/gateway"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/health"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/observe"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/prompt"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool/finish"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool/mcpbridge"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/tool/table"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/internal/trace"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm/anyllm"
	"github.com/kekechen123/Wide-search-data-automatic-generation-agent/pkg/provider/llm/openai"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// apiKeyEnv is consulted when the default backend has no key configured.
const apiKeyEnv = "DOUBAO_API_KEY"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the command-line flags. Empty values leave the
// configuration file (or its defaults) untouched.
type options struct {
	output     string
	maxRounds  int
	provider   string
	apiKey     string
	configPath string
	backend    string
	baseURL    string
	promptFile string
	traceOut   string
	logLevel   string

	// maxRoundsSet is true when --max-rounds was given explicitly.
	maxRoundsSet bool
}

func run(args []string, stdout, stderr io.Writer) int {
	code := 0
	cmd := newRootCmd(stdout, stderr, &code)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "tableagent: %v\n", err)
		return 1
	}
	return code
}

func newRootCmd(stdout, stderr io.Writer, code *int) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "tableagent <csv_file> <user_input>",
		Short:         "Answer a request about a CSV file with an LLM tool loop",
		Args:          cobra.ExactArgs(2),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.maxRoundsSet = cmd.Flags().Changed("max-rounds")
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			*code = execute(ctx, opts, args[0], args[1], stdout, stderr)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.output, "output", "", "CSV file every write_to_csv call writes to, whatever path the model chooses")
	f.IntVar(&opts.maxRounds, "max-rounds", config.DefaultMaxRounds, "maximum number of rounds")
	f.StringVar(&opts.provider, "provider", "", "model name or Ark endpoint ID (required)")
	f.StringVar(&opts.apiKey, "api-key", "", "API key (default $"+apiKeyEnv+" for the doubao backend)")
	f.StringVar(&opts.configPath, "config", "", "optional YAML configuration file")
	f.StringVar(&opts.backend, "backend", "", "LLM backend name (default "+config.DefaultBackend+")")
	f.StringVar(&opts.baseURL, "base-url", "", "override the backend API endpoint")
	f.StringVar(&opts.promptFile, "prompt", "", "system prompt file (default built-in prompt)")
	f.StringVar(&opts.traceOut, "trace-out", "", "write the execution trace as JSON to this file")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default info)")
	return cmd
}

func execute(ctx context.Context, opts options, csvPath, request string, stdout, stderr io.Writer) int {
	// ── Configuration ─────────────────────────────────────────────────────────
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "tableagent: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(stderr, cfg.LogLevel))

	info, err := os.Stat(csvPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: CSV file %q does not exist\n", csvPath)
		return 1
	}
	if info.IsDir() {
		fmt.Fprintf(stderr, "Error: %q is a directory, not a CSV file\n", csvPath)
		return 1
	}
	if cfg.LLM.Model == "" {
		fmt.Fprintln(stderr, "Error: a model name is required, pass it with --provider")
		return 1
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── LLM gateway ───────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBackends(reg)
	gw, err := buildGateway(cfg.LLM, reg, metrics)
	if err != nil {
		slog.Error("failed to build LLM gateway", "err", err)
		return 1
	}

	// ── Tools ─────────────────────────────────────────────────────────────────
	bridge := mcpbridge.New()
	defer bridge.Close()
	tools, err := buildTools(ctx, cfg.MCP, bridge)
	if err != nil {
		slog.Error("failed to register tools", "err", err)
		return 1
	}

	systemPrompt, err := prompt.Load(cfg.Agent.PromptFile)
	if err != nil {
		slog.Error("failed to load system prompt", "err", err)
		return 1
	}

	a, err := agent.New(gw, tool.NewDispatcher(tools, tool.WithDispatchMetrics(metrics)),
		agent.WithMaxRounds(cfg.Agent.MaxRounds),
		agent.WithOutputOverride(cfg.Agent.Output),
		agent.WithSystemPrompt(systemPrompt),
		agent.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to create agent", "err", err)
		return 1
	}

	slog.Info("starting task",
		"csv", csvPath,
		"request", request,
		"max_rounds", cfg.Agent.MaxRounds,
		"backend", cfg.LLM.Name,
		"model", cfg.LLM.Model,
		"tools", tools.Names(),
	)

	// ── Run ───────────────────────────────────────────────────────────────────
	statusCtx, stopStatus := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(statusCtx)
	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		probes := health.New(health.Checker{Name: "gateway", Check: gw.Check})
		g.Go(func() error { return health.Serve(gctx, addr, probes) })
	}

	out := a.Run(ctx, request, csvPath)

	stopStatus()
	if err := g.Wait(); err != nil {
		slog.Warn("status server stopped with error", "err", err)
	}

	// ── Report ────────────────────────────────────────────────────────────────
	if err := trace.WriteReport(stdout, out.Trace); err != nil {
		slog.Warn("failed to write trace report", "err", err)
	}
	if opts.traceOut != "" {
		if err := trace.SaveJSON(opts.traceOut, out.Trace); err != nil {
			slog.Error("failed to save trace", "path", opts.traceOut, "err", err)
		}
	}

	switch out.State {
	case agent.StateCompleted:
		fmt.Fprintf(stdout, "\nTask completed: %s\n", out.FinalMessage)
		return 0
	case agent.StateExhausted:
		fmt.Fprintf(stdout, "\nReached the round limit (%d), task incomplete\n", cfg.Agent.MaxRounds)
		return 0
	case agent.StateInterrupted:
		fmt.Fprintln(stderr, "\nInterrupted by user")
		return 1
	default:
		// The loop stopped on a gateway failure; the partial trace above is
		// the result.
		fmt.Fprintf(stdout, "\nRun aborted: %v\n", out.Err)
		return 0
	}
}

// loadConfig reads the optional configuration file and lays the flags over it.
func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadFromReader(strings.NewReader(""))
	}
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.LogLevel = config.LogLevel(opts.logLevel)
	}
	if opts.backend != "" {
		cfg.LLM.Name = opts.backend
	}
	if opts.provider != "" {
		cfg.LLM.Model = opts.provider
	}
	if opts.apiKey != "" {
		cfg.LLM.APIKey = opts.apiKey
	}
	if opts.baseURL != "" {
		cfg.LLM.BaseURL = opts.baseURL
	}
	if opts.maxRoundsSet {
		if opts.maxRounds < 1 {
			return nil, fmt.Errorf("--max-rounds must be at least 1, got %d", opts.maxRounds)
		}
		cfg.Agent.MaxRounds = opts.maxRounds
	}
	if opts.output != "" {
		cfg.Agent.Output = opts.output
	}
	if opts.promptFile != "" {
		cfg.Agent.PromptFile = opts.promptFile
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.Name == config.DefaultBackend {
		cfg.LLM.APIKey = os.Getenv(apiKeyEnv)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func initTelemetry(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	pcfg := observe.ProviderConfig{ServiceName: "tableagent", ServiceVersion: version}

	var traceFile *os.File
	if cfg.TraceFile != "" {
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		traceFile = f
		pcfg.TraceWriter = f
	}

	shutdown, err := observe.InitProvider(ctx, pcfg)
	if err != nil {
		if traceFile != nil {
			traceFile.Close()
		}
		return nil, err
	}
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		if traceFile != nil {
			err = errors.Join(err, traceFile.Close())
		}
		return err
	}, nil
}

// ── Backend wiring ────────────────────────────────────────────────────────────

// registerBackends wires every built-in LLM backend factory into reg.
func registerBackends(reg *config.Registry) {
	// doubao is Volcengine Ark's OpenAI-compatible endpoint; openai is the
	// same client pointed at api.openai.com unless base_url says otherwise.
	reg.RegisterLLM("doubao", func(e config.ProviderEntry) (llm.Provider, error) {
		if e.BaseURL == "" {
			e.BaseURL = openai.ArkBaseURL
		}
		return newOpenAI(e)
	})
	reg.RegisterLLM("openai", newOpenAI)

	for _, name := range anyllm.Backends {
		reg.RegisterLLM(name, func(e config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if e.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
			}
			return anyllm.New(name, e.Model, opts...)
		})
	}
}

func newOpenAI(e config.ProviderEntry) (llm.Provider, error) {
	var opts []openai.Option
	if e.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(e.BaseURL))
	}
	if e.Timeout > 0 {
		opts = append(opts, openai.WithTimeout(e.Timeout))
	}
	return openai.New(e.APIKey, e.Model, opts...)
}

// buildGateway instantiates the primary backend and its fallbacks.
func buildGateway(cfg config.LLMConfig, reg *config.Registry, m *observe.Metrics) (*gateway.Gateway, error) {
	primary, err := reg.CreateLLM(cfg.ProviderEntry)
	if err != nil {
		return nil, fmt.Errorf("llm %q: %w", cfg.Name, err)
	}

	var fallbacks []gateway.Backend
	for i, fb := range cfg.Fallbacks {
		if fb.APIKey == "" {
			fb.APIKey = cfg.APIKey
		}
		if fb.Timeout == 0 {
			fb.Timeout = cfg.Timeout
		}
		p, err := reg.CreateLLM(fb)
		if err != nil {
			return nil, fmt.Errorf("llm fallback %d (%q): %w", i, fb.Name, err)
		}
		fallbacks = append(fallbacks, gateway.Backend{Name: fb.Name, Provider: p})
	}

	return gateway.New(gateway.Backend{Name: cfg.Name, Provider: primary},
		gateway.WithFallbacks(fallbacks...),
		gateway.WithBreaker(gateway.BreakerConfig{
			MaxFailures:  cfg.CircuitBreaker.MaxFailures,
			ResetTimeout: cfg.CircuitBreaker.ResetTimeout,
		}),
		gateway.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		gateway.WithTemperature(cfg.Temperature),
		gateway.WithMaxTokens(cfg.MaxTokens),
		gateway.WithReasoningEffort(cfg.ReasoningEffort),
		gateway.WithMetrics(m),
	)
}

// buildTools registers the CSV tools, task_done and every tool exposed by the
// configured MCP servers.
func buildTools(ctx context.Context, cfg config.MCPConfig, bridge *mcpbridge.Bridge) (*tool.Registry, error) {
	reg := tool.NewRegistry()
	if err := reg.RegisterAll(table.NewTools()); err != nil {
		return nil, err
	}
	if err := reg.RegisterAll(finish.NewTools()); err != nil {
		return nil, err
	}

	for _, srv := range cfg.Servers {
		err := bridge.Connect(ctx, mcpbridge.ServerConfig{
			Name:      srv.Name,
			Transport: srv.Transport,
			Command:   srv.Command,
			URL:       srv.URL,
			Env:       srv.Env,
		})
		if err != nil {
			return nil, err
		}
	}
	if err := reg.RegisterAll(bridge); err != nil {
		return nil, err
	}
	return reg, nil
}
