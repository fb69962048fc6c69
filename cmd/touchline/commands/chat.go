package commands

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mlandt/touchline/internal/agent/provider"
	"github.com/mlandt/touchline/internal/agent/tools"
	"github.com/mlandt/touchline/internal/apifootball"
	"github.com/mlandt/touchline/internal/config"
	"github.com/mlandt/touchline/internal/session"
	"github.com/mlandt/touchline/internal/store"
	"github.com/mlandt/touchline/internal/supervisor"
)

var (
	chatModel       string
	chatAPIKey      string
	chatMock        string
	chatSingleAgent bool
	chatPrompt      string
	chatTranscript  string
	chatPlain       bool
	chatMetricsAddr string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the research agents",
	Long: `Start an interactive session with the research team. Ask about an
upcoming fixture ("Arsenal vs Chelsea, worth a bet?") and the supervisor
routes your question through fixture lookup and analysis agents.

Use --prompt for a single non-interactive question, and --mock with a
scenario file to run against scripted model responses instead of the API.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model to use (overrides config)")
	chatCmd.Flags().StringVar(&chatAPIKey, "anthropic-key", "", "Anthropic API key (overrides ANTHROPIC_API_KEY)")
	chatCmd.Flags().StringVar(&chatMock, "mock", "", "Path to a scripted scenario YAML, runs without the API")
	chatCmd.Flags().BoolVar(&chatSingleAgent, "single-agent", false, "Give the answer agent the lookup tools instead of routing through the query agent")
	chatCmd.Flags().StringVarP(&chatPrompt, "prompt", "p", "", "Run a single prompt and exit")
	chatCmd.Flags().StringVar(&chatTranscript, "transcript", "", "Transcript file path (default ~/.touchline/sessions/<session>.jsonl)")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "Print replies as plain text instead of rendered Markdown")
	chatCmd.Flags().StringVar(&chatMetricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if chatModel != "" {
		cfg.Model = chatModel
	}
	if chatAPIKey != "" {
		cfg.AnthropicAPIKey = chatAPIKey
	}
	if chatMock != "" {
		cfg.Model = "mock:" + chatMock
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	prov, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	fixtureStore, err := store.NewPostgresStore(cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open fixture store: %w", err)
	}
	defer fixtureStore.Close()

	stats := apifootball.NewClient(cfg.Stats.BaseURL, cfg.Stats.APIKey)

	// Fail fast before the first question, not in the middle of a run.
	g, pingCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := fixtureStore.Ping(pingCtx); err != nil {
			return fmt.Errorf("fixture store unreachable: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := stats.Ping(pingCtx); err != nil {
			return fmt.Errorf("stats API unreachable: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	registry := tools.NewRegistry(tools.Dependencies{
		Store:    fixtureStore,
		Stats:    stats,
		Timezone: loc,
	})

	sessionID := uuid.NewString()
	transcript, err := openTranscript(cfg, sessionID)
	if err != nil {
		return err
	}
	defer transcript.Close()

	sv := supervisor.New(supervisor.Config{
		Provider:    prov,
		Registry:    registry,
		Transcript:  transcript,
		SingleAgent: chatSingleAgent,
		SessionID:   sessionID,
	})

	_ = transcript.LogSessionStart(prov.Model())

	if chatMetricsAddr != "" {
		go serveMetrics(chatMetricsAddr)
	}

	render := newRenderer()

	totals := struct {
		requests, input, output int
	}{}

	ask := func(question string) error {
		result, err := sv.Handle(ctx, question)
		if err != nil {
			return err
		}
		totals.requests += result.Requests
		totals.input += result.Usage.InputTokens
		totals.output += result.Usage.OutputTokens
		fmt.Println(render(result.Text))
		return nil
	}

	defer func() {
		_ = transcript.LogSessionEnd(totals.requests, totals.input, totals.output)
		if totals.requests > 0 {
			fmt.Fprintf(os.Stderr, "session %s: %d model requests, %d input / %d output tokens\n",
				sessionID, totals.requests, totals.input, totals.output)
		}
	}()

	if chatPrompt != "" {
		return ask(chatPrompt)
	}

	fmt.Printf("touchline %s - session %s\n", Version, sv.SessionID())
	fmt.Println("Ask about a fixture. Ctrl-D or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := ask(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// buildProvider picks the real API client or a scripted scenario depending
// on the configured model.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	if cfg.MockModel() {
		path := strings.TrimPrefix(cfg.Model, "mock:")
		if path == "" || path == "mock" {
			return nil, fmt.Errorf("mock model requires a scenario path, e.g. --mock scenario.yaml")
		}
		return provider.LoadScenario(path)
	}

	pcfg := provider.DefaultConfig()
	pcfg.Model = cfg.Model
	if cfg.AnthropicAPIKey != "" {
		return provider.NewAnthropicProviderWithKey(cfg.AnthropicAPIKey, pcfg)
	}
	return provider.NewAnthropicProvider(pcfg)
}

// openTranscript creates the session transcript file, defaulting to
// ~/.touchline/sessions/<session>.jsonl.
func openTranscript(cfg *config.Config, sessionID string) (*session.Transcript, error) {
	path := chatTranscript
	if path == "" {
		dir := cfg.TranscriptDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("cannot resolve home directory for transcript: %w", err)
			}
			dir = filepath.Join(home, ".touchline", "sessions")
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("cannot create transcript directory: %w", err)
		}
		path = filepath.Join(dir, sessionID+".jsonl")
	}
	return session.NewTranscript(path, sessionID)
}

// serveMetrics exposes the prometheus default registry. Best-effort: a
// dead listener should not take the chat session down with it.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server stopped: %v\n", err)
	}
}

// newRenderer returns a function that renders Markdown for the terminal,
// falling back to plain text when rendering is unavailable.
func newRenderer() func(string) string {
	if chatPlain {
		return func(s string) string { return s }
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)
	if err != nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		out, err := renderer.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n")
	}
}
