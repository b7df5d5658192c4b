// okr-server runs the OKR builder backend: the REST and chat API, the UI
// event stream, and the Prometheus metrics endpoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
	"github.com/nimeshgurung/okrbuilder/internal/bridge"
	"github.com/nimeshgurung/okrbuilder/internal/chat"
	"github.com/nimeshgurung/okrbuilder/internal/commit"
	"github.com/nimeshgurung/okrbuilder/internal/config"
	"github.com/nimeshgurung/okrbuilder/internal/llm"
	"github.com/nimeshgurung/okrbuilder/internal/logging"
	"github.com/nimeshgurung/okrbuilder/internal/notify"
	"github.com/nimeshgurung/okrbuilder/internal/observability"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
	"github.com/nimeshgurung/okrbuilder/internal/server"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "okr-server",
		Short: "OKR builder backend",
		Long: `okr-server hosts the OKR builder: a conversational agent and a manual
editing API over one shared session state, plus a websocket stream that keeps
every connected UI current.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewComponentLogger("Main")

	logger.Info("model=%s base_url=%s port=%s quarter=%s",
		cfg.LLM.Model, cfg.LLM.BaseURL, cfg.Port, cfg.CurrentQuarter)

	var metrics *observability.Collector
	if cfg.Metrics.Enabled {
		metrics, err = observability.NewCollector()
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	store := state.New(okr.SessionState{CurrentQuarter: cfg.CurrentQuarter})
	notifier := notify.New(store, notify.WithLogger(logging.NewComponentLogger("Notify")))

	client, err := buildLLMClient(cfg)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	// declared up front so the commit workflow and the bridge can hand the
	// server their UI events before it exists
	var srv *server.Server

	commits := commit.New(store,
		commit.WithLogger(logging.NewComponentLogger("Commit")),
		commit.WithRefresh(func() {
			if srv != nil {
				srv.BroadcastRefresh()
			}
		}),
	)

	bridgeOpts := []bridge.Option{
		bridge.WithLogger(logging.NewComponentLogger("Bridge")),
		bridge.WithNarrator(ports.NarrativeFunc(func(event ports.NarrativeEvent) {
			if srv != nil {
				srv.BroadcastNarrative(event.Tool, string(event.Phase), event.Message, event.ObjectiveID)
			}
		})),
	}
	if metrics != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithMetrics(metrics))
	}
	b := bridge.New(store, commits, bridgeOpts...)

	registry, err := b.Registry()
	if err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	chatOpts := []chat.Option{
		chat.WithLogger(logging.NewComponentLogger("Chat")),
		chat.WithMaxSessions(cfg.MaxSessions),
	}
	if metrics != nil {
		chatOpts = append(chatOpts, chat.WithMetrics(metrics))
	}
	chatService, err := chat.NewService(client, registry, notifier, store, chatOpts...)
	if err != nil {
		return fmt.Errorf("init chat service: %w", err)
	}

	serverOpts := server.Options{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logging.NewComponentLogger("Server"),
		Chat:           chatService,
	}
	if metrics != nil {
		serverOpts.Metrics = metrics
	}
	srv = server.New(store, commits, serverOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(srv.Start)
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		if metrics != nil {
			if err := metrics.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown metrics: %v", err)
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func buildLLMClient(cfg *config.Config) (ports.LLMClient, error) {
	if cfg.LLM.Scripted {
		return llm.NewScriptedClient(cfg.LLM.Model, ports.CompletionResponse{
			Content:    "Scripted mode is on: I cannot reach a completion provider, but the manual editing API is fully functional.",
			StopReason: "stop",
		}), nil
	}
	return llm.NewOpenAIClient(cfg.LLM.Model, llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logging.NewComponentLogger("LLM"))
}
