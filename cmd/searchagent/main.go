// Package main provides the CLI entry point for the web search agent.
//
// The agent answers questions by chaining tool calls (arithmetic, web
// search) and streams its intermediate steps while it works.
//
// Start the server:
//
//	searchagent serve --config searchagent.yaml
//
// Ask a one-off question from the terminal:
//
//	searchagent ask "How old is the world's oldest cat?"
//
// Configuration can also come from environment variables:
//
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - SERPAPI_API_KEY: SerpAPI key for web search
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajay-arram0101/web-search-agent/internal/agent"
	"github.com/ajay-arram0101/web-search-agent/internal/config"
	"github.com/ajay-arram0101/web-search-agent/internal/history"
	"github.com/ajay-arram0101/web-search-agent/internal/observability"
	"github.com/ajay-arram0101/web-search-agent/internal/providers/openai"
	"github.com/ajay-arram0101/web-search-agent/internal/secrets"
	"github.com/ajay-arram0101/web-search-agent/internal/server"
	mathtools "github.com/ajay-arram0101/web-search-agent/internal/tools/math"
	"github.com/ajay-arram0101/web-search-agent/internal/tools/websearch"
	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "searchagent",
		Short:        "Streaming web search agent",
		Long:         "A tool-using agent that answers questions with arithmetic and web search,\nstreaming its intermediate steps while it works.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildAskCmd(),
	)
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap(ctx, configPath, true)
			if err != nil {
				return err
			}
			defer app.close()

			srv := server.New(app.executor, app.transcript, app.logger, app.metrics, server.Options{
				Host: app.cfg.Server.Host,
				Port: app.cfg.Server.Port,
			})
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	return cmd
}

func buildAskCmd() *cobra.Command {
	var configPath string
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and stream the steps to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap(ctx, configPath, false)
			if err != nil {
				return err
			}
			defer app.close()

			session := models.NewSession("cli")
			bridge := agent.NewBridge()

			type invokeResult struct {
				result *agent.Result
				err    error
			}
			resultCh := make(chan invokeResult, 1)
			go func() {
				res, err := app.executor.Invoke(ctx, session, args[0], bridge)
				resultCh <- invokeResult{result: res, err: err}
			}()

			if raw {
				if err := agent.RenderSteps(ctx, bridge, os.Stdout); err != nil {
					return err
				}
				fmt.Println()
			} else if _, err := agent.CollectSteps(ctx, bridge); err != nil {
				return err
			}

			res := <-resultCh
			if res.err != nil {
				return res.err
			}
			fmt.Println(res.result.Answer)
			if len(res.result.ToolsUsed) > 0 {
				fmt.Printf("tools used: %v\n", res.result.ToolsUsed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	cmd.Flags().BoolVar(&raw, "raw", false, "Stream raw step markup while the agent works")
	return cmd
}

// app holds the wired components shared by the serve and ask commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *observability.Metrics
	executor   *agent.Executor
	transcript *history.Store

	shutdownTracing func(context.Context) error
}

func bootstrap(ctx context.Context, configPath string, withMetrics bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	// Secrets from SSM override file and environment values.
	if cfg.Secrets.SSMEnabled {
		resolver, err := secrets.NewResolver(ctx, cfg.Secrets.SSMPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("init secrets resolver: %w", err)
		}
		openaiKey, serpapiKey, err := resolver.FetchAPIKeys(ctx)
		if err != nil {
			logger.Warn("failed to fetch SSM parameters", "error", err)
		}
		if openaiKey != "" {
			cfg.OpenAI.APIKey = openaiKey
		}
		if serpapiKey != "" {
			cfg.SerpAPI.APIKey = serpapiKey
		}
	}

	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not configured")
	}

	shutdownTracing, err := observability.InitTracing(observability.TraceConfig{
		ServiceName:    "searchagent",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	var metrics *observability.Metrics
	if withMetrics {
		metrics = observability.NewMetrics()
	}

	registry := agent.NewRegistry()
	for _, tool := range mathtools.All() {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	if err := registry.Register(websearch.New(&websearch.Config{
		APIKey:      cfg.SerpAPI.APIKey,
		Engine:      cfg.SerpAPI.Engine,
		ResultLimit: cfg.SerpAPI.ResultLimit,
		CacheTTL:    cfg.SerpAPI.CacheTTL,
	})); err != nil {
		return nil, err
	}
	if err := registry.Register(&agent.FinalAnswerTool{}); err != nil {
		return nil, err
	}

	provider := openai.New(cfg.OpenAI.APIKey,
		openai.WithLogger(logger),
		openai.WithMetrics(metrics),
	)

	executor := agent.NewExecutor(provider, registry, &agent.Config{
		MaxIterations: cfg.Agent.MaxIterations,
		Model:         cfg.Agent.Model,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		MaxTokens:     cfg.Agent.MaxTokens,
	}, logger, metrics)

	var transcript *history.Store
	if cfg.History.Path != "" {
		transcript, err = history.NewStore(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
	}

	return &app{
		cfg:             cfg,
		logger:          logger,
		metrics:         metrics,
		executor:        executor,
		transcript:      transcript,
		shutdownTracing: shutdownTracing,
	}, nil
}

func (a *app) close() {
	if a.transcript != nil {
		if err := a.transcript.Close(); err != nil {
			a.logger.Warn("failed to close history store", "error", err)
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.logger.Warn("failed to flush traces", "error", err)
		}
	}
}
