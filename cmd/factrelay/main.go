package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"factrelay/internal/adapter"
	"factrelay/internal/agentclient"
	"factrelay/internal/config"
	"factrelay/internal/dedup"
	"factrelay/internal/dispatch"
	"factrelay/internal/domain"
	"factrelay/internal/journal"
	"factrelay/internal/server"
	"factrelay/internal/sink"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "factrelay",
		Short: "factrelay: multi-channel fact-check dispatch service",
		Long:  "factrelay normalizes fact-check requests from a browser extension, WhatsApp and Telegram, forwards them to a remote verification agent and replies on the originating channel.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.factrelay/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.DefaultConfigPath()
			if configPath != "" {
				cfgPath = configPath
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("factrelay " + version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatch service",
		Long:  "Starts the HTTP surface (extension endpoint, WhatsApp and Telegram webhooks) and the dispatch pipeline. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	guard := dedup.NewGuard(
		time.Duration(cfg.Idempotency.WindowMinutes)*time.Minute,
		time.Duration(cfg.Idempotency.SweepMinutes)*time.Minute,
		logger,
	)

	agent := agentclient.New(agentConfig(cfg, logger))

	var recorder dispatch.Recorder
	if cfg.Journal.Enabled {
		store, err := journal.NewStore(cfg.Journal.DBPath, logger)
		if err != nil {
			return fmt.Errorf("outcome journal: %w", err)
		}
		defer store.Close()
		go store.PruneLoop(ctx, time.Hour, time.Duration(cfg.Journal.RetentionDays)*24*time.Hour)
		recorder = store
	}

	orch := dispatch.New(dispatch.Config{
		Guard:    guard,
		Agent:    agent,
		Recorder: recorder,
		Logger:   logger,
	})

	if cfg.Channels.Extension.Enabled {
		orch.RegisterAdapter(adapter.NewExtension())
		// The extension sink is per-request; the HTTP handler supplies it.
	}
	if cfg.Channels.WhatsApp.Enabled {
		orch.RegisterAdapter(adapter.NewWhatsApp())
		orch.RegisterSink(domain.ChannelWhatsApp, sink.NewWhatsApp(sink.WhatsAppConfig{
			APIBase:       cfg.Channels.WhatsApp.APIBase,
			PhoneNumberID: cfg.Channels.WhatsApp.PhoneNumberID,
			AccessToken:   cfg.Channels.WhatsApp.AccessToken,
			RatePerSecond: cfg.Channels.WhatsApp.RatePerSecond,
			Logger:        logger,
		}))
	}
	if cfg.Channels.Telegram.Enabled {
		orch.RegisterAdapter(adapter.NewTelegram())
		orch.RegisterSink(domain.ChannelTelegram, sink.NewTelegram(sink.TelegramConfig{
			APIBase:       cfg.Channels.Telegram.APIBase,
			BotToken:      cfg.Channels.Telegram.BotToken,
			RatePerSecond: cfg.Channels.Telegram.RatePerSecond,
			Logger:        logger,
		}))
	}

	srv := server.New(server.Config{
		Server:    cfg.Server,
		Channels:  cfg.Channels,
		Metrics:   cfg.Metrics,
		AgentWait: time.Duration(cfg.Agent.TimeoutSeconds)*time.Second + time.Minute,
		Logger:    logger,
	}, orch)

	return srv.Start(ctx)
}

func verifyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify [text]",
		Short: "Run a one-off fact check through the verification agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				logger.Warn("config not found, using defaults", "err", err)
				cfg = config.Defaults()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			agent := agentclient.New(agentConfig(cfg, logger))

			verdict, err := agent.Verify(ctx, &domain.VerifyRequest{
				Text:    args[0],
				UserID:  "cli",
				Channel: domain.ChannelExtension,
			})
			if err != nil {
				return err
			}

			if asJSON {
				data, _ := json.MarshalIndent(verdict, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			fmt.Println(verdict.FormattedText)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw verdict as JSON")
	return cmd
}

// agentConfig maps the loaded config onto the agent client, including the
// retry policy. Every entry point builds the client through this so the
// CLI and the server honor the same retry discipline.
func agentConfig(cfg *config.Config, logger *slog.Logger) agentclient.Config {
	return agentclient.Config{
		BaseURL: cfg.Agent.BaseURL,
		AppName: cfg.Agent.AppName,
		Token:   cfg.Agent.Token,
		Timeout: time.Duration(cfg.Agent.TimeoutSeconds) * time.Second,
		Retry: agentclient.RetryPolicy{
			MaxAttempts: cfg.Agent.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Agent.BaseDelayMS) * time.Millisecond,
			MaxDelay:    30 * time.Second,
		},
		Logger: logger,
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
