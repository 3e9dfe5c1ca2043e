package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/gatehook/internal/bridge"
	"github.com/nextlevelbuilder/gatehook/internal/channelinfo"
	"github.com/nextlevelbuilder/gatehook/internal/config"
	"github.com/nextlevelbuilder/gatehook/internal/diag"
	"github.com/nextlevelbuilder/gatehook/internal/executor"
	"github.com/nextlevelbuilder/gatehook/internal/tracing"
	"github.com/nextlevelbuilder/gatehook/internal/webhook"
)

func runBridge() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env")
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	policies := cfg.FilterPolicies()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flushTraces, err := tracing.Setup(ctx, cfg.Trace, Version)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		slog.Error("failed to create discord session", "error", err)
		os.Exit(1)
	}
	session.Identify.Intents = bridge.Intents(policies)

	metrics := diag.NewMetrics()
	channels := channelinfo.NewStateProvider(session, cfg.RestLookupRPS, metrics)
	sender := webhook.NewSender(cfg, Version, metrics)
	br := bridge.New(ctx, session, policies, sender, channels, executor.New(session, channels, metrics), metrics)
	br.Register()

	if err := session.Open(); err != nil {
		slog.Error("failed to connect to discord gateway", "error", err)
		os.Exit(1)
	}

	slog.Info("gatehook starting",
		"version", Version,
		"endpoint", cfg.Endpoint,
		"events", policies.EnabledKinds(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		diagSrv := diag.NewServer(cfg.MetricsAddr, metrics)
		g.Go(func() error {
			return diagSrv.Start(gctx)
		})
		slog.Info("diagnostics server enabled", "addr", cfg.MetricsAddr)
	}
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			slog.Info("graceful shutdown initiated", "signal", sig)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	if err := session.Close(); err != nil {
		slog.Warn("gateway close failed", "error", err)
	}

	// Flush any buffered spans before exiting.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := flushTraces(flushCtx); err != nil {
		slog.Warn("trace flush failed", "error", err)
	}

	slog.Info("gatehook stopped")
}
