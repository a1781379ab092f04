// quickedge trades short-lived BTC prediction markets off a streaming
// spot feed. It runs in paper mode by default and against the real
// venue with -mode live (or mode: live in the config).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dnieto/quickedge/config"
	"github.com/dnieto/quickedge/internal/adapters/binance"
	"github.com/dnieto/quickedge/internal/adapters/notify"
	"github.com/dnieto/quickedge/internal/adapters/polymarket"
	"github.com/dnieto/quickedge/internal/adapters/storage"
	"github.com/dnieto/quickedge/internal/application/bot"
	"github.com/dnieto/quickedge/internal/application/edge"
	"github.com/dnieto/quickedge/internal/application/engine"
	"github.com/dnieto/quickedge/internal/application/engine/live"
	"github.com/dnieto/quickedge/internal/application/engine/paper"
	"github.com/dnieto/quickedge/internal/application/survival"
	"github.com/dnieto/quickedge/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML config")
	mode := flag.String("mode", "", "override run mode: paper or live")
	verbose := flag.Bool("verbose", false, "force debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	tradeLog, err := storage.NewSQLiteLog(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer tradeLog.Close()
	if err := tradeLog.ApplySchema(ctx); err != nil {
		return err
	}

	feed := binance.New(cfg.Feed.URL, cfg.Feed.Symbol, cfg.MaxFeedLatency(), cfg.Feed.BufferSize)
	venue := polymarket.NewClient(cfg.Venue.BaseURL, cfg.Venue.APIKey, cfg.CatalogRefresh())

	brain := survival.NewBrain(survival.Config{
		InitialCapital:     cfg.Trading.InitialCapital,
		MinEdgePct:         cfg.Trading.MinEdgePct,
		MaxBetPct:          cfg.Trading.MaxBetPct,
		KellyFraction:      cfg.Trading.KellyFraction,
		MaxPositions:       cfg.Trading.MaxConcurrentPositions,
		LossStreak:         cfg.Survival.LossStreak,
		WinStreak:          cfg.Survival.WinStreak,
		ThriveWinRate:      cfg.Survival.ThriveWinRate,
		ThresholdStep:      cfg.Survival.ThresholdStep,
		MaxKellyMultiplier: cfg.Survival.MaxKellyMultiplier,
		HistorySize:        cfg.Survival.HistorySize,
	})

	notifier := buildNotifier(cfg)
	detector := edge.NewDetector(cfg.Trading.ImpliedScale, brain)
	book := engine.NewBook()

	var (
		eng    bot.Submitter
		oracle ports.SettlementOracle
	)
	switch cfg.Mode {
	case "live":
		oracle = venue
		eng = live.NewEngine(feed, venue, tradeLog, brain, notifier, book, cfg.MaxFeedLatency())
	default:
		oracle = paper.NewFallbackOracle(venue)
		eng = paper.NewEngine(feed, tradeLog, brain, notifier, book, cfg.MaxFeedLatency())
	}

	resolver := engine.NewResolver(tradeLog, oracle, brain, notifier, book)

	b := bot.New(
		bot.Config{
			Mode:            cfg.Mode,
			CatalogRefresh:  cfg.CatalogRefresh(),
			ResolveInterval: cfg.ResolveInterval(),
			AlertInterval:   cfg.AlertInterval(),
			RestoreOutcomes: cfg.Survival.HistorySize,
		},
		feed, venue, detector, brain, eng, resolver, tradeLog, notifier, book,
	)
	return b.Run(ctx)
}

func buildNotifier(cfg *config.Config) ports.Notifier {
	sinks := []ports.Notifier{notify.NewConsole()}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		sinks = append(sinks, notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.AlertInterval()))
		slog.Info("telegram alerts enabled")
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return notify.NewMulti(sinks...)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}
