package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/quantpro/config"
	"github.com/alejandrodnm/quantpro/internal/adapters/notify"
	"github.com/alejandrodnm/quantpro/internal/adapters/snapshot"
	"github.com/alejandrodnm/quantpro/internal/adapters/storage"
	"github.com/alejandrodnm/quantpro/internal/application/report"
	"github.com/alejandrodnm/quantpro/internal/ports"
	"github.com/alejandrodnm/quantpro/internal/tracing"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	snapshotFlag := flag.String("snapshot", "", "snapshot file or URL (overrides config)")
	dryRun := flag.Bool("dry-run", false, "console only: no telegram, no storage")
	table := flag.Bool("table", true, "print full tables (false: compact 1-line)")
	serve := flag.Bool("serve", false, "start the replay HTTP server")
	buildCSV := flag.String("build", "", "bake a snapshot from a raw closes CSV")
	history := flag.Int("history", 0, "print the last N stored runs")
	journal := flag.String("journal", "", "export the full trade journal of one instrument")
	out := flag.String("out", "", "output path for -build and -journal")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *snapshotFlag != "" {
		cfg.Snapshot.Path, cfg.Snapshot.URL = *snapshotFlag, ""
		if isURL(*snapshotFlag) {
			cfg.Snapshot.Path, cfg.Snapshot.URL = "", *snapshotFlag
		}
	}
	setupLogger(cfg.Log)

	if err := tracing.Init(tracing.Config{Enabled: cfg.Tracing.Enabled, Pretty: cfg.Tracing.Pretty}); err != nil {
		slog.Error("failed to init tracing", "err", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			slog.Warn("tracing shutdown", "err", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("quantpro starting",
		"config", *configPath,
		"snapshot", snapshotLocation(cfg.Snapshot),
		"threshold", cfg.Params().Threshold,
		"dry_run", *dryRun,
	)

	var runErr error
	switch {
	case *buildCSV != "":
		runErr = runBuild(cfg, *buildCSV, *out)
	case *history > 0:
		runErr = runHistory(ctx, cfg, *history)
	case *journal != "":
		runErr = runJournal(ctx, cfg, *journal, *out)
	case *serve:
		runErr = runServe(ctx, cfg)
	default:
		runErr = runReport(ctx, cfg, *dryRun, *table)
	}
	if runErr != nil {
		slog.Error("quantpro exited with error", "err", runErr)
		os.Exit(1)
	}
	slog.Info("quantpro stopped cleanly")
}

// runReport es el modo por defecto: reporte batch por consola, Telegram y SQLite.
func runReport(ctx context.Context, cfg *config.Config, dryRun, table bool) error {
	notifiers := []ports.Notifier{notify.NewConsole(table)}
	if !dryRun && cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		notifiers = append(notifiers, notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.DashboardURL))
	}

	var store ports.Storage
	if !dryRun {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	svc := report.New(report.Config{
		Instruments: cfg.Strategy.Instruments,
		Workers:     cfg.Strategy.Workers,
		DryRun:      dryRun,
	}, cfg.Params(), newSource(cfg.Snapshot), store, notifiers...)

	_, err := svc.Run(ctx)
	return err
}

func newSource(cfg config.SnapshotConfig) ports.SnapshotProvider {
	if cfg.URL != "" {
		return snapshot.NewHTTPSource(cfg.URL)
	}
	return snapshot.NewFileSource(cfg.Path)
}

func snapshotLocation(cfg config.SnapshotConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return cfg.Path
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
