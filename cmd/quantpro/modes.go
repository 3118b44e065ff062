package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alejandrodnm/quantpro/config"
	"github.com/alejandrodnm/quantpro/internal/adapters/export"
	"github.com/alejandrodnm/quantpro/internal/adapters/httpapi"
	"github.com/alejandrodnm/quantpro/internal/adapters/notify"
	"github.com/alejandrodnm/quantpro/internal/adapters/snapshot"
	"github.com/alejandrodnm/quantpro/internal/adapters/storage"
	"github.com/alejandrodnm/quantpro/internal/application/replay"
	"github.com/alejandrodnm/quantpro/internal/domain"
)

// runServe carga el snapshot y sirve el replay hasta SIGINT/SIGTERM.
func runServe(ctx context.Context, cfg *config.Config) error {
	source := newSource(cfg.Snapshot)
	snap, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	sess, err := replay.NewSession(snap, cfg.Params())
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	h := httpapi.NewHandler(sess, source, cfg.Params())
	return httpapi.Serve(ctx, h, httpapi.Config{
		Addr:           cfg.Replay.Addr,
		AllowedOrigins: cfg.Replay.AllowedOrigins,
		Release:        cfg.Replay.Release,
	})
}

// runBuild genera el snapshot JSON a partir del CSV de cierres crudo.
func runBuild(cfg *config.Config, csvPath, out string) error {
	if out == "" {
		out = cfg.Snapshot.Path
	}
	if out == "" {
		return fmt.Errorf("build: -out is required when the snapshot is remote")
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	defer f.Close()

	snap, err := snapshot.BuildFromCSV(f, cfg.Layout())
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	var buf bytes.Buffer
	if err := snapshot.WriteJSON(&buf, snap); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	slog.Info("snapshot written", "path", out, "instruments", len(snap.Indices),
		"momentum", fmt.Sprintf("%.2f", snap.Live.Momentum()))
	return nil
}

// runHistory imprime las últimas n ejecuciones guardadas.
func runHistory(ctx context.Context, cfg *config.Config, n int) error {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.GetRuns(ctx, n)
	if err != nil {
		return err
	}
	notify.NewConsole(true).PrintHistory(runs)
	return nil
}

// runJournal exporta el journal completo de un instrumento a CSV
// (stdout si out está vacío).
func runJournal(ctx context.Context, cfg *config.Config, key, out string) error {
	snap, err := newSource(cfg.Snapshot).Load(ctx)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	series, err := snap.Series(key)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	p := cfg.Params()
	bt := domain.Run(series, p, domain.Window{})
	if out == "" {
		return export.WriteJournalCSV(os.Stdout, bt.Journal, p.StartingCapital)
	}
	if err := export.WriteJournalFile(out, bt.Journal, p.StartingCapital); err != nil {
		return err
	}
	slog.Info("journal exported", "instrument", key, "trades", len(bt.Journal.Trades), "path", out)
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
