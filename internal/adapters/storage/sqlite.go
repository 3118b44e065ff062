package storage

// sqlite.go: historial de ejecuciones del reporte.
//
//   - `runs`: una fila por ejecución batch (umbral, momentum del nowcast, instrumentos saltados).
//   - `signals`: una fila por instrumento reportado en la ejecución.
//   - `trades`: los últimos trades mostrados de cada instrumento.
//   - Prune automático al arrancar: ejecuciones de más de un año.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    generated_at  TEXT    NOT NULL,
    threshold     REAL    NOT NULL DEFAULT 0,
    live_momentum REAL    NOT NULL DEFAULT 0,
    skipped       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS signals (
    run_id     TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    instrument TEXT    NOT NULL,
    signal     TEXT    NOT NULL,
    entry      REAL    NOT NULL DEFAULT 0,
    momentum   REAL    NOT NULL DEFAULT 0,
    total_pnl  REAL    NOT NULL DEFAULT 0,
    trades     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, instrument)
);

CREATE TABLE IF NOT EXISTS trades (
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    instrument  TEXT NOT NULL,
    trade_date  TEXT NOT NULL,
    direction   TEXT NOT NULL,
    entry_price REAL NOT NULL,
    exit_price  REAL NOT NULL,
    points      REAL NOT NULL,
    pnl         REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_at   ON runs(generated_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_rn ON trades(run_id, instrument);
`

const (
	retentionRuns = 365 * 24 * time.Hour
	timeLayout    = "2006-01-02T15:04:05.000000000Z07:00" // ancho fijo: ordena como texto
	dateLayout    = "2006-01-02"
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia ejecuciones antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if n, err := s.pruneOld(context.Background(), time.Now()); err != nil {
		slog.Warn("prune old runs failed", "err", err)
	} else if n > 0 {
		slog.Debug("pruned old runs", "count", n)
	}
	return s, nil
}

// SaveReport persiste la ejecución completa en una transacción.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report domain.Report) (string, error) {
	rec := report.Record(uuid.New().String())
	generated := rec.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("storage.SaveReport: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, generated_at, threshold, live_momentum, skipped) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, generated.UTC().Format(timeLayout), rec.Threshold, rec.LiveMomentum, rec.Skipped,
	); err != nil {
		return "", fmt.Errorf("storage.SaveReport: insert run: %w", err)
	}

	sigStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (run_id, instrument, signal, entry, momentum, total_pnl, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("storage.SaveReport: prepare signals: %w", err)
	}
	defer sigStmt.Close()

	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (run_id, instrument, trade_date, direction, entry_price, exit_price, points, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("storage.SaveReport: prepare trades: %w", err)
	}
	defer tradeStmt.Close()

	for _, sig := range rec.Signals {
		if _, err := sigStmt.ExecContext(ctx,
			rec.ID, sig.Instrument, sig.Signal.String(), sig.Entry, sig.Momentum, sig.TotalPnL, sig.Trades,
		); err != nil {
			return "", fmt.Errorf("storage.SaveReport: insert signal %s: %w", sig.Instrument, err)
		}
		for _, t := range sig.Recent {
			if _, err := tradeStmt.ExecContext(ctx,
				rec.ID, sig.Instrument, t.Date.Format(dateLayout), string(t.Direction),
				t.EntryPrice, t.ExitPrice, t.Points, t.PnL,
			); err != nil {
				return "", fmt.Errorf("storage.SaveReport: insert trade %s: %w", sig.Instrument, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage.SaveReport: commit: %w", err)
	}
	return rec.ID, nil
}

// GetRuns devuelve las últimas limit ejecuciones, la más reciente primero,
// con sus señales y trades.
func (s *SQLiteStorage) GetRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	runs, err := s.queryRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	// Con una sola conexión no se puede anidar queries: primero runs, luego detalle.
	for i := range runs {
		sigs, err := s.querySignals(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Signals = sigs
	}
	return runs, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStorage) queryRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generated_at, threshold, live_momentum, skipped
		FROM runs
		ORDER BY generated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var generated string
		if err := rows.Scan(&r.ID, &generated, &r.Threshold, &r.LiveMomentum, &r.Skipped); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan run: %w", err)
		}
		if r.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) querySignals(ctx context.Context, runID string) ([]domain.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instrument, signal, entry, momentum, total_pnl, trades
		FROM signals
		WHERE run_id = ?
		ORDER BY instrument`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query signals: %w", err)
	}

	var sigs []domain.SignalRecord
	for rows.Next() {
		var sig domain.SignalRecord
		var signal string
		if err := rows.Scan(&sig.Instrument, &signal, &sig.Entry, &sig.Momentum, &sig.TotalPnL, &sig.Trades); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage.GetRuns: scan signal: %w", err)
		}
		sig.Signal = domain.ParseSignal(signal)
		sigs = append(sigs, sig)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: signals: %w", err)
	}

	for i := range sigs {
		if sigs[i].Recent, err = s.queryTrades(ctx, runID, sigs[i].Instrument); err != nil {
			return nil, err
		}
	}
	return sigs, nil
}

func (s *SQLiteStorage) queryTrades(ctx context.Context, runID, instrument string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_date, direction, entry_price, exit_price, points, pnl
		FROM trades
		WHERE run_id = ? AND instrument = ?
		ORDER BY trade_date DESC`, runID, instrument)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var date, dir string
		if err := rows.Scan(&date, &dir, &t.EntryPrice, &t.ExitPrice, &t.Points, &t.PnL); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan trade: %w", err)
		}
		if t.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: trade date %q: %w", date, err)
		}
		t.Direction = domain.Direction(dir)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// pruneOld elimina ejecuciones de más de un año respecto a now y devuelve
// cuántas borró.
func (s *SQLiteStorage) pruneOld(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().Add(-retentionRuns).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE generated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage.pruneOld: %w", err)
	}
	return res.RowsAffected()
}
