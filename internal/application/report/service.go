package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alejandrodnm/quantpro/internal/domain"
	"github.com/alejandrodnm/quantpro/internal/ports"
	"github.com/alejandrodnm/quantpro/internal/tracing"
)

// ErrNothingReported indica que ningún instrumento pudo procesarse.
var ErrNothingReported = errors.New("no instrument could be reported")

// Config contiene la configuración del reporte batch.
type Config struct {
	// Instruments a reportar, en orden. Vacío = los del snapshot con nombre configurado.
	Instruments []string
	Workers     int // goroutines para el pipeline por instrumento (0 = NumCPU)
	DryRun      bool
}

// Service construye el reporte de señales y lo publica.
type Service struct {
	cfg       Config
	params    domain.Params
	source    ports.SnapshotProvider
	storage   ports.Storage
	notifiers []ports.Notifier
	now       func() time.Time
}

// New crea un Service con todas las dependencias inyectadas. storage puede ser nil.
func New(
	cfg Config,
	params domain.Params,
	source ports.SnapshotProvider,
	storage ports.Storage,
	notifiers ...ports.Notifier,
) *Service {
	return &Service{
		cfg:       cfg,
		params:    params,
		source:    source,
		storage:   storage,
		notifiers: notifiers,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (años objetivo y GeneratedAt). Usado en tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Build carga el snapshot y ejecuta el pipeline para cada instrumento.
// Los instrumentos que fallan quedan en Report.Skipped; si fallan todos
// devuelve ErrNothingReported.
func (s *Service) Build(ctx context.Context) (domain.Report, error) {
	ctx, span := tracing.StartSpan(ctx, "report.build")
	defer span.End()

	snap, err := s.source.Load(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("report.Build: load snapshot: %w", err)
	}

	now := s.now()
	keys := s.instruments(snap)
	r := domain.Report{
		GeneratedAt:  now,
		Threshold:    s.params.Threshold,
		LiveMomentum: snap.Live.Momentum(),
		LiveVIX:      snap.Live.VIX,
	}

	results := buildConcurrent(ctx, snap, keys, s.params, domain.TargetYears(now, s.params.YearsBack), s.cfg.Workers)
	var errs []error
	for _, res := range results {
		if res.err != nil {
			slog.Warn("instrument skipped", "instrument", res.key, "err", res.err)
			r.Skipped = append(r.Skipped, domain.InstrumentFailure{
				Key:  res.key,
				Code: domain.ErrorCode(res.err),
				Err:  res.err.Error(),
			})
			errs = append(errs, res.err)
			continue
		}
		r.Instruments = append(r.Instruments, res.report)
	}
	span.SetAttributes(
		attribute.Int("instruments", len(r.Instruments)),
		attribute.Int("skipped", len(r.Skipped)),
	)

	if len(r.Instruments) == 0 {
		if len(errs) == 0 {
			return r, fmt.Errorf("report.Build: %w: no instruments selected", ErrNothingReported)
		}
		return r, fmt.Errorf("report.Build: %w: %w", ErrNothingReported, errors.Join(errs...))
	}
	return r, nil
}

// Run construye el reporte, lo notifica y lo persiste.
// Errores de notificación o storage se registran pero no abortan.
func (s *Service) Run(ctx context.Context) (domain.Report, error) {
	start := time.Now()

	r, err := s.Build(ctx)
	if err != nil {
		return r, err
	}

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, r); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	if s.storage != nil && !s.cfg.DryRun {
		id, err := s.storage.SaveReport(ctx, r)
		if err != nil {
			slog.Warn("storage error", "err", err)
		} else {
			slog.Debug("run saved", "run_id", id)
		}
	}

	slog.Info("report complete",
		"instruments", len(r.Instruments),
		"skipped", len(r.Skipped),
		"momentum", fmt.Sprintf("%.2f", r.LiveMomentum),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return r, nil
}

// instruments devuelve la lista configurada o, si está vacía, las keys del
// snapshot que tienen nombre configurado.
func (s *Service) instruments(snap domain.Snapshot) []string {
	if len(s.cfg.Instruments) > 0 {
		return s.cfg.Instruments
	}
	var keys []string
	for _, k := range snap.Keys() {
		if s.params.HasDisplayName(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// buildInstrument ejecuta el pipeline para un instrumento.
func buildInstrument(ctx context.Context, snap domain.Snapshot, key string, p domain.Params, years []int) (domain.InstrumentReport, error) {
	_, span := tracing.StartSpan(ctx, "report.instrument", attribute.String("instrument", key))
	defer span.End()

	series, err := snap.Series(key)
	if err != nil {
		return domain.InstrumentReport{}, err
	}

	bt := domain.Run(series, p, domain.Window{})
	span.SetAttributes(attribute.Int("trades", bt.Summary.Trades), attribute.String("signal", bt.Signal.String()))

	return domain.InstrumentReport{
		Key:         key,
		Name:        p.DisplayName(key),
		Signal:      bt.Signal,
		Entry:       series.Entry,
		Momentum:    bt.Live.Momentum,
		Volatility:  bt.Live.Volatility,
		LiveDate:    bt.Live.Date,
		Recent:      domain.RecentTrades(bt.Journal.Trades, p.RecentTrades),
		Yearly:      domain.AggregateYears(bt.Journal.Trades, years),
		Summary:     bt.Summary,
		FinalEquity: bt.Journal.FinalEquity,
	}, nil
}
