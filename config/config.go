package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/quantpro/internal/adapters/snapshot"
	"github.com/alejandrodnm/quantpro/internal/domain"
)

// Config es la configuración completa de quantpro.
type Config struct {
	Strategy StrategyConfig `yaml:"strategy"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Build    BuildConfig    `yaml:"build"`
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Replay   ReplayConfig   `yaml:"replay"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// StrategyConfig son los parámetros del clasificador y del simulador.
type StrategyConfig struct {
	Threshold       *float64           `yaml:"threshold"` // % de momentum; nil = 0.30
	LongVolCap      float64            `yaml:"long_vol_cap"`
	ShortVolCap     float64            `yaml:"short_vol_cap"`
	TransactionCost *float64           `yaml:"transaction_cost"` // puntos; nil = 2
	StartingCapital float64            `yaml:"starting_capital"`
	Multipliers     map[string]float64 `yaml:"multipliers"`
	DisplayNames    map[string]string  `yaml:"display_names"`
	Instruments     []string           `yaml:"instruments"` // vacío = los que tienen display name
	RecentTrades    *int               `yaml:"recent_trades"` // nil = 2
	YearsBack       *int               `yaml:"years_back"`    // nil = 2; 0 = solo el año actual
	Workers         int                `yaml:"workers"`
}

// SnapshotConfig indica de dónde se carga el snapshot. URL tiene prioridad.
// JSON o dashboard HTML se detectan por contenido.
type SnapshotConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// BuildConfig describe el CSV crudo para -build.
type BuildConfig struct {
	DateColumn  string            `yaml:"date_column"`
	DateFormat  string            `yaml:"date_format"`
	Predictors  []PredictorConfig `yaml:"predictors"` // en orden: SP, NK, futuro
	Volatility  string            `yaml:"volatility"`
	Instruments []string          `yaml:"instruments"`
}

// PredictorConfig es una columna de predictor y su desfase en días.
type PredictorConfig struct {
	Column string `yaml:"column"`
	Lag    int    `yaml:"lag"`
}

// TelegramConfig controla el envío del reporte. Sin token no se envía.
type TelegramConfig struct {
	Token        string `yaml:"token"`
	ChatID       string `yaml:"chat_id"`
	DashboardURL string `yaml:"dashboard_url"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// ReplayConfig controla el servidor de replay.
type ReplayConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Release        bool     `yaml:"release"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// TracingConfig activa el exporter de trazas a stdout.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	Pretty  bool `yaml:"pretty"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Parse interpreta el YAML, aplica overrides de entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Params().Validate(); err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	return &cfg, nil
}

// Params convierte la sección strategy en los parámetros inmutables del pipeline.
func (c *Config) Params() domain.Params {
	s := c.Strategy
	p := domain.NewParams(
		*s.Threshold,
		domain.VolatilityCaps{LongCap: s.LongVolCap, ShortCap: s.ShortVolCap},
		*s.TransactionCost,
		s.StartingCapital,
		s.Multipliers,
		s.DisplayNames,
	)
	p.RecentTrades = *s.RecentTrades
	p.YearsBack = *s.YearsBack
	return p
}

// Layout convierte la sección build en el layout del CSV crudo. Los
// predictores se interpretan en orden SP, NK, futuro para el nowcast.
func (c *Config) Layout() snapshot.Layout {
	l := snapshot.Layout{
		DateColumn:  c.Build.DateColumn,
		DateFormat:  c.Build.DateFormat,
		Volatility:  c.Build.Volatility,
		Instruments: c.Build.Instruments,
		SPIndex:     0,
		NKIndex:     min(1, len(c.Build.Predictors)-1),
		FutIndex:    min(2, len(c.Build.Predictors)-1),
	}
	for _, p := range c.Build.Predictors {
		l.Predictors = append(l.Predictors, snapshot.PredictorColumn{Column: p.Column, Lag: p.Lag})
	}
	return l
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("QUANTPRO_SNAPSHOT"); v != "" {
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			cfg.Snapshot.URL, cfg.Snapshot.Path = v, ""
		} else {
			cfg.Snapshot.Path, cfg.Snapshot.URL = v, ""
		}
	}
	if v := os.Getenv("QUANTPRO_ADDR"); v != "" {
		cfg.Replay.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	s := &cfg.Strategy
	if s.Threshold == nil {
		v := domain.DefaultThreshold
		s.Threshold = &v
	}
	if s.LongVolCap <= 0 {
		s.LongVolCap = domain.DefaultLongCap
	}
	if s.ShortVolCap <= 0 {
		s.ShortVolCap = domain.DefaultShortCap
	}
	if s.TransactionCost == nil {
		v := domain.DefaultTransactionCost
		s.TransactionCost = &v
	}
	if s.StartingCapital <= 0 {
		s.StartingCapital = domain.DefaultStartingCapital
	}
	def := domain.DefaultParams()
	if s.Multipliers == nil {
		s.Multipliers = def.Multipliers()
	}
	if s.DisplayNames == nil {
		s.DisplayNames = def.DisplayNames()
	}
	if s.RecentTrades == nil {
		v := def.RecentTrades
		s.RecentTrades = &v
	}
	if s.YearsBack == nil {
		v := def.YearsBack
		s.YearsBack = &v
	}

	if cfg.Snapshot.Path == "" && cfg.Snapshot.URL == "" {
		cfg.Snapshot.Path = "data/snapshot.json"
	}

	layout := snapshot.DefaultLayout()
	if cfg.Build.DateColumn == "" {
		cfg.Build.DateColumn = layout.DateColumn
	}
	if cfg.Build.DateFormat == "" {
		cfg.Build.DateFormat = layout.DateFormat
	}
	if len(cfg.Build.Predictors) == 0 {
		for _, p := range layout.Predictors {
			cfg.Build.Predictors = append(cfg.Build.Predictors, PredictorConfig{Column: p.Column, Lag: p.Lag})
		}
	}
	if cfg.Build.Volatility == "" {
		cfg.Build.Volatility = layout.Volatility
	}
	if len(cfg.Build.Instruments) == 0 {
		cfg.Build.Instruments = layout.Instruments
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "quantpro.db"
	}
	if cfg.Replay.Addr == "" {
		cfg.Replay.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
