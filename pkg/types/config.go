package types

import (
	"errors"
	"time"
)

// Config holds backend selection and the analytics parameters used by
// Warehouse.Attach and the services built on top of it.
type Config struct {
	Backend          string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir          string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	DBFile           string        `json:"db_file" yaml:"db_file" mapstructure:"db_file"`
	LogMode          string        `json:"log_mode" yaml:"log_mode" mapstructure:"log_mode"`
	HTTPAddr         string        `json:"http_addr" yaml:"http_addr" mapstructure:"http_addr"`
	JWTSecret        string        `json:"jwt_secret" yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL         time.Duration `json:"token_ttl" yaml:"token_ttl" mapstructure:"token_ttl"`
	LookbackDays     int           `json:"lookback_days" yaml:"lookback_days" mapstructure:"lookback_days"`
	TrendPeriods     int           `json:"trend_periods" yaml:"trend_periods" mapstructure:"trend_periods"`
	TerminalStatuses []string      `json:"terminal_statuses" yaml:"terminal_statuses" mapstructure:"terminal_statuses"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Defaults applied by WithDefaults.
const (
	DefaultDBFile       = "insighthub.db"
	DefaultHTTPAddr     = ":8080"
	DefaultTokenTTL     = 12 * time.Hour
	DefaultLookbackDays = 7
	DefaultTrendPeriods = 7
)

// Log modes accepted by Validate. An empty mode means dev.
var knownLogModes = map[string]bool{
	"":     true,
	"dev":  true,
	"prod": true,
	"nop":  true,
}

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrLogModeUnknown      = errors.New("unknown log mode")
	ErrLookbackInvalid     = errors.New("lookback days must not be negative")
	ErrTrendPeriodsInvalid = errors.New("trend periods must not be negative")
	ErrTokenTTLInvalid     = errors.New("token ttl must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownLogModes[c.LogMode] {
		return ErrLogModeUnknown
	}
	if c.LookbackDays < 0 {
		return ErrLookbackInvalid
	}
	if c.TrendPeriods < 0 {
		return ErrTrendPeriodsInvalid
	}
	if c.TokenTTL < 0 {
		return ErrTokenTTLInvalid
	}
	return nil
}

// WithDefaults returns a copy of c with zero-valued fields filled in.
func (c Config) WithDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.DBFile == "" {
		c.DBFile = DefaultDBFile
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = DefaultLookbackDays
	}
	if c.TrendPeriods == 0 {
		c.TrendPeriods = DefaultTrendPeriods
	}
	if len(c.TerminalStatuses) == 0 {
		for _, s := range DefaultTerminalStatuses {
			c.TerminalStatuses = append(c.TerminalStatuses, string(s))
		}
	}
	return c
}

// TerminalSet returns the configured terminal statuses as a set.
func (c Config) TerminalSet() StatusSet {
	if len(c.TerminalStatuses) == 0 {
		return NewStatusSet(string(StatusDone), string(StatusCancelled), string(StatusClosed))
	}
	return NewStatusSet(c.TerminalStatuses...)
}
