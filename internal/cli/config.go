package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/insighthub/internal/logging"
	"github.com/mesh-intelligence/insighthub/internal/paths"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

const envPrefix = "INSIGHTHUB"

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir,omitempty"`
	DBFile       string `yaml:"db_file"`
	LogMode      string `yaml:"log_mode,omitempty"`
	HTTPAddr     string `yaml:"http_addr"`
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTL     string `yaml:"token_ttl"`
	LookbackDays int    `yaml:"lookback_days"`
	TrendPeriods int    `yaml:"trend_periods"`
}

// longRunning commands log at debug level when no log mode is configured;
// the rest stay quiet.
var longRunning = map[string]bool{"serve": true, "watch": true}

// loadConfig resolves the directories and reads config.yaml, overlaid by
// INSIGHTHUB_* environment variables. A .env file in the working directory or
// the config directory is loaded first; it never overrides variables that are
// already set. A missing config.yaml is not an error.
func (a *app) loadConfig(cmd *cobra.Command) error {
	if err := loadDotEnv(paths.EnvFileName); err != nil {
		return err
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.layout.ConfigDir = configDir
	if err := loadDotEnv(a.layout.EnvFile()); err != nil {
		return err
	}

	v := viper.New()
	defaults := types.Config{}.WithDefaults()
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("data_dir", "")
	v.SetDefault("db_file", defaults.DBFile)
	v.SetDefault("log_mode", "")
	v.SetDefault("http_addr", defaults.HTTPAddr)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", defaults.TokenTTL)
	v.SetDefault("lookback_days", defaults.LookbackDays)
	v.SetDefault("trend_periods", defaults.TrendPeriods)
	v.SetDefault("terminal_statuses", defaults.TerminalStatuses)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(a.layout.ConfigFile()); err == nil {
		v.SetConfigFile(a.layout.ConfigFile())
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, v.GetString("data_dir")); err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return usageError{fmt.Errorf("config %s: %w", a.layout.ConfigFile(), err)}
	}
	a.layout.DataDir = cfg.DataDir
	a.cfg = cfg

	mode := cfg.LogMode
	if mode == "" {
		mode = "nop"
		if longRunning[cmd.Name()] {
			mode = "dev"
		}
	}
	if a.log, err = logging.New(mode); err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	return nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// writeConfigIfMissing creates config.yaml with defaults and a fresh token
// signing secret. It reports whether the file was written.
func writeConfigIfMissing(path string, cfg types.Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	cfg = cfg.WithDefaults()
	out := configFile{
		Backend:      cfg.Backend,
		DBFile:       cfg.DBFile,
		LogMode:      cfg.LogMode,
		HTTPAddr:     cfg.HTTPAddr,
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL.String(),
		LookbackDays: cfg.LookbackDays,
		TrendPeriods: cfg.TrendPeriods,
	}
	if out.JWTSecret == "" {
		out.JWTSecret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := "# insighthub configuration. INSIGHTHUB_* environment variables override these values.\n"
	return true, os.WriteFile(path, append([]byte(header), data...), 0o600)
}
