// Package paths resolves where insighthub keeps its configuration and its
// warehouse file.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "insighthub"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else is configured.
const DefaultDataDirName = ".insighthub"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "INSIGHTHUB_CONFIG_DIR"
	EnvDataDir   = "INSIGHTHUB_DATA_DIR"
)

// File and directory names inside the resolved directories.
const (
	ConfigFileName = "config.yaml"
	EnvFileName    = ".env"
	DropDirName    = "inbox"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific configuration directory:
// $XDG_CONFIG_HOME/insighthub or ~/.config/insighthub on Linux, the user
// config directory elsewhere.
func DefaultConfigDir() (string, error) {
	if platformDir.goos == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns flag, else $INSIGHTHUB_CONFIG_DIR, else
// DefaultConfigDir, as an absolute path.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns flag, else $INSIGHTHUB_DATA_DIR, else the data_dir
// from config.yaml, else ./.insighthub, as an absolute path.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, os.Getenv(EnvDataDir), configValue} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// Layout is a resolved pair of directories.
type Layout struct {
	ConfigDir string
	DataDir   string
}

// ConfigFile is the path of config.yaml.
func (l Layout) ConfigFile() string { return filepath.Join(l.ConfigDir, ConfigFileName) }

// EnvFile is the optional dotenv file next to config.yaml.
func (l Layout) EnvFile() string { return filepath.Join(l.ConfigDir, EnvFileName) }

// DropDir is the default folder watched for dropped import files.
func (l Layout) DropDir() string { return filepath.Join(l.DataDir, DropDirName) }

// Ensure creates both directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.ConfigDir, l.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
