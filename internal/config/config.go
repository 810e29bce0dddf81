package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the account manager CLI.
//
// Fields:
//   - DataDir: directory for the local database and browser profiles.
//   - DatabaseFile: name of the SQLite file inside DataDir.
//   - RequestTimeout: per-request timeout for remote service calls.
//   - ValidityMaxAge: how old a successful check may get before an account
//     counts as stale and is re-checked on startup.
//   - LogLevel: minimum level for the structured logger.
type Config struct {
	DataDir        string
	DatabaseFile   string
	RequestTimeout time.Duration
	ValidityMaxAge time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.DatabaseFile = "accounts.db"
	c.RequestTimeout = 30 * time.Second
	c.ValidityMaxAge = 24 * time.Hour
	c.LogLevel = "info"
}

// DatabasePath is the full path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "rbxmgr")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
