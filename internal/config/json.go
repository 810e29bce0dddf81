package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rbxmgr/rbxmgr/internal/flagx"
	"github.com/rbxmgr/rbxmgr/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config.
type JSONConfig struct {
	DataDir        string         `json:"data_dir"`
	DatabaseFile   string         `json:"database_file"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	ValidityMaxAge timex.Duration `json:"validity_max_age"`
	LogLevel       string         `json:"log_level"`
}

// parseJSON overlays Config with values loaded from a JSON file found via
// the -c/-config flags. Missing file path means no JSON layer. Read or
// unmarshal errors panic; load order is defaults -> parseJSON -> parseFlags,
// where later stages override earlier ones.
func parseJSON(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JSONConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.DatabaseFile != "" {
		cfg.DatabaseFile = jc.DatabaseFile
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.ValidityMaxAge.Duration != 0 {
		cfg.ValidityMaxAge = time.Duration(jc.ValidityMaxAge.Duration)
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
