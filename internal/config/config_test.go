package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "accounts.db", cfg.DatabaseFile)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.ValidityMaxAge)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestJSONConfig_Unmarshal(t *testing.T) {
	raw := `{
		"data_dir": "/tmp/rbxmgr",
		"request_timeout": "10s",
		"validity_max_age": "48h",
		"log_level": "debug"
	}`

	var jc JSONConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &jc))

	assert.Equal(t, "/tmp/rbxmgr", jc.DataDir)
	assert.Equal(t, 10*time.Second, jc.RequestTimeout.Duration)
	assert.Equal(t, 48*time.Hour, jc.ValidityMaxAge.Duration)
	assert.Equal(t, "debug", jc.LogLevel)
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{DataDir: "/data", DatabaseFile: "a.db"}
	assert.Equal(t, "/data/a.db", cfg.DatabasePath())
}
