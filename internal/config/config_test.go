package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, int64(16<<20), cfg.Upload.MaxSizeBytes)
	assert.False(t, cfg.Sheets.Enabled)
	assert.False(t, cfg.Admin.Enabled())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"no read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"no origins", func(c *Config) { c.Security.AllowedOrigins = nil }},
		{"zero upload limit", func(c *Config) { c.Upload.MaxSizeBytes = 0 }},
		{"sheets without spreadsheet", func(c *Config) { c.Sheets.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}

func TestMergeConfigsEnvWins(t *testing.T) {
	file := *Default()
	file.Server.Port = 9000
	file.Admin.PasswordHash = "$2a$10$filehash"

	env := Config{}
	env.Server.Port = 8081
	env.Server.ReadTimeout = 10 * time.Second

	merged := mergeConfigs(file, env)
	assert.Equal(t, 8081, merged.Server.Port)
	assert.Equal(t, 10*time.Second, merged.Server.ReadTimeout)
	assert.Equal(t, "$2a$10$filehash", merged.Admin.PasswordHash, "file fills gaps env left")
}

func TestAdminConfigEnabled(t *testing.T) {
	assert.False(t, AdminConfig{}.Enabled())
	assert.True(t, AdminConfig{PasswordHash: "$2a$10$x"}.Enabled())
}
