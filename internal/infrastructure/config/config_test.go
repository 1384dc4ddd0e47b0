package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Investigation.MaxEntities)
	assert.Equal(t, 5, cfg.Investigation.MaxNestingDepth)
	assert.Equal(t, 10*time.Second, cfg.Investigation.AgentTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Investigation.InvestigationTimeout)
	assert.Equal(t, 8, cfg.Investigation.PoolSize)
	assert.Equal(t, 0.5, cfg.Investigation.PropagationThreshold)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("INVESTIGATION_SERVER_PORT", "9999")
	t.Setenv("INVESTIGATION_REDIS_DB", "3")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pool size", func(c *Config) { c.Investigation.PoolSize = 0 }},
		{"negative entities", func(c *Config) { c.Investigation.MaxEntities = -1 }},
		{"agent timeout above outer timeout", func(c *Config) {
			c.Investigation.AgentTimeout = 10 * time.Minute
		}},
		{"propagation threshold out of range", func(c *Config) {
			c.Investigation.PropagationThreshold = 1.5
		}},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
