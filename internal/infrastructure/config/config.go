package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Security SecurityConfig `koanf:"security"`

	Investigation InvestigationConfig `koanf:"investigation"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type SecurityConfig struct {
	JWTSecret   string          `koanf:"jwt_secret"`
	TokenExpiry time.Duration   `koanf:"token_expiry"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

// InvestigationConfig tunes the validation, execution and
// consolidation pipeline.
type InvestigationConfig struct {
	// Query validation limits
	MaxEntities         int `koanf:"max_entities"`
	MaxNestingDepth     int `koanf:"max_nesting_depth"`
	MaxExpressionLength int `koanf:"max_expression_length"`
	CacheThreshold      int `koanf:"cache_threshold"`

	ValidationCacheTTL time.Duration `koanf:"validation_cache_ttl"`

	// Execution
	AgentTimeout         time.Duration `koanf:"agent_timeout"`
	InvestigationTimeout time.Duration `koanf:"investigation_timeout"`
	MaxAttempts          int           `koanf:"max_attempts"`
	PoolSize             int           `koanf:"pool_size"`

	// Circuit breakers
	FailureThreshold int           `koanf:"failure_threshold"`
	BreakerCooldown  time.Duration `koanf:"breaker_cooldown"`

	// Consolidation
	PropagationThreshold float64 `koanf:"propagation_threshold"`
	MaxFindings          int     `koanf:"max_findings"`
}

// Load builds the configuration from defaults, an optional YAML file
// and INVESTIGATION_-prefixed environment variables, in that order of
// precedence.
func Load() (*Config, error) {
	return LoadFromFile("configs/config.yaml")
}

// LoadFromFile is Load with an explicit config file path
func LoadFromFile(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Security: SecurityConfig{
			TokenExpiry: 24 * time.Hour,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Investigation: InvestigationConfig{
			MaxEntities:          20,
			MaxNestingDepth:      5,
			MaxExpressionLength:  1000,
			CacheThreshold:       5,
			ValidationCacheTTL:   15 * time.Minute,
			AgentTimeout:         10 * time.Second,
			InvestigationTimeout: 5 * time.Minute,
			MaxAttempts:          3,
			PoolSize:             8,
			FailureThreshold:     3,
			BreakerCooldown:      30 * time.Second,
			PropagationThreshold: 0.5,
			MaxFindings:          20,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional
	if path != "" {
		_ = k.Load(file.Provider(path), yaml.Parser())
	}

	if err := k.Load(env.Provider("INVESTIGATION_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "INVESTIGATION_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	inv := c.Investigation
	if inv.MaxEntities <= 0 {
		return fmt.Errorf("investigation.max_entities must be positive")
	}
	if inv.MaxNestingDepth <= 0 {
		return fmt.Errorf("investigation.max_nesting_depth must be positive")
	}
	if inv.PoolSize <= 0 {
		return fmt.Errorf("investigation.pool_size must be positive")
	}
	if inv.FailureThreshold <= 0 {
		return fmt.Errorf("investigation.failure_threshold must be positive")
	}
	if inv.AgentTimeout <= 0 || inv.InvestigationTimeout <= 0 {
		return fmt.Errorf("investigation timeouts must be positive")
	}
	if inv.AgentTimeout >= inv.InvestigationTimeout {
		return fmt.Errorf("investigation.agent_timeout must be shorter than investigation.investigation_timeout")
	}
	if inv.PropagationThreshold < 0 || inv.PropagationThreshold > 1 {
		return fmt.Errorf("investigation.propagation_threshold must be in [0, 1]")
	}
	return nil
}

// IsDevelopment reports whether the environment is a dev environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}
