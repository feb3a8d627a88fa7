package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Security  SecurityConfig
	Shell     ShellConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// BridgeConfig holds agent bridge configuration. The bridge listens on its
// own port; remote agents dial in and authenticate with the shared token.
type BridgeConfig struct {
	Enabled           bool          `envconfig:"BRIDGE_ENABLED" default:"true"`
	Port              string        `envconfig:"BRIDGE_PORT" default:"8765"`
	Token             string        `envconfig:"BRIDGE_TOKEN" default:""`
	AuthTimeout       time.Duration `envconfig:"BRIDGE_AUTH_TIMEOUT" default:"10s"`
	HeartbeatInterval time.Duration `envconfig:"BRIDGE_HEARTBEAT_INTERVAL" default:"30s"`
	LivenessTimeout   time.Duration `envconfig:"BRIDGE_LIVENESS_TIMEOUT" default:"90s"`
	InvokeTimeout     time.Duration `envconfig:"BRIDGE_INVOKE_TIMEOUT" default:"30s"`
}

// SecurityConfig holds API key policies and the argument denylist.
// APIKeys carries the same JSON shape the policy file uses; either source
// may be empty, in which case authentication runs in development mode.
type SecurityConfig struct {
	APIKeys      string   `envconfig:"MCP_API_KEYS" default:""`
	PolicyFile   string   `envconfig:"MCP_POLICY_FILE" default:""`
	DenyPatterns []string `envconfig:"MCP_DENY_PATTERNS" default:""`
}

// ShellConfig holds limits for the shell execution tool.
type ShellConfig struct {
	WorkDir         string `envconfig:"MCP_SHELL_CWD" default:"."`
	MaxExecSeconds  int    `envconfig:"MCP_EXEC_TIMEOUT" default:"300"`
	MaxInputLength  int    `envconfig:"MCP_MAX_INPUT" default:"1000000"`
	MaxOutputLength int    `envconfig:"MCP_MAX_OUTPUT" default:"1000000"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Bridge: BridgeConfig{
			Enabled:           true,
			Port:              "8765",
			AuthTimeout:       10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			LivenessTimeout:   90 * time.Second,
			InvokeTimeout:     30 * time.Second,
		},
		Shell: ShellConfig{
			WorkDir:         ".",
			MaxExecSeconds:  300,
			MaxInputLength:  1000000,
			MaxOutputLength: 1000000,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
