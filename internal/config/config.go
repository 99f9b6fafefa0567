// Package config provides configuration for the agent core server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/tools"
)

// Version is reported by the health endpoint and the CLI.
var Version = "0.1.0"

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Turn deadlines
	TurnMaxDuration     time.Duration
	TurnWarnAfter       time.Duration
	TurnCheckpointAfter time.Duration
	MaxToolIterations   int

	// Checkpoints
	CheckpointTTL           time.Duration
	CheckpointSweepInterval time.Duration

	// Tool limits
	ReadMaxLines int
	ReadMaxBytes int
	PolicyFile   string

	// LLM
	Mode       string
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

const (
	keyHTTPPort            = "HTTP_PORT"
	keyDatabaseURL         = "DATABASE_URL"
	keyTurnMaxDuration     = "TURN_MAX_DURATION_MS"
	keyTurnWarnAfter       = "TURN_WARN_AFTER_MS"
	keyTurnCheckpointAfter = "TURN_CHECKPOINT_AFTER_MS"
	keyMaxToolIterations   = "MAX_TOOL_ITERATIONS"
	keyCheckpointTTL       = "CHECKPOINT_TTL_MS"
	keySweepInterval       = "CHECKPOINT_SWEEP_INTERVAL_MS"
	keyReadMaxLines        = "READ_MAX_LINES"
	keyReadMaxBytes        = "READ_MAX_BYTES"
	keyPolicyFile          = "POLICY_FILE"
	keyMode                = "GOGO_MODE"
	keyLLMBaseURL          = "LLM_BASE_URL"
	keyLLMAPIKey           = "LLM_API_KEY"
	keyLLMModel            = "LLM_MODEL"
	keyLLMTimeout          = "LLM_TIMEOUT_MS"
	keyLogLevel            = "LOG_LEVEL"
	keyLogFormat           = "LOG_FORMAT"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyHTTPPort, 8080)
	v.SetDefault(keyDatabaseURL, "file:agentcore.db?cache=shared&mode=rwc")
	v.SetDefault(keyTurnMaxDuration, 300000)
	v.SetDefault(keyTurnWarnAfter, 240000)
	v.SetDefault(keyTurnCheckpointAfter, 270000)
	v.SetDefault(keyMaxToolIterations, 25)
	v.SetDefault(keyCheckpointTTL, 3600000)
	v.SetDefault(keySweepInterval, 60000)
	v.SetDefault(keyReadMaxLines, tools.DefaultMaxReadLines)
	v.SetDefault(keyReadMaxBytes, tools.DefaultMaxReadBytes)
	v.SetDefault(keyPolicyFile, "")
	v.SetDefault(keyMode, "")
	v.SetDefault(keyLLMBaseURL, "https://api.openai.com")
	v.SetDefault(keyLLMAPIKey, "")
	v.SetDefault(keyLLMModel, "gpt-4o-mini")
	v.SetDefault(keyLLMTimeout, 300000)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
}

// Load resolves configuration from defaults, an optional config file and the
// environment, in increasing precedence. An empty path skips the file.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller supplied viper instance.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTPPort:                v.GetInt(keyHTTPPort),
		DatabaseURL:             v.GetString(keyDatabaseURL),
		TurnMaxDuration:         millis(v, keyTurnMaxDuration),
		TurnWarnAfter:           millis(v, keyTurnWarnAfter),
		TurnCheckpointAfter:     millis(v, keyTurnCheckpointAfter),
		MaxToolIterations:       v.GetInt(keyMaxToolIterations),
		CheckpointTTL:           millis(v, keyCheckpointTTL),
		CheckpointSweepInterval: millis(v, keySweepInterval),
		ReadMaxLines:            v.GetInt(keyReadMaxLines),
		ReadMaxBytes:            v.GetInt(keyReadMaxBytes),
		PolicyFile:              v.GetString(keyPolicyFile),
		Mode:                    v.GetString(keyMode),
		LLMBaseURL:              v.GetString(keyLLMBaseURL),
		LLMAPIKey:               v.GetString(keyLLMAPIKey),
		LLMModel:                v.GetString(keyLLMModel),
		LLMTimeout:              millis(v, keyLLMTimeout),
		LogLevel:                v.GetString(keyLogLevel),
		LogFormat:               v.GetString(keyLogFormat),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if err := c.ContinuationLimits().Validate(); err != nil {
		return fmt.Errorf("invalid turn limits: %w", err)
	}
	if c.MaxToolIterations <= 0 {
		return fmt.Errorf("%s must be positive", keyMaxToolIterations)
	}
	if c.CheckpointTTL <= 0 {
		return fmt.Errorf("%s must be positive", keyCheckpointTTL)
	}
	if c.ReadMaxLines <= 0 || c.ReadMaxBytes <= 0 {
		return errors.New("read limits must be positive")
	}
	return nil
}

// ContinuationLimits returns the turn thresholds.
func (c *Config) ContinuationLimits() continuation.Limits {
	return continuation.Limits{
		MaxDuration:     c.TurnMaxDuration,
		WarnAfter:       c.TurnWarnAfter,
		CheckpointAfter: c.TurnCheckpointAfter,
	}
}

// ToolLimits returns the read limits.
func (c *Config) ToolLimits() tools.Limits {
	return tools.Limits{MaxReadLines: c.ReadMaxLines, MaxReadBytes: c.ReadMaxBytes}
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt64(key)) * time.Millisecond
}
