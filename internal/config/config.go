/*-------------------------------------------------------------------------
 *
 * config.go
 *    Configuration management for NeuronSupervisor
 *
 * Provides configuration loading from YAML files and environment
 * variables. The configuration is constructed once at process startup
 * and passed by injection; there is no module-level config singleton.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/config/config.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/neurondb/NeuronSupervisor/internal/validation"
	"gopkg.in/yaml.v3"
)

/* Config is the root configuration for the supervisor server */
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	Reliability ReliabilityConfig `yaml:"reliability"`
	Cache       CacheConfig       `yaml:"cache"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Agent       AgentConfig       `yaml:"agent"`
}

/* ServerConfig holds HTTP server settings */
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

/* DatabaseConfig holds PostgreSQL connection settings */
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

/* LoggingConfig holds logging settings */
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

/* ReliabilityConfig holds the unified circuit breaker and retry settings.
 * Earlier revisions carried separate "legacy" and "modern" knobs with
 * diverging defaults; there is exactly one set now. */
type ReliabilityConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	Multiplier       float64       `yaml:"multiplier"`
}

/* CacheConfig holds schema/result cache settings */
type CacheConfig struct {
	FreshTTL   time.Duration `yaml:"fresh_ttl"`
	HardMaxAge time.Duration `yaml:"hard_max_age"`
	MaxSize    int           `yaml:"max_size"`
}

/* WebSocketConfig holds WebSocket transport limits.
 *
 * MaxMessageBytes bounds the frames the router will process. The
 * transport read limit is four times this bound: frames between the
 * two get a typed oversized_message error event, frames beyond the
 * read limit close the connection. */
type WebSocketConfig struct {
	MaxMessageBytes  int64         `yaml:"max_message_bytes"`
	WriteWait        time.Duration `yaml:"write_wait"`
	PongWait         time.Duration `yaml:"pong_wait"`
	SendMaxRetries   int           `yaml:"send_max_retries"`
	SendRetryBackoff time.Duration `yaml:"send_retry_backoff"`
}

/* AgentConfig holds sub-agent execution settings */
type AgentConfig struct {
	OperationTimeout     time.Duration `yaml:"operation_timeout"`
	LongOperationTimeout time.Duration `yaml:"long_operation_timeout"`
	Model                string        `yaml:"model"`
	AnalysisTable        string        `yaml:"analysis_table"`
}

/* DefaultConfig returns the default configuration */
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8686,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "neurondb",
			Database:        "neurondb",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Reliability: ReliabilityConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			MaxRetries:       3,
			BaseDelay:        100 * time.Millisecond,
			MaxDelay:         5 * time.Second,
			Multiplier:       2.0,
		},
		Cache: CacheConfig{
			FreshTTL:   300 * time.Second,
			HardMaxAge: 3600 * time.Second,
			MaxSize:    10000,
		},
		WebSocket: WebSocketConfig{
			MaxMessageBytes:  8192,
			WriteWait:        10 * time.Second,
			PongWait:         60 * time.Second,
			SendMaxRetries:   3,
			SendRetryBackoff: 100 * time.Millisecond,
		},
		Agent: AgentConfig{
			OperationTimeout:     30 * time.Second,
			LongOperationTimeout: 300 * time.Second,
			Model:                "default",
			AnalysisTable:        "events",
		},
	}
}

/* LoadConfig loads configuration from a YAML file, applied on top of
 * defaults */
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: path='%s', error=%w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config load failed: path='%s', yaml_error=%w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

/* LoadFromEnv applies environment variable overrides to a configuration */
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SUPERVISOR_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SUPERVISOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SUPERVISOR_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SUPERVISOR_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SUPERVISOR_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SUPERVISOR_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SUPERVISOR_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("SUPERVISOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SUPERVISOR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SUPERVISOR_MODEL"); v != "" {
		cfg.Agent.Model = v
	}
	if v := os.Getenv("SUPERVISOR_ANALYSIS_TABLE"); v != "" {
		cfg.Agent.AnalysisTable = v
	}
	if v := os.Getenv("SUPERVISOR_MAX_MESSAGE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.WebSocket.MaxMessageBytes = n
		}
	}
}

/* Validate checks configuration invariants */
func (c *Config) Validate() error {
	if err := validation.ValidateIntRange(c.Server.Port, 1, 65535, "server port"); err != nil {
		return fmt.Errorf("config validation failed: error=%w", err)
	}
	if c.Reliability.FailureThreshold <= 0 {
		return fmt.Errorf("config validation failed: failure_threshold=%d, must_be_positive=true", c.Reliability.FailureThreshold)
	}
	if c.Reliability.MaxRetries <= 0 {
		return fmt.Errorf("config validation failed: max_retries=%d, must_be_positive=true", c.Reliability.MaxRetries)
	}
	if c.Reliability.Multiplier < 1.0 {
		return fmt.Errorf("config validation failed: multiplier=%f, must_be_at_least_one=true", c.Reliability.Multiplier)
	}
	if c.Cache.FreshTTL <= 0 || c.Cache.HardMaxAge < c.Cache.FreshTTL {
		return fmt.Errorf("config validation failed: fresh_ttl=%s, hard_max_age=%s, ttl_ordering_invalid=true",
			c.Cache.FreshTTL, c.Cache.HardMaxAge)
	}
	if c.WebSocket.MaxMessageBytes <= 0 {
		return fmt.Errorf("config validation failed: max_message_bytes=%d, must_be_positive=true", c.WebSocket.MaxMessageBytes)
	}
	return nil
}
