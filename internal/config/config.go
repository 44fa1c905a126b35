// Package config loads server settings from the environment. Defaults live
// in the struct tags; a .env file, when present, is loaded by the binary
// before processing.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "classwire"

type Config struct {
	Host             string        `envconfig:"HOST" default:"0.0.0.0"`
	Port             int           `envconfig:"PORT" default:"8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`

	DatabasePath string `envconfig:"DATABASE_PATH" default:"./classwire.db"`

	PingInterval   time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	WSReadTimeout  time.Duration `envconfig:"WS_READ_TIMEOUT" default:"60s"`
	WSWriteTimeout time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s"`
	SendBuffer     int           `envconfig:"WS_SEND_BUFFER" default:"100"`

	AuthSecret string `envconfig:"AUTH_SECRET" required:"true"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.HTTPReadTimeout <= 0 || c.HTTPWriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.PingInterval <= 0 || c.WSReadTimeout <= 0 || c.WSWriteTimeout <= 0 {
		return fmt.Errorf("websocket intervals must be positive")
	}
	if c.WSReadTimeout <= c.PingInterval {
		return fmt.Errorf("websocket read timeout must exceed the ping interval")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be positive")
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("auth secret cannot be empty")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
