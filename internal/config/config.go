// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds configuration knobs for the HTTP server and the broadcast
// channel. Only the channel endpoint address affects deployment topology;
// store behavior takes no environment input.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	Channel         ChannelConfig
	Heartbeat       HeartbeatConfig
	Reconnect       ReconnectConfig
}

// ChannelConfig selects the broadcast transport. The default loopback URL
// keeps everything in-process; a non-empty RedisAddr switches the channel
// to Redis pub/sub on the same topic.
type ChannelConfig struct {
	URL       string `envconfig:"CHANNEL_URL" default:"loopback://inventory"`
	RedisAddr string `envconfig:"CHANNEL_REDIS_ADDR" default:""`
}

// HeartbeatConfig governs the subscriber liveness probe.
type HeartbeatConfig struct {
	Interval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"30s"`
	Timeout  time.Duration `envconfig:"HEARTBEAT_TIMEOUT" default:"10s"`
}

// ReconnectConfig governs exponential backoff after a lost connection.
type ReconnectConfig struct {
	MaxAttempts  int           `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	InitialDelay time.Duration `envconfig:"RECONNECT_INITIAL_DELAY" default:"1s"`
	MaxDelay     time.Duration `envconfig:"RECONNECT_MAX_DELAY" default:"30s"`
}

// Load collects configuration from environment with defaults.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: process environment: %w", err)
	}
	return cfg, nil
}
