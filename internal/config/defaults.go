package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout           = 30 * time.Second
	DefaultUserAgent            = "concord"
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 60 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultFrameBufferSize      = 1024
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 1 * time.Second
)

func (c *Config) applyDefaults() {
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = DefaultUserAgent
	}

	if c.Gateway.ReconnectBaseDelay == 0 {
		c.Gateway.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Gateway.ReconnectMaxDelay == 0 {
		c.Gateway.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Gateway.MaxReconnectAttempts == 0 {
		c.Gateway.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Gateway.FrameBufferSize == 0 {
		c.Gateway.FrameBufferSize = DefaultFrameBufferSize
	}

	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	applyDBDefaults(&c.Archive.Database)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
