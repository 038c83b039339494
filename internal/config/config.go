package config

import "time"

// Config is the root configuration for a concord instance.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Gateway GatewayConfig `yaml:"gateway"`
	Archive ArchiveConfig `yaml:"archive"`
}

// APIConfig holds REST transport settings.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GatewayConfig holds push-stream connection settings.
type GatewayConfig struct {
	URL                  string        `yaml:"url"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	FrameBufferSize      int           `yaml:"frame_buffer_size"`
}

// ArchiveConfig holds message archiving settings. The archiver is
// optional; a zero Database.Host disables it.
type ArchiveConfig struct {
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
