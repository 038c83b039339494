package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Token == "" {
		return errors.New("api.token is required")
	}

	if c.Gateway.URL == "" {
		return errors.New("gateway.url is required")
	}
	if c.Gateway.ReconnectBaseDelay > c.Gateway.ReconnectMaxDelay {
		return fmt.Errorf("gateway.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Gateway.ReconnectBaseDelay, c.Gateway.ReconnectMaxDelay)
	}

	if c.ArchiveEnabled() {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
	}

	return nil
}

// ArchiveEnabled reports whether an archive database is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Database.Host != ""
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
