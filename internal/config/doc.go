// Package config loads and validates YAML configuration for the concord
// binaries. Values support ${VAR} environment expansion, and optional
// fields fall back to documented defaults.
package config
