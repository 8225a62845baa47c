// Package config defines the runtime configuration for the farmanet
// server.
package config

import "fmt"

// DefaultPort is the port the deployed clients expect.
const DefaultPort = 5000

// DefaultMaxLineBytes bounds a single wire line. A prescription with
// many items fits comfortably; anything larger is a broken client.
const DefaultMaxLineBytes = 256 * 1024

// Config holds every tuneable for one server process.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	Host string // bind address, empty = all interfaces
	Port int

	// ── Storage ──────────────────────────────────────────────────────
	DSN string // sqlite data source, e.g. "farmanet.db" or ":memory:"

	// ── Protocol ─────────────────────────────────────────────────────
	MaxLineBytes int // per-line read limit, 0 = DefaultMaxLineBytes

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.MaxLineBytes < 0 {
		return fmt.Errorf("max line length must not be negative")
	}
	return nil
}

// LineLimit returns the effective per-line read limit.
func (c *Config) LineLimit() int {
	if c.MaxLineBytes == 0 {
		return DefaultMaxLineBytes
	}
	return c.MaxLineBytes
}
