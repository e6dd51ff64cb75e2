// Package container wires the report workflow service together and owns
// the start and stop order of its components.
package container

import (
	"fmt"
	"time"

	"github.com/medialert/reportflow/internal/domain/assignment"
)

// Config holds all configuration for the Container.
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Auth       AuthConfig
	Assignment assignment.Scope
	Events     EventsConfig
	Worker     WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to the SQLite database file, or ":memory:"
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate applies pending embedded migrations on start
	AutoMigrate bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// EventsConfig holds dispatcher settings.
type EventsConfig struct {
	// HandlerTimeout bounds each asynchronous alert handler
	HandlerTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// AssignmentSweepInterval of 0 disables the sweeper
	AssignmentSweepInterval time.Duration
	AssignmentSweepBatch    int
}

// DefaultConfig returns a Config with sensible defaults.
// The JWT secret has no default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/reportflow.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Assignment: assignment.ScopeGlobal,
		Events: EventsConfig{
			HandlerTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			AssignmentSweepInterval: time.Minute,
			AssignmentSweepBatch:    50,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if !c.Assignment.IsValid() {
		return fmt.Errorf("assignment scope %q is not valid", c.Assignment)
	}
	return nil
}
