package config

import (
	"github.com/medialert/reportflow/internal/container"
	"github.com/medialert/reportflow/internal/domain/assignment"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			Mode:            c.Server.Mode,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
		},
		Assignment: assignment.Scope(c.Assignment.Scope),
		Events: container.EventsConfig{
			HandlerTimeout: c.Events.HandlerTimeout,
		},
		Worker: container.WorkerConfig{
			AssignmentSweepInterval: c.Worker.AssignmentSweepInterval,
			AssignmentSweepBatch:    c.Worker.AssignmentSweepBatch,
		},
	}
}
