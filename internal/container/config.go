// Package container provides dependency injection and lifecycle management
// for the Founders Tab service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/founderstab/founders-tab/internal/config"
	"github.com/founderstab/founders-tab/pkg/database"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database database.Config

	// Seed lists members upserted at startup
	Seed []database.MemberRow

	// Email configuration
	Email EmailConfig

	// Events configuration
	Events EventsConfig
}

// EmailConfig holds outbound mail settings.
type EmailConfig struct {
	// Enabled switches from the logging mailer to SMTP
	Enabled bool

	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EventsConfig holds dispatcher settings.
type EventsConfig struct {
	// HandlerTimeout bounds each asynchronous handler run
	HandlerTimeout time.Duration
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Database: database.Config{
			Path:            "data/founders_tab.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Email: EmailConfig{Port: 587},
		Events: EventsConfig{
			HandlerTimeout: 30 * time.Second,
		},
	}
}

// FromAppConfig converts the loaded application configuration.
func FromAppConfig(cfg *config.Config) *Config {
	seed := make([]database.MemberRow, 0, len(cfg.App.SeedMembers))
	for _, m := range cfg.App.SeedMembers {
		seed = append(seed, database.MemberRow{
			ID:        m.ID,
			CompanyID: m.CompanyID,
			Name:      m.Name,
			Email:     m.Email,
			Role:      m.Role,
		})
	}

	return &Config{
		Database: database.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			BusyTimeout:     cfg.Database.BusyTimeout,
		},
		Seed: seed,
		Email: EmailConfig{
			Enabled:  cfg.Email.Enabled,
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		},
		Events: EventsConfig{
			HandlerTimeout: cfg.App.NotificationTimeout,
		},
	}
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}

	if c.Email.Enabled {
		if c.Email.Host == "" {
			return fmt.Errorf("smtp host is required when email is enabled")
		}
		if c.Email.Port <= 0 {
			return fmt.Errorf("smtp port must be positive")
		}
		if c.Email.From == "" {
			return fmt.Errorf("smtp sender is required when email is enabled")
		}
	}

	if c.Events.HandlerTimeout < 0 {
		return fmt.Errorf("event handler timeout must not be negative")
	}

	return nil
}
