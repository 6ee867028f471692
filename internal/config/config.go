package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Email     EmailConfig     `mapstructure:"email"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// EmailConfig holds SMTP configuration. With Enabled false, e-mails are
// only logged.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// RateLimitConfig holds per-user API throttling
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`

	// CleanupInterval is how often idle per-user limiters are dropped
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AppConfig holds application behaviour settings
type AppConfig struct {
	NotificationTimeout time.Duration `mapstructure:"notification_timeout"`
	SeedMembers         []MemberSeed  `mapstructure:"seed_members"`
}

// MemberSeed is a member row inserted at startup for local setups
type MemberSeed struct {
	ID        int64  `mapstructure:"id"`
	CompanyID int64  `mapstructure:"company_id"`
	Name      string `mapstructure:"name"`
	Email     string `mapstructure:"email"`
	Role      string `mapstructure:"role"`
}

// Load loads configuration from an optional .env file, the config file
// and environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	return LoadWithEnvFile(configPath, ".env")
}

// LoadWithEnvFile is Load with an explicit .env path. A missing .env is ignored.
func LoadWithEnvFile(configPath, envPath string) (*Config, error) {
	if envPath != "" {
		if err := gotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/founders_tab.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Email defaults
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.port", 587)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_second", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.cleanup_interval", 5*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// App defaults
	v.SetDefault("app.notification_timeout", 30*time.Second)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.path":  "DATABASE_PATH",
		"email.enabled":  "SMTP_ENABLED",
		"email.host":     "SMTP_HOST",
		"email.port":     "SMTP_PORT",
		"email.username": "SMTP_USERNAME",
		"email.password": "SMTP_PASSWORD",
		"email.from":     "SMTP_FROM",
		"logger.level":   "LOG_LEVEL",
		"server.port":    "PORT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate SMTP only when e-mail delivery is on
	if c.Email.Enabled {
		if c.Email.Host == "" {
			return fmt.Errorf("email.host is required when email is enabled")
		}
		if c.Email.From == "" {
			return fmt.Errorf("email.from is required when email is enabled")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("ratelimit.requests_per_second must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("ratelimit.burst must be positive")
		}
		if c.RateLimit.CleanupInterval <= 0 {
			return fmt.Errorf("ratelimit.cleanup_interval must be positive")
		}
	}

	for _, m := range c.App.SeedMembers {
		if m.ID <= 0 || m.CompanyID <= 0 || m.Email == "" {
			return fmt.Errorf("app.seed_members: id, company_id and email are required")
		}
		if m.Role != "FOUNDER" && m.Role != "MEMBER" {
			return fmt.Errorf("app.seed_members: role of member %d must be FOUNDER or MEMBER", m.ID)
		}
	}

	return nil
}
