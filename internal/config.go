package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/admission"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Site      SiteConfig        `yaml:"site"`
	Sessions  SessionsConfig    `yaml:"sessions"`
	Publish   PublishConfig     `yaml:"publish"`
	Admission AdmissionConfig   `yaml:"admission"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.Sessions.Validate(); err != nil {
		return err
	}
	if err := c.Publish.Validate(); err != nil {
		return err
	}
	if err := c.Admission.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig holds the path to the published-site root directory.
type SiteConfig struct {
	Root string `yaml:"root"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	)
}

// SessionsConfig holds the session database configuration.
type SessionsConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the sessions configuration.
func (c *SessionsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
	)
}

// PublishConfig holds batch processing configuration.
type PublishConfig struct {
	// Concurrency bounds how many items of one batch run at once.
	Concurrency int `yaml:"concurrency"`
}

// Validate validates the publish configuration.
func (c *PublishConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(1), validation.Max(256)),
	)
}

// AdmissionConfig holds load-shedding thresholds.
type AdmissionConfig struct {
	MaxLagMs         int `yaml:"max_lag_ms"`
	MaxMemoryMB      int `yaml:"max_memory_mb"`
	MaxInFlight      int `yaml:"max_in_flight"`
	RetryAfterMs     int `yaml:"retry_after_ms"`
	SampleIntervalMs int `yaml:"sample_interval_ms"`
}

// Validate validates the admission configuration.
func (c *AdmissionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxLagMs, validation.Min(1)),
		validation.Field(&c.MaxMemoryMB, validation.Min(1)),
		validation.Field(&c.MaxInFlight, validation.Min(1)),
		validation.Field(&c.RetryAfterMs, validation.Min(1)),
	)
}

// ControllerConfig converts the YAML fields into admission.Config.
func (c *AdmissionConfig) ControllerConfig() admission.Config {
	return admission.Config{
		MaxLag:         time.Duration(c.MaxLagMs) * time.Millisecond,
		MaxHeapBytes:   uint64(c.MaxMemoryMB) << 20,
		MaxInFlight:    int64(c.MaxInFlight),
		RetryAfter:     time.Duration(c.RetryAfterMs) * time.Millisecond,
		SampleInterval: time.Duration(c.SampleIntervalMs) * time.Millisecond,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			Root: "./site",
		},
		Sessions: SessionsConfig{
			SQLitePath: "./othala.db",
		},
		Publish: PublishConfig{
			Concurrency: 10,
		},
		Admission: AdmissionConfig{
			MaxLagMs:         200,
			MaxMemoryMB:      500,
			MaxInFlight:      50,
			RetryAfterMs:     1000,
			SampleIntervalMs: 100,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
