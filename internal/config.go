package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/kinematics"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Designs DesignsConfig     `yaml:"designs"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Sim     SimConfig         `yaml:"sim"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Designs.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Sim.Validate(); err != nil {
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

// DesignsConfig holds the path to the YAML design file directory.
type DesignsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the designs configuration.
func (c *DesignsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SimConfig holds solver and trajectory defaults.
type SimConfig struct {
	// Steps is the default number of crank angle samples per sweep.
	Steps int `yaml:"steps"`
	// MaxIterations caps the solver's iterations per frame. Zero
	// keeps the built-in default.
	MaxIterations int `yaml:"max_iterations"`
	// Tolerance is the residual convergence threshold. Zero keeps
	// the built-in default.
	Tolerance float64 `yaml:"tolerance"`
}

// Validate validates the simulation configuration.
func (c *SimConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Steps, validation.Required, validation.Min(2)),
		validation.Field(&c.MaxIterations, validation.Min(0)),
		validation.Field(&c.Tolerance, validation.Min(0.0)),
	)
}

// SolverOptions converts the config into solver options.
func (c *SimConfig) SolverOptions() kinematics.SolverOptions {
	return kinematics.SolverOptions{
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
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
		Designs: DesignsConfig{
			Path: "./designs",
		},
		SQLite: SQLiteConfig{
			Path: "./raido.db",
		},
		Sim: SimConfig{
			Steps: 360,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
