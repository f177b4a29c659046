package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/flexdir/internal/directory"
	"github.com/starford/flexdir/internal/language"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage drivers.
const (
	DriverLocal  = "local"
	DriverMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Data      DataConfig        `yaml:"data"`
	Directory DirectoryConfig   `yaml:"directory"`
	Languages LanguagesConfig   `yaml:"languages"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Directory.Validate(); err != nil {
		return err
	}
	if err := c.Languages.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// EventThrottle caps storage.changed events to one per interval.
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.EventThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
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

// DataConfig describes where records live.
//
// Driver "local" keeps records under Root on disk and watches it for
// external edits. Driver "memory" keeps them in process, which suits demos
// and tests. Locations maps extra path schemes (as in media://) to folders
// below the root; user:// always maps to the root itself.
type DataConfig struct {
	Root      string            `yaml:"root"`
	Driver    string            `yaml:"driver"`
	Locations map[string]string `yaml:"locations"`
	Watch     bool              `yaml:"watch"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverLocal
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(DriverLocal, DriverMemory)),
		validation.Field(&c.Root, validation.When(c.Driver == DriverLocal, validation.Required)),
	)
}

// DirectoryConfig lists the directory types.
type DirectoryConfig struct {
	// Blueprints is the folder scanned for <type>.yaml blueprints.
	Blueprints string                          `yaml:"blueprints"`
	Types      map[string]directory.TypeConfig `yaml:"types"`
	// HeaderBlocks are fields kept in the entry file of per-entry folders
	// in addition to the multilingual ones.
	HeaderBlocks []string `yaml:"header_blocks"`
}

// Validate validates the directory configuration.
func (c *DirectoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Blueprints, validation.Required),
	)
}

// LanguagesConfig holds the site languages. An empty Active language means
// the site is not multilingual.
type LanguagesConfig struct {
	Active    string   `yaml:"active"`
	Default   string   `yaml:"default"`
	Supported []string `yaml:"supported"`
}

var languageCode = validation.By(func(v any) error {
	s, _ := v.(string)
	if s != "" && !language.IsCode(s) {
		return fmt.Errorf("%q is not a language code", s)
	}
	return nil
})

// Validate validates the languages configuration.
func (c *LanguagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Active, languageCode),
		validation.Field(&c.Default, languageCode),
		validation.Field(&c.Supported, validation.Each(languageCode)),
	)
}

// Resolver builds the language resolver for the configured languages.
func (c *LanguagesConfig) Resolver() language.Resolver {
	if c.Active == "" && len(c.Supported) == 0 {
		return language.None()
	}
	return language.NewStatic(c.Active, c.Default, c.Supported)
}

// SQLiteConfig holds the change log database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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
	// Normalise empty mode to "disabled".
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
			EventThrottle: 2 * time.Second,
		},
		Data: DataConfig{
			Root:   "./data",
			Driver: DriverLocal,
			Watch:  true,
		},
		Directory: DirectoryConfig{
			Blueprints: "./blueprints",
		},
		SQLite: SQLiteConfig{
			Path: "./flexdir.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
