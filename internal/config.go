package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wikivault/internal/vault"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app" toml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace" toml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth" toml:"auth"`
	Resolver  ResolverConfig    `yaml:"resolver" toml:"resolver"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Resolver.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
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

// WorkspaceConfig holds the directory that contains one or more vaults.
type WorkspaceConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the name index database location. An empty path
// disables the index and every lookup walks the file system.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Enabled reports whether the name index should be opened.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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

// ResolverConfig tunes vault detection and link resolution.
type ResolverConfig struct {
	MarkerDir        string `yaml:"marker_dir" toml:"marker_dir"`
	NoteExt          string `yaml:"note_ext" toml:"note_ext"`
	MarkerDepth      int    `yaml:"marker_depth" toml:"marker_depth"`
	DensityDepth     int    `yaml:"density_depth" toml:"density_depth"`
	DensityThreshold int    `yaml:"density_threshold" toml:"density_threshold"`
	ScanDepth        int    `yaml:"scan_depth" toml:"scan_depth"`
	VaultScoped      bool   `yaml:"vault_scoped" toml:"vault_scoped"`
}

// Validate validates the resolver configuration.
func (c *ResolverConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MarkerDir, validation.Required,
			validation.By(func(any) error {
				if strings.ContainsAny(c.MarkerDir, `/\`) {
					return fmt.Errorf("must be a single directory name")
				}
				return nil
			})),
		validation.Field(&c.NoteExt, validation.Required,
			validation.By(func(any) error {
				if !strings.HasPrefix(c.NoteExt, ".") || len(c.NoteExt) < 2 {
					return fmt.Errorf("must start with a dot")
				}
				return nil
			})),
		validation.Field(&c.MarkerDepth, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.DensityDepth, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.DensityThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.ScanDepth, validation.Required, validation.Min(1), validation.Max(16)),
	)
}

// Detector builds a vault root detector from the configured depths.
func (c *ResolverConfig) Detector() *vault.Detector {
	return &vault.Detector{
		MarkerDir:        c.MarkerDir,
		NoteExt:          c.NoteExt,
		MarkerDepth:      c.MarkerDepth,
		DensityDepth:     c.DensityDepth,
		DensityThreshold: c.DensityThreshold,
	}
}

// ScanOptions returns the vault discovery options.
func (c *ResolverConfig) ScanOptions() vault.ScanOptions {
	return vault.ScanOptions{MarkerDir: c.MarkerDir, MaxDepth: c.ScanDepth}
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
		Workspace: WorkspaceConfig{
			Path: ".",
		},
		SQLite: SQLiteConfig{
			Path: "./wikivault.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Resolver: ResolverConfig{
			MarkerDir:        vault.DefaultMarkerDir,
			NoteExt:          vault.DefaultNoteExt,
			MarkerDepth:      vault.DefaultMarkerDepth,
			DensityDepth:     vault.DefaultDensityDepth,
			DensityThreshold: vault.DefaultDensityThreshold,
			ScanDepth:        vault.DefaultScanDepth,
		},
	}
}
