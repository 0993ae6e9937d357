package periodic

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ConfigRelPath is where the periodic-notes plugin keeps its settings,
// relative to the vault marker directory.
const ConfigRelPath = "plugins/periodic-notes/data.json"

// Settings is the per-period configuration of one vault.
type Settings struct {
	Format   string `json:"format,omitempty"`
	Template string `json:"template,omitempty"`
	Folder   string `json:"folder"`
	Enabled  bool   `json:"enabled"`
}

// Config bundles the settings of all five periods. Missing periods are nil.
type Config struct {
	Daily     *Settings `json:"daily,omitempty"`
	Weekly    *Settings `json:"weekly,omitempty"`
	Monthly   *Settings `json:"monthly,omitempty"`
	Quarterly *Settings `json:"quarterly,omitempty"`
	Yearly    *Settings `json:"yearly,omitempty"`
}

// ParseConfig decodes the plugin's data.json. Unknown keys are ignored.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("periodic: parse config: %w", err)
	}
	return c, nil
}

// LoadConfig reads and decodes the config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("periodic: read config: %w", err)
	}
	return ParseConfig(data)
}

// Settings returns the settings for p, or nil when the period is not configured.
func (c *Config) Settings(p Period) *Settings {
	if c == nil || !p.valid() {
		return nil
	}
	return descriptors[p].settings(c)
}

// Enabled reports whether p is configured and switched on.
func (c *Config) Enabled(p Period) bool {
	s := c.Settings(p)
	return s != nil && s.Enabled
}

// EffectiveFormat returns the configured format override, or p's default.
func (s *Settings) EffectiveFormat(p Period) string {
	if s == nil || s.Format == "" {
		return p.DefaultFormat()
	}
	return s.Format
}

// Filename returns the note stem (no extension) for date under s.
func Filename(date time.Time, p Period, s *Settings) string {
	return Format(date, p, s.EffectiveFormat(p))
}
