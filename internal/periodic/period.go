// Package periodic turns calendar dates into periodic-note filenames.
//
// Token formats follow the moment.js conventions used by Obsidian's
// periodic-notes plugin. Daily, monthly and yearly formats are rendered
// through a strftime translation; weekly and quarterly formats need ISO
// week-year and quarter arithmetic and are substituted directly.
package periodic

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/wikivault/internal/apperr"
)

// Period is a periodic-note granularity.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

type descriptor struct {
	name          string
	label         string
	defaultFormat string
	format        func(date time.Time, tokenFormat string) string
	settings      func(c *Config) *Settings
}

var descriptors = [...]descriptor{
	Daily: {
		name:          "daily",
		label:         "Daily Note",
		defaultFormat: defaultDailyFormat,
		format:        FormatDaily,
		settings:      func(c *Config) *Settings { return c.Daily },
	},
	Weekly: {
		name:          "weekly",
		label:         "Weekly Note",
		defaultFormat: defaultWeeklyFormat,
		format:        FormatWeekly,
		settings:      func(c *Config) *Settings { return c.Weekly },
	},
	Monthly: {
		name:          "monthly",
		label:         "Monthly Note",
		defaultFormat: defaultMonthlyFormat,
		format:        FormatMonthly,
		settings:      func(c *Config) *Settings { return c.Monthly },
	},
	Quarterly: {
		name:          "quarterly",
		label:         "Quarterly Note",
		defaultFormat: defaultQuarterlyFormat,
		format:        FormatQuarterly,
		settings:      func(c *Config) *Settings { return c.Quarterly },
	},
	Yearly: {
		name:          "yearly",
		label:         "Yearly Note",
		defaultFormat: defaultYearlyFormat,
		format:        FormatYearly,
		settings:      func(c *Config) *Settings { return c.Yearly },
	},
}

// All returns every period in display order.
func All() []Period {
	return []Period{Daily, Weekly, Monthly, Quarterly, Yearly}
}

// ParsePeriod maps a lowercase period name ("daily", "weekly", ...) to a Period.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, d := range descriptors {
		if d.name == s {
			return Period(p), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown period %q", apperr.ErrInvalidInput, s)
}

func (p Period) valid() bool {
	return p >= Daily && p <= Yearly
}

// String returns the lowercase period name.
func (p Period) String() string {
	if !p.valid() {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return descriptors[p].name
}

// Label returns the human-readable label, e.g. "Weekly Note".
func (p Period) Label() string {
	if !p.valid() {
		return p.String()
	}
	return descriptors[p].label
}

// DefaultFormat returns the token format used when none is configured.
func (p Period) DefaultFormat() string {
	if !p.valid() {
		return ""
	}
	return descriptors[p].defaultFormat
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("periodic: invalid period %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Format renders date for the given period. A blank tokenFormat selects the
// period's default format. Format never fails: malformed patterns fall back
// to a canonical representation.
func Format(date time.Time, p Period, tokenFormat string) string {
	if !p.valid() {
		return FormatDaily(date, tokenFormat)
	}
	return descriptors[p].format(date, tokenFormat)
}
