package periodic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

const (
	defaultDailyFormat     = "YYYY-MM-DD"
	defaultWeeklyFormat    = "GGGG-[W]WW"
	defaultMonthlyFormat   = "YYYY-MM"
	defaultQuarterlyFormat = "YYYY-[Q]Q"
	defaultYearlyFormat    = "YYYY"
)

var errMalformedPattern = errors.New("periodic: malformed pattern")

// FormatDaily renders a daily note stem. Fallback: 2006-01-02.
func FormatDaily(date time.Time, tokenFormat string) string {
	return formatGeneric(date, orDefault(tokenFormat, defaultDailyFormat), date.Format("2006-01-02"))
}

// FormatMonthly renders a monthly note stem. Fallback: 2006-01.
func FormatMonthly(date time.Time, tokenFormat string) string {
	return formatGeneric(date, orDefault(tokenFormat, defaultMonthlyFormat), date.Format("2006-01"))
}

// FormatYearly renders a yearly note stem. Fallback: the 4-digit year.
func FormatYearly(date time.Time, tokenFormat string) string {
	return formatGeneric(date, orDefault(tokenFormat, defaultYearlyFormat), fmt.Sprintf("%04d", date.Year()))
}

// FormatWeekly substitutes the ISO week-year (GGGG) and the zero-padded ISO
// week number (WW). Bracketed text is emitted without its brackets.
func FormatWeekly(date time.Time, tokenFormat string) string {
	year, week := date.ISOWeek()
	r := strings.NewReplacer(
		"GGGG", fmt.Sprintf("%04d", year),
		"WW", fmt.Sprintf("%02d", week),
	)
	out := substituteOutsideLiterals(orDefault(tokenFormat, defaultWeeklyFormat), r)
	if strings.TrimSpace(out) == "" {
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return out
}

// FormatQuarterly substitutes the year (YYYY) and the quarter digit (Q).
// Bracketed text is protected from substitution and emitted unbracketed.
func FormatQuarterly(date time.Time, tokenFormat string) string {
	quarter := Quarter(date)
	r := strings.NewReplacer(
		"YYYY", fmt.Sprintf("%04d", date.Year()),
		"Q", strconv.Itoa(quarter),
	)
	out := substituteOutsideLiterals(orDefault(tokenFormat, defaultQuarterlyFormat), r)
	if strings.TrimSpace(out) == "" {
		return fmt.Sprintf("%04d-Q%d", date.Year(), quarter)
	}
	return out
}

// Quarter returns the quarter (1-4) containing date.
func Quarter(date time.Time) int {
	return (int(date.Month())-1)/3 + 1
}

func orDefault(tokenFormat, def string) string {
	if strings.TrimSpace(tokenFormat) == "" {
		return def
	}
	return tokenFormat
}

func formatGeneric(date time.Time, tokenFormat, fallback string) string {
	pattern, err := strftimePattern(tokenFormat)
	if err != nil {
		return fallback
	}
	out := strftime.Format(pattern, date)
	if strings.TrimSpace(out) == "" {
		return fallback
	}
	return out
}

// strftimePattern translates a moment-style token format into a strftime
// pattern. Only YYYY, MM and DD are tokens; [text] is a literal. Any other
// unbracketed ASCII letter, a stray ']' or an unclosed '[' is malformed.
func strftimePattern(tokenFormat string) (string, error) {
	var b strings.Builder
	s := tokenFormat
	for i := 0; i < len(s); {
		switch {
		case s[i] == '[':
			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed literal at %d", errMalformedPattern, i)
			}
			b.WriteString(strings.ReplaceAll(s[i+1:i+1+end], "%", "%%"))
			i += end + 2
		case s[i] == ']':
			return "", fmt.Errorf("%w: unbalanced ']' at %d", errMalformedPattern, i)
		case strings.HasPrefix(s[i:], "YYYY"):
			b.WriteString("%Y")
			i += 4
		case strings.HasPrefix(s[i:], "MM"):
			b.WriteString("%m")
			i += 2
		case strings.HasPrefix(s[i:], "DD"):
			b.WriteString("%d")
			i += 2
		case isASCIILetter(s[i]):
			return "", fmt.Errorf("%w: unsupported token %q at %d", errMalformedPattern, s[i], i)
		case s[i] == '%':
			b.WriteString("%%")
			i++
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), nil
}

// substituteOutsideLiterals applies r to every part of format that is not a
// [bracketed] literal, and emits literal text without brackets. An unclosed
// '[' is kept as ordinary text.
func substituteOutsideLiterals(format string, r *strings.Replacer) string {
	var b strings.Builder
	rest := format
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open+1:], ']')
		if end < 0 {
			break
		}
		b.WriteString(r.Replace(rest[:open]))
		b.WriteString(rest[open+1 : open+1+end])
		rest = rest[open+1+end+1:]
	}
	b.WriteString(r.Replace(rest))
	return b.String()
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
