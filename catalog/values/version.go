package values

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultVersion is used when a raw version carries no digits at all.
const DefaultVersion = "0.0.0"

// ErrInvalidVersion is returned when a version segment is not a non-negative integer.
var ErrInvalidVersion = errors.New("invalid version")

// InvalidVersionError reports the offending version and segment.
type InvalidVersionError struct {
	Version string
	Segment string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: segment %q is not a non-negative integer", e.Version, e.Segment)
}

// Is implements error matching for errors.Is() checks.
func (e *InvalidVersionError) Is(target error) bool {
	return target == ErrInvalidVersion
}

var nonVersionChars = regexp.MustCompile(`[^0-9.]`)

// ParseVersion splits a raw version string into a numeric dotted version and a
// release state. Keywords are checked in the given order and the first one
// found (case-insensitively) wins. The matched keyword and any digits directly
// following it (a pre-release build number such as "rc2") are dropped, then
// everything except digits and dots is removed.
func ParseVersion(raw string, stateKeywords []string) (version string, state string) {
	state = StateRelease
	rest := raw

	for _, kw := range stateKeywords {
		if kw == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw) + `[0-9]*`)
		loc := re.FindStringIndex(rest)
		if loc == nil {
			continue
		}
		state = CanonicalState(kw)
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
		break
	}

	version = strings.Trim(nonVersionChars.ReplaceAllString(rest, ""), ".")
	if version == "" {
		version = DefaultVersion
	}
	return version, state
}

// CompareVersions compares two dotted numeric versions segment by segment.
// The shorter version is padded with zero segments, so "1.2" equals "1.2.0".
// Returns -1, 0 or 1.
func CompareVersions(a, b string) (int, error) {
	as, err := splitVersion(a)
	if err != nil {
		return 0, err
	}
	bs, err := splitVersion(b)
	if err != nil {
		return 0, err
	}

	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		x, y := "0", "0"
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if c := compareDigits(x, y); c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// IsValidVersion reports whether v is a dotted version CompareVersions accepts.
func IsValidVersion(v string) bool {
	_, err := splitVersion(v)
	return err == nil
}

func splitVersion(v string) ([]string, error) {
	parts := strings.Split(v, ".")
	for i, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return nil, &InvalidVersionError{Version: v, Segment: p}
		}
		parts[i] = trimLeadingZeros(p)
	}
	return parts, nil
}

func trimLeadingZeros(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

// compareDigits compares two decimal strings without leading zeros, so
// segments of any length compare without integer overflow.
func compareDigits(x, y string) int {
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}
