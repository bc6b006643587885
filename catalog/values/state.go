// Package values contains value objects of the catalog domain: release states,
// versions and content digests.
package values

import "strings"

// Canonical release states of a plugin version.
const (
	StateAlpha   = "alpha"
	StateBeta    = "beta"
	StateDev     = "dev"
	StateRC      = "rc"
	StateRelease = "release"
)

// DefaultStateKeywords is the keyword list used when the operator has not
// configured one. Order matters: the first keyword found in a raw version wins.
var DefaultStateKeywords = []string{"alpha", "beta", "dev", "rc", "release", "stable", "rel"}

var stateAliases = map[string]string{
	"rel":    StateRelease,
	"stable": StateRelease,
}

var canonicalStates = map[string]bool{
	StateAlpha:   true,
	StateBeta:    true,
	StateDev:     true,
	StateRC:      true,
	StateRelease: true,
}

// CanonicalState maps a matched keyword to its canonical state name.
// Unrecognized keywords are returned verbatim.
func CanonicalState(keyword string) string {
	lower := strings.ToLower(keyword)
	if alias, ok := stateAliases[lower]; ok {
		return alias
	}
	if canonicalStates[lower] {
		return lower
	}
	return keyword
}

// IsKnownState reports whether state belongs to the fixed state vocabulary.
func IsKnownState(state string) bool {
	return canonicalStates[state]
}

// KnownStates returns the state vocabulary in maturity order.
func KnownStates() []string {
	return []string{StateAlpha, StateBeta, StateDev, StateRC, StateRelease}
}
