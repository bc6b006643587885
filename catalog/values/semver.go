package values

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ValidateMinVersion checks that a client min_version value is a valid
// semantic version. A leading "v" is tolerated.
func ValidateMinVersion(v string) error {
	if _, err := semver.NewVersion(strings.TrimPrefix(v, "v")); err != nil {
		return fmt.Errorf("invalid min_version %q: %w", v, err)
	}
	return nil
}

// SatisfiesMinVersion reports whether the client version is at least the
// required min_version. An empty requirement is always satisfied.
func SatisfiesMinVersion(clientVersion, minVersion string) (bool, error) {
	if minVersion == "" {
		return true, nil
	}
	client, err := semver.NewVersion(strings.TrimPrefix(clientVersion, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid client version %q: %w", clientVersion, err)
	}
	req, err := semver.NewVersion(strings.TrimPrefix(minVersion, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid min_version %q: %w", minVersion, err)
	}
	return !client.LessThan(req), nil
}
