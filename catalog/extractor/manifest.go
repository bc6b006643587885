package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cast"
)

// Refmap is the manifest of a directory-packaged plugin.
type Refmap struct {
	ID           string
	Name         string
	Author       string
	Version      string
	Icon         string
	MinVersion   string
	Description  string
	Dependencies []string
}

// ParseRefmap decodes manifest content. The file name selects the format:
// refmap.py is read as dunder assignments, every other name as YAML
// (which also covers JSON).
func ParseRefmap(name string, data []byte) (*Refmap, error) {
	if strings.EqualFold(filepath.Ext(name), ".py") {
		return RefmapFromDunder(ParseDunder(data)), nil
	}

	// Scalars are decoded loosely so an unquoted version such as 1.2 still
	// reads as a string.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parsing %s: empty manifest", name)
	}
	return &Refmap{
		ID:           cast.ToString(raw["id"]),
		Name:         cast.ToString(raw["name"]),
		Author:       cast.ToString(raw["author"]),
		Version:      cast.ToString(raw["version"]),
		Icon:         cast.ToString(raw["icon"]),
		MinVersion:   cast.ToString(raw["min_version"]),
		Description:  cast.ToString(raw["description"]),
		Dependencies: cast.ToStringSlice(raw["dependencies"]),
	}, nil
}

// RefmapFromDunder maps plugin source assignments onto manifest fields.
func RefmapFromDunder(d Dunder) *Refmap {
	return &Refmap{
		ID:           d.Get("id"),
		Name:         d.Get("name"),
		Author:       d.Get("author"),
		Version:      d.Get("version"),
		Icon:         d.Get("icon"),
		MinVersion:   d.Get("min_version"),
		Description:  d.Get("description"),
		Dependencies: d.List("dependencies"),
	}
}
