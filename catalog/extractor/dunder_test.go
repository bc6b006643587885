package extractor_test

import (
	"testing"

	"github.com/shareui/packit-repo/catalog/extractor"
	"github.com/stretchr/testify/assert"
)

const pluginSource = `from base_plugin import BasePlugin

__id__ = "weather"
__name__ = 'Weather "Pro"'
__author__ = "@dev"
__version__ = "1.2.0 beta"
__icon__ = "sun/1"
__min_version__ = "11.9.0"
__description__ = """
Shows the weather.
Multi-line.
"""
__dependencies__ = [
    "core",
    'net',
]
__id__ = "ignored"

class Weather(BasePlugin):
    __name__ = "indented, not top level"
`

func TestParseDunder(t *testing.T) {
	t.Parallel()

	d := extractor.ParseDunder([]byte(pluginSource))

	assert.Equal(t, "weather", d.Get("id"))
	assert.Equal(t, `Weather "Pro"`, d.Get("name"))
	assert.Equal(t, "1.2.0 beta", d.Get("version"))
	assert.Equal(t, "11.9.0", d.Get("min_version"))
	assert.Equal(t, "Shows the weather.\nMulti-line.", d.Get("description"))
	assert.Equal(t, []string{"core", "net"}, d.List("dependencies"))
	assert.Empty(t, d.Get("missing"))
}

func TestDunder_ListFromString(t *testing.T) {
	t.Parallel()

	d := extractor.ParseDunder([]byte("__dependencies__ = \"a, b,,c\"\n__empty__ = []\n"))
	assert.Equal(t, []string{"a", "b", "c"}, d.List("dependencies"))
	assert.Equal(t, []string{}, d.List("empty"))
	assert.Nil(t, d.List("none"))
}

func TestParseRefmap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "refmap.yml", "id: weather\nname: Weather\nversion: 1.2\ndependencies: [core]\n"},
		{"json", "refmap.json", `{"id":"weather","name":"Weather","version":"1.2","dependencies":["core"]}`},
		{"py", "refmap.py", "__id__ = 'weather'\n__name__ = 'Weather'\n__version__ = '1.2'\n__dependencies__ = ['core']\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := extractor.ParseRefmap(tt.file, []byte(tt.content))
			assert.NoError(t, err)
			assert.Equal(t, "weather", m.ID)
			assert.Equal(t, "Weather", m.Name)
			assert.Equal(t, "1.2", m.Version)
			assert.Equal(t, []string{"core"}, m.Dependencies)
		})
	}

	_, err := extractor.ParseRefmap("refmap.yml", []byte("id: [unclosed"))
	assert.Error(t, err)
}
