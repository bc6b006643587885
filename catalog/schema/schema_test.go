package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shareui/packit-repo/catalog/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	b, err := schema.Generate()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, schema.SchemaID, doc["$id"])
	assert.Contains(t, string(b), `"plugins"`)
	assert.Contains(t, string(b), `"oneOf"`)
}

func newLinter(t *testing.T) *schema.Linter {
	t.Helper()
	l, err := schema.NewLinter()
	require.NoError(t, err)
	return l
}

func TestLinter_CleanCatalog(t *testing.T) {
	t.Parallel()

	report, err := newLinter(t).Lint([]byte(`{"repometa":{},"plugins":[
		{"id":"a","name":"A","version":"1.0","state":"beta","about":["en","ru"],"link":"https://r/a.plugin","custom":1},
		{"id":"b","name":"B","version":"2","dependencies":["a"],"min_version":"11.9.0","about":"plain"}
	]}`))
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Issues)
	assert.Empty(t, report.Issues)
}

func TestLinter_Findings(t *testing.T) {
	t.Parallel()

	report, err := newLinter(t).Lint([]byte(`{"plugins":[
		{"id":"a","name":"A","version":"1.x","state":"gamma"},
		{"id":"a","name":"A2","version":"1.0","dependencies":["zzz"],"min_version":"not-semver"},
		{"id":"c","name":"C","version":"1","about":["only one"]}
	]}`))
	require.NoError(t, err)
	assert.False(t, report.OK())

	var text []string
	for _, i := range report.Issues {
		text = append(text, i.String())
	}
	joined := strings.Join(text, "\n")
	assert.Contains(t, joined, "duplicate id")
	assert.Contains(t, joined, `invalid version "1.x"`)
	assert.Contains(t, joined, `unknown state "gamma"`)
	assert.Contains(t, joined, `dependency "zzz"`)
	assert.Contains(t, joined, "warning: a:")
	assert.Contains(t, joined, "/plugins/2/about")
}

func TestLinter_NotJSON(t *testing.T) {
	t.Parallel()

	_, err := newLinter(t).Lint([]byte(`{nope`))
	assert.Error(t, err)
}

func TestLinter_MissingPlugins(t *testing.T) {
	t.Parallel()

	report, err := newLinter(t).Lint([]byte(`{"repometa":{}}`))
	require.NoError(t, err)
	assert.False(t, report.OK())
}
