package entities_test

import (
	"testing"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexes_LastWriteWins(t *testing.T) {
	t.Parallel()

	c := mustCatalog(t, `{"plugins":[
		{"id":"x","hash":"h","link":"https://r/x.plugin"},
		{"id":"y","link":"https://r/x.plugin"},
		{"id":"x","hash":"h"},
		{"id":"z"}
	]}`)

	byID := entities.BuildByID(c.Plugins)
	assert.Equal(t, 2, byID["x"])
	assert.Equal(t, 3, byID["z"])

	byHash := entities.BuildByHash(c.Plugins)
	assert.Len(t, byHash, 1)
	assert.Equal(t, 2, byHash["h"])

	idx, id, ok := entities.FindByFilename(c.Plugins, "x.plugin")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "x", id)

	_, _, ok = entities.FindByFilename(c.Plugins, "missing.plugin")
	assert.False(t, ok)
}

func TestCatalogIndex_AddReplace(t *testing.T) {
	t.Parallel()

	c := mustCatalog(t, `{"plugins":[{"id":"a","hash":"h1"}]}`)
	x := entities.NewCatalogIndex(c.Plugins)

	n := entities.NewPluginEntry()
	n.SetString(entities.FieldID, "b")
	n.SetString(entities.FieldHash, "h2")
	assert.Equal(t, 1, x.Add(n))

	i, e, ok := x.ByID("b")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, "b", e.ID())

	repl := entities.NewPluginEntry()
	repl.SetString(entities.FieldID, "a")
	repl.SetString(entities.FieldHash, "h3")
	x.Replace(0, repl)

	_, _, ok = x.ByHash("h1")
	assert.False(t, ok)
	i, _, ok = x.ByHash("h3")
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Len(t, x.Entries(), 2)
}
