package prompt_test

import (
	"context"
	"testing"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/ports"
	"github.com/shareui/packit-repo/catalog/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.DecisionStrategy = (*prompt.TerminalPrompter)(nil)
	_ ports.DecisionStrategy = prompt.Auto{}
	_ ports.DecisionStrategy = (*prompt.Scripted)(nil)
)

func TestAuto(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	downgrade := entities.Confirmation{Kind: entities.ConfirmDowngrade, Default: false}
	same := entities.Confirmation{Kind: entities.ConfirmSameVersion, Default: true}

	defaults := prompt.Auto{}
	ok, err := defaults.Confirm(ctx, downgrade)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = defaults.Confirm(ctx, same)
	assert.True(t, ok)

	yes := prompt.Auto{AcceptAll: true, Conflict: entities.KeepOld}
	ok, _ = yes.Confirm(ctx, downgrade)
	assert.True(t, ok)
	res, err := yes.ResolveConflict(ctx, entities.Conflict{Field: "author"})
	require.NoError(t, err)
	assert.Equal(t, entities.KeepOld, res.Choice)

	res, _ = prompt.Auto{Conflict: entities.Override}.ResolveConflict(ctx, entities.Conflict{})
	assert.Equal(t, entities.TakeNew, res.Choice)
}

func TestScripted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := &prompt.Scripted{
		Confirms:    []bool{true},
		Resolutions: []entities.Resolution{{Choice: entities.KeepOld}},
	}
	ok, err := s.Confirm(ctx, entities.Confirmation{ID: "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Confirm(ctx, entities.Confirmation{ID: "y"})
	assert.Error(t, err)
	assert.Len(t, s.Asked, 2)

	res, err := s.ResolveConflict(ctx, entities.Conflict{ID: "x", Field: "name"})
	require.NoError(t, err)
	assert.Equal(t, entities.KeepOld, res.Choice)
	_, err = s.ResolveConflict(ctx, entities.Conflict{ID: "x", Field: "icon"})
	assert.Error(t, err)
}

func TestOverrideValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"hello world"`, string(prompt.OverrideValue("hello world")))
	assert.Equal(t, `["a","b"]`, string(prompt.OverrideValue(`["a","b"]`)))
	assert.Equal(t, `true`, string(prompt.OverrideValue("true")))
}

func TestParseChoice(t *testing.T) {
	t.Parallel()

	c, err := prompt.ParseChoice("keep")
	require.NoError(t, err)
	assert.Equal(t, entities.KeepOld, c)
	c, err = prompt.ParseChoice("")
	require.NoError(t, err)
	assert.Equal(t, entities.TakeNew, c)
	_, err = prompt.ParseChoice("maybe")
	assert.Error(t, err)
}
