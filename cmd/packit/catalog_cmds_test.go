package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/prompt"
	"github.com/shareui/packit-repo/catalog/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySaver struct {
	errs  []error
	saved []*services.Result
}

func (f *flakySaver) SaveResult(_ context.Context, res *services.Result) error {
	f.saved = append(f.saved, res)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func TestRetrySave(t *testing.T) {
	t.Parallel()

	res := &services.Result{Catalog: entities.NewCatalog()}
	errDisk := errors.New("disk full")

	t.Run("retries until saved", func(t *testing.T) {
		t.Parallel()
		saver := &flakySaver{errs: []error{errDisk}}
		var out bytes.Buffer

		err := retrySave(context.Background(), saver, res, errDisk, prompt.Auto{AcceptAll: true}, printer{w: &out})
		require.NoError(t, err)
		require.Len(t, saver.saved, 2)
		assert.Same(t, res, saver.saved[1])
		assert.Contains(t, out.String(), "catalog saved")
	})

	t.Run("declined keeps the error", func(t *testing.T) {
		t.Parallel()
		saver := &flakySaver{}
		var out bytes.Buffer

		err := retrySave(context.Background(), saver, res, errDisk, &prompt.Scripted{Confirms: []bool{false}}, printer{w: &out})
		assert.ErrorIs(t, err, errDisk)
		assert.Empty(t, saver.saved)
		assert.Contains(t, out.String(), "disk full")
	})
}
