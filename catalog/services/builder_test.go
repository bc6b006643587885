package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranslator struct {
	out string
	ok  bool
	err error
}

func (f fakeTranslator) Translate(_ context.Context, _, _, _ string) (string, bool, error) {
	return f.out, f.ok, f.err
}

type langRecorder struct {
	source, target string
}

func (r *langRecorder) Translate(_ context.Context, text, source, target string) (string, bool, error) {
	r.source, r.target = source, target
	return "Weather", true, nil
}

func fullRecord() *entities.MetadataRecord {
	return &entities.MetadataRecord{
		ID:           "weather",
		Name:         "Weather",
		Author:       "@dev",
		Version:      "1.2.0",
		State:        "beta",
		Icon:         "sun/1",
		MinVersion:   "11.9.0",
		Description:  "Погода",
		Dependencies: []string{"core"},
		FilePath:     "/work/weather.plugin",
		FileHash:     "abc",
	}
}

func TestEntryBuilder_Toggles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts services.BuildOptions
		want []string
	}{
		{
			name: "minimal",
			opts: services.BuildOptions{RawDirURL: "https://r/p/"},
			want: []string{"id", "name", "author", "version", "state", "icon", "dependencies", "link"},
		},
		{
			name: "everything",
			opts: services.BuildOptions{RawDirURL: "https://r/p", AddHash: true, AddMinVersion: true, AddAbout: true, AddDescription: true},
			want: []string{"id", "name", "author", "version", "state", "icon", "min_version", "dependencies", "link", "hash", "about", "description"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := services.NewEntryBuilder(tt.opts).Build(context.Background(), fullRecord())
			assert.Equal(t, tt.want, e.Keys())
			assert.Equal(t, "https://r/p/weather.plugin", e.Link())
		})
	}
}

func TestEntryBuilder_About(t *testing.T) {
	t.Parallel()

	opts := services.BuildOptions{RawDirURL: "https://r", AddAbout: true, AboutLang: "ru"}

	t.Run("no translator", func(t *testing.T) {
		t.Parallel()
		e := services.NewEntryBuilder(opts).Build(context.Background(), fullRecord())
		about, ok := e.About()
		require.True(t, ok)
		assert.False(t, about.Pair)
		assert.Equal(t, "Погода", about.Text)
	})

	t.Run("translated pair", func(t *testing.T) {
		t.Parallel()
		b := services.NewEntryBuilder(opts).WithTranslator(fakeTranslator{out: "Weather", ok: true})
		about, ok := b.Build(context.Background(), fullRecord()).About()
		require.True(t, ok)
		assert.Equal(t, entities.NewAboutPair("Weather", "Погода"), about)
	})

	t.Run("translates from about_lang into english", func(t *testing.T) {
		t.Parallel()
		rec := &langRecorder{}
		b := services.NewEntryBuilder(opts).WithTranslator(rec)
		about, ok := b.Build(context.Background(), fullRecord()).About()
		require.True(t, ok)
		assert.Equal(t, "ru", rec.source)
		assert.Equal(t, "en", rec.target)
		assert.Equal(t, "Weather", about.English)
		assert.Equal(t, "Погода", about.Localized)
	})

	t.Run("translator error degrades", func(t *testing.T) {
		t.Parallel()
		b := services.NewEntryBuilder(opts).
			WithTranslator(fakeTranslator{err: errors.New("offline")}).
			WithLogger(testLogger())
		about, ok := b.Build(context.Background(), fullRecord()).About()
		require.True(t, ok)
		assert.Equal(t, entities.NewAbout("Погода"), about)
	})

	t.Run("no description", func(t *testing.T) {
		t.Parallel()
		rec := fullRecord()
		rec.Description = ""
		e := services.NewEntryBuilder(opts).Build(context.Background(), rec)
		assert.False(t, e.Has("about"))
	})
}

func TestEntryBuilder_CarryForward(t *testing.T) {
	t.Parallel()

	oldE := entry(t, `{"id":"weather","suspicious":true,"about":"old about","hash":"old","description":"d"}`)
	b := services.NewEntryBuilder(services.BuildOptions{RawDirURL: "https://r", AddHash: true})
	newE := b.Build(context.Background(), fullRecord())

	b.CarryForward(oldE, newE)

	assert.Equal(t, "abc", newE.Hash(), "fresh hash wins")
	about, ok := newE.About()
	require.True(t, ok)
	assert.Equal(t, "old about", about.Text)
	assert.Equal(t, "d", newE.Description())
	assert.Equal(t, []string{"suspicious"}, newE.Extensions())
	keys := newE.Keys()
	assert.Equal(t, "suspicious", keys[len(keys)-1])
}
