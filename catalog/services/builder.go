package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/ports"
)

// EnglishLang is the language of the first element of an about pair.
const EnglishLang = "en"

// carriedFields are known fields an update keeps from the stored entry
// when the rebuilt entry does not set them.
var carriedFields = []string{entities.FieldAbout, entities.FieldDescription, entities.FieldHash}

// BuildOptions selects which optional fields a new entry gets.
type BuildOptions struct {
	RawDirURL      string
	AddHash        bool
	AddMinVersion  bool
	AddAbout       bool
	AddDescription bool
	// AboutLang is the language descriptions are written in.
	AboutLang string
}

// EntryBuilder turns metadata records into catalog entries.
type EntryBuilder struct {
	opts       BuildOptions
	translator ports.Translator
	logger     *slog.Logger
}

// NewEntryBuilder creates a builder without a translator.
func NewEntryBuilder(opts BuildOptions) *EntryBuilder {
	return &EntryBuilder{opts: opts, logger: slog.Default()}
}

// WithTranslator sets the translator used for about pairs.
func (b *EntryBuilder) WithTranslator(t ports.Translator) *EntryBuilder {
	b.translator = t
	return b
}

// WithLogger sets the logger.
func (b *EntryBuilder) WithLogger(l *slog.Logger) *EntryBuilder {
	b.logger = l
	return b
}

// Options returns the build options.
func (b *EntryBuilder) Options() BuildOptions {
	return b.opts
}

// Link returns the download URL for a file name.
func (b *EntryBuilder) Link(filename string) string {
	return strings.TrimRight(b.opts.RawDirURL, "/") + "/" + filename
}

// Build creates an entry from rec with fields in canonical order.
func (b *EntryBuilder) Build(ctx context.Context, rec *entities.MetadataRecord) *entities.PluginEntry {
	e := entities.NewPluginEntry()
	e.SetString(entities.FieldID, rec.ID)
	e.SetString(entities.FieldName, rec.Name)
	e.SetString(entities.FieldAuthor, rec.Author)
	e.SetString(entities.FieldVersion, rec.Version)
	e.SetString(entities.FieldState, rec.State)
	if rec.Icon != "" {
		e.SetString(entities.FieldIcon, rec.Icon)
	}
	if b.opts.AddMinVersion && rec.MinVersion != "" {
		e.SetString(entities.FieldMinVersion, rec.MinVersion)
	}
	deps := rec.Dependencies
	if deps == nil {
		deps = []string{}
	}
	_ = e.Set(entities.FieldDependencies, deps)
	e.SetString(entities.FieldLink, b.Link(rec.FileName()))
	if b.opts.AddHash && rec.FileHash != "" {
		e.SetString(entities.FieldHash, rec.FileHash)
	}
	if b.opts.AddAbout && rec.Description != "" {
		_ = e.Set(entities.FieldAbout, b.about(ctx, rec.Description))
	}
	if b.opts.AddDescription && rec.Description != "" {
		e.SetString(entities.FieldDescription, rec.Description)
	}
	return e
}

func (b *EntryBuilder) about(ctx context.Context, text string) entities.About {
	lang := b.opts.AboutLang
	if b.translator == nil || lang == "" || lang == EnglishLang {
		return entities.NewAbout(text)
	}
	english, ok, err := b.translator.Translate(ctx, text, lang, EnglishLang)
	if err != nil {
		b.logger.Warn("translation failed, using plain description", "error", err)
		return entities.NewAbout(text)
	}
	if !ok || english == "" {
		return entities.NewAbout(text)
	}
	return entities.NewAboutPair(english, text)
}

// CarryForward copies fields the stored entry has and the rebuilt entry
// lacks: every extension field plus about, description and hash. This is
// the merge layer that runs before conflict resolution.
func (b *EntryBuilder) CarryForward(oldEntry, newEntry *entities.PluginEntry) {
	for _, field := range oldEntry.Extensions() {
		if !newEntry.Has(field) {
			raw, _ := oldEntry.Get(field)
			newEntry.SetRaw(field, raw)
		}
	}
	for _, field := range carriedFields {
		if newEntry.Has(field) {
			continue
		}
		if raw, ok := oldEntry.Get(field); ok {
			newEntry.SetRaw(field, raw)
		}
	}
	newEntry.SortFields()
}
