package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/ports"
	"github.com/shareui/packit-repo/catalog/values"
)

// Outcome classifies one discovered file.
type Outcome string

const (
	OutcomeNew           Outcome = "new"
	OutcomeUnchanged     Outcome = "unchanged"
	OutcomeUpgrade       Outcome = "upgrade"
	OutcomeDowngrade     Outcome = "downgrade"
	OutcomeSameVersion   Outcome = "same-version"
	OutcomeExtractFailed Outcome = "extract-failed"
	OutcomeCompareFailed Outcome = "compare-failed"
)

// FileOutcome is the classification of a single file.
type FileOutcome struct {
	Path            string
	ID              string
	Name            string
	Version         string
	PreviousVersion string
	Outcome         Outcome
	Applied         bool
	Reason          string
}

// Failure is a file that could not be reconciled.
type Failure struct {
	Path   string
	Reason string
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	// Catalog is the merged catalog. In status mode it equals the input.
	Catalog    *entities.Catalog
	Added      []*entities.PluginEntry
	Updated    []entities.UpdatedEntry
	Skipped    int
	Failures   []Failure
	MissingIDs []string
	Warnings   []string
	Files      []FileOutcome
}

// Changed reports whether any entry was added or updated.
func (r *Result) Changed() bool {
	return len(r.Added) > 0 || len(r.Updated) > 0
}

// Report converts the result into a change report for log sinks.
func (r *Result) Report(operation string) *entities.ChangeReport {
	return &entities.ChangeReport{
		Operation: operation,
		Added:     r.Added,
		Updated:   r.Updated,
		Total:     r.Catalog.Len(),
	}
}

// Count returns how many files ended with the given outcome.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

// Reconciler diffs discovered plugin files against a catalog.
//
// It performs no I/O of its own: metadata comes from the MetadataSource and
// every policy decision goes through the injected Confirmer and
// ConflictDecider, so a scripted strategy makes a run deterministic.
type Reconciler struct {
	source         ports.MetadataSource
	builder        *EntryBuilder
	resolver       *ConflictResolver
	confirmer      ports.Confirmer
	decider        ports.ConflictDecider
	hashTracking   bool
	allowDowngrade bool
	logger         *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithHashTracking enables the stored-hash short circuit.
func WithHashTracking(enabled bool) ReconcilerOption {
	return func(r *Reconciler) { r.hashTracking = enabled }
}

// WithAllowDowngrade applies downgrades without confirmation.
func WithAllowDowngrade(enabled bool) ReconcilerOption {
	return func(r *Reconciler) { r.allowDowngrade = enabled }
}

// WithConfirmer sets the yes/no decision strategy.
func WithConfirmer(c ports.Confirmer) ReconcilerOption {
	return func(r *Reconciler) { r.confirmer = c }
}

// WithConflictDecider sets the per-field conflict strategy.
func WithConflictDecider(d ports.ConflictDecider) ReconcilerOption {
	return func(r *Reconciler) { r.decider = d }
}

// WithConflictResolver replaces the default resolver.
func WithConflictResolver(cr *ConflictResolver) ReconcilerOption {
	return func(r *Reconciler) { r.resolver = cr }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = l }
}

// NewReconciler creates a reconciler. Without a confirmer every
// confirmation takes its default answer.
func NewReconciler(source ports.MetadataSource, builder *EntryBuilder, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		source:   source,
		builder:  builder,
		resolver: NewConflictResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pass struct {
	result *Result
	index  *entities.CatalogIndex
	seen   map[string]bool
	// claimed maps each id to the first file in this pass that carried it.
	claimed map[string]string
	apply   bool
}

// Apply reconciles paths into a copy of catalog and returns the merged result.
// The input catalog is not modified.
func (r *Reconciler) Apply(ctx context.Context, catalog *entities.Catalog, paths []string) (*Result, error) {
	return r.run(ctx, catalog.Clone(), paths, true)
}

// Status classifies paths without prompting or changing anything. Files
// with the stored version are reported unchanged.
func (r *Reconciler) Status(ctx context.Context, catalog *entities.Catalog, paths []string) (*Result, error) {
	return r.run(ctx, catalog, paths, false)
}

func (r *Reconciler) run(ctx context.Context, catalog *entities.Catalog, paths []string, apply bool) (*Result, error) {
	p := &pass{
		result:  &Result{Catalog: catalog},
		index:   entities.NewCatalogIndex(catalog.Plugins),
		seen:    make(map[string]bool),
		claimed: make(map[string]string),
		apply:   apply,
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.reconcileFile(ctx, p, path); err != nil {
			return nil, err
		}
	}

	if apply {
		catalog.Plugins = p.index.Entries()
	}
	for _, e := range catalog.Plugins {
		if !p.seen[e.ID()] {
			p.result.MissingIDs = append(p.result.MissingIDs, e.ID())
		}
	}

	r.logger.Debug("reconciliation finished",
		"files", len(paths),
		"added", len(p.result.Added),
		"updated", len(p.result.Updated),
		"skipped", p.result.Skipped,
		"failed", len(p.result.Failures),
		"missing", len(p.result.MissingIDs))
	return p.result, nil
}

func (r *Reconciler) reconcileFile(ctx context.Context, p *pass, path string) error {
	rec, err := r.source.Extract(ctx, path)
	if err != nil {
		rec = entities.FailedRecord(path, err.Error())
	}
	if rec.FilePath == "" {
		rec.FilePath = path
	}
	if rec.Failed() {
		r.fail(p, FileOutcome{Path: path, Outcome: OutcomeExtractFailed, Reason: rec.Err})
		// An existing entry for this file is not missing, only unreadable.
		if _, e, ok := p.index.ByFilename(filepath.Base(path)); ok {
			p.seen[e.ID()] = true
		}
		return nil
	}

	p.seen[rec.ID] = true
	fo := FileOutcome{Path: path, ID: rec.ID, Name: rec.Name, Version: rec.Version}

	// One file per id per pass: later files carrying a claimed id are skipped.
	if first, dup := p.claimed[rec.ID]; dup {
		msg := fmt.Sprintf("duplicate plugin id %q: %s ignored, already added from %s",
			rec.ID, filepath.Base(path), filepath.Base(first))
		p.result.Warnings = append(p.result.Warnings, msg)
		r.logger.Warn("duplicate plugin id in working directory", "id", rec.ID, "file", path, "first", first)
		fo.Outcome = OutcomeUnchanged
		fo.Reason = msg
		p.result.Skipped++
		p.result.Files = append(p.result.Files, fo)
		return nil
	}
	p.claimed[rec.ID] = path

	pos, existing, ok := p.index.ByID(rec.ID)
	if !ok {
		pos, existing, ok = p.index.ByFilename(rec.FileName())
	}

	if !ok {
		fo.Outcome = OutcomeNew
		if p.apply {
			entry := r.builder.Build(ctx, rec)
			p.index.Add(entry)
			p.result.Added = append(p.result.Added, entry)
			fo.Applied = true
		}
		p.result.Files = append(p.result.Files, fo)
		return nil
	}

	p.seen[existing.ID()] = true
	fo.PreviousVersion = existing.Version()

	if r.hashTracking && hashesMatch(rec.FileHash, existing.Hash()) {
		fo.Outcome = OutcomeUnchanged
		p.result.Skipped++
		p.result.Files = append(p.result.Files, fo)
		return nil
	}

	cmp, err := values.CompareVersions(rec.Version, existing.Version())
	if err != nil {
		fo.Outcome = OutcomeCompareFailed
		fo.Reason = err.Error()
		r.fail(p, fo)
		return nil
	}

	switch {
	case cmp > 0:
		fo.Outcome = OutcomeUpgrade
	case cmp < 0:
		fo.Outcome = OutcomeDowngrade
	default:
		fo.Outcome = OutcomeSameVersion
	}

	if !p.apply {
		if fo.Outcome == OutcomeSameVersion {
			fo.Outcome = OutcomeUnchanged
			p.result.Skipped++
		}
		p.result.Files = append(p.result.Files, fo)
		return nil
	}

	proceed, err := r.policy(ctx, p, fo)
	if err != nil {
		return err
	}
	if !proceed {
		p.result.Skipped++
		p.result.Files = append(p.result.Files, fo)
		return nil
	}

	entry := r.builder.Build(ctx, rec)
	r.builder.CarryForward(existing, entry)
	merged, err := r.resolver.Resolve(ctx, existing, entry, r.decider)
	if err != nil {
		return err
	}
	p.index.Replace(pos, merged)
	p.result.Updated = append(p.result.Updated, entities.UpdatedEntry{
		Entry:           merged,
		PreviousVersion: fo.PreviousVersion,
	})
	fo.Applied = true
	p.result.Files = append(p.result.Files, fo)
	return nil
}

// policy decides whether a downgrade or same-version change is applied.
func (r *Reconciler) policy(ctx context.Context, p *pass, fo FileOutcome) (bool, error) {
	switch fo.Outcome {
	case OutcomeDowngrade:
		if r.allowDowngrade {
			msg := fmt.Sprintf("downgrade: %s %s -> %s", fo.ID, fo.PreviousVersion, fo.Version)
			p.result.Warnings = append(p.result.Warnings, msg)
			r.logger.Warn("applying downgrade", "id", fo.ID, "from", fo.PreviousVersion, "to", fo.Version)
			return true, nil
		}
		return r.confirm(ctx, entities.Confirmation{
			Kind:    entities.ConfirmDowngrade,
			ID:      fo.ID,
			Message: fmt.Sprintf("%s: downgrade %s -> %s. Proceed?", fo.Name, fo.PreviousVersion, fo.Version),
			Default: false,
		})
	case OutcomeSameVersion:
		return r.confirm(ctx, entities.Confirmation{
			Kind:    entities.ConfirmSameVersion,
			ID:      fo.ID,
			Message: fmt.Sprintf("%s: same version (%s), different hash. Update?", fo.Name, fo.Version),
			Default: true,
		})
	default:
		return true, nil
	}
}

func (r *Reconciler) confirm(ctx context.Context, c entities.Confirmation) (bool, error) {
	if r.confirmer == nil {
		return c.Default, nil
	}
	ok, err := r.confirmer.Confirm(ctx, c)
	if err != nil {
		return false, fmt.Errorf("confirm %s for %s: %w", c.Kind, c.ID, err)
	}
	return ok, nil
}

func (r *Reconciler) fail(p *pass, fo FileOutcome) {
	p.result.Failures = append(p.result.Failures, Failure{Path: fo.Path, Reason: fo.Reason})
	p.result.Files = append(p.result.Files, fo)
	r.logger.Warn("skipping plugin file", "path", fo.Path, "reason", fo.Reason)
}

// hashesMatch compares a computed file hash to a stored one. Stored values
// may carry a "sha256:" prefix or differ in case.
func hashesMatch(fileHash, stored string) bool {
	if fileHash == "" || stored == "" {
		return false
	}
	if d, err := values.NewDigest(fileHash); err == nil {
		return d.Matches(stored)
	}
	return fileHash == stored
}
