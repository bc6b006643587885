package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/services"
)

var (
	colorGreen   = lipgloss.Color("2")
	colorRed     = lipgloss.Color("1")
	colorYellow  = lipgloss.Color("3")
	colorCyan    = lipgloss.Color("6")
	colorMagenta = lipgloss.Color("5")
	colorGray    = lipgloss.Color("8")

	styleAdded   = lipgloss.NewStyle().Foreground(colorGreen)
	styleUpdated = lipgloss.NewStyle().Foreground(colorCyan)
	styleWarn    = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleMuted   = lipgloss.NewStyle().Foreground(colorGray)
	styleAccent  = lipgloss.NewStyle().Foreground(colorMagenta)
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

// printer writes operator-facing lines. Diagnostics go through slog instead.
type printer struct {
	w io.Writer
}

func (p printer) line(tag lipgloss.Style, label, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", tag.Render(label), fmt.Sprintf(format, args...))
}

func (p printer) done(format string, args ...any) {
	p.line(styleAdded, "[done]", format, args...)
}

func (p printer) warn(format string, args ...any) {
	p.line(styleWarn, "[warn]", format, args...)
}

func (p printer) skip(format string, args ...any) {
	p.line(styleMuted, "[skip]", format, args...)
}

func (p printer) info(format string, args ...any) {
	p.line(styleAccent, "[info]", format, args...)
}

func (p printer) plain(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func entryLabel(name, id string) string {
	return fmt.Sprintf("%s %s", name, styleMuted.Render("("+id+")"))
}

func (p printer) added(e *entities.PluginEntry) {
	p.line(styleAdded, "  [+]", "%s v%s", entryLabel(e.Name(), e.ID()), styleUpdated.Render(e.Version()))
}

func (p printer) updated(u entities.UpdatedEntry) {
	p.line(styleUpdated, "  [->]", "%s v%s -> v%s", entryLabel(u.Entry.Name(), u.Entry.ID()),
		u.PreviousVersion, styleUpdated.Render(u.Entry.Version()))
}

func (p printer) deleted(e *entities.PluginEntry) {
	p.line(styleError, "  [-]", "%s", entryLabel(e.Name(), e.ID()))
}

func (p printer) failures(fs []services.Failure) {
	if len(fs) == 0 {
		return
	}
	p.warn("%d file(s) had errors (skipped):", len(fs))
	for _, f := range fs {
		p.plain("  %s: %s", styleMuted.Render(filepath.Base(f.Path)), f.Reason)
	}
}

// result prints the outcome of a scan.
func (p printer) result(res *services.Result) {
	for _, w := range res.Warnings {
		p.warn("%s", w)
	}
	p.failures(res.Failures)
	for _, e := range res.Added {
		p.added(e)
	}
	for _, u := range res.Updated {
		p.updated(u)
	}
	if len(res.MissingIDs) > 0 {
		p.warn("%d plugin(s) in catalog have no file: %v", len(res.MissingIDs), res.MissingIDs)
	}
	if !res.Changed() {
		p.info("no changes (%d unchanged)", res.Skipped)
		return
	}
	p.done("added %s, updated %s, skipped %d, total %s",
		styleBold.Render(fmt.Sprint(len(res.Added))),
		styleBold.Render(fmt.Sprint(len(res.Updated))),
		res.Skipped,
		styleBold.Render(fmt.Sprint(res.Catalog.Len())))
}

var outcomeStyles = map[services.Outcome]struct {
	style lipgloss.Style
	label string
}{
	services.OutcomeNew:           {styleAdded, "[new]"},
	services.OutcomeUnchanged:     {styleMuted, "[ok]"},
	services.OutcomeUpgrade:       {styleUpdated, "[upgrade]"},
	services.OutcomeDowngrade:     {styleWarn, "[downgrade]"},
	services.OutcomeSameVersion:   {styleWarn, "[same]"},
	services.OutcomeExtractFailed: {styleError, "[error]"},
	services.OutcomeCompareFailed: {styleError, "[error]"},
}

// status prints the per-file classification.
func (p printer) status(res *services.Result) {
	for _, f := range res.Files {
		s := outcomeStyles[f.Outcome]
		name := filepath.Base(f.Path)
		switch {
		case f.Reason != "" && f.ID == "":
			p.line(s.style, s.label, "%s: %s", name, f.Reason)
		case f.PreviousVersion != "" && f.PreviousVersion != f.Version:
			p.line(s.style, s.label, "%s v%s -> v%s", entryLabel(f.Name, f.ID), f.PreviousVersion, f.Version)
		default:
			p.line(s.style, s.label, "%s v%s", entryLabel(f.Name, f.ID), f.Version)
		}
	}
	for _, id := range res.MissingIDs {
		_, e := res.Catalog.Find(id)
		name := id
		if e != nil {
			name = e.Name()
		}
		p.line(styleError, "[missing]", "%s", entryLabel(name, id))
	}
	p.plain("%s new %d, upgrade %d, downgrade %d, unchanged %d, errors %d, missing %d",
		styleTitle.Render("Summary:"),
		res.Count(services.OutcomeNew), res.Count(services.OutcomeUpgrade),
		res.Count(services.OutcomeDowngrade), res.Count(services.OutcomeUnchanged),
		len(res.Failures), len(res.MissingIDs))
}
