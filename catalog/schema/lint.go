package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"

	validator "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/values"
)

// Severity of a lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single lint finding.
type Issue struct {
	Severity Severity
	ID       string
	Location string
	Message  string
}

func (i Issue) String() string {
	where := i.Location
	if i.ID != "" {
		where = i.ID
	}
	if where == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, where, i.Message)
}

// Report collects lint issues.
type Report struct {
	Issues []Issue
}

// Errors returns the number of error-level issues.
func (r *Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// OK reports whether there are no error-level issues.
func (r *Report) OK() bool { return r.Errors() == 0 }

func (r *Report) add(sev Severity, id, loc, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, ID: id, Location: loc, Message: fmt.Sprintf(format, args...)})
}

// Linter validates catalog content against the generated schema and the
// rules the schema cannot express.
type Linter struct {
	schema *validator.Schema
}

// NewLinter compiles the catalog schema.
func NewLinter() (*Linter, error) {
	doc, err := Generate()
	if err != nil {
		return nil, err
	}
	compiled, err := validator.CompileString(SchemaID, string(doc))
	if err != nil {
		return nil, fmt.Errorf("compiling catalog schema: %w", err)
	}
	return &Linter{schema: compiled}, nil
}

// Lint checks raw catalog bytes. The error return is for content that is
// not JSON at all; everything else becomes an issue.
func (l *Linter) Lint(data []byte) (*Report, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrCatalogFormat, err)
	}

	report := &Report{}
	if err := l.schema.Validate(doc); err != nil {
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			for _, leaf := range leaves(ve) {
				report.add(SeverityError, "", leaf.InstanceLocation, "%s", leaf.Message)
			}
		} else {
			report.add(SeverityError, "", "", "%v", err)
		}
	}

	catalog, err := entities.ParseCatalog(data)
	if err != nil {
		report.add(SeverityError, "", "", "%v", err)
		return report, nil
	}
	LintCatalog(catalog, report)
	return report, nil
}

// leaves returns the innermost causes, which carry the specific messages.
func leaves(ve *validator.ValidationError) []*validator.ValidationError {
	if len(ve.Causes) == 0 {
		return []*validator.ValidationError{ve}
	}
	var out []*validator.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

// LintCatalog applies the semantic checks to a parsed catalog.
func LintCatalog(c *entities.Catalog, report *Report) {
	for _, id := range c.DuplicateIDs() {
		report.add(SeverityError, id, "", "duplicate id")
	}

	known := make(map[string]bool, c.Len())
	for _, p := range c.Plugins {
		known[p.ID()] = true
	}

	files := map[string][]string{}
	for i, p := range c.Plugins {
		loc := fmt.Sprintf("/plugins/%d", i)
		id := p.ID()
		if id == "" {
			report.add(SeverityError, "", loc, "missing id")
		}
		if v := p.Version(); !values.IsValidVersion(v) {
			report.add(SeverityError, id, loc, "invalid version %q", v)
		}
		if s := p.State(); s != "" && !values.IsKnownState(s) {
			report.add(SeverityWarning, id, loc, "unknown state %q", s)
		}
		if mv := p.MinVersion(); mv != "" {
			if err := values.ValidateMinVersion(mv); err != nil {
				report.add(SeverityWarning, id, loc, "%v", err)
			}
		}
		for _, dep := range p.Dependencies() {
			if !known[dep] {
				report.add(SeverityWarning, id, loc, "dependency %q is not in this catalog", dep)
			}
		}
		if name := p.Filename(); name != "" {
			files[name] = append(files[name], id)
		} else if p.Has(entities.FieldLink) {
			report.add(SeverityWarning, id, loc, "link has no file name")
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ids := files[name]; len(ids) > 1 {
			report.add(SeverityWarning, ids[len(ids)-1], "", "file %s is linked by %d entries", path.Base(name), len(ids))
		}
	}
}
