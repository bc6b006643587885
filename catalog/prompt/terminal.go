// Package prompt provides decision strategies for reconciliation: an
// interactive terminal prompter and non-interactive strategies for
// scripts and tests.
package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/shareui/packit-repo/catalog/entities"
)

// TerminalPrompter asks the operator through huh forms.
type TerminalPrompter struct {
	out io.Writer
}

// NewTerminalPrompter creates a new TerminalPrompter writing notices to stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{out: os.Stderr}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Confirm asks a yes/no question, preselecting the confirmation default.
func (p *TerminalPrompter) Confirm(ctx context.Context, c entities.Confirmation) (bool, error) {
	answer := c.Default
	err := huh.NewConfirm().
		Title(c.Message).
		Affirmative("Yes").
		Negative("No").
		Value(&answer).
		Run()
	if err != nil {
		return false, err
	}
	return answer, nil
}

const (
	optionKeep     = "keep"
	optionTake     = "take"
	optionOverride = "override"
)

// ResolveConflict shows both values of a field and asks which one to keep.
func (p *TerminalPrompter) ResolveConflict(ctx context.Context, c entities.Conflict) (entities.Resolution, error) {
	selection := optionTake
	err := huh.NewSelect[string]().
		Title(fmt.Sprintf("Conflict in %s: field %q", c.ID, c.Field)).
		Options(
			huh.NewOption("Keep current: "+string(c.Old), optionKeep),
			huh.NewOption("Take new: "+string(c.New), optionTake),
			huh.NewOption("Enter a value", optionOverride),
		).
		Value(&selection).
		Run()
	if err != nil {
		return entities.Resolution{}, err
	}

	switch selection {
	case optionKeep:
		return entities.Resolution{Choice: entities.KeepOld}, nil
	case optionOverride:
		var text string
		err := huh.NewInput().
			Title(fmt.Sprintf("New value for %q", c.Field)).
			Description("Plain text is stored as a string; valid JSON is stored as is.").
			Value(&text).
			Run()
		if err != nil {
			return entities.Resolution{}, err
		}
		return entities.Resolution{Choice: entities.Override, Value: OverrideValue(text)}, nil
	default:
		return entities.Resolution{Choice: entities.TakeNew}, nil
	}
}

// Ask reads a line of text, returning def when the answer is blank.
func (p *TerminalPrompter) Ask(title, def string) (string, error) {
	value := def
	if err := huh.NewInput().Title(title).Placeholder(def).Value(&value).Run(); err != nil {
		return "", err
	}
	if value == "" {
		return def, nil
	}
	return value, nil
}

// Choose presents a list of options and returns the selected value.
func (p *TerminalPrompter) Choose(title string, options []huh.Option[string]) (string, error) {
	var selection string
	err := huh.NewSelect[string]().
		Title(title).
		Options(options...).
		Value(&selection).
		Run()
	return selection, err
}

// Notify prints a line to the prompter's output.
func (p *TerminalPrompter) Notify(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// OverrideValue converts operator input into a JSON value. Input that is
// already valid JSON (numbers, lists, quoted strings) is kept, anything
// else becomes a JSON string.
func OverrideValue(text string) json.RawMessage {
	if json.Valid([]byte(text)) {
		return json.RawMessage(text)
	}
	b, _ := json.Marshal(text)
	return b
}
