package entities

import (
	"encoding/json"
	"fmt"
)

// Choice is the operator decision for one conflicting field.
type Choice int

const (
	// KeepOld retains the value stored in the catalog.
	KeepOld Choice = iota
	// TakeNew applies the freshly extracted value.
	TakeNew
	// Override substitutes an explicit value supplied with the resolution.
	Override
)

func (c Choice) String() string {
	switch c {
	case KeepOld:
		return "keep-old"
	case TakeNew:
		return "take-new"
	case Override:
		return "override"
	default:
		return fmt.Sprintf("choice(%d)", int(c))
	}
}

// Conflict is a field present in both the stored and the extracted entry
// with differing values.
type Conflict struct {
	ID    string
	Field string
	Old   json.RawMessage
	New   json.RawMessage
}

// Resolution is the decision for a single Conflict. Value is only read for Override.
type Resolution struct {
	Choice Choice
	Value  json.RawMessage
}

// ConfirmKind names the policy point a confirmation is requested for.
type ConfirmKind string

const (
	ConfirmDowngrade   ConfirmKind = "downgrade"
	ConfirmSameVersion ConfirmKind = "same-version"
	ConfirmDelete      ConfirmKind = "delete"
	ConfirmClear       ConfirmKind = "clear-missing"
	ConfirmRegenerate  ConfirmKind = "regenerate"
	ConfirmRetrySave   ConfirmKind = "retry-save"
)

// Confirmation describes a yes/no decision point.
type Confirmation struct {
	Kind    ConfirmKind
	ID      string
	Message string
	Default bool
}
