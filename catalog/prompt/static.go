package prompt

import (
	"context"
	"fmt"

	"github.com/shareui/packit-repo/catalog/entities"
)

// Auto answers every decision without asking. It is used when stdin is
// not a terminal or when the operator passes --yes.
type Auto struct {
	// AcceptAll answers yes to every confirmation; otherwise each
	// confirmation takes its own default.
	AcceptAll bool
	// Conflict is the choice applied to every field conflict.
	Conflict entities.Choice
}

// Confirm implements ports.Confirmer.
func (a Auto) Confirm(_ context.Context, c entities.Confirmation) (bool, error) {
	if a.AcceptAll {
		return true, nil
	}
	return c.Default, nil
}

// ResolveConflict implements ports.ConflictDecider. Override is not
// meaningful without a value and falls back to TakeNew.
func (a Auto) ResolveConflict(_ context.Context, _ entities.Conflict) (entities.Resolution, error) {
	if a.Conflict == entities.Override {
		return entities.Resolution{Choice: entities.TakeNew}, nil
	}
	return entities.Resolution{Choice: a.Conflict}, nil
}

// Scripted replays recorded answers in order. It fails once the script
// runs out, which makes unexpected prompts visible in tests.
type Scripted struct {
	Confirms    []bool
	Resolutions []entities.Resolution

	Asked     []entities.Confirmation
	Conflicts []entities.Conflict
}

// Confirm implements ports.Confirmer.
func (s *Scripted) Confirm(_ context.Context, c entities.Confirmation) (bool, error) {
	s.Asked = append(s.Asked, c)
	if len(s.Confirms) == 0 {
		return false, fmt.Errorf("unexpected confirmation %s for %s", c.Kind, c.ID)
	}
	ans := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return ans, nil
}

// ResolveConflict implements ports.ConflictDecider.
func (s *Scripted) ResolveConflict(_ context.Context, c entities.Conflict) (entities.Resolution, error) {
	s.Conflicts = append(s.Conflicts, c)
	if len(s.Resolutions) == 0 {
		return entities.Resolution{}, fmt.Errorf("unexpected conflict on %s.%s", c.ID, c.Field)
	}
	res := s.Resolutions[0]
	s.Resolutions = s.Resolutions[1:]
	return res, nil
}

// ParseChoice maps a flag value to a conflict choice.
func ParseChoice(s string) (entities.Choice, error) {
	switch s {
	case "keep", "keep-old", "old":
		return entities.KeepOld, nil
	case "take", "take-new", "new", "":
		return entities.TakeNew, nil
	default:
		return 0, fmt.Errorf("unknown conflict choice %q (want keep or take)", s)
	}
}
