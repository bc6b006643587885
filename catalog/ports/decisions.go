package ports

import (
	"context"

	"github.com/shareui/packit-repo/catalog/entities"
)

// Confirmer answers yes/no policy decisions such as downgrades.
type Confirmer interface {
	Confirm(ctx context.Context, c entities.Confirmation) (bool, error)
}

// ConflictDecider resolves one field conflict at a time.
type ConflictDecider interface {
	ResolveConflict(ctx context.Context, c entities.Conflict) (entities.Resolution, error)
}

// DecisionStrategy is implemented by prompters that handle both kinds of decision.
type DecisionStrategy interface {
	Confirmer
	ConflictDecider
}
