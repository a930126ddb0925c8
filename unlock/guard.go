package unlock

import (
	"context"

	"community-milestones/models"
)

// Ledger is the part of the adapter the guard needs.
type Ledger interface {
	IsUnlocked(id string) bool
	RecordUnlock(ctx context.Context, id, imageKey string, locale models.Locale)
}

// Guard is the single chokepoint that rewards a milestone at most once per user.
//
// The check and the record are ordered within one call. Two concurrent calls for the
// same id may both pass the check and both record; the ledger write is a set union.
type Guard struct {
	ledger Ledger
}

func NewGuard(ledger Ledger) *Guard {
	return &Guard{ledger: ledger}
}

// AttemptUnlock records id unless it is already unlocked. Locale must already be
// normalized by the caller (see NormalizeLocale).
func (g *Guard) AttemptUnlock(ctx context.Context, id, imageKey string, locale models.Locale) {
	if g == nil || g.ledger == nil || id == "" {
		return
	}
	if g.ledger.IsUnlocked(id) {
		return
	}
	g.ledger.RecordUnlock(ctx, id, imageKey, locale)
}
