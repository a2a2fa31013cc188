package cache

import (
	"context"

	"go.uber.org/zap"
)

// Invalidator performs write-through eviction after mutations commit.
// Eviction is advisory: a failed delete is logged and the entry ages out
// with its TTL instead of failing the mutation that already succeeded.
type Invalidator struct {
	cache  *Manager
	logger *zap.Logger
}

func NewInvalidator(cache *Manager, logger *zap.Logger) *Invalidator {
	return &Invalidator{cache: cache, logger: logger}
}

// EvictUserViews drops every cached view of a user. Called after any
// user mutation: the single-user view, the user-with-cards view and the
// card-list view all embed user fields.
func (i *Invalidator) EvictUserViews(ctx context.Context, userID int64) {
	i.evict(ctx, userID, UserViews)
}

// EvictCardOwnerViews drops the card-bearing views of a card's owner.
// The plain user view survives card mutations untouched.
func (i *Invalidator) EvictCardOwnerViews(ctx context.Context, userID int64) {
	i.evict(ctx, userID, CardOwnerViews)
}

func (i *Invalidator) evict(ctx context.Context, userID int64, views []ViewKind) {
	if i.cache == nil {
		return
	}
	for _, view := range views {
		if err := i.cache.Evict(ctx, view, userID); err != nil {
			i.logger.Warn("Cache eviction failed; entry expires with TTL",
				zap.String("view", string(view)),
				zap.Int64("userId", userID),
				zap.Error(err))
		}
	}
}
