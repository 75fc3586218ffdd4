package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
)

// GuardedStore rejects saves for restaurants whose subscription has expired.
// Restaurants without a subscription record are not restricted.
type GuardedStore struct {
	Store
	subs   SubscriptionRepository
	now    func() time.Time
	logger aqm.Logger
}

func NewGuardedStore(store Store, subs SubscriptionRepository, logger aqm.Logger) *GuardedStore {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &GuardedStore{
		Store:  store,
		subs:   subs,
		now:    time.Now,
		logger: logger,
	}
}

func (g *GuardedStore) Save(ctx context.Context, d *Draft) (*Draft, error) {
	sub, err := g.subs.Find(ctx, d.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("cannot check subscription: %w", err)
	}
	if sub != nil && sub.Expired(g.now()) {
		g.logger.Info("save rejected, subscription expired", "restaurant_id", d.RestaurantID, "expired_at", sub.ExpiresAt)
		return nil, ErrSubscriptionExpired
	}
	return g.Store.Save(ctx, d)
}
