package draft

import (
	"context"
	"time"
)

// Store persists one document per (restaurant, table).
type Store interface {
	Save(ctx context.Context, d *Draft) (*Draft, error)
	// Load returns nil, nil when the table has no draft.
	Load(ctx context.Context, key Key) (*Draft, error)
	Clear(ctx context.Context, key Key) error
	MarkPrinted(ctx context.Context, key Key, kotIDs []string) error
}

// Subscription is a restaurant's plan window.
type Subscription struct {
	RestaurantID string    `bson:"restaurant_id" json:"restaurant_id"`
	Plan         string    `bson:"plan" json:"plan"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
}

func (s *Subscription) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type SubscriptionRepository interface {
	// Find returns nil, nil when the restaurant has no subscription record.
	Find(ctx context.Context, restaurantID string) (*Subscription, error)
}
