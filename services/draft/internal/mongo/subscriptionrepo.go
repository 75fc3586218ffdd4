package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/tablepos/services/draft/internal/draft"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const subscriptionsCollection = "subscriptions"

// SubscriptionRepo reads restaurant plans from the draft database. It shares
// the DraftRepo connection.
type SubscriptionRepo struct {
	dbFn func() *mongo.Database
}

func NewSubscriptionRepo(dbFn func() *mongo.Database) *SubscriptionRepo {
	return &SubscriptionRepo{dbFn: dbFn}
}

func (r *SubscriptionRepo) Find(ctx context.Context, restaurantID string) (*draft.Subscription, error) {
	db := r.dbFn()
	if db == nil {
		return nil, errors.New("database not connected")
	}

	var sub draft.Subscription
	err := db.Collection(subscriptionsCollection).FindOne(ctx, bson.M{"restaurant_id": restaurantID}).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot find subscription: %w", err)
	}
	return &sub, nil
}
