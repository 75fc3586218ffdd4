package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/seed"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const draftSeedApplication = "draft"

// DemoRestaurantID is the restaurant the demo seeds provision.
const DemoRestaurantID = "demo-restaurant"

// Seeds returns all seeds for the draft service
func Seeds(db *mongo.Database, now func() time.Time) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "demo_subscription_v1",
			Description: "Create an active subscription for the demo restaurant",
			Run: func(ctx context.Context) error {
				return seedDemoSubscription(ctx, db, now())
			},
		},
	}
}

func seedDemoSubscription(ctx context.Context, db *mongo.Database, now time.Time) error {
	sub := bson.M{
		"restaurant_id": DemoRestaurantID,
		"plan":          "demo",
		"expires_at":    now.AddDate(1, 0, 0),
	}

	_, err := db.Collection(subscriptionsCollection).UpdateOne(
		ctx,
		bson.M{"restaurant_id": DemoRestaurantID},
		bson.M{"$setOnInsert": sub},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("cannot create demo subscription: %w", err)
	}
	return nil
}

// ApplyDemoSeeds applies demo seeds if enabled via config
func ApplyDemoSeeds(ctx context.Context, config *aqm.Config, dbFn func() *mongo.Database, logger aqm.Logger) error {
	enabled, _ := config.GetString("seed.demo.enabled")
	if enabled != "true" {
		return nil
	}

	db := dbFn()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	logger.Info("Demo seeding enabled, applying demo subscription...")
	tracker := seed.NewMongoTracker(db)

	if err := seed.Apply(ctx, tracker, Seeds(db, time.Now), draftSeedApplication); err != nil {
		return fmt.Errorf("demo seed failed: %w", err)
	}

	logger.Info("Demo subscription seeded successfully")
	return nil
}
