package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	utilsSeedApplication = "utils"
	demoRestaurantID     = "demo-restaurant"
	demoSeedUser         = "demo-seed"
)

// SeedDemo creates an active subscription and one open table for the demo
// restaurant.
func SeedDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting demo seeding process...")

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	db := client.Database(draftDB(config))
	tracker := seed.NewMongoTracker(db)

	if err := seed.Apply(ctx, tracker, demoSeeds(db, time.Now()), utilsSeedApplication); err != nil {
		return fmt.Errorf("apply demo seeds: %w", err)
	}
	return nil
}

func demoSeeds(db *mongo.Database, now time.Time) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "demo_subscription_v1",
			Description: "Create an active subscription for the demo restaurant",
			Run: func(ctx context.Context) error {
				return upsertOnce(ctx, db.Collection("subscriptions"), bson.M{"restaurant_id": demoRestaurantID}, bson.M{
					"restaurant_id": demoRestaurantID,
					"plan":          "demo",
					"expires_at":    now.AddDate(1, 0, 0),
				})
			},
		},
		{
			ID:          "demo_open_table_v1",
			Description: "Create an open table with one printed KOT",
			Run: func(ctx context.Context) error {
				return upsertOnce(ctx, db.Collection("drafts"), bson.M{"restaurant_id": demoRestaurantID, "table_id": "T1"}, demoDraft(now))
			},
		},
	}
}

func demoDraft(now time.Time) bson.M {
	line := func(itemID, name string, price float64, qty int) bson.M {
		return bson.M{
			"item_id":         itemID,
			"name":            name,
			"price":           price,
			"quantity":        qty,
			"spice_percent":   0,
			"is_jain":         false,
			"added_by":        bson.M{"user_id": demoSeedUser, "user_name": "Demo"},
			"last_updated_by": bson.M{"user_id": demoSeedUser, "user_name": "Demo", "at": now},
		}
	}
	kotItem := func(itemID, name string, price float64, qty int) bson.M {
		return bson.M{"item_id": itemID, "name": name, "price": price, "quantity": qty}
	}

	return bson.M{
		"restaurant_id": demoRestaurantID,
		"table_id":      "T1",
		"table_name":    "Table 1",
		"persons":       2,
		"cart_items": bson.A{
			line("paneer-tikka", "Paneer Tikka", 249.50, 1),
			line("butter-naan", "Butter Naan", 40, 2),
		},
		"kot_history": bson.A{
			bson.M{
				"kot_id":    uuid.NewString(),
				"timestamp": now,
				"printed":   true,
				"items": bson.A{
					kotItem("butter-naan", "Butter Naan", 40, 2),
					kotItem("paneer-tikka", "Paneer Tikka", 249.50, 1),
				},
			},
		},
		"updated_by":    "Demo",
		"user_id":       demoSeedUser,
		"last_updated":  now,
		"model_version": 2,
	}
}

func upsertOnce(ctx context.Context, coll *mongo.Collection, filter, doc bson.M) error {
	_, err := coll.UpdateOne(ctx, filter, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", coll.Name(), err)
	}
	return nil
}
