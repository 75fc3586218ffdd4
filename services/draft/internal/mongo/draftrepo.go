package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/tablepos/services/draft/internal/draft"
	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const draftsCollection = "drafts"

// DraftRepo stores one document per (restaurant, table).
type DraftRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     aqm.Logger
	config     *aqm.Config
}

func NewDraftRepo(config *aqm.Config, logger aqm.Logger) *DraftRepo {
	return &DraftRepo{
		logger: logger,
		config: config,
	}
}

func (r *DraftRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "tablepos_draft"
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetRegistry(NewRegistry()).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection(draftsCollection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "restaurant_id", Value: 1}, {Key: "table_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("cannot create restaurant_id/table_id index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: %s", mongoURL, dbName, draftsCollection)
	return nil
}

func (r *DraftRepo) GetDatabase() *mongo.Database {
	return r.db
}

func (r *DraftRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func tableFilter(restaurantID, tableID string) bson.M {
	return bson.M{"restaurant_id": restaurantID, "table_id": tableID}
}

// Save replaces the table's document, creating it when absent.
func (r *DraftRepo) Save(ctx context.Context, d *draft.Draft) (*draft.Draft, error) {
	if d.LastUpdated.IsZero() {
		d.LastUpdated = time.Now()
	}

	_, err := r.collection.ReplaceOne(ctx, tableFilter(d.RestaurantID, d.TableID), d, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("cannot save draft: %w", err)
	}
	return d, nil
}

func (r *DraftRepo) Load(ctx context.Context, key draft.Key) (*draft.Draft, error) {
	var d draft.Draft
	err := r.collection.FindOne(ctx, tableFilter(key.RestaurantID, key.TableID)).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot find draft: %w", err)
	}
	return &d, nil
}

func (r *DraftRepo) Clear(ctx context.Context, key draft.Key) error {
	if _, err := r.collection.DeleteOne(ctx, tableFilter(key.RestaurantID, key.TableID)); err != nil {
		return fmt.Errorf("cannot delete draft: %w", err)
	}
	return nil
}

// MarkPrinted flips the printed flag of the listed KOTs in place. Other
// fields of the document are left alone so a concurrent save of the cart by
// another terminal is not overwritten.
func (r *DraftRepo) MarkPrinted(ctx context.Context, key draft.Key, kotIDs []string) error {
	update := bson.M{"$set": bson.M{"kot_history.$[k].printed": true}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"k.kot_id": bson.M{"$in": kotIDs}}},
	})

	result, err := r.collection.UpdateOne(ctx, tableFilter(key.RestaurantID, key.TableID), update, opts)
	if err != nil {
		return fmt.Errorf("cannot mark kots printed: %w", err)
	}
	if result.MatchedCount == 0 {
		return draft.ErrDraftNotFound
	}
	return nil
}
