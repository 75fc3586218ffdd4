package commands

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearDraft deletes the stored draft of one table. Terminals that still hold
// the table in memory keep their state until they restore.
func ClearDraft(ctx context.Context, config *aqm.Config, logger aqm.Logger, restaurantID, tableID string) error {
	if restaurantID == "" || tableID == "" {
		return fmt.Errorf("restaurant id and table id are required")
	}

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	result, err := client.Database(draftDB(config)).Collection("drafts").DeleteOne(ctx, bson.M{
		"restaurant_id": restaurantID,
		"table_id":      tableID,
	})
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	if result.DeletedCount == 0 {
		logger.Info("No draft stored for table", "restaurant_id", restaurantID, "table_id", tableID)
		return nil
	}
	logger.Info("Draft deleted", "restaurant_id", restaurantID, "table_id", tableID)
	return nil
}
