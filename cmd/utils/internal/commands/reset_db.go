package commands

import (
	"context"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

// ResetDB drops the draft database - USE WITH CAUTION
func ResetDB(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Infof("⚠️  DANGER: This will drop ALL saved drafts and KOT history!")
	logger.Infof("⚠️  This action cannot be undone!")

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	dbName := draftDB(config)
	logger.Info("Dropping database", "database", dbName)
	result := client.Database(dbName).RunCommand(ctx, bson.D{{Key: "dropDatabase", Value: 1}})
	if result.Err() != nil {
		logger.Infof("⚠️  Failed to drop database %s (may not exist): %v", dbName, result.Err())
		return nil
	}

	logger.Info("Database dropped", "database", dbName)
	return nil
}
