package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// draftSummary decodes only the fields the listing needs.
type draftSummary struct {
	RestaurantID string `bson:"restaurant_id"`
	TableID      string `bson:"table_id"`
	TableName    string `bson:"table_name"`
	Persons      int    `bson:"persons"`
	CartItems    []struct {
		Quantity int `bson:"quantity"`
	} `bson:"cart_items"`
	KotHistory []struct {
		Printed bool `bson:"printed"`
	} `bson:"kot_history"`
	UpdatedBy   string    `bson:"updated_by"`
	LastUpdated time.Time `bson:"last_updated"`
}

func (d draftSummary) units() int {
	n := 0
	for _, l := range d.CartItems {
		n += l.Quantity
	}
	return n
}

func (d draftSummary) unprinted() int {
	n := 0
	for _, k := range d.KotHistory {
		if !k.Printed {
			n++
		}
	}
	return n
}

// ListDrafts prints the stored drafts, optionally for one restaurant.
func ListDrafts(ctx context.Context, config *aqm.Config, logger aqm.Logger, restaurantID string, out io.Writer) error {
	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	query := bson.M{}
	if restaurantID != "" {
		query["restaurant_id"] = restaurantID
	}

	opts := options.Find().SetSort(bson.D{{Key: "restaurant_id", Value: 1}, {Key: "last_updated", Value: -1}})
	cursor, err := client.Database(draftDB(config)).Collection("drafts").Find(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("find drafts: %w", err)
	}
	defer cursor.Close(ctx)

	var drafts []draftSummary
	if err := cursor.All(ctx, &drafts); err != nil {
		return fmt.Errorf("decode drafts: %w", err)
	}

	return writeDrafts(out, drafts)
}

func writeDrafts(out io.Writer, drafts []draftSummary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESTAURANT\tTABLE\tNAME\tPERSONS\tUNITS\tKOTS\tUNPRINTED\tUPDATED BY\tUPDATED")
	for _, d := range drafts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			d.RestaurantID, d.TableID, d.TableName, d.Persons, d.units(),
			len(d.KotHistory), d.unprinted(), d.UpdatedBy, d.LastUpdated.Format(time.RFC3339))
	}
	return tw.Flush()
}
