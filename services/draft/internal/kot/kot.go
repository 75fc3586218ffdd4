package kot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is the differ's view of one cart line. Several lines may share an
// ItemID when a line has been split.
type Line struct {
	ItemID   string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// DeltaItem is a signed quantity change since the previous KOT.
type DeltaItem struct {
	ItemID   string          `json:"item_id" bson:"item_id"`
	Name     string          `json:"name" bson:"name"`
	Price    decimal.Decimal `json:"price" bson:"price"`
	Quantity int             `json:"quantity" bson:"quantity"`
}

// Record is one kitchen order ticket. Only Printed ever changes after
// creation.
type Record struct {
	ID        string      `json:"kot_id" bson:"kot_id"`
	Items     []DeltaItem `json:"items" bson:"items"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Printed   bool        `json:"printed" bson:"printed"`
}

// Aggregate is the summed state of every line sharing an item id.
type Aggregate struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Snapshot is the aggregate-by-item view of the cart as of the last KOT.
// A nil Snapshot means no KOT has been taken since the draft was created or
// cleared; an empty non-nil Snapshot is a KOT-known empty cart.
type Snapshot map[string]Aggregate

func (r Record) clone() Record {
	items := make([]DeltaItem, len(r.Items))
	copy(items, r.Items)
	r.Items = items
	return r
}
