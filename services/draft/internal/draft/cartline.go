package draft

import (
	"time"

	"github.com/appetiteclub/tablepos/pkg/enums/spice"
	"github.com/appetiteclub/tablepos/services/draft/internal/kot"
	"github.com/shopspring/decimal"
)

// Actor identifies the staff member behind a change.
type Actor struct {
	UserID   string `bson:"user_id" json:"user_id"`
	UserName string `bson:"user_name" json:"user_name"`
}

// Stamp is an Actor plus the time of the change.
type Stamp struct {
	UserID   string    `bson:"user_id" json:"user_id"`
	UserName string    `bson:"user_name" json:"user_name"`
	At       time.Time `bson:"at" json:"at"`
}

func (a Actor) stamp(at time.Time) Stamp {
	return Stamp{UserID: a.UserID, UserName: a.UserName, At: at}
}

// CartLine is one physical line of the current order. Name and UnitPrice are
// copied from the menu when the line is created and never refreshed.
type CartLine struct {
	ItemID       string          `bson:"item_id" json:"item_id"`
	Name         string          `bson:"name" json:"name"`
	UnitPrice    decimal.Decimal `bson:"unit_price" json:"unit_price"`
	Quantity     int             `bson:"quantity" json:"quantity"`
	Note         string          `bson:"note,omitempty" json:"note,omitempty"`
	SpicePercent int             `bson:"spice_percent" json:"spice_percent"`
	SpiceLevel   int             `bson:"spice_level" json:"spice_level"`
	IsJain       bool            `bson:"is_jain" json:"is_jain"`

	// Split lines were carved out of another line by SplitLineAt and are
	// only addressable by index.
	Split bool `bson:"split,omitempty" json:"split,omitempty"`

	AddedBy       Actor `bson:"added_by" json:"added_by"`
	LastUpdatedBy Stamp `bson:"last_updated_by" json:"last_updated_by"`
}

// LineDetails carries the per-line attributes staff can edit.
type LineDetails struct {
	Note         string `json:"note"`
	SpicePercent *int   `json:"spice_percent,omitempty"`
	IsJain       bool   `json:"is_jain"`
}

func newCartLine(itemID, name string, price decimal.Decimal, qty int, by Actor, at time.Time) CartLine {
	l := CartLine{
		ItemID:        itemID,
		Name:          name,
		UnitPrice:     price,
		Quantity:      qty,
		AddedBy:       by,
		LastUpdatedBy: by.stamp(at),
	}
	l.setSpice(0)
	return l
}

func (l *CartLine) setSpice(percent int) {
	l.SpicePercent = spice.ClampPercent(percent)
	l.SpiceLevel = spice.FromPercent(l.SpicePercent).Value
}

func (l *CartLine) touch(by Actor, at time.Time) {
	l.LastUpdatedBy = by.stamp(at)
}

// Total is UnitPrice times Quantity.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func kotLines(lines []CartLine) []kot.Line {
	out := make([]kot.Line, len(lines))
	for i, l := range lines {
		out[i] = kot.Line{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Price:    l.UnitPrice,
			Quantity: l.Quantity,
		}
	}
	return out
}
