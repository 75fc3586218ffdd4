package draft

import (
	"time"

	"github.com/appetiteclub/tablepos/services/draft/internal/kot"
	"github.com/shopspring/decimal"
)

// ModelVersion 1 drafts predate per-line provenance.
const ModelVersion = 2

// Key identifies one terminal's view of a table. The persisted document is
// shared by every user at the table; UserID only scopes in-memory state.
type Key struct {
	RestaurantID string
	TableID      string
	UserID       string
}

// Draft is the persisted per-table document.
type Draft struct {
	RestaurantID string       `bson:"restaurant_id" json:"restaurant_id"`
	TableID      string       `bson:"table_id" json:"table_id"`
	TableName    string       `bson:"table_name,omitempty" json:"table_name,omitempty"`
	CartItems    []StoredLine `bson:"cart_items" json:"cart_items"`
	Persons      int          `bson:"persons" json:"persons"`
	KotHistory   []kot.Record `bson:"kot_history" json:"kot_history"`
	UpdatedBy    string       `bson:"updated_by" json:"updated_by"`
	UserID       string       `bson:"user_id" json:"user_id"`
	LastUpdated  time.Time    `bson:"last_updated" json:"last_updated"`
	ModelVersion int          `bson:"model_version" json:"model_version"`
}

// StoredLine is a cart line as persisted. Provenance is optional so older
// documents still decode; restore fills the gaps from draft-level fields.
type StoredLine struct {
	ItemID        string          `bson:"item_id" json:"item_id"`
	Name          string          `bson:"name" json:"name"`
	Price         decimal.Decimal `bson:"price" json:"price"`
	Quantity      int             `bson:"quantity" json:"quantity"`
	Note          string          `bson:"note,omitempty" json:"note,omitempty"`
	SpicePercent  int             `bson:"spice_percent" json:"spice_percent"`
	SpiceLevel    int             `bson:"spice_level,omitempty" json:"spice_level,omitempty"`
	IsJain        bool            `bson:"is_jain" json:"is_jain"`
	Split         bool            `bson:"split,omitempty" json:"split,omitempty"`
	AddedBy       *Actor          `bson:"added_by,omitempty" json:"added_by,omitempty"`
	LastUpdatedBy *Stamp          `bson:"last_updated_by,omitempty" json:"last_updated_by,omitempty"`
}

func (d *Draft) Key() Key {
	return Key{RestaurantID: d.RestaurantID, TableID: d.TableID, UserID: d.UserID}
}

func storeLines(lines []CartLine) []StoredLine {
	out := make([]StoredLine, len(lines))
	for i, l := range lines {
		added := l.AddedBy
		updated := l.LastUpdatedBy
		out[i] = StoredLine{
			ItemID:        l.ItemID,
			Name:          l.Name,
			Price:         l.UnitPrice,
			Quantity:      l.Quantity,
			Note:          l.Note,
			SpicePercent:  l.SpicePercent,
			SpiceLevel:    l.SpiceLevel,
			IsJain:        l.IsJain,
			Split:         l.Split,
			AddedBy:       &added,
			LastUpdatedBy: &updated,
		}
	}
	return out
}

// restoreLines rebuilds cart lines from a stored draft. Missing provenance
// defaults to the draft's last writer; lines stored at quantity zero or less
// are dropped.
func restoreLines(d *Draft) []CartLine {
	writer := Actor{UserID: d.UserID, UserName: d.UpdatedBy}

	out := make([]CartLine, 0, len(d.CartItems))
	for _, s := range d.CartItems {
		if s.Quantity <= 0 {
			continue
		}
		l := CartLine{
			ItemID:    s.ItemID,
			Name:      s.Name,
			UnitPrice: s.Price,
			Quantity:  s.Quantity,
			Note:      s.Note,
			IsJain:    s.IsJain,
			Split:     s.Split,
		}
		l.setSpice(s.SpicePercent)

		if s.AddedBy != nil {
			l.AddedBy = *s.AddedBy
		} else {
			l.AddedBy = writer
		}
		if s.LastUpdatedBy != nil {
			l.LastUpdatedBy = *s.LastUpdatedBy
		} else {
			l.LastUpdatedBy = writer.stamp(d.LastUpdated)
		}

		out = append(out, l)
	}
	return out
}
