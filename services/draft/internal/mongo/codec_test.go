package mongo

import (
	"testing"

	"github.com/appetiteclub/tablepos/services/draft/internal/kot"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecimalCodecStoresDecimal128(t *testing.T) {
	reg := NewRegistry()
	in := kot.DeltaItem{ItemID: "A", Name: "Paneer Tikka", Price: decimal.RequireFromString("249.50"), Quantity: -1}

	raw, err := bson.MarshalWithRegistry(reg, in)
	if err != nil {
		t.Fatalf("MarshalWithRegistry() error = %v", err)
	}

	price := bson.Raw(raw).Lookup("price")
	if _, ok := price.Decimal128OK(); !ok {
		t.Errorf("price stored as %s, want decimal128", price.Type)
	}

	var out kot.DeltaItem
	if err := bson.UnmarshalWithRegistry(reg, raw, &out); err != nil {
		t.Fatalf("UnmarshalWithRegistry() error = %v", err)
	}
	if !out.Price.Equal(in.Price) || out.Quantity != -1 {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestDecimalCodecDecodesLegacyValues(t *testing.T) {
	d128, _ := primitive.ParseDecimal128("12.75")

	tests := []struct {
		name  string
		price interface{}
		want  string
	}{
		{name: "decimal128", price: d128, want: "12.75"},
		{name: "string", price: "40.00", want: "40"},
		{name: "double", price: 30.5, want: "30.5"},
		{name: "int32", price: int32(15), want: "15"},
		{name: "int64", price: int64(99), want: "99"},
		{name: "null", price: nil, want: "0"},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{"item_id": "A", "price": tt.price})
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var out kot.DeltaItem
			if err := bson.UnmarshalWithRegistry(reg, raw, &out); err != nil {
				t.Fatalf("UnmarshalWithRegistry() error = %v", err)
			}
			if !out.Price.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("price = %s, want %s", out.Price, tt.want)
			}
		})
	}
}

func TestDecimalCodecRejectsBooleans(t *testing.T) {
	raw, _ := bson.Marshal(bson.M{"price": true})

	var out kot.DeltaItem
	if err := bson.UnmarshalWithRegistry(NewRegistry(), raw, &out); err == nil {
		t.Error("UnmarshalWithRegistry() accepted a boolean price")
	}
}
