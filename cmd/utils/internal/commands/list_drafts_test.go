package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestDraftSummaryCounts(t *testing.T) {
	d := draftSummary{}
	d.CartItems = append(d.CartItems, struct {
		Quantity int `bson:"quantity"`
	}{Quantity: 2}, struct {
		Quantity int `bson:"quantity"`
	}{Quantity: 1})
	d.KotHistory = append(d.KotHistory, struct {
		Printed bool `bson:"printed"`
	}{Printed: true}, struct {
		Printed bool `bson:"printed"`
	}{Printed: false})

	if d.units() != 3 {
		t.Errorf("units() = %d, want 3", d.units())
	}
	if d.unprinted() != 1 {
		t.Errorf("unprinted() = %d, want 1", d.unprinted())
	}
}

func TestWriteDrafts(t *testing.T) {
	var buf bytes.Buffer
	drafts := []draftSummary{
		{RestaurantID: "r1", TableID: "t1", TableName: "Patio", Persons: 4, UpdatedBy: "Asha", LastUpdated: time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC)},
	}

	if err := writeDrafts(&buf, drafts); err != nil {
		t.Fatalf("writeDrafts() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one row", len(lines))
	}
	for _, want := range []string{"r1", "Patio", "Asha", "2026-10-15T19:00:00Z"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
}

func TestDemoDraftShape(t *testing.T) {
	doc := demoDraft(time.Now())
	if doc["restaurant_id"] != demoRestaurantID || doc["model_version"] != 2 {
		t.Errorf("demo draft = %v", doc)
	}
}
