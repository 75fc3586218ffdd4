package draft

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/appetiteclub/tablepos/pkg"
	"github.com/appetiteclub/tablepos/pkg/event"
	"github.com/appetiteclub/tablepos/services/draft/internal/kot"
	"github.com/shopspring/decimal"
)

var testRef = Ref{Key: testKey, TableName: "T1"}

func TestEventRelayKotCreated(t *testing.T) {
	pub := &MockPublisher{}
	stream := NewKotStreamServer(nil)
	relay := NewEventRelay(pub, stream, nil)

	rec := kot.Record{
		ID: "kot-1",
		Items: []kot.DeltaItem{
			{ItemID: "A", Name: "Paneer Tikka", Price: decimal.RequireFromString("249.50"), Quantity: 2},
			{ItemID: "B", Name: "Butter Naan", Price: decimal.NewFromInt(40), Quantity: -1},
		},
	}
	relay.KotCreated(context.Background(), testRef, rec, 3)

	if len(pub.Published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.Published))
	}
	if pub.Published[0].Topic != pkg.KotTopic {
		t.Errorf("topic = %s, want %s", pub.Published[0].Topic, pkg.KotTopic)
	}

	var evt event.KotCreatedEvent
	if err := json.Unmarshal(pub.Published[0].Data, &evt); err != nil {
		t.Fatalf("cannot decode event: %v", err)
	}
	if evt.EventType != event.EventKotCreated || evt.KotID != "kot-1" || evt.Number != 3 {
		t.Errorf("event = %+v", evt)
	}
	if evt.TableName != "T1" || evt.RestaurantID != "r1" || evt.UserID != "u1" {
		t.Errorf("metadata = %+v", evt.KotEventMetadata)
	}
	if len(evt.Items) != 2 || evt.Items[0].Price != "249.5" || evt.Items[1].Quantity != -1 {
		t.Errorf("items = %+v", evt.Items)
	}

	if got := len(stream.recent["r1"]); got != 1 {
		t.Errorf("stream backlog = %d, want 1", got)
	}
}

func TestEventRelayPrintedAndCleared(t *testing.T) {
	pub := &MockPublisher{}
	relay := NewEventRelay(pub, nil, nil)

	relay.KotsPrinted(context.Background(), testRef, []string{"kot-1", "kot-2"})
	relay.DraftCleared(context.Background(), testRef)

	if len(pub.Published) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.Published))
	}

	var printed event.KotsPrintedEvent
	if err := json.Unmarshal(pub.Published[0].Data, &printed); err != nil {
		t.Fatalf("cannot decode event: %v", err)
	}
	if printed.EventType != event.EventKotsPrinted || len(printed.KotIDs) != 2 {
		t.Errorf("printed event = %+v", printed)
	}

	var cleared event.DraftClearedEvent
	if err := json.Unmarshal(pub.Published[1].Data, &cleared); err != nil {
		t.Fatalf("cannot decode event: %v", err)
	}
	if cleared.EventType != event.EventDraftCleared {
		t.Errorf("cleared event type = %s", cleared.EventType)
	}
}

func TestEventRelayPublishFailureIsSwallowed(t *testing.T) {
	pub := &MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, data []byte) error {
			return errors.New("nats: connection closed")
		},
	}
	stream := NewKotStreamServer(nil)
	relay := NewEventRelay(pub, stream, nil)

	relay.DraftCleared(context.Background(), testRef)

	if len(stream.recent["r1"]) != 1 {
		t.Error("stream skipped after publish failure")
	}
}

func TestSessionWithRelayPublishesOnSave(t *testing.T) {
	env := newTestEnv()
	pub := &MockPublisher{}
	env.deps.Observer = NewEventRelay(pub, nil, nil)
	s := env.session()
	mustAdd(t, s, "A", 1)

	if _, err := s.Save(context.Background(), testActor); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(pub.Published) != 1 {
		t.Errorf("published %d messages, want 1", len(pub.Published))
	}
}
