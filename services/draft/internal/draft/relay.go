package draft

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appetiteclub/tablepos/pkg"
	"github.com/appetiteclub/tablepos/pkg/event"
	"github.com/appetiteclub/tablepos/services/draft/internal/kot"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// EventRelay publishes committed ledger changes on NATS and to gRPC stream
// subscribers. Delivery failures are logged; they never fail the action
// that produced the event.
type EventRelay struct {
	publisher events.Publisher
	stream    *KotStreamServer
	logger    aqm.Logger
	now       func() time.Time
}

func NewEventRelay(publisher events.Publisher, stream *KotStreamServer, logger aqm.Logger) *EventRelay {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &EventRelay{
		publisher: publisher,
		stream:    stream,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *EventRelay) KotCreated(ctx context.Context, ref Ref, rec kot.Record, number int) {
	items := make([]event.KotItem, len(rec.Items))
	for i, d := range rec.Items {
		items[i] = event.KotItem{
			ItemID:   d.ItemID,
			Name:     d.Name,
			Price:    d.Price.String(),
			Quantity: d.Quantity,
		}
	}
	r.emit(ctx, ref, event.KotCreatedEvent{
		KotEventMetadata: r.meta(event.EventKotCreated, ref),
		KotID:            rec.ID,
		Number:           number,
		Items:            items,
	})
}

func (r *EventRelay) KotsPrinted(ctx context.Context, ref Ref, kotIDs []string) {
	r.emit(ctx, ref, event.KotsPrintedEvent{
		KotEventMetadata: r.meta(event.EventKotsPrinted, ref),
		KotIDs:           kotIDs,
	})
}

func (r *EventRelay) DraftCleared(ctx context.Context, ref Ref) {
	r.emit(ctx, ref, event.DraftClearedEvent{
		KotEventMetadata: r.meta(event.EventDraftCleared, ref),
	})
}

func (r *EventRelay) meta(eventType string, ref Ref) event.KotEventMetadata {
	return event.KotEventMetadata{
		EventType:    eventType,
		OccurredAt:   r.now().UTC(),
		RestaurantID: ref.Key.RestaurantID,
		TableID:      ref.Key.TableID,
		TableName:    ref.TableName,
		UserID:       ref.Key.UserID,
	}
}

func (r *EventRelay) emit(ctx context.Context, ref Ref, evt interface{}) {
	payload, err := json.Marshal(evt)
	if err != nil {
		r.logger.Error("cannot marshal kot event", "error", err, "table_id", ref.Key.TableID)
		return
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, pkg.KotTopic, payload); err != nil {
			r.logger.Error("cannot publish kot event", "error", err, "table_id", ref.Key.TableID)
		}
	}

	if r.stream != nil {
		msg, err := toStruct(payload)
		if err != nil {
			r.logger.Error("cannot convert kot event for stream", "error", err)
			return
		}
		r.stream.Broadcast(ref.Key.RestaurantID, msg)
	}
}
