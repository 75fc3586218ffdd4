package printing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/appetiteclub/tablepos/pkg/enums/printmode"
	"github.com/appetiteclub/tablepos/pkg/event"
	"github.com/aquamarinepk/aqm"
)

type MockPublisher struct {
	Published   []publishedMessage
	PublishFunc func(ctx context.Context, topic string, data []byte) error
}

type publishedMessage struct {
	Topic string
	Data  []byte
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.Published = append(m.Published, publishedMessage{Topic: topic, Data: data})
	return nil
}

func TestNATSPrinterPrint(t *testing.T) {
	pub := &MockPublisher{}
	p := NewNATSPrinter(pub, aqm.NewNoopLogger())

	job := Job{
		ID:           "job-1",
		Mode:         printmode.Modes.Unprinted,
		RestaurantID: "r1",
		TableID:      "t1",
		KotIDs:       []string{"kot-1"},
		Body:         []byte{0x1b, '@'},
	}
	if err := p.Print(context.Background(), job); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	if len(pub.Published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.Published))
	}
	if pub.Published[0].Topic != "print.jobs.r1" {
		t.Errorf("topic = %q, want print.jobs.r1", pub.Published[0].Topic)
	}

	var got event.PrintJob
	if err := json.Unmarshal(pub.Published[0].Data, &got); err != nil {
		t.Fatalf("cannot decode job: %v", err)
	}
	if got.Label != "Unprinted" {
		t.Errorf("label = %q, want Unprinted", got.Label)
	}
	if got.Mode != "unprinted" || got.JobID != "job-1" || len(got.KotIDs) != 1 || len(got.Body) != 2 {
		t.Errorf("decoded job = %+v", got)
	}
}

func TestNATSPrinterPublishError(t *testing.T) {
	pub := &MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, data []byte) error {
			return errors.New("nats down")
		},
	}
	p := NewNATSPrinter(pub, nil)

	if err := p.Print(context.Background(), Job{Mode: printmode.Modes.Full}); err == nil {
		t.Error("Print() should fail when publishing fails")
	}
}

func TestNATSPrinterNoPublisher(t *testing.T) {
	p := NewNATSPrinter(nil, nil)
	if err := p.Print(context.Background(), Job{}); err == nil {
		t.Error("Print() without publisher should fail")
	}
}

func TestNATSPrinterUnknownMode(t *testing.T) {
	pub := &MockPublisher{}
	p := NewNATSPrinter(pub, nil)

	if err := p.Print(context.Background(), Job{Mode: printmode.Mode{Name: "draft"}}); err == nil {
		t.Error("Print() with unknown mode should fail")
	}
	if len(pub.Published) != 0 {
		t.Errorf("published %d messages, want 0", len(pub.Published))
	}
}

func TestLogPrinter(t *testing.T) {
	p := NewLogPrinter(nil)
	if err := p.Print(context.Background(), Job{Mode: printmode.Modes.Bill}); err != nil {
		t.Errorf("Print() error = %v", err)
	}
}
