package printing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/tablepos/pkg"
	"github.com/appetiteclub/tablepos/pkg/enums/printmode"
	"github.com/appetiteclub/tablepos/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// Job is a rendered ticket addressed to a restaurant's printer.
type Job struct {
	ID           string
	Mode         printmode.Mode
	RestaurantID string
	TableID      string
	TableName    string
	KotIDs       []string
	Body         []byte
}

// Printer hands a rendered ticket to the device transport. It does not wait
// for paper to come out.
type Printer interface {
	Print(ctx context.Context, job Job) error
}

// NATSPrinter publishes jobs for the print bridge running next to the
// restaurant's thermal or Bluetooth printer.
type NATSPrinter struct {
	publisher events.Publisher
	logger    aqm.Logger
	now       func() time.Time
}

func NewNATSPrinter(publisher events.Publisher, logger aqm.Logger) *NATSPrinter {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &NATSPrinter{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *NATSPrinter) Print(ctx context.Context, job Job) error {
	if p.publisher == nil {
		return fmt.Errorf("no print transport configured")
	}
	if printmode.ByName(job.Mode.Code()) == nil {
		return fmt.Errorf("unknown print mode %q", job.Mode.Code())
	}

	payload, err := json.Marshal(event.PrintJob{
		JobID:        job.ID,
		Mode:         job.Mode.Code(),
		Label:        job.Mode.Label(),
		RestaurantID: job.RestaurantID,
		TableID:      job.TableID,
		TableName:    job.TableName,
		KotIDs:       job.KotIDs,
		Body:         job.Body,
		CreatedAt:    p.now(),
	})
	if err != nil {
		return fmt.Errorf("cannot encode print job: %w", err)
	}

	subject := pkg.PrintJobSubject(job.RestaurantID)
	if err := p.publisher.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("cannot send print job: %w", err)
	}

	p.logger.Debug("print job sent", "job_id", job.ID, "mode", job.Mode.Code(), "subject", subject, "bytes", len(job.Body))
	return nil
}

// LogPrinter only logs jobs. Used when no print bridge is deployed.
type LogPrinter struct {
	logger aqm.Logger
}

func NewLogPrinter(logger aqm.Logger) *LogPrinter {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &LogPrinter{logger: logger}
}

func (p *LogPrinter) Print(ctx context.Context, job Job) error {
	p.logger.Info("print job",
		"job_id", job.ID,
		"mode", job.Mode.Code(),
		"restaurant_id", job.RestaurantID,
		"table_id", job.TableID,
		"kot_ids", job.KotIDs,
		"bytes", len(job.Body))
	return nil
}
