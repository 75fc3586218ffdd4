package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/nats-io/nats.go"
)

const natsClientName = "tablepos"

func connect(url, role string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(fmt.Sprintf("%s-%s", natsClientName, role)),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NATSPublisher implements events.Publisher over core NATS.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := connect(url, "publisher")
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := p.conn.Publish(topic, msg); err != nil {
		return fmt.Errorf("cannot publish to %s: %w", topic, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NATSSubscriber implements events.Subscriber over core NATS.
type NATSSubscriber struct {
	conn   *nats.Conn
	logger aqm.Logger
}

func NewNATSSubscriber(url string, logger aqm.Logger) (*NATSSubscriber, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	conn, err := connect(url, "subscriber")
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: conn, logger: logger}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	_, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			s.logger.Error("event handler failed", "topic", topic, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cannot subscribe to %s: %w", topic, err)
	}
	return nil
}

func (s *NATSSubscriber) Close() error {
	return s.conn.Drain()
}
