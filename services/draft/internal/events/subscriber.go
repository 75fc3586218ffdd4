package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/tablepos/pkg"
	"github.com/appetiteclub/tablepos/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// Invalidator drops cached menu data for a restaurant.
type Invalidator interface {
	Invalidate(restaurantID string)
}

// MenuSubscriber keeps the menu cache in line with the menu service.
type MenuSubscriber struct {
	subscriber events.Subscriber
	catalog    Invalidator
	logger     aqm.Logger
}

func NewMenuSubscriber(subscriber events.Subscriber, catalog Invalidator, logger aqm.Logger) *MenuSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &MenuSubscriber{
		subscriber: subscriber,
		catalog:    catalog,
		logger:     logger,
	}
}

func (s *MenuSubscriber) Start(ctx context.Context) error {
	s.logger.Infof("Starting MenuSubscriber for topic: %s", pkg.MenuItemsTopic)

	if err := s.subscriber.Subscribe(ctx, pkg.MenuItemsTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pkg.MenuItemsTopic, err)
	}

	s.logger.Info("MenuSubscriber started successfully")
	return nil
}

func (s *MenuSubscriber) Stop(ctx context.Context) error {
	return nil
}

func (s *MenuSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.MenuChangedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("Failed to unmarshal menu event: %v", err)
		return nil
	}

	if evt.RestaurantID == "" {
		s.logger.Info("menu event without restaurant id ignored", "event_type", evt.EventType)
		return nil
	}

	switch evt.EventType {
	case event.EventMenuItemChanged, event.EventMenuReloaded:
		s.catalog.Invalidate(evt.RestaurantID)
		s.logger.Debug("menu cache invalidated", "restaurant_id", evt.RestaurantID, "item_id", evt.ItemID)
	default:
		s.logger.Infof("Unknown event type: %s", evt.EventType)
	}

	return nil
}
