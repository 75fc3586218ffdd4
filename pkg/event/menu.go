package event

import "time"

const (
	EventMenuItemChanged = "menu.item.changed"
	EventMenuReloaded    = "menu.reloaded"
)

// MenuChangedEvent is emitted by the menu service whenever a restaurant's
// catalog changes. An empty ItemID means the whole catalog was reloaded.
type MenuChangedEvent struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	RestaurantID string    `json:"restaurant_id"`
	ItemID       string    `json:"item_id,omitempty"`
}
