package event

import "time"

const (
	EventKotCreated   = "kitchen.kot.created"
	EventKotsPrinted  = "kitchen.kot.printed"
	EventDraftCleared = "table.draft.cleared"
)

type KotEventMetadata struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	RestaurantID string    `json:"restaurant_id"`
	TableID      string    `json:"table_id"`
	TableName    string    `json:"table_name,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
}

// KotItem is a signed quantity delta; negative quantities are removals.
type KotItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type KotCreatedEvent struct {
	KotEventMetadata
	KotID  string    `json:"kot_id"`
	Number int       `json:"number"`
	Items  []KotItem `json:"items"`
}

type KotsPrintedEvent struct {
	KotEventMetadata
	KotIDs []string `json:"kot_ids"`
}

type DraftClearedEvent struct {
	KotEventMetadata
}
