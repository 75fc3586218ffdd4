package event

import "time"

// PrintJob is consumed by the print bridge next to the thermal or Bluetooth
// printer. Body holds the raw ESC/POS command stream.
type PrintJob struct {
	JobID        string    `json:"job_id"`
	Mode         string    `json:"mode"`
	Label        string    `json:"label"`
	RestaurantID string    `json:"restaurant_id"`
	TableID      string    `json:"table_id"`
	TableName    string    `json:"table_name,omitempty"`
	KotIDs       []string  `json:"kot_ids,omitempty"`
	Body         []byte    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}
