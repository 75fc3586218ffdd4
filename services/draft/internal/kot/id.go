package kot

import "github.com/google/uuid"

// IDFunc produces KOT identifiers.
type IDFunc func() string

// NewID returns a UUIDv7: millisecond timestamp prefix followed by random
// bits, so ids sort by creation time and never repeat.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
