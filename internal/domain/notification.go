package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID          int64      `json:"id"`
	EntryID     int64      `json:"waiting_list_entry_id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	BikeID      int64      `json:"bike_id"`
	Message     string     `json:"message"`
	SentAt      time.Time  `json:"sent_at"`
	PublishedAt *time.Time `json:"-"`
}

func HandoffMessage(bikeID int64) string {
	return fmt.Sprintf("Bike %d is now available. A rental has been created for you.", bikeID)
}
