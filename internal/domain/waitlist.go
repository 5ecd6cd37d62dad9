package domain

import (
	"time"

	"github.com/google/uuid"
)

type WaitingList struct {
	ID        int64     `json:"id"`
	BikeID    int64     `json:"bike_id"`
	CreatedAt time.Time `json:"created_at"`
}

type WaitingListEntry struct {
	ID            int64      `json:"id"`
	WaitingListID int64      `json:"waiting_list_id"`
	BikeID        int64      `json:"bike_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	CreatedAt     time.Time  `json:"created_at"`
	ServedAt      *time.Time `json:"served_at,omitempty"`
}

func (e WaitingListEntry) Served() bool {
	return e.ServedAt != nil
}
