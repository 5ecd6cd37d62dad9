package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusActive RentalStatus = "ACTIVE"
	RentalStatusClosed RentalStatus = "CLOSED"
)

type Rental struct {
	ID             int64           `json:"id"`
	BikeID         int64           `json:"bike_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Status         RentalStatus    `json:"status"`
	StartAt        time.Time       `json:"start_at"`
	EndAt          *time.Time      `json:"end_at,omitempty"`
	TotalAmountEur decimal.Decimal `json:"total_amount_eur"`
}

type RentOutcome string

const (
	RentOutcomeRented     RentOutcome = "RENTED"
	RentOutcomeWaitlisted RentOutcome = "WAITLISTED"
)

type RentResult struct {
	Outcome  RentOutcome `json:"outcome"`
	RentalID *int64      `json:"rental_id,omitempty"`
	EntryID  *int64      `json:"waiting_list_entry_id,omitempty"`
	Message  string      `json:"message"`
}

type ReturnNote struct {
	ID        int64     `json:"id"`
	RentalID  int64     `json:"rental_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Comment   string    `json:"comment"`
	Condition string    `json:"condition"`
	CreatedAt time.Time `json:"created_at"`
}

type ReturnRequest struct {
	AuthorCustomerID uuid.UUID `json:"author_customer_id"`
	Comment          string    `json:"comment"`
	Condition        string    `json:"condition"`
}

type ReturnResult struct {
	ClosedRental Rental        `json:"closed_rental"`
	NextRental   *Rental       `json:"next_rental,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}
