package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleOfferStatus string

const (
	SaleOfferStatusListed SaleOfferStatus = "LISTED"
	SaleOfferStatusSold   SaleOfferStatus = "SOLD"
)

type SaleOffer struct {
	ID             int64           `json:"id"`
	BikeID         int64           `json:"bike_id"`
	Seller         ProviderRef     `json:"seller"`
	Status         SaleOfferStatus `json:"status"`
	AskingPriceEur decimal.Decimal `json:"asking_price_eur"`
	ListedAt       time.Time       `json:"listed_at"`
	SoldAt         *time.Time      `json:"sold_at,omitempty"`
	BuyerID        *uuid.UUID      `json:"buyer_id,omitempty"`
}

type BasketStatus string

const (
	BasketStatusOpen       BasketStatus = "OPEN"
	BasketStatusCheckedOut BasketStatus = "CHECKED_OUT"
)

type Basket struct {
	ID         int64        `json:"id"`
	CustomerID uuid.UUID    `json:"customer_id"`
	Status     BasketStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type BasketItem struct {
	ID                   int64           `json:"id"`
	BasketID             int64           `json:"basket_id"`
	OfferID              int64           `json:"offer_id"`
	UnitPriceEurSnapshot decimal.Decimal `json:"unit_price_eur_snapshot"`
	AddedAt              time.Time       `json:"added_at"`
}

type PurchaseStatus string

const (
	PurchaseStatusCreated PurchaseStatus = "CREATED"
	PurchaseStatusPaid    PurchaseStatus = "PAID"
)

type Purchase struct {
	ID             int64           `json:"id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Status         PurchaseStatus  `json:"status"`
	TotalAmountEur decimal.Decimal `json:"total_amount_eur"`
	CreatedAt      time.Time       `json:"created_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Items          []PurchaseItem  `json:"items"`
}

type PurchaseItem struct {
	ID                   int64           `json:"id"`
	PurchaseID           int64           `json:"purchase_id"`
	OfferID              int64           `json:"offer_id"`
	UnitPriceEurSnapshot decimal.Decimal `json:"unit_price_eur_snapshot"`
}
