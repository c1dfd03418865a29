package models

import (
	"github.com/shopspring/decimal"
)

// OrderCompletedEvent is pushed by the commerce platform when an order is paid.
type OrderCompletedEvent struct {
	CustomerEmail   string          `json:"customerEmail" binding:"required"`
	OrderTotal      decimal.Decimal `json:"orderTotal"`
	ExternalOrderID string          `json:"externalOrderId"`
}

// PurchaseResult describes the outcome of applying an order to the ledger.
type PurchaseResult struct {
	PointsEarned int               `json:"pointsEarned"`
	Status       TransactionStatus `json:"status"`
	Duplicate    bool              `json:"duplicate"`
	Profile      *Profile          `json:"profile,omitempty"`
}
