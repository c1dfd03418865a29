package models

import (
	"time"
)

// TransactionType classifies a ledger entry by the event that produced it.
type TransactionType string

const (
	TransactionTypePurchase     TransactionType = "purchase"
	TransactionTypeRedemption   TransactionType = "redemption"
	TransactionTypeWelcomeBonus TransactionType = "welcome_bonus"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePurchase, TransactionTypeRedemption, TransactionTypeWelcomeBonus:
		return true
	}
	return false
}

// TransactionStatus tells whether the entry's points are spendable yet.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusCredited TransactionStatus = "credited"
	TransactionStatusRedeemed TransactionStatus = "redeemed"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCredited, TransactionStatusRedeemed:
		return true
	}
	return false
}

// Applied reports whether entries with this status are reflected in a
// profile's spendable balance.
func (s TransactionStatus) Applied() bool {
	return s == TransactionStatusCredited || s == TransactionStatusRedeemed
}

// LoyaltyTransaction is an append-only ledger entry. Entries are never updated;
// corrections are recorded as new entries.
type LoyaltyTransaction struct {
	ID              string            `bson:"_id,omitempty" json:"id"`
	Email           string            `bson:"email" json:"email"`
	Points          int               `bson:"points" json:"points"`
	TransactionType TransactionType   `bson:"transactionType" json:"transactionType"`
	Status          TransactionStatus `bson:"status" json:"status"`
	RelatedOrderID  string            `bson:"relatedOrderId,omitempty" json:"relatedOrderId,omitempty"`
	Description     string            `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
}
