package models

import (
	"time"
)

// Region is a storefront region a customer can prefer.
type Region string

const (
	RegionPortugal Region = "PT"
)

// SupportedRegions lists every region the storefront currently serves.
var SupportedRegions = []Region{RegionPortugal}

// Valid reports whether r is one of the supported regions.
func (r Region) Valid() bool {
	for _, s := range SupportedRegions {
		if r == s {
			return true
		}
	}
	return false
}

// Profile represents a loyalty customer, keyed by email before and after signup
type Profile struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	Email               string    `bson:"email" json:"email"`
	LoyaltyPoints       int       `bson:"loyaltyPoints" json:"loyaltyPoints"`
	PointsPendingClaim  int       `bson:"pointsPendingClaim" json:"pointsPendingClaim"`
	HasClaimedAccount   bool      `bson:"hasClaimedAccount" json:"hasClaimedAccount"`
	WelcomeBonusClaimed bool      `bson:"welcomeBonusClaimed" json:"welcomeBonusClaimed"`
	PreferredRegion     Region    `bson:"preferredRegion,omitempty" json:"preferredRegion,omitempty"`
	CreatedAt           time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time `bson:"updatedAt" json:"updatedAt"`
}
