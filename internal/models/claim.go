package models

// ClaimRequest is sent once the auth provider confirms an account for an email.
type ClaimRequest struct {
	Email           string `json:"email"`
	PreferredRegion Region `json:"preferredRegion,omitempty"`
}

// ClaimResult reports the profile after the claim and what the claim changed.
type ClaimResult struct {
	Profile       *Profile `json:"profile"`
	BonusGranted  int      `json:"bonusGranted"`
	PendingMerged int      `json:"pendingMerged"`
}
