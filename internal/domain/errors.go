package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound: the referenced transaction or campaign does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount: a non-positive amount or goal at creation. Rejected
	// before any record is persisted.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidTransition: the status change is not permitted from the
	// current state. The existing record is untouched.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidReference: a rail reference failed its syntactic check.
	ErrInvalidReference = errors.New("invalid rail reference")
)

// IntegrityWarning is raised when a reversal would drive a campaign's raised
// total below zero. The subtraction is clamped at zero and the condition
// surfaced rather than silently corrected, since it indicates either a bug or
// an out-of-band data edit. It is a finding, not a failure: the reversal
// itself still applies.
type IntegrityWarning struct {
	CampaignID    string          `json:"campaign_id"`
	TransactionID string          `json:"transaction_id"`
	Attempted     decimal.Decimal `json:"attempted_raised"`
	Clamped       decimal.Decimal `json:"clamped_raised"`
}

func (w *IntegrityWarning) String() string {
	return fmt.Sprintf("campaign %s: reversal of %s would set raised to %s, clamped to %s",
		w.CampaignID, w.TransactionID, w.Attempted, w.Clamped)
}
