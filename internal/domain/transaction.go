package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Rail string

const (
	RailWallet  Rail = "wallet"
	RailOffline Rail = "offline"
)

// Transaction is one investment attempt. ID, CampaignID, InvestorID, Amount
// and Rail never change after creation; only Status and (once) RailReference do.
type Transaction struct {
	ID            string          `json:"id"`
	CampaignID    string          `json:"campaign_id"`
	InvestorID    string          `json:"investor_id"`
	Amount        decimal.Decimal `json:"amount"`
	Rail          Rail            `json:"rail"`
	Status        Status          `json:"status"`
	RailReference string          `json:"rail_reference,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	FailedAt      *time.Time      `json:"failed_at,omitempty"`
}

// CanTransition reports whether a status change is allowed. failed is fully
// terminal; completed may be revised to failed exactly once (a confirmed
// payment later reversed by its rail).
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusFailed
	default:
		return false
	}
}

// InitialStatus returns the status a freshly created transaction starts in.
// The offline rail confirms synchronously at submission; the wallet rail
// confirms later via callback.
func InitialStatus(rail Rail) Status {
	if rail == RailOffline {
		return StatusCompleted
	}
	return StatusPending
}

// ValidRail reports whether r is a known payment rail.
func ValidRail(r Rail) bool {
	return r == RailWallet || r == RailOffline
}
