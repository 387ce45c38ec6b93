package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign carries the funding goal and the aggregate materialized from the
// transaction log. Raised, InvestorCount and TransactionCount cover completed
// transactions only and are mutated exclusively by the ledger service, in the
// same unit of work as the status change that causes them.
type Campaign struct {
	ID               string          `json:"id"`
	FounderID        string          `json:"founder_id"`
	Name             string          `json:"name"`
	Goal             decimal.Decimal `json:"goal"`
	Raised           decimal.Decimal `json:"raised"`
	InvestorCount    int             `json:"investor_count"`
	TransactionCount int             `json:"transaction_count"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Stats is the read-only view handed to display collaborators.
type Stats struct {
	CampaignID       string          `json:"campaign_id"`
	Goal             decimal.Decimal `json:"goal"`
	Raised           decimal.Decimal `json:"raised"`
	ProgressPercent  float64         `json:"progress_percent"`
	InvestorCount    int             `json:"investor_count"`
	TransactionCount int             `json:"transaction_count"`
}

// StatsFor derives the display view from a campaign record.
func StatsFor(c *Campaign) Stats {
	var pct float64
	if c.Goal.IsPositive() {
		pct, _ = c.Raised.Div(c.Goal).Mul(decimal.NewFromInt(100)).Float64()
	}
	return Stats{
		CampaignID:       c.ID,
		Goal:             c.Goal,
		Raised:           c.Raised,
		ProgressPercent:  pct,
		InvestorCount:    c.InvestorCount,
		TransactionCount: c.TransactionCount,
	}
}
