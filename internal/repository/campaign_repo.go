package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundery/ledger/internal/domain"
)

// CampaignRepo stores campaign records together with their materialized
// aggregate (raised, investor count, transaction count).
type CampaignRepo struct {
	db *sql.DB
}

func NewCampaignRepo(db *sql.DB) *CampaignRepo {
	return &CampaignRepo{db: db}
}

func (r *CampaignRepo) Insert(c *domain.Campaign) error {
	_, err := r.db.Exec(
		`INSERT INTO campaigns
		(id, founder_id, name, goal, raised, investor_count, transaction_count, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.FounderID, c.Name, c.Goal.String(), c.Raised.String(),
		c.InvestorCount, c.TransactionCount, c.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) GetByID(id string) (*domain.Campaign, error) {
	return r.GetByIDIn(r.db, id)
}

func (r *CampaignRepo) GetByIDIn(q querier, id string) (*domain.Campaign, error) {
	row := q.QueryRow(selectCampaign+" WHERE id = ?", id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, domain.ErrNotFound)
	}
	return c, err
}

func (r *CampaignRepo) List() ([]domain.Campaign, error) {
	rows, err := r.db.Query(selectCampaign + " ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM campaigns").Scan(&count)
	return count, err
}

// SetAggregate overwrites the campaign's materialized aggregate with the
// given values. Used both for incremental deltas (the ledger service computes
// the new values under its per-campaign critical section) and for the full
// recompute a reversal triggers.
func (r *CampaignRepo) SetAggregate(q querier, id string, raised decimal.Decimal, investorCount, transactionCount int) error {
	if q == nil {
		q = r.db
	}
	res, err := q.Exec(
		"UPDATE campaigns SET raised = ?, investor_count = ?, transaction_count = ? WHERE id = ?",
		raised.String(), investorCount, transactionCount, id,
	)
	if err != nil {
		return fmt.Errorf("update aggregate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("campaign %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- helpers ---

const selectCampaign = `SELECT id, founder_id, name, goal, raised,
	investor_count, transaction_count, created_at
	FROM campaigns`

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var c domain.Campaign
	var goalStr, raisedStr, createdAt string

	err := row.Scan(
		&c.ID, &c.FounderID, &c.Name, &goalStr, &raisedStr,
		&c.InvestorCount, &c.TransactionCount, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.Goal, err = decimal.NewFromString(goalStr)
	if err != nil {
		return nil, fmt.Errorf("goal %q: %w", goalStr, err)
	}
	c.Raised, err = decimal.NewFromString(raisedStr)
	if err != nil {
		return nil, fmt.Errorf("raised %q: %w", raisedStr, err)
	}
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	return &c, nil
}
