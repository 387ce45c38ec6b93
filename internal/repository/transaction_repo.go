package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundery/ledger/internal/domain"
)

// TransactionRepo is durable keyed storage for investment transactions.
// Writes take a querier so the ledger service can run them inside the same
// SQL transaction as the campaign aggregate update; reads not involved in a
// transition go straight against the pool.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Insert(q querier, t *domain.Transaction) error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount %s: %w", t.Amount, domain.ErrInvalidAmount)
	}
	if q == nil {
		q = r.db
	}
	_, err := q.Exec(
		`INSERT INTO transactions
		(id, campaign_id, investor_id, amount, rail, status, rail_reference,
		 created_at, completed_at, failed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.CampaignID, t.InvestorID, t.Amount.String(), string(t.Rail),
		string(t.Status), nullableString(t.RailReference),
		t.CreatedAt.UTC().Format(timeLayout),
		formatNullableTime(t.CompletedAt), formatNullableTime(t.FailedAt),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

func (r *TransactionRepo) GetByID(id string) (*domain.Transaction, error) {
	return r.GetByIDIn(r.db, id)
}

// GetByIDIn reads a transaction through q, so the ledger service can take a
// fresh look at the status from inside its own SQL transaction.
func (r *TransactionRepo) GetByIDIn(q querier, id string) (*domain.Transaction, error) {
	row := q.QueryRow(selectTransaction+" WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return t, err
}

// Filter narrows and paginates transaction listings.
type Filter struct {
	Status string
	Page   int
	Limit  int
}

// ListByCampaign returns the campaign's transactions, newest first, plus the
// total count matching the filter.
func (r *TransactionRepo) ListByCampaign(campaignID string, f Filter) ([]domain.Transaction, int, error) {
	return r.list("campaign_id", campaignID, f)
}

// ListByInvestor returns the investor's transactions across all campaigns,
// newest first.
func (r *TransactionRepo) ListByInvestor(investorID string, f Filter) ([]domain.Transaction, int, error) {
	return r.list("investor_id", investorID, f)
}

func (r *TransactionRepo) list(column, value string, f Filter) ([]domain.Transaction, int, error) {
	clauses := []string{column + " = ?"}
	args := []any{value}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	query := selectTransaction + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, total, rows.Err()
}

// UpdateStatus applies a pure status flip, recording the rail reference when
// one is supplied and the matching timestamp. It validates the transition
// against the current row but touches nothing else; aggregate upkeep is the
// ledger service's job.
func (r *TransactionRepo) UpdateStatus(q querier, id string, newStatus domain.Status, railRef string, at time.Time) (*domain.Transaction, error) {
	if q == nil {
		q = r.db
	}
	t, err := r.GetByIDIn(q, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(t.Status, newStatus) {
		return nil, fmt.Errorf("transaction %s: %s -> %s: %w",
			id, t.Status, newStatus, domain.ErrInvalidTransition)
	}

	t.Status = newStatus
	switch newStatus {
	case domain.StatusCompleted:
		ts := at
		t.CompletedAt = &ts
	case domain.StatusFailed:
		ts := at
		t.FailedAt = &ts
	}
	// A reference, once set, is never cleared or replaced.
	if railRef != "" && t.RailReference == "" {
		t.RailReference = railRef
	}

	_, err = q.Exec(
		`UPDATE transactions
		 SET status = ?, rail_reference = ?, completed_at = ?, failed_at = ?
		 WHERE id = ?`,
		string(t.Status), nullableString(t.RailReference),
		formatNullableTime(t.CompletedAt), formatNullableTime(t.FailedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return t, nil
}

// ListPendingBefore returns pending transactions created before the cutoff,
// oldest first. Used by the caller-owned stale sweep.
func (r *TransactionRepo) ListPendingBefore(cutoff time.Time) ([]domain.Transaction, error) {
	rows, err := r.db.Query(
		selectTransaction+" WHERE status = ? AND created_at < ? ORDER BY created_at",
		string(domain.StatusPending), cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// HasOtherCompleted reports whether the investor has at least one completed
// transaction for the campaign besides excludeID. This decides whether a
// confirm introduces a brand-new investor.
func (r *TransactionRepo) HasOtherCompleted(q querier, campaignID, investorID, excludeID string) (bool, error) {
	if q == nil {
		q = r.db
	}
	var count int
	err := q.QueryRow(
		`SELECT COUNT(*) FROM transactions
		 WHERE campaign_id = ? AND investor_id = ? AND status = ? AND id != ?`,
		campaignID, investorID, string(domain.StatusCompleted), excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count completed: %w", err)
	}
	return count > 0, nil
}

// CompletedTotals recomputes, from the log itself, the raised sum, distinct
// investor count and transaction count over the campaign's completed
// transactions. The sum runs over TEXT amounts in Go rather than SQL so the
// decimal arithmetic stays exact.
func (r *TransactionRepo) CompletedTotals(q querier, campaignID string) (decimal.Decimal, int, int, error) {
	if q == nil {
		q = r.db
	}
	rows, err := q.Query(
		"SELECT amount, investor_id FROM transactions WHERE campaign_id = ? AND status = ?",
		campaignID, string(domain.StatusCompleted),
	)
	if err != nil {
		return decimal.Zero, 0, 0, fmt.Errorf("query completed: %w", err)
	}
	defer rows.Close()

	raised := decimal.Zero
	investors := make(map[string]struct{})
	count := 0
	for rows.Next() {
		var amountStr, investorID string
		if err := rows.Scan(&amountStr, &investorID); err != nil {
			return decimal.Zero, 0, 0, fmt.Errorf("scan: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, 0, 0, fmt.Errorf("amount %q: %w", amountStr, err)
		}
		raised = raised.Add(amount)
		investors[investorID] = struct{}{}
		count++
	}
	return raised, len(investors), count, rows.Err()
}

// --- helpers ---

const selectTransaction = `SELECT id, campaign_id, investor_id, amount, rail,
	status, rail_reference, created_at, completed_at, failed_at
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountStr, rail, status, createdAt string
	var railRef, completedAt, failedAt sql.NullString

	err := row.Scan(
		&t.ID, &t.CampaignID, &t.InvestorID, &amountStr, &rail,
		&status, &railRef, &createdAt, &completedAt, &failedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amountStr, err)
	}
	t.Rail = domain.Rail(rail)
	t.Status = domain.Status(status)
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if railRef.Valid {
		t.RailReference = railRef.String
	}
	if completedAt.Valid {
		ts, _ := time.Parse(timeLayout, completedAt.String)
		t.CompletedAt = &ts
	}
	if failedAt.Valid {
		ts, _ := time.Parse(timeLayout, failedAt.String)
		t.FailedAt = &ts
	}

	return &t, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
