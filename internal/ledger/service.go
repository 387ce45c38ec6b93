package ledger

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fundery/ledger/internal/domain"
	"github.com/fundery/ledger/internal/repository"
)

// Service is the investment ledger: it records investment attempts, applies
// status transitions, and keeps each campaign's aggregate (raised, investor
// count, transaction count) consistent with the transaction log. All
// aggregate mutation happens here and nowhere else, inside the same SQL
// transaction as the status change that causes it, under a per-campaign
// critical section.
type Service struct {
	db        *sql.DB
	campaigns *repository.CampaignRepo
	txns      *repository.TransactionRepo
	log       zerolog.Logger
	locks     lockTable
}

// NewService creates a new ledger service.
func NewService(db *sql.DB, campaigns *repository.CampaignRepo, txns *repository.TransactionRepo, log zerolog.Logger) *Service {
	return &Service{
		db:        db,
		campaigns: campaigns,
		txns:      txns,
		log:       log.With().Str("component", "ledger").Logger(),
	}
}

// lockTable hands out one mutex per campaign so transitions on the same
// campaign serialize while different campaigns proceed in parallel. Entries
// are never removed; the per-campaign footprint is a single mutex.
type lockTable struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (t *lockTable) lock(campaignID string) func() {
	t.mu.Lock()
	if t.m == nil {
		t.m = make(map[string]*sync.Mutex)
	}
	l, ok := t.m[campaignID]
	if !ok {
		l = &sync.Mutex{}
		t.m[campaignID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CreateCampaign registers a campaign with its funding goal and a zeroed
// aggregate. The goal is immutable afterwards.
func (s *Service) CreateCampaign(founderID, name string, goal decimal.Decimal) (*domain.Campaign, error) {
	if !goal.IsPositive() {
		return nil, fmt.Errorf("goal %s: %w", goal, domain.ErrInvalidAmount)
	}

	c := &domain.Campaign{
		ID:        uuid.NewString(),
		FounderID: founderID,
		Name:      name,
		Goal:      goal,
		Raised:    decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.campaigns.Insert(c); err != nil {
		return nil, err
	}

	s.log.Info().Str("campaign", c.ID).Str("goal", goal.String()).Msg("campaign created")
	return c, nil
}

// OpenInvestment records a new investment attempt for the campaign. Wallet
// investments start pending (the rail confirms later via callback) and may
// carry the transaction hash already if the client knows it. Offline
// investments require a syntactically valid reference code and complete
// immediately, applying their aggregate delta in the same unit of work.
func (s *Service) OpenInvestment(campaignID, investorID string, amount decimal.Decimal, rail domain.Rail, railRef string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", amount, domain.ErrInvalidAmount)
	}
	if !domain.ValidRail(rail) {
		return nil, fmt.Errorf("unknown rail %q: %w", rail, domain.ErrInvalidReference)
	}
	if _, err := s.campaigns.GetByID(campaignID); err != nil {
		return nil, err
	}

	t := &domain.Transaction{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		InvestorID: investorID,
		Amount:     amount,
		Rail:       rail,
		Status:     domain.InitialStatus(rail),
		CreatedAt:  time.Now().UTC(),
	}

	if rail == domain.RailOffline {
		ref, err := domain.NewOfflineReference(railRef)
		if err != nil {
			return nil, err
		}
		t.RailReference = ref.Code
		now := t.CreatedAt
		t.CompletedAt = &now
		if err := s.insertCompleted(t); err != nil {
			return nil, err
		}
	} else {
		// The hash is optional at creation; when the client already knows it,
		// it enters through the same constructor the confirm path uses.
		if railRef != "" {
			conf, err := domain.NewWalletConfirmation(railRef)
			if err != nil {
				return nil, err
			}
			t.RailReference = conf.TxHash
		}
		if err := s.txns.Insert(nil, t); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("transaction", t.ID).
		Str("campaign", campaignID).
		Str("investor", investorID).
		Str("rail", string(rail)).
		Str("amount", amount.String()).
		Str("status", string(t.Status)).
		Msg("investment opened")
	return t, nil
}

// insertCompleted stores a synchronously confirmed transaction and applies
// its add-delta to the campaign aggregate atomically.
func (s *Service) insertCompleted(t *domain.Transaction) error {
	unlock := s.locks.lock(t.CampaignID)
	defer unlock()

	sqlTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.txns.Insert(sqlTx, t); err != nil {
		return err
	}
	if err := s.applyAddDelta(sqlTx, t); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Confirm transitions a pending transaction to completed, records the rail
// reference, and adds its amount to the campaign aggregate. A duplicate
// callback finds the transaction already completed and fails with
// ErrInvalidTransition, applying nothing.
func (s *Service) Confirm(transactionID, railRef string) (*domain.Transaction, error) {
	conf, err := domain.NewWalletConfirmation(railRef)
	if err != nil {
		return nil, err
	}

	t, err := s.txns.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(t.CampaignID)
	defer unlock()

	sqlTx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	// Fresh read inside the critical section; the first look was only to
	// learn the campaign to lock.
	cur, err := s.txns.GetByIDIn(sqlTx, transactionID)
	if err != nil {
		return nil, err
	}
	if cur.Status != domain.StatusPending {
		return nil, fmt.Errorf("confirm %s in status %s: %w",
			transactionID, cur.Status, domain.ErrInvalidTransition)
	}

	updated, err := s.txns.UpdateStatus(sqlTx, transactionID, domain.StatusCompleted, conf.TxHash, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.applyAddDelta(sqlTx, updated); err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.log.Info().
		Str("transaction", transactionID).
		Str("campaign", updated.CampaignID).
		Str("rail_reference", conf.TxHash).
		Msg("investment confirmed")
	return updated, nil
}

// Reject transitions a pending transaction to failed. Nothing was ever added
// to the aggregate, so there is no delta to undo.
func (s *Service) Reject(transactionID string) (*domain.Transaction, error) {
	t, err := s.txns.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(t.CampaignID)
	defer unlock()

	sqlTx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	cur, err := s.txns.GetByIDIn(sqlTx, transactionID)
	if err != nil {
		return nil, err
	}
	if cur.Status != domain.StatusPending {
		return nil, fmt.Errorf("reject %s in status %s: %w",
			transactionID, cur.Status, domain.ErrInvalidTransition)
	}

	updated, err := s.txns.UpdateStatus(sqlTx, transactionID, domain.StatusFailed, "", time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.log.Info().
		Str("transaction", transactionID).
		Str("campaign", updated.CampaignID).
		Msg("investment rejected")
	return updated, nil
}

// Reverse transitions a completed transaction to failed, for payments the
// rail reports as unsettled after confirmation. The amount is subtracted from
// raised, clamped at zero; a clamp is returned as an IntegrityWarning rather
// than swallowed. The investor count is recomputed exactly from the remaining
// completed transactions, since the reversed investor may still have others.
func (s *Service) Reverse(transactionID string) (*domain.Transaction, *domain.IntegrityWarning, error) {
	t, err := s.txns.GetByID(transactionID)
	if err != nil {
		return nil, nil, err
	}

	unlock := s.locks.lock(t.CampaignID)
	defer unlock()

	sqlTx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	cur, err := s.txns.GetByIDIn(sqlTx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if cur.Status != domain.StatusCompleted {
		return nil, nil, fmt.Errorf("reverse %s in status %s: %w",
			transactionID, cur.Status, domain.ErrInvalidTransition)
	}

	updated, err := s.txns.UpdateStatus(sqlTx, transactionID, domain.StatusFailed, "", time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}

	c, err := s.campaigns.GetByIDIn(sqlTx, updated.CampaignID)
	if err != nil {
		return nil, nil, err
	}

	var warning *domain.IntegrityWarning
	raised := c.Raised.Sub(updated.Amount)
	if raised.IsNegative() {
		warning = &domain.IntegrityWarning{
			CampaignID:    c.ID,
			TransactionID: updated.ID,
			Attempted:     raised,
			Clamped:       decimal.Zero,
		}
		raised = decimal.Zero
	}

	txnCount := c.TransactionCount - 1
	if txnCount < 0 {
		txnCount = 0
	}

	// Exact distinct-investor recomputation over the remaining completed
	// transactions; the status flip above is already visible to this scan.
	_, investors, _, err := s.txns.CompletedTotals(sqlTx, updated.CampaignID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.campaigns.SetAggregate(sqlTx, c.ID, raised, investors, txnCount); err != nil {
		return nil, nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	if warning != nil {
		s.log.Warn().
			Str("campaign", warning.CampaignID).
			Str("transaction", warning.TransactionID).
			Str("attempted_raised", warning.Attempted.String()).
			Msg("aggregate integrity: raised clamped at zero on reversal")
	}
	s.log.Info().
		Str("transaction", transactionID).
		Str("campaign", updated.CampaignID).
		Str("amount", updated.Amount.String()).
		Msg("investment reversed")
	return updated, warning, nil
}

// Stats exposes the read-only aggregate view for a campaign.
func (s *Service) Stats(campaignID string) (domain.Stats, error) {
	c, err := s.campaigns.GetByID(campaignID)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.StatsFor(c), nil
}

// applyAddDelta adds a newly completed transaction to its campaign's
// aggregate: raised grows by the amount, the transaction count by one, and
// the investor count by one only when this is the investor's first completed
// transaction for the campaign.
func (s *Service) applyAddDelta(q *sql.Tx, t *domain.Transaction) error {
	c, err := s.campaigns.GetByIDIn(q, t.CampaignID)
	if err != nil {
		return err
	}

	hasOther, err := s.txns.HasOtherCompleted(q, t.CampaignID, t.InvestorID, t.ID)
	if err != nil {
		return err
	}

	investors := c.InvestorCount
	if !hasOther {
		investors++
	}
	return s.campaigns.SetAggregate(q, c.ID,
		c.Raised.Add(t.Amount), investors, c.TransactionCount+1)
}
