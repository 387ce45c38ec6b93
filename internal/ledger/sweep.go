package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/fundery/ledger/internal/domain"
)

// SweepStale rejects pending transactions older than maxAge. The ledger
// itself has no notion of wall-clock expiry; timing out abandoned wallet
// confirmations is a policy owned by the caller, which invokes this
// periodically. Returns the number of transactions rejected.
func (s *Service) SweepStale(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	stale, err := s.txns.ListPendingBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	rejected := 0
	for _, t := range stale {
		if _, err := s.Reject(t.ID); err != nil {
			// A racing confirmation may have closed it already.
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			return rejected, fmt.Errorf("reject %s: %w", t.ID, err)
		}
		rejected++
	}

	if rejected > 0 {
		s.log.Info().Int("rejected", rejected).Dur("max_age", maxAge).Msg("stale pending sweep")
	}
	return rejected, nil
}
