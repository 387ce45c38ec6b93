package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fundery/ledger/internal/api"
	"github.com/fundery/ledger/internal/domain"
	"github.com/fundery/ledger/internal/ledger"
	"github.com/fundery/ledger/internal/repository"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "fundery.db"
	}

	log.Info().Str("path", dbPath).Msg("initializing database")
	db, err := repository.InitDB(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("init db")
	}
	defer db.Close()

	// Create repositories and the ledger service.
	campaignRepo := repository.NewCampaignRepo(db)
	txnRepo := repository.NewTransactionRepo(db)
	svc := ledger.NewService(db, campaignRepo, txnRepo, log)

	// Seed demo campaigns if the DB is empty.
	count, err := campaignRepo.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("count campaigns")
	}
	if count == 0 {
		log.Info().Msg("database is empty, seeding from testdata")
		if err := seed(svc, log); err != nil {
			log.Warn().Err(err).Msg("seeding failed")
		}
	} else {
		log.Info().Int("campaigns", count).Msg("database already seeded, skipping")
	}

	// Timing out abandoned pending wallet transfers is a caller policy, not
	// ledger behavior; this process opts in via a periodic sweep.
	if maxAge := pendingMaxAge(); maxAge > 0 {
		interval := sweepInterval()
		log.Info().Dur("interval", interval).Dur("max_age", maxAge).Msg("stale pending sweep enabled")
		go func() {
			for range time.Tick(interval) {
				if _, err := svc.SweepStale(maxAge); err != nil {
					log.Error().Err(err).Msg("stale pending sweep")
				}
			}
		}()
	}

	router := api.NewRouter(svc, campaignRepo, txnRepo, log)

	log.Info().Str("port", port).Msg("fundery investment ledger listening")
	log.Info().Msgf("API base: http://localhost:%s/api/v1", port)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// pendingMaxAge reads PENDING_MAX_AGE_HOURS; 0 disables the sweep.
func pendingMaxAge() time.Duration {
	if v := os.Getenv("PENDING_MAX_AGE_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			return time.Duration(h) * time.Hour
		}
	}
	return 0
}

// sweepInterval reads SWEEP_INTERVAL_MINUTES, defaulting to 15 minutes.
func sweepInterval() time.Duration {
	if v := os.Getenv("SWEEP_INTERVAL_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			return time.Duration(m) * time.Minute
		}
	}
	return 15 * time.Minute
}

type seedCampaign struct {
	FounderID string          `json:"founder_id"`
	Name      string          `json:"name"`
	Goal      decimal.Decimal `json:"goal"`
}

type seedInvestment struct {
	Campaign      int             `json:"campaign"`
	InvestorID    string          `json:"investor_id"`
	Amount        decimal.Decimal `json:"amount"`
	Rail          domain.Rail     `json:"rail"`
	RailReference string          `json:"rail_reference,omitempty"`
	// Outcome drives the replay: "", "confirm", "reject" or "reverse".
	// Offline investments complete at open; reverse still applies.
	Outcome string `json:"outcome,omitempty"`
}

type seedFile struct {
	Campaigns   []seedCampaign   `json:"campaigns"`
	Investments []seedInvestment `json:"investments"`
}

// seed replays the testdata history through the ledger service itself so the
// campaign aggregates are built the same way they are in production.
func seed(svc *ledger.Service, log zerolog.Logger) error {
	candidates := []string{
		filepath.Join("testdata", "seed.json"),
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "testdata", "seed.json"),
			filepath.Join(dir, "..", "..", "testdata", "seed.json"),
		)
	}

	var data []byte
	var loadErr error
	for _, path := range candidates {
		data, loadErr = os.ReadFile(path)
		if loadErr == nil {
			log.Info().Str("path", path).Msg("loaded seed file")
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("no seed.json in any candidate path: %w", loadErr)
	}

	var sf seedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("unmarshal seed: %w", err)
	}

	campaignIDs := make([]string, 0, len(sf.Campaigns))
	for _, sc := range sf.Campaigns {
		c, err := svc.CreateCampaign(sc.FounderID, sc.Name, sc.Goal)
		if err != nil {
			return fmt.Errorf("seed campaign %q: %w", sc.Name, err)
		}
		campaignIDs = append(campaignIDs, c.ID)
	}

	for i, si := range sf.Investments {
		if si.Campaign < 0 || si.Campaign >= len(campaignIDs) {
			return fmt.Errorf("seed investment %d: campaign index %d out of range", i, si.Campaign)
		}
		campaignID := campaignIDs[si.Campaign]

		var openRef string
		if si.Rail == domain.RailOffline {
			openRef = si.RailReference
		}
		t, err := svc.OpenInvestment(campaignID, si.InvestorID, si.Amount, si.Rail, openRef)
		if err != nil {
			return fmt.Errorf("seed investment %d: %w", i, err)
		}

		switch si.Outcome {
		case "confirm", "reverse":
			if si.Rail == domain.RailWallet {
				if _, err := svc.Confirm(t.ID, si.RailReference); err != nil {
					return fmt.Errorf("seed confirm %d: %w", i, err)
				}
			}
			if si.Outcome == "reverse" {
				if _, _, err := svc.Reverse(t.ID); err != nil {
					return fmt.Errorf("seed reverse %d: %w", i, err)
				}
			}
		case "reject":
			if _, err := svc.Reject(t.ID); err != nil {
				return fmt.Errorf("seed reject %d: %w", i, err)
			}
		}
	}

	log.Info().
		Int("campaigns", len(sf.Campaigns)).
		Int("investments", len(sf.Investments)).
		Msg("seeded")
	return nil
}
