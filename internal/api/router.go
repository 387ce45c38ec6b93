package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fundery/ledger/internal/ledger"
	"github.com/fundery/ledger/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	svc *ledger.Service,
	campaigns *repository.CampaignRepo,
	txns *repository.TransactionRepo,
	log zerolog.Logger,
) http.Handler {
	h := &Handlers{
		svc:       svc,
		campaigns: campaigns,
		txns:      txns,
		log:       log.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Campaigns.
		r.Post("/campaigns", h.CreateCampaign)
		r.Get("/campaigns", h.ListCampaigns)
		r.Get("/campaigns/{id}/stats", h.GetCampaignStats)
		r.Get("/campaigns/{id}/investments", h.ListCampaignInvestments)

		// Investments.
		r.Post("/investments", h.OpenInvestment)
		r.Get("/investments/{id}", h.GetInvestment)
		r.Post("/investments/{id}/confirm", h.ConfirmInvestment)
		r.Post("/investments/{id}/reject", h.RejectInvestment)
		r.Post("/investments/{id}/reverse", h.ReverseInvestment)

		// Investors.
		r.Get("/investors/{id}/investments", h.ListInvestorInvestments)
	})

	return r
}
