package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fundery/ledger/internal/domain"
	"github.com/fundery/ledger/internal/ledger"
	"github.com/fundery/ledger/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	svc       *ledger.Service
	campaigns *repository.CampaignRepo
	txns      *repository.TransactionRepo
	log       zerolog.Logger
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the ledger's typed failures onto HTTP statuses.
// NotFound means "nothing to show"; InvalidTransition means "this action is
// not allowed right now" — display collaborators treat them as distinct
// user-visible conditions.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidReference):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func listFilter(r *http.Request) repository.Filter {
	q := r.URL.Query()
	return repository.Filter{
		Status: q.Get("status"),
		Page:   parseIntDefault(q.Get("page"), 1),
		Limit:  parseIntDefault(q.Get("limit"), 50),
	}
}

// --- Campaigns ---

type createCampaignRequest struct {
	FounderID string          `json:"founder_id"`
	Name      string          `json:"name"`
	Goal      decimal.Decimal `json:"goal"`
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.FounderID == "" || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "founder_id and name are required")
		return
	}

	c, err := h.svc.CreateCampaign(req.FounderID, req.Name, req.Goal)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (h *Handlers) GetCampaignStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) ListCampaignInvestments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.campaigns.GetByID(id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	filter := listFilter(r)
	txns, total, err := h.txns.ListByCampaign(id, filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

// --- Investments ---

type openInvestmentRequest struct {
	CampaignID    string          `json:"campaign_id"`
	InvestorID    string          `json:"investor_id"`
	Amount        decimal.Decimal `json:"amount"`
	Rail          domain.Rail     `json:"rail"`
	RailReference string          `json:"rail_reference,omitempty"`
}

func (h *Handlers) OpenInvestment(w http.ResponseWriter, r *http.Request) {
	var req openInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.CampaignID == "" || req.InvestorID == "" {
		h.writeError(w, http.StatusBadRequest, "campaign_id and investor_id are required")
		return
	}

	t, err := h.svc.OpenInvestment(req.CampaignID, req.InvestorID, req.Amount, req.Rail, req.RailReference)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) GetInvestment(w http.ResponseWriter, r *http.Request) {
	t, err := h.txns.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

type confirmRequest struct {
	RailReference string `json:"rail_reference"`
}

func (h *Handlers) ConfirmInvestment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	t, err := h.svc.Confirm(chi.URLParam(r, "id"), req.RailReference)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) RejectInvestment(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Reject(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) ReverseInvestment(w http.ResponseWriter, r *http.Request) {
	t, warning, err := h.svc.Reverse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := map[string]any{"transaction": t}
	if warning != nil {
		resp["integrity_warning"] = warning
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// --- Investors ---

func (h *Handlers) ListInvestorInvestments(w http.ResponseWriter, r *http.Request) {
	filter := listFilter(r)
	txns, total, err := h.txns.ListByInvestor(chi.URLParam(r, "id"), filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}
