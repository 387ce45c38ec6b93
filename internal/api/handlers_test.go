package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fundery/ledger/internal/domain"
	"github.com/fundery/ledger/internal/ledger"
	"github.com/fundery/ledger/internal/repository"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := repository.InitDB(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	campaigns := repository.NewCampaignRepo(db)
	txns := repository.NewTransactionRepo(db)
	svc := ledger.NewService(db, campaigns, txns, zerolog.Nop())
	return NewRouter(svc, campaigns, txns, zerolog.Nop())
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createCampaign(t *testing.T, router http.Handler, goal string) domain.Campaign {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"founder_id": "founder-1",
		"name":       "Test Campaign",
		"goal":       goal,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create campaign: status %d, body %s", rec.Code, rec.Body)
	}
	var c domain.Campaign
	decode(t, rec, &c)
	return c
}

func TestCreateCampaignValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"founder_id": "founder-1",
		"name":       "Zero Goal",
		"goal":       "0",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero goal: status %d, want 422", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"name": "No Founder",
		"goal": "100",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing founder: status %d, want 400", rec.Code)
	}
}

func TestOfflineInvestmentFlow(t *testing.T) {
	router := newTestRouter(t)
	c := createCampaign(t, router, "1000")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/investments", map[string]any{
		"campaign_id":    c.ID,
		"investor_id":    "investor-x",
		"amount":         "300",
		"rail":           "offline",
		"rail_reference": "ABCDEF123456",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open: status %d, body %s", rec.Code, rec.Body)
	}
	var txn domain.Transaction
	decode(t, rec, &txn)
	if txn.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", txn.Status)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/campaigns/"+c.ID+"/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status %d", rec.Code)
	}
	var stats domain.Stats
	decode(t, rec, &stats)
	if !stats.Raised.Equal(txn.Amount) || stats.InvestorCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ProgressPercent != 30 {
		t.Errorf("progress = %v, want 30", stats.ProgressPercent)
	}

	// A completed offline investment cannot be confirmed again.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/investments/"+txn.ID+"/confirm", map[string]any{
		"rail_reference": "0xHASH",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("confirm completed: status %d, want 409", rec.Code)
	}
}

func TestWalletConfirmAndReverseFlow(t *testing.T) {
	router := newTestRouter(t)
	c := createCampaign(t, router, "1000")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/investments", map[string]any{
		"campaign_id": c.ID,
		"investor_id": "investor-x",
		"amount":      "200",
		"rail":        "wallet",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open: status %d, body %s", rec.Code, rec.Body)
	}
	var txn domain.Transaction
	decode(t, rec, &txn)
	if txn.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", txn.Status)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/investments/"+txn.ID+"/confirm", map[string]any{
		"rail_reference": "0xHASH",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: status %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/investments/"+txn.ID+"/reverse", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reverse: status %d, body %s", rec.Code, rec.Body)
	}
	var rev struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	decode(t, rec, &rev)
	if rev.Transaction.Status != domain.StatusFailed {
		t.Errorf("reversed status = %s, want failed", rev.Transaction.Status)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/campaigns/"+c.ID+"/stats", nil)
	var stats domain.Stats
	decode(t, rec, &stats)
	if !stats.Raised.IsZero() || stats.TransactionCount != 0 {
		t.Errorf("stats after round trip = %+v", stats)
	}
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t)
	c := createCampaign(t, router, "1000")

	// Unknown ids map to 404.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/investments/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing investment: status %d, want 404", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/campaigns/missing/stats", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing campaign stats: status %d, want 404", rec.Code)
	}

	// Bad amounts and references map to 422.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/investments", map[string]any{
		"campaign_id": c.ID,
		"investor_id": "investor-x",
		"amount":      "-5",
		"rail":        "wallet",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount: status %d, want 422", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/investments", map[string]any{
		"campaign_id":    c.ID,
		"investor_id":    "investor-x",
		"amount":         "100",
		"rail":           "offline",
		"rail_reference": "short",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad reference: status %d, want 422", rec.Code)
	}

	// Rejecting a transaction that is not pending maps to 409.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/investments", map[string]any{
		"campaign_id":    c.ID,
		"investor_id":    "investor-x",
		"amount":         "100",
		"rail":           "offline",
		"rail_reference": "ABCDEF123456",
	})
	var txn domain.Transaction
	decode(t, rec, &txn)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/investments/"+txn.ID+"/reject", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("reject completed: status %d, want 409", rec.Code)
	}
}

func TestListEndpoints(t *testing.T) {
	router := newTestRouter(t)
	c := createCampaign(t, router, "1000")

	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/investments", map[string]any{
			"campaign_id":    c.ID,
			"investor_id":    "investor-x",
			"amount":         "100",
			"rail":           "offline",
			"rail_reference": "ABCDEF123456",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("open %d: status %d", i, rec.Code)
		}
	}

	var listing struct {
		Transactions []domain.Transaction `json:"transactions"`
		Total        int                  `json:"total"`
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/campaigns/"+c.ID+"/investments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("campaign listing: status %d", rec.Code)
	}
	decode(t, rec, &listing)
	if listing.Total != 3 {
		t.Errorf("campaign listing total = %d, want 3", listing.Total)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/investors/investor-x/investments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("investor listing: status %d", rec.Code)
	}
	decode(t, rec, &listing)
	if listing.Total != 3 {
		t.Errorf("investor listing total = %d, want 3", listing.Total)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/campaigns", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("campaigns listing: status %d", rec.Code)
	}
}
