package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// Generates testdata/seed.json: a deterministic set of demo campaigns and a
// mixed investment history across both rails and every outcome. The server
// replays it through the ledger service on first start.

type campaign struct {
	FounderID string  `json:"founder_id"`
	Name      string  `json:"name"`
	Goal      float64 `json:"goal"`
}

type investment struct {
	Campaign      int     `json:"campaign"`
	InvestorID    string  `json:"investor_id"`
	Amount        float64 `json:"amount"`
	Rail          string  `json:"rail"`
	RailReference string  `json:"rail_reference,omitempty"`
	Outcome       string  `json:"outcome,omitempty"`
}

type seedFile struct {
	Campaigns   []campaign   `json:"campaigns"`
	Investments []investment `json:"investments"`
}

func main() {
	rng := rand.New(rand.NewSource(42))

	campaigns := []campaign{
		{FounderID: "founder-001", Name: "Solaris Grid Analytics", Goal: 250000},
		{FounderID: "founder-002", Name: "Mabati Logistics", Goal: 120000},
		{FounderID: "founder-003", Name: "Nyota Health Diagnostics", Goal: 500000},
		{FounderID: "founder-004", Name: "Kazi Remote Payroll", Goal: 80000},
	}

	investors := make([]string, 25)
	for i := range investors {
		investors[i] = fmt.Sprintf("investor-%03d", i+1)
	}

	var investments []investment
	for c := range campaigns {
		n := 20 + rng.Intn(15)
		for i := 0; i < n; i++ {
			inv := investment{
				Campaign:   c,
				InvestorID: investors[rng.Intn(len(investors))],
				Amount:     round2(100 + rng.Float64()*9900),
			}

			// Rail split: 70% wallet, 30% offline.
			if rng.Float64() < 0.7 {
				inv.Rail = "wallet"
				inv.RailReference = walletHash(rng)
				// 75% confirmed, 10% rejected, 5% reversed, 10% left pending.
				roll := rng.Float64()
				switch {
				case roll < 0.75:
					inv.Outcome = "confirm"
				case roll < 0.85:
					inv.Outcome = "reject"
				case roll < 0.90:
					inv.Outcome = "reverse"
				}
			} else {
				inv.Rail = "offline"
				inv.RailReference = offlineCode(rng)
				// Offline completes at open; 5% later disputed.
				if rng.Float64() < 0.05 {
					inv.Outcome = "reverse"
				}
			}

			investments = append(investments, inv)
		}
	}

	out := seedFile{Campaigns: campaigns, Investments: investments}

	path := filepath.Join(findTestdataDir(), "seed.json")
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s: %d campaigns, %d investments\n", path, len(campaigns), len(investments))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func walletHash(rng *rand.Rand) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 64)
	for i := range b {
		b[i] = hex[rng.Intn(len(hex))]
	}
	return "0x" + string(b)
}

func offlineCode(rng *rand.Rand) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return fmt.Sprintf("BANK-%s", b)
}

func findTestdataDir() string {
	for _, dir := range []string{"testdata", filepath.Join("..", "..", "testdata"), "."} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "."
}
