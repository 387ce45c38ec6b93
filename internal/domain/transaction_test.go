package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusCompleted, StatusFailed, true},
		{StatusCompleted, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusPending, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusFailed, false},
		{StatusPending, StatusPending, false},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestInitialStatus(t *testing.T) {
	if got := InitialStatus(RailWallet); got != StatusPending {
		t.Errorf("wallet initial status = %s, want pending", got)
	}
	if got := InitialStatus(RailOffline); got != StatusCompleted {
		t.Errorf("offline initial status = %s, want completed", got)
	}
}

func TestNewOfflineReference(t *testing.T) {
	valid := []string{"ABCDEF123456", "BANK-2024-0001", "12345678"}
	for _, code := range valid {
		ref, err := NewOfflineReference(code)
		if err != nil {
			t.Errorf("NewOfflineReference(%q): unexpected error %v", code, err)
		}
		if ref.Code != code {
			t.Errorf("NewOfflineReference(%q).Code = %q", code, ref.Code)
		}
	}

	invalid := []string{"", "SHORT", "abcdef123456", "ABC DEF 1234", "ABCDEF#12345"}
	for _, code := range invalid {
		if _, err := NewOfflineReference(code); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("NewOfflineReference(%q): got %v, want ErrInvalidReference", code, err)
		}
	}
}

func TestNewWalletConfirmation(t *testing.T) {
	for _, hash := range []string{"", "0x abc", "0xabc\n"} {
		if _, err := NewWalletConfirmation(hash); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("hash %q: got %v, want ErrInvalidReference", hash, err)
		}
	}
	conf, err := NewWalletConfirmation("0xdeadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.TxHash != "0xdeadbeef" {
		t.Errorf("TxHash = %q", conf.TxHash)
	}
}

func TestStatsProgressPercent(t *testing.T) {
	c := &Campaign{
		ID:     "c1",
		Goal:   decimal.RequireFromString("1000"),
		Raised: decimal.RequireFromString("300"),
	}
	s := StatsFor(c)
	if s.ProgressPercent != 30 {
		t.Errorf("progress = %v, want 30", s.ProgressPercent)
	}
}
