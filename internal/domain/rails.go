package domain

import "fmt"

// Each rail confirms with a different kind of reference, and only that kind:
// the wallet rail supplies an on-chain transaction hash via callback, the
// offline rail a user-submitted code that is checked syntactically only.
// Modeling them as separate types keeps a wallet confirmation without a hash,
// or an offline submission without a code, unrepresentable.

// WalletConfirmation is the payload of a wallet-rail success callback.
type WalletConfirmation struct {
	TxHash string
}

// OfflineReference is the user-supplied code accompanying an offline transfer.
type OfflineReference struct {
	Code string
}

const offlineReferenceMinLen = 8

// NewOfflineReference validates the code's syntax: at least 8 characters,
// uppercase letters, digits and hyphens only. Nothing beyond syntax is
// verified; the code's authenticity is a documented trust boundary.
func NewOfflineReference(code string) (OfflineReference, error) {
	if len(code) < offlineReferenceMinLen {
		return OfflineReference{}, fmt.Errorf("%w: reference %q shorter than %d characters",
			ErrInvalidReference, code, offlineReferenceMinLen)
	}
	for _, c := range code {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return OfflineReference{}, fmt.Errorf("%w: reference contains %q", ErrInvalidReference, c)
		}
	}
	return OfflineReference{Code: code}, nil
}

// NewWalletConfirmation validates the hash is non-empty and free of
// whitespace. The chain has already accepted the transaction by the time the
// hash reaches the ledger, so the check stays syntactic.
func NewWalletConfirmation(hash string) (WalletConfirmation, error) {
	if hash == "" {
		return WalletConfirmation{}, fmt.Errorf("%w: empty wallet transaction hash", ErrInvalidReference)
	}
	for _, c := range hash {
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			return WalletConfirmation{}, fmt.Errorf("%w: wallet hash contains whitespace", ErrInvalidReference)
		}
	}
	return WalletConfirmation{TxHash: hash}, nil
}
