package chainerr

import "strings"

// WalletRemapCode is a stable discriminator for a wallet-level message that
// has been recognized and remapped to a higher-level variant.
type WalletRemapCode string

const (
	WalletUserRejected       WalletRemapCode = "USER_REJECTED"
	WalletInsufficientFunds  WalletRemapCode = "INSUFFICIENT_FUNDS"
	WalletHardwareTimeout    WalletRemapCode = "HARDWARE_TIMEOUT"
	WalletBlockhashNotFound  WalletRemapCode = "BLOCKHASH_NOT_FOUND"
	WalletAccountNotFound    WalletRemapCode = "ACCOUNT_NOT_FOUND"
)

// RemapWalletMessage recognizes substrings in signer/RPC error messages
// ("user rejected", "insufficient funds", ...) so downstream consumers can
// render friendly text without string-matching the same message twice.
// Matching is priority-ordered, most specific first, mirroring the pattern
// used for arcsign's internal wallet error classifier.
func RemapWalletMessage(msg string) (WalletRemapCode, bool) {
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "user rejected"),
		strings.Contains(lower, "rejected the request"),
		strings.Contains(lower, "denied transaction signature"):
		return WalletUserRejected, true

	case strings.Contains(lower, "insufficient funds"),
		strings.Contains(lower, "insufficient lamports"):
		return WalletInsufficientFunds, true

	case strings.Contains(lower, "hardware wallet"),
		strings.Contains(lower, "device timeout"),
		strings.Contains(lower, "ledger"):
		return WalletHardwareTimeout, true

	case strings.Contains(lower, "blockhash not found"),
		strings.Contains(lower, "block height exceeded"):
		return WalletBlockhashNotFound, true

	case strings.Contains(lower, "account not found"),
		strings.Contains(lower, "could not find account"):
		return WalletAccountNotFound, true

	default:
		return "", false
	}
}
