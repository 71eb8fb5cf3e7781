package ports

import (
	"context"
	"time"

	"wallet-settlement-gateway/internal/core/domain"
)

// BankRegistry resolves a bank identifier to its credential set. Lookups are
// pure functions of bank id; implementations cache for the process lifetime.
type BankRegistry interface {
	// Resolve returns the bank config; an empty bankID resolves to the
	// configured default bank.
	Resolve(bankID string) (*domain.BankConfig, error)
}

// TokenClaims are the decoded claims of a session token.
type TokenClaims struct {
	PlayerID int64
	Kind     domain.SessionKind
	BankID   string
	GameID   string
}

// TokenService mints and decodes signed, time-limited session tokens.
type TokenService interface {
	Generate(playerID int64, kind domain.SessionKind, bankID, gameID string) (token string, expiresAt time.Time, err error)
	Decode(token string) (*TokenClaims, error)
}

// HashVerifier checks the provider's per-callback request digests. Pure; the
// supplied digest is compared case-insensitively and a mismatch has no side
// effects.
type HashVerifier interface {
	VerifyToken(token, passKey, supplied string) bool
	VerifyUser(playerID int64, passKey, supplied string) bool
	// VerifyBet takes the URL-decoded bet and win parameter values; hashing
	// the still-encoded strings produces a mismatch by design.
	VerifyBet(playerID int64, bet, win, isRoundFinished, roundID, gameID, passKey, supplied string) bool
	VerifyRefund(playerID int64, casinoTxID, passKey, supplied string) bool
}

// AuthenticateRequest is the game-launch authentication callback.
type AuthenticateRequest struct {
	BankID     string
	Token      string
	Hash       string
	ClientType string
}

// UserRequest covers the balance and account callbacks.
type UserRequest struct {
	BankID   string
	PlayerID int64
	Hash     string
}

// BetResultRequest is the bet/win settlement callback. Bet and Win hold the
// URL-decoded raw parameter values ("<cents>|<externalTxId>").
type BetResultRequest struct {
	BankID          string
	PlayerID        int64
	Bet             string
	Win             string
	IsRoundFinished string
	RoundID         string
	GameID          string
	GameSessionID   string
	Hash            string
}

// RefundRequest is the refund callback; CasinoTransactionID anchors to the
// original bet's external transaction id.
type RefundRequest struct {
	BankID              string
	PlayerID            int64
	CasinoTransactionID string
	Hash                string
}

// BonusReleaseRequest is the token-authenticated bonus release callback.
type BonusReleaseRequest struct {
	BankID string
	Token  string
	Hash   string
}

// AccountResult is the account-shaped outcome (authenticate, account).
type AccountResult struct {
	PlayerID     int64  `json:"player_id"`
	DisplayName  string `json:"display_name"`
	Currency     string `json:"currency"`
	BalanceCents int64  `json:"balance_cents"`
}

// BalanceResult is the balance-only outcome.
type BalanceResult struct {
	BalanceCents int64 `json:"balance_cents"`
}

// SettleResult is the betResult outcome. ExternalTransactionID echoes the
// settled side's external id, preferring the win side when both are present.
type SettleResult struct {
	ExternalTransactionID string `json:"external_transaction_id"`
	BalanceCents          int64  `json:"balance_cents"`
}

// RefundResult is the refundBet outcome.
type RefundResult struct {
	ExternalTransactionID string `json:"external_transaction_id"`
}

// SettlementService orchestrates one provider callback end to end: verify
// hash, parse payload, idempotency check, lock wallet, mutate, commit journal
// and ledger atomically. Responses are only ever built from a Processed (or
// reused-Processed) journal row.
type SettlementService interface {
	Authenticate(ctx context.Context, req AuthenticateRequest) (*AccountResult, error)
	Balance(ctx context.Context, req UserRequest) (*BalanceResult, error)
	Account(ctx context.Context, req UserRequest) (*AccountResult, error)
	BetResult(ctx context.Context, req BetResultRequest) (*SettleResult, error)
	RefundBet(ctx context.Context, req RefundRequest) (*RefundResult, error)
	BonusRelease(ctx context.Context, req BonusReleaseRequest) error
}
