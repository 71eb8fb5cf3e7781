package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JournalKind is the settlement type of a journal entry.
type JournalKind string

const (
	JournalKindBet    JournalKind = "bet"
	JournalKindWin    JournalKind = "win"
	JournalKindRefund JournalKind = "refund"
)

// JournalStatus is the lifecycle state of a journal entry.
// Pending rows only exist inside their owning database transaction;
// Processed and Failed are terminal.
type JournalStatus string

const (
	JournalStatusPending   JournalStatus = "Pending"
	JournalStatusProcessed JournalStatus = "Processed"
	JournalStatusFailed    JournalStatus = "Failed"
)

// JournalEntry is an append-only record of one settlement attempt.
// AmountCents is signed: bets are negative, wins and refunds positive, so a
// wallet balance always equals the sum of its Processed entries' amounts.
// BalanceAfterCents is stamped when the entry becomes Processed and is what
// duplicate deliveries echo back.
type JournalEntry struct {
	ID                    uuid.UUID     `json:"transaction_id"`
	PlayerID              int64         `json:"player_id"`
	WalletID              int64         `json:"wallet_id"`
	BankID                string        `json:"bank_id"`
	Kind                  JournalKind   `json:"kind"`
	AmountCents           int64         `json:"amount_cents"`
	Status                JournalStatus `json:"status"`
	ExternalTransactionID string        `json:"external_transaction_id"`
	RoundID               string        `json:"round_id,omitempty"`
	GameID                string        `json:"game_id,omitempty"`
	SessionID             string        `json:"session_id,omitempty"`
	BalanceAfterCents     *int64        `json:"balance_after_cents,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	ProcessedAt           *time.Time    `json:"processed_at,omitempty"`
}

// IsTerminal reports whether the entry can no longer change state.
func (e *JournalEntry) IsTerminal() bool {
	return e.Status == JournalStatusProcessed || e.Status == JournalStatusFailed
}

// DedupeKey is the uniqueness boundary for idempotent settlement. For refunds
// the external id anchors to the original bet's external transaction id.
type DedupeKey struct {
	PlayerID              int64
	BankID                string
	Kind                  JournalKind
	ExternalTransactionID string
}

// String renders the key in the form used for response caching.
func (k DedupeKey) String() string {
	return fmt.Sprintf("%d:%s:%s:%s", k.PlayerID, k.BankID, k.Kind, k.ExternalTransactionID)
}

// SplitWagerParam parses a provider wager parameter of the form
// "<minorUnits>|<externalTransactionId>", e.g. "80|2629682819".
func SplitWagerParam(s string) (cents int64, externalTxID string, err error) {
	amount, ext, ok := strings.Cut(s, "|")
	if !ok || ext == "" {
		return 0, "", fmt.Errorf("wager param %q: want \"<cents>|<externalTxId>\"", s)
	}
	cents, err = strconv.ParseInt(amount, 10, 64)
	if err != nil || cents < 0 {
		return 0, "", fmt.Errorf("wager param %q: bad amount", s)
	}
	return cents, ext, nil
}
