package ports

import (
	"context"
	"time"

	"wallet-settlement-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository owns per-(player, currency) balances. Methods accepting
// pgx.Tx run inside the settlement transaction and rely on row locking; every
// balance mutation must go through LockForUpdate + ApplyDelta.
type WalletRepository interface {
	// GetOrCreate returns the wallet, inserting a zero-balance row on first
	// touch. A concurrent first-touch race resolves to the existing row.
	GetOrCreate(ctx context.Context, playerID int64, currency string) (*domain.Wallet, error)
	// LockForUpdate returns the wallet under an exclusive row lock scoped to
	// tx, creating the row first if missing.
	LockForUpdate(ctx context.Context, tx pgx.Tx, playerID int64, currency string) (*domain.Wallet, error)
	// ApplyDelta adds the signed minor-unit amount (bet negative, win/refund
	// positive) and returns the resulting balance. Negative results are
	// allowed.
	ApplyDelta(ctx context.Context, tx pgx.Tx, walletID int64, deltaCents int64) (int64, error)
}

// JournalRepository is the append-only record of settlement attempts and the
// source of idempotency truth. The journal's unique constraint over the
// dedupe key (ignoring Failed rows) is the authoritative guard; CreatePending
// surfaces its violation unchanged so callers can resolve the race.
type JournalRepository interface {
	// Find returns the latest non-Failed entry for the dedupe key, or nil.
	Find(ctx context.Context, key domain.DedupeKey) (*domain.JournalEntry, error)
	// CreatePending inserts a Pending entry within tx.
	CreatePending(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error
	// MarkProcessed finalizes the entry within tx, stamping the resulting
	// balance.
	MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, balanceAfterCents int64) error
	// RecordFailed appends a terminal Failed row outside any settlement
	// transaction. Failed rows never block a later retry.
	RecordFailed(ctx context.Context, e *domain.JournalEntry) error
	// SumProcessedCents returns the signed sum of all Processed entries for a
	// wallet.
	SumProcessedCents(ctx context.Context, walletID int64) (int64, error)
}

// PlayerRepository is the read-only player directory.
type PlayerRepository interface {
	// Get returns the player, or nil when unknown.
	Get(ctx context.Context, playerID int64) (*domain.Player, error)
}

// SessionRepository reads and writes operator session rows.
type SessionRepository interface {
	// FindActiveGame returns the player's active game session carrying
	// exactly this token for this bank, or nil. A session minted for one
	// bank never authenticates under another bank's credentials.
	FindActiveGame(ctx context.Context, playerID int64, token, bankID string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
}

// SettledResponseCache is the best-effort first idempotency layer: settled
// callback outcomes keyed by dedupe key. The journal remains authoritative.
type SettledResponseCache interface {
	// Get returns the cached outcome, or nil, nil on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DBTransactor provides database transaction management. Transactions carry a
// bounded lock timeout so a blocked settlement aborts instead of queueing
// forever.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// HealthChecker verifies one dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
