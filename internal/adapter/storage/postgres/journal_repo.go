package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-settlement-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JournalRepo implements ports.JournalRepository. Idempotency is enforced by
// a partial unique index over (player_id, bank_id, kind,
// external_transaction_id) that ignores Failed rows; CreatePending surfaces
// its violation unchanged.
type JournalRepo struct {
	pool Pool
}

// NewJournalRepo creates a new JournalRepo.
func NewJournalRepo(pool Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

const journalColumns = `id, player_id, wallet_id, bank_id, kind, amount_cents, status,
		external_transaction_id, round_id, game_id, session_id, balance_after_cents, created_at, processed_at`

// Find returns the latest non-Failed entry for the dedupe key, or nil.
func (r *JournalRepo) Find(ctx context.Context, key domain.DedupeKey) (*domain.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries
		WHERE player_id = $1 AND bank_id = $2 AND kind = $3 AND external_transaction_id = $4
		  AND status <> 'Failed'
		ORDER BY created_at DESC LIMIT 1`

	e, err := scanJournalEntry(r.pool.QueryRow(ctx, query, key.PlayerID, key.BankID, key.Kind, key.ExternalTransactionID))
	if err != nil {
		return nil, fmt.Errorf("find journal entry: %w", err)
	}
	return e, nil
}

// CreatePending inserts a Pending entry within the settlement transaction.
// A dedupe-key collision comes back as the driver's unique-violation error.
func (r *JournalRepo) CreatePending(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	query := `INSERT INTO journal_entries (id, player_id, wallet_id, bank_id, kind, amount_cents, status,
		external_transaction_id, round_id, game_id, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.PlayerID, e.WalletID, e.BankID, e.Kind, e.AmountCents, e.Status,
		e.ExternalTransactionID, e.RoundID, e.GameID, e.SessionID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// MarkProcessed finalizes the entry within the settlement transaction,
// stamping the balance the wallet held after the mutation.
func (r *JournalRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, balanceAfterCents int64) error {
	query := `UPDATE journal_entries
		SET status = 'Processed', balance_after_cents = $1, processed_at = NOW()
		WHERE id = $2 AND status = 'Pending'`

	tag, err := tx.Exec(ctx, query, balanceAfterCents, id)
	if err != nil {
		return fmt.Errorf("mark journal entry processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("journal entry not pending: %s", id)
	}
	return nil
}

// RecordFailed appends a terminal Failed row outside any settlement
// transaction. Failed rows are excluded from the dedupe index so a later
// retry with the same key can succeed. The wallet id is re-read through a
// subquery: when the rolled-back transaction also created the wallet, the
// row is gone and the Failed entry stores NULL instead of tripping the FK.
func (r *JournalRepo) RecordFailed(ctx context.Context, e *domain.JournalEntry) error {
	query := `INSERT INTO journal_entries (id, player_id, wallet_id, bank_id, kind, amount_cents, status,
		external_transaction_id, round_id, game_id, session_id, created_at, processed_at)
		VALUES ($1, $2, (SELECT wallet_id FROM wallets WHERE wallet_id = $3), $4, $5, $6, 'Failed', $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.PlayerID, e.WalletID, e.BankID, e.Kind, e.AmountCents,
		e.ExternalTransactionID, e.RoundID, e.GameID, e.SessionID, e.CreatedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record failed journal entry: %w", err)
	}
	return nil
}

// SumProcessedCents returns the signed sum of all Processed entries for a
// wallet; at every observable point it equals the wallet balance.
func (r *JournalRepo) SumProcessedCents(ctx context.Context, walletID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM journal_entries
		WHERE wallet_id = $1 AND status = 'Processed'`

	var sum int64
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum processed entries: %w", err)
	}
	return sum, nil
}

func scanJournalEntry(row pgx.Row) (*domain.JournalEntry, error) {
	e := &domain.JournalEntry{}
	err := row.Scan(
		&e.ID, &e.PlayerID, &e.WalletID, &e.BankID, &e.Kind, &e.AmountCents, &e.Status,
		&e.ExternalTransactionID, &e.RoundID, &e.GameID, &e.SessionID,
		&e.BalanceAfterCents, &e.CreatedAt, &e.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}
