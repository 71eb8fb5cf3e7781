package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository. Balances live in a BIGINT
// minor-units column; there is no floating point anywhere in the path.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `wallet_id, player_id, currency_code, balance_cents, created_at, updated_at`

// GetOrCreate returns the player's wallet in the given currency, inserting a
// zero-balance row on first touch. The insert-on-conflict makes a concurrent
// first-touch race resolve to the existing row instead of erroring.
func (r *WalletRepo) GetOrCreate(ctx context.Context, playerID int64, currency string) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (player_id, currency_code, balance_cents)
		VALUES ($1, $2, 0) ON CONFLICT (player_id, currency_code) DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert, playerID, currency); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE player_id = $1 AND currency_code = $2`
	w, err := scanWallet(r.pool.QueryRow(ctx, query, playerID, currency))
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("wallet vanished after insert: player %d %s", playerID, currency)
	}
	return w, nil
}

// LockForUpdate returns the wallet under an exclusive row lock scoped to tx,
// creating the row first when missing. This MUST be called within a
// transaction; all balance mutations funnel through it.
func (r *WalletRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, playerID int64, currency string) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (player_id, currency_code, balance_cents)
		VALUES ($1, $2, 0) ON CONFLICT (player_id, currency_code) DO NOTHING`
	if _, err := tx.Exec(ctx, insert, playerID, currency); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE player_id = $1 AND currency_code = $2 FOR UPDATE`
	w, err := scanWallet(tx.QueryRow(ctx, query, playerID, currency))
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if w == nil {
		return nil, fmt.Errorf("wallet vanished under lock: player %d %s", playerID, currency)
	}
	return w, nil
}

// ApplyDelta adds the signed minor-unit amount and returns the resulting
// balance. Negative balances are allowed.
func (r *WalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID int64, deltaCents int64) (int64, error) {
	query := `UPDATE wallets SET balance_cents = balance_cents + $1, updated_at = NOW()
		WHERE wallet_id = $2 RETURNING balance_cents`

	var newBalance int64
	if err := tx.QueryRow(ctx, query, deltaCents, walletID).Scan(&newBalance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("wallet not found: %d", walletID)
		}
		return 0, fmt.Errorf("apply wallet delta: %w", err)
	}
	return newBalance, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.PlayerID, &w.CurrencyCode, &w.BalanceCents, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
