package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// SessionRepo implements ports.SessionRepository.
type SessionRepo struct {
	pool Pool
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(pool Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// FindActiveGame returns the active game session bound to the
// (player, token, bank) tuple, or nil when none exists or the session has
// expired.
func (r *SessionRepo) FindActiveGame(ctx context.Context, playerID int64, token, bankID string) (*domain.Session, error) {
	query := `SELECT session_id, player_id, token, kind, bank_id, status, created_at, expires_at
		FROM sessions
		WHERE player_id = $1 AND token = $2 AND bank_id = $3
		  AND kind = 'game' AND status = 'active'
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC LIMIT 1`

	s := &domain.Session{}
	err := r.pool.QueryRow(ctx, query, playerID, token, bankID).Scan(
		&s.ID, &s.PlayerID, &s.Token, &s.Kind, &s.BankID, &s.Status, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find game session: %w", err)
	}
	return s, nil
}

// Create persists a new session, filling in the generated id.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (player_id, token, kind, bank_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING session_id`

	err := r.pool.QueryRow(ctx, query, s.PlayerID, s.Token, s.Kind, s.BankID, s.Status, s.CreatedAt, s.ExpiresAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}
