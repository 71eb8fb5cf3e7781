package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PlayerRepo implements ports.PlayerRepository.
type PlayerRepo struct {
	pool Pool
}

// NewPlayerRepo creates a new PlayerRepo.
func NewPlayerRepo(pool Pool) *PlayerRepo {
	return &PlayerRepo{pool: pool}
}

// Get returns the player by id, or nil when no such player exists.
func (r *PlayerRepo) Get(ctx context.Context, playerID int64) (*domain.Player, error) {
	query := `SELECT player_id, display_name FROM players WHERE player_id = $1`

	p := &domain.Player{}
	err := r.pool.QueryRow(ctx, query, playerID).Scan(&p.ID, &p.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}
