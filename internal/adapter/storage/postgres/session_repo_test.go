package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRow(s *domain.Session) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"session_id", "player_id", "token", "kind", "bank_id", "status", "created_at", "expires_at",
	}).AddRow(
		s.ID, s.PlayerID, s.Token, s.Kind, s.BankID, s.Status, s.CreatedAt, s.ExpiresAt,
	)
}

// The lookup is bank-scoped: a session row only matches under the bank it
// was opened for.
func TestSessionRepo_FindActiveGame(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSessionRepo(mock)
	sess := &domain.Session{
		ID: 3, PlayerID: 7, Token: "tok", Kind: domain.SessionKindGame,
		BankID: "bank1", Status: domain.SessionStatusActive,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectQuery("SELECT .+ FROM sessions WHERE player_id = \\$1 AND token = \\$2 AND bank_id = \\$3").
		WithArgs(int64(7), "tok", "bank1").
		WillReturnRows(sessionRow(sess))

	result, err := repo.FindActiveGame(context.Background(), 7, "tok", "bank1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "bank1", result.BankID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_FindActiveGame_Miss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSessionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM sessions").
		WithArgs(int64(7), "tok", "other-bank").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.FindActiveGame(context.Background(), 7, "tok", "other-bank")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSessionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSessionRepo(mock)
	sess := &domain.Session{
		PlayerID: 7, Token: "tok", Kind: domain.SessionKindGame,
		BankID: "bank1", Status: domain.SessionStatusActive,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(sess.PlayerID, sess.Token, sess.Kind, sess.BankID, sess.Status, sess.CreatedAt, sess.ExpiresAt).
		WillReturnRows(pgxmock.NewRows([]string{"session_id"}).AddRow(int64(11)))

	err = repo.Create(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, int64(11), sess.ID)
}
