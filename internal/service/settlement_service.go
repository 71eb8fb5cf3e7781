package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-settlement-gateway/internal/core/domain"
	"wallet-settlement-gateway/internal/core/ports"
	"wallet-settlement-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const settledResponseTTL = 24 * time.Hour

// SettlementServiceImpl implements ports.SettlementService: one provider
// callback is one database transaction around "journal row + wallet delta",
// serialized per wallet by the row lock and deduplicated by the journal's
// unique constraint.
type SettlementServiceImpl struct {
	banks      ports.BankRegistry
	hash       ports.HashVerifier
	tokens     ports.TokenService
	players    ports.PlayerRepository
	sessions   ports.SessionRepository
	wallets    ports.WalletRepository
	journal    ports.JournalRepository
	respCache  ports.SettledResponseCache
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	banks ports.BankRegistry,
	hash ports.HashVerifier,
	tokens ports.TokenService,
	players ports.PlayerRepository,
	sessions ports.SessionRepository,
	wallets ports.WalletRepository,
	journal ports.JournalRepository,
	respCache ports.SettledResponseCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		banks:      banks,
		hash:       hash,
		tokens:     tokens,
		players:    players,
		sessions:   sessions,
		wallets:    wallets,
		journal:    journal,
		respCache:  respCache,
		transactor: transactor,
		log:        log,
	}
}

// Authenticate handles the game-launch callback: hash check, token decode,
// active game session cross-check, then the account-shaped result.
func (s *SettlementServiceImpl) Authenticate(ctx context.Context, req ports.AuthenticateRequest) (*ports.AccountResult, error) {
	if req.Token == "" || req.Hash == "" {
		return nil, apperror.ErrMissingParams("token or hash")
	}
	bank, err := s.resolveXMLBank(req.BankID)
	if err != nil {
		return nil, err
	}
	if !s.hash.VerifyToken(req.Token, bank.PassKey, req.Hash) {
		return nil, apperror.ErrInvalidHash()
	}

	claims, err := s.tokens.Decode(req.Token)
	if err != nil {
		return nil, apperror.ErrInvalidToken(err)
	}
	if claims.Kind != domain.SessionKindGame {
		return nil, apperror.ErrInvalidToken(fmt.Errorf("session kind %q is not a game session", claims.Kind))
	}
	if claims.BankID != "" && claims.BankID != bank.ID {
		return nil, apperror.ErrInvalidToken(fmt.Errorf("token minted for bank %q", claims.BankID))
	}

	sess, err := s.sessions.FindActiveGame(ctx, claims.PlayerID, req.Token, bank.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find session: %w", err))
	}
	if sess == nil {
		return nil, apperror.ErrSessionNotFound()
	}

	return s.accountResult(ctx, bank, claims.PlayerID, false)
}

// Balance returns the player's balance in the bank's default currency,
// creating the wallet with balance 0 on first reference.
func (s *SettlementServiceImpl) Balance(ctx context.Context, req ports.UserRequest) (*ports.BalanceResult, error) {
	if req.Hash == "" {
		return nil, apperror.ErrMissingParams("hash")
	}
	bank, err := s.resolveXMLBank(req.BankID)
	if err != nil {
		return nil, err
	}
	if !s.hash.VerifyUser(req.PlayerID, bank.PassKey, req.Hash) {
		return nil, apperror.ErrInvalidHash()
	}

	wallet, err := s.wallets.GetOrCreate(ctx, req.PlayerID, bank.Currency())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	return &ports.BalanceResult{BalanceCents: wallet.BalanceCents}, nil
}

// Account returns the account-shaped result for a known player.
func (s *SettlementServiceImpl) Account(ctx context.Context, req ports.UserRequest) (*ports.AccountResult, error) {
	if req.Hash == "" {
		return nil, apperror.ErrMissingParams("hash")
	}
	bank, err := s.resolveXMLBank(req.BankID)
	if err != nil {
		return nil, err
	}
	if !s.hash.VerifyUser(req.PlayerID, bank.PassKey, req.Hash) {
		return nil, apperror.ErrInvalidHash()
	}
	return s.accountResult(ctx, bank, req.PlayerID, true)
}

// BetResult settles the bet and/or win side of a game round. Each side has
// its own dedupe key and settles independently; duplicates reuse the
// Processed row's stored outcome so identical deliveries get identical
// responses.
func (s *SettlementServiceImpl) BetResult(ctx context.Context, req ports.BetResultRequest) (*ports.SettleResult, error) {
	if req.Bet == "" && req.Win == "" {
		return nil, apperror.ErrMissingParams("bet or win")
	}
	if req.Hash == "" {
		return nil, apperror.ErrMissingParams("hash")
	}
	bank, err := s.resolveXMLBank(req.BankID)
	if err != nil {
		return nil, err
	}
	if !s.hash.VerifyBet(req.PlayerID, req.Bet, req.Win, req.IsRoundFinished, req.RoundID, req.GameID, bank.PassKey, req.Hash) {
		return nil, apperror.ErrInvalidHash()
	}

	type side struct {
		kind  domain.JournalKind
		cents int64
		extID string
	}
	var sides []side
	if req.Bet != "" {
		cents, extID, err := domain.SplitWagerParam(req.Bet)
		if err != nil {
			return nil, apperror.ErrBadBetFormat(err)
		}
		sides = append(sides, side{kind: domain.JournalKindBet, cents: -cents, extID: extID})
	}
	if req.Win != "" {
		cents, extID, err := domain.SplitWagerParam(req.Win)
		if err != nil {
			return nil, apperror.ErrBadBetFormat(err)
		}
		sides = append(sides, side{kind: domain.JournalKindWin, cents: cents, extID: extID})
	}

	cacheKey := fmt.Sprintf("settle:%s:%d:%s:%s", bank.ID, req.PlayerID, req.Bet, req.Win)
	if cached := s.cachedResult(ctx, cacheKey); cached != nil {
		var result ports.SettleResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	}

	meta := journalMeta{roundID: req.RoundID, gameID: req.GameID, sessionID: req.GameSessionID}

	result := &ports.SettleResult{}
	allReused := true
	for _, sd := range sides {
		entry, reused, err := s.settleOne(ctx, bank, req.PlayerID, sd.kind, sd.cents, sd.extID, meta)
		if err != nil {
			return nil, err
		}
		allReused = allReused && reused
		// Win side wins the echo when both sides are present.
		result.ExternalTransactionID = sd.extID
		if entry.BalanceAfterCents != nil {
			result.BalanceCents = *entry.BalanceAfterCents
		}
	}
	if !allReused {
		s.cacheResult(ctx, cacheKey, result)
	}
	return result, nil
}

// RefundBet returns the original bet's amount to the wallet. The original
// settlement must exist and be Processed; the refund itself is idempotent on
// (kind=refund, original external id).
func (s *SettlementServiceImpl) RefundBet(ctx context.Context, req ports.RefundRequest) (*ports.RefundResult, error) {
	if req.CasinoTransactionID == "" || req.Hash == "" {
		return nil, apperror.ErrMissingParams("casinoTransactionId or hash")
	}
	bank, err := s.resolveXMLBank(req.BankID)
	if err != nil {
		return nil, err
	}
	if !s.hash.VerifyRefund(req.PlayerID, req.CasinoTransactionID, bank.PassKey, req.Hash) {
		return nil, apperror.ErrInvalidHash()
	}

	original, err := s.findProcessedOriginal(ctx, bank.ID, req.PlayerID, req.CasinoTransactionID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, apperror.ErrOriginalTransactionNotFound()
	}

	meta := journalMeta{roundID: original.RoundID, gameID: original.GameID, sessionID: original.SessionID}
	// Original amounts are stored signed (bets negative); the refund credits
	// the magnitude back.
	refundCents := original.AmountCents
	if refundCents < 0 {
		refundCents = -refundCents
	}

	if _, _, err := s.settleOne(ctx, bank, req.PlayerID, domain.JournalKindRefund, refundCents, req.CasinoTransactionID, meta); err != nil {
		return nil, err
	}
	return &ports.RefundResult{ExternalTransactionID: req.CasinoTransactionID}, nil
}

// BonusRelease verifies the callback and acknowledges it; no wallet movement.
func (s *SettlementServiceImpl) BonusRelease(ctx context.Context, req ports.BonusReleaseRequest) error {
	if req.Token == "" || req.Hash == "" {
		return apperror.ErrMissingParams("token or hash")
	}
	bank, err := s.resolveXMLBank(req.BankID)
	if err != nil {
		return err
	}
	if !s.hash.VerifyToken(req.Token, bank.PassKey, req.Hash) {
		return apperror.ErrInvalidHash()
	}
	if _, err := s.tokens.Decode(req.Token); err != nil {
		return apperror.ErrInvalidToken(err)
	}
	return nil
}

type journalMeta struct {
	roundID   string
	gameID    string
	sessionID string
}

// settleOne runs one dedupe-keyed settlement: idempotency lookup, then
// lock-mutate-commit. The journal's unique constraint is the authority; a
// race loser rolls back, re-reads the winner's row and reports it as reused.
func (s *SettlementServiceImpl) settleOne(
	ctx context.Context,
	bank *domain.BankConfig,
	playerID int64,
	kind domain.JournalKind,
	deltaCents int64,
	externalTxID string,
	meta journalMeta,
) (entry *domain.JournalEntry, reused bool, err error) {
	key := domain.DedupeKey{
		PlayerID:              playerID,
		BankID:                bank.ID,
		Kind:                  kind,
		ExternalTransactionID: externalTxID,
	}

	// Fast path: already settled. Failed rows are invisible to Find, so a
	// re-delivery after a failure gets a fresh attempt.
	existing, err := s.journal.Find(ctx, key)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("idempotency lookup: %w", err))
	}
	if existing != nil && existing.Status == domain.JournalStatusProcessed {
		return existing, true, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.wallets.LockForUpdate(ctx, dbTx, playerID, bank.Currency())
	if err != nil {
		if isLockTimeout(err) {
			return nil, false, apperror.ErrLockTimeout(err)
		}
		return nil, false, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}

	now := time.Now().UTC()
	attempt := &domain.JournalEntry{
		ID:                    uuid.New(),
		PlayerID:              playerID,
		WalletID:              wallet.ID,
		BankID:                bank.ID,
		Kind:                  kind,
		AmountCents:           deltaCents,
		Status:                domain.JournalStatusPending,
		ExternalTransactionID: externalTxID,
		RoundID:               meta.roundID,
		GameID:                meta.gameID,
		SessionID:             meta.sessionID,
		CreatedAt:             now,
	}

	if err := s.journal.CreatePending(ctx, dbTx, attempt); err != nil {
		if isUniqueViolation(err) {
			// Race loser: the winner committed between our lookup and
			// insert. Discard and answer from the winner's row.
			_ = dbTx.Rollback(ctx)
			winner, ferr := s.journal.Find(ctx, key)
			if ferr != nil || winner == nil || winner.Status != domain.JournalStatusProcessed {
				return nil, false, apperror.InternalError(fmt.Errorf("resolve settlement race: %w", ferr))
			}
			return winner, true, nil
		}
		return nil, false, apperror.InternalError(fmt.Errorf("create journal entry: %w", err))
	}

	newBalance, err := s.wallets.ApplyDelta(ctx, dbTx, wallet.ID, deltaCents)
	if err != nil {
		s.failAttempt(ctx, dbTx, attempt)
		return nil, false, apperror.InternalError(fmt.Errorf("apply wallet delta: %w", err))
	}

	if err := s.journal.MarkProcessed(ctx, dbTx, attempt.ID, newBalance); err != nil {
		s.failAttempt(ctx, dbTx, attempt)
		return nil, false, apperror.InternalError(fmt.Errorf("mark processed: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.failAttempt(ctx, dbTx, attempt)
		if isLockTimeout(err) {
			return nil, false, apperror.ErrLockTimeout(err)
		}
		return nil, false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	attempt.Status = domain.JournalStatusProcessed
	attempt.BalanceAfterCents = &newBalance
	attempt.ProcessedAt = &now

	s.log.Info().
		Str("tx_id", attempt.ID.String()).
		Int64("player_id", playerID).
		Str("bank_id", bank.ID).
		Str("kind", string(kind)).
		Int64("amount_cents", deltaCents).
		Int64("balance_cents", newBalance).
		Str("external_tx_id", externalTxID).
		Msg("settlement processed")

	return attempt, false, nil
}

// failAttempt rolls back the settlement transaction and records a terminal
// Failed row for the attempt. The rollback guarantees the Pending row never
// outlives its transaction; the Failed row is best-effort bookkeeping.
func (s *SettlementServiceImpl) failAttempt(ctx context.Context, dbTx pgx.Tx, attempt *domain.JournalEntry) {
	_ = dbTx.Rollback(ctx)
	failed := *attempt
	failed.Status = domain.JournalStatusFailed
	if err := s.journal.RecordFailed(ctx, &failed); err != nil {
		s.log.Warn().Err(err).Str("tx_id", attempt.ID.String()).Msg("could not record failed settlement attempt")
	}
}

func (s *SettlementServiceImpl) findProcessedOriginal(ctx context.Context, bankID string, playerID int64, externalTxID string) (*domain.JournalEntry, error) {
	for _, kind := range []domain.JournalKind{domain.JournalKindBet, domain.JournalKindWin} {
		e, err := s.journal.Find(ctx, domain.DedupeKey{
			PlayerID:              playerID,
			BankID:                bankID,
			Kind:                  kind,
			ExternalTransactionID: externalTxID,
		})
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("find original settlement: %w", err))
		}
		if e != nil && e.Status == domain.JournalStatusProcessed {
			return e, nil
		}
	}
	return nil, nil
}

func (s *SettlementServiceImpl) accountResult(ctx context.Context, bank *domain.BankConfig, playerID int64, requirePlayer bool) (*ports.AccountResult, error) {
	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get player: %w", err))
	}
	if player == nil && requirePlayer {
		return nil, apperror.ErrUserNotFound()
	}
	displayName := domain.DefaultDisplayName(playerID)
	if player != nil {
		displayName = player.DisplayOrDefault()
	}

	wallet, err := s.wallets.GetOrCreate(ctx, playerID, bank.Currency())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}

	return &ports.AccountResult{
		PlayerID:     playerID,
		DisplayName:  displayName,
		Currency:     bank.Currency(),
		BalanceCents: wallet.BalanceCents,
	}, nil
}

func (s *SettlementServiceImpl) resolveXMLBank(bankID string) (*domain.BankConfig, error) {
	bank, err := s.banks.Resolve(bankID)
	if err != nil {
		return nil, err
	}
	if !bank.UsesXML() {
		return nil, apperror.ErrDialectMismatch()
	}
	return bank, nil
}

func (s *SettlementServiceImpl) cachedResult(ctx context.Context, key string) []byte {
	if s.respCache == nil {
		return nil
	}
	cached, err := s.respCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("settled-response cache read failed, falling through to journal")
		return nil
	}
	return cached
}

func (s *SettlementServiceImpl) cacheResult(ctx context.Context, key string, result *ports.SettleResult) {
	if s.respCache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.respCache.Set(ctx, key, payload, settledResponseTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("settled-response cache write failed")
	}
}

// isUniqueViolation reports a dedupe-key collision (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isLockTimeout reports a bounded row-lock wait expiring (SQLSTATE 55P03) or
// a deadlock abort (40P01); both are retryable.
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "55P03" || pgErr.Code == "40P01"
}
