package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-settlement-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The in-memory store mirrors the database semantics the settlement engine
// leans on: a per-wallet exclusive lock held from LockForUpdate until the
// transaction ends, a unique constraint over the dedupe key that ignores
// Failed rows, and rollback undoing every uncommitted write.

type walletKey struct {
	playerID int64
	currency string
}

type memStore struct {
	mu           sync.Mutex
	wallets      map[walletKey]*domain.Wallet
	walletLocks  map[int64]*sync.Mutex
	nextWalletID int64
	journal      map[domain.DedupeKey]*domain.JournalEntry
	failed       []*domain.JournalEntry
	players      map[int64]*domain.Player
	sessions     []*domain.Session
}

func newMemStore() *memStore {
	return &memStore{
		wallets:     make(map[walletKey]*domain.Wallet),
		walletLocks: make(map[int64]*sync.Mutex),
		journal:     make(map[domain.DedupeKey]*domain.JournalEntry),
		players:     make(map[int64]*domain.Player),
	}
}

// seedPlayer registers a player row.
func (s *memStore) seedPlayer(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[id] = &domain.Player{ID: id, DisplayName: name}
}

// seedBalance creates the wallet and fixes its starting balance.
func (s *memStore) seedBalance(playerID int64, currency string, cents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.walletLocked(playerID, currency)
	w.BalanceCents = cents
}

func (s *memStore) seedSession(sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sess)
}

// balance reads the committed wallet balance.
func (s *memStore) balance(playerID int64, currency string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletKey{playerID, currency}]
	if !ok {
		return 0
	}
	return w.BalanceCents
}

// processedCount counts committed Processed journal rows.
func (s *memStore) processedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.journal {
		if e.Status == domain.JournalStatusProcessed {
			n++
		}
	}
	return n
}

// walletLocked returns the wallet for the key, creating it if missing.
// Caller must hold s.mu.
func (s *memStore) walletLocked(playerID int64, currency string) *domain.Wallet {
	key := walletKey{playerID, currency}
	if w, ok := s.wallets[key]; ok {
		return w
	}
	s.nextWalletID++
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:           s.nextWalletID,
		PlayerID:     playerID,
		CurrencyCode: currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.wallets[key] = w
	s.walletLocks[w.ID] = &sync.Mutex{}
	return w
}

// --- Transaction ---

// baseTx provides no-op implementations of the pgx.Tx surface the engine
// never touches in tests.
type baseTx struct{}

func (baseTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (baseTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (baseTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (baseTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (baseTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (baseTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (baseTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (baseTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (baseTx) Conn() *pgx.Conn                                              { return nil }

type memTx struct {
	baseTx
	store *memStore

	mu    sync.Mutex
	done  bool
	undo  []func()
	locks []*sync.Mutex
}

func (t *memTx) addUndo(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

func (t *memTx) holdLock(l *sync.Mutex) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locks = append(t.locks, l)
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.release()
	return nil
}

func (t *memTx) release() {
	for _, l := range t.locks {
		l.Unlock()
	}
	t.locks = nil
}

type memTransactor struct {
	store *memStore
}

func (tr *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{store: tr.store}, nil
}

// --- Wallet repository ---

type memWalletRepo struct {
	store *memStore
}

func (r *memWalletRepo) GetOrCreate(ctx context.Context, playerID int64, currency string) (*domain.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w := r.store.walletLocked(playerID, currency)
	cp := *w
	return &cp, nil
}

func (r *memWalletRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, playerID int64, currency string) (*domain.Wallet, error) {
	mtx, ok := tx.(*memTx)
	if !ok {
		return nil, fmt.Errorf("not a memTx")
	}

	r.store.mu.Lock()
	w := r.store.walletLocked(playerID, currency)
	lock := r.store.walletLocks[w.ID]
	r.store.mu.Unlock()

	// Row lock: held until the transaction commits or rolls back, so
	// concurrent settlements on the same wallet serialize here.
	lock.Lock()
	mtx.holdLock(lock)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *r.store.wallets[walletKey{playerID, currency}]
	return &cp, nil
}

func (r *memWalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID int64, deltaCents int64) (int64, error) {
	mtx, ok := tx.(*memTx)
	if !ok {
		return 0, fmt.Errorf("not a memTx")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.wallets {
		if w.ID == walletID {
			w.BalanceCents += deltaCents
			w.UpdatedAt = time.Now().UTC()
			target := w
			mtx.addUndo(func() {
				r.store.mu.Lock()
				defer r.store.mu.Unlock()
				target.BalanceCents -= deltaCents
			})
			return w.BalanceCents, nil
		}
	}
	return 0, fmt.Errorf("wallet not found: %d", walletID)
}

// --- Journal repository ---

type memJournalRepo struct {
	store *memStore
}

func dedupeKeyOf(e *domain.JournalEntry) domain.DedupeKey {
	return domain.DedupeKey{
		PlayerID:              e.PlayerID,
		BankID:                e.BankID,
		Kind:                  e.Kind,
		ExternalTransactionID: e.ExternalTransactionID,
	}
}

func (r *memJournalRepo) Find(ctx context.Context, key domain.DedupeKey) (*domain.JournalEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.journal[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *memJournalRepo) CreatePending(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	mtx, ok := tx.(*memTx)
	if !ok {
		return fmt.Errorf("not a memTx")
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := dedupeKeyOf(e)
	if _, exists := r.store.journal[key]; exists {
		// Same SQLSTATE the partial unique index raises.
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	cp := *e
	r.store.journal[key] = &cp
	mtx.addUndo(func() {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		delete(r.store.journal, key)
	})
	return nil
}

func (r *memJournalRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, balanceAfterCents int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.journal {
		if e.ID == id {
			if e.Status != domain.JournalStatusPending {
				return fmt.Errorf("journal entry not pending")
			}
			now := time.Now().UTC()
			e.Status = domain.JournalStatusProcessed
			e.BalanceAfterCents = &balanceAfterCents
			e.ProcessedAt = &now
			return nil
		}
	}
	return fmt.Errorf("journal entry not found")
}

func (r *memJournalRepo) RecordFailed(ctx context.Context, e *domain.JournalEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *e
	cp.Status = domain.JournalStatusFailed
	r.store.failed = append(r.store.failed, &cp)
	return nil
}

func (r *memJournalRepo) SumProcessedCents(ctx context.Context, walletID int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var sum int64
	for _, e := range r.store.journal {
		if e.WalletID == walletID && e.Status == domain.JournalStatusProcessed {
			sum += e.AmountCents
		}
	}
	return sum, nil
}

// --- Player repository ---

type memPlayerRepo struct {
	store *memStore
}

func (r *memPlayerRepo) Get(ctx context.Context, playerID int64) (*domain.Player, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.players[playerID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// --- Session repository ---

type memSessionRepo struct {
	store *memStore
}

func (r *memSessionRepo) FindActiveGame(ctx context.Context, playerID int64, token, bankID string) (*domain.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.store.sessions {
		if s.PlayerID == playerID && s.Token == token && s.BankID == bankID && s.Kind == domain.SessionKindGame && s.IsActive(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *s
	r.store.sessions = append(r.store.sessions, &cp)
	return nil
}
