package integration

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"wallet-settlement-gateway/config"
	httpHandler "wallet-settlement-gateway/internal/adapter/http/handler"
	redisStorage "wallet-settlement-gateway/internal/adapter/storage/redis"
	"wallet-settlement-gateway/internal/core/domain"
	"wallet-settlement-gateway/internal/core/ports"
	"wallet-settlement-gateway/internal/service"
	"wallet-settlement-gateway/pkg/envelope"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBankID  = "bank1"
	testPassKey = "integration-pass-key"
)

type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	store    *memStore
	tokenSvc ports.TokenService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	respCache := redisStorage.NewSettledResponseCache(rdb)

	store := newMemStore()

	registry, err := service.NewBankRegistry(config.ProviderConfig{
		DefaultBankID: testBankID,
		Banks: []config.BankEntry{
			{ID: testBankID, PassKey: testPassKey, Currency: "USD"},
		},
	})
	require.NoError(t, err)

	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	settlementSvc := service.NewSettlementService(
		registry,
		service.NewMD5HashVerifier(),
		tokenSvc,
		&memPlayerRepo{store},
		&memSessionRepo{store},
		&memWalletRepo{store},
		&memJournalRepo{store},
		respCache,
		&memTransactor{store},
		zerolog.Nop(),
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SettlementSvc: settlementSvc,
		Codec:         envelope.New(),
		Logger:        zerolog.Nop(),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, store: store, tokenSvc: tokenSvc}
}

func md5sum(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (a *testApp) get(t *testing.T, path string, params url.Values) (int, string) {
	t.Helper()
	resp, err := http.Get(a.server.URL + path + "?" + params.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func betResultParams(playerID int64, bet, win, roundID, gameID string) url.Values {
	concat := strconv.FormatInt(playerID, 10) + bet + win + "" + roundID + gameID + testPassKey
	v := url.Values{}
	v.Set("bankId", testBankID)
	v.Set("userId", strconv.FormatInt(playerID, 10))
	if bet != "" {
		v.Set("bet", bet)
	}
	if win != "" {
		v.Set("win", win)
	}
	v.Set("roundId", roundID)
	v.Set("gameId", gameID)
	v.Set("hash", md5sum(concat))
	return v
}

func refundParams(playerID int64, casinoTxID string) url.Values {
	v := url.Values{}
	v.Set("bankId", testBankID)
	v.Set("userId", strconv.FormatInt(playerID, 10))
	v.Set("casinoTransactionId", casinoTxID)
	v.Set("hash", md5sum(strconv.FormatInt(playerID, 10)+casinoTxID+testPassKey))
	return v
}

func TestGateway_BetSettlesOnce(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")
	app.store.seedBalance(7, "USD", 1000) // 10.00

	params := betResultParams(7, "80|abc123", "", "r1", "g1")

	code, body := app.get(t, "/betsoft/betResult", params)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>OK</RESULT>")
	assert.Contains(t, body, "<EXTSYSTEMTRANSACTIONID>abc123</EXTSYSTEMTRANSACTIONID>")
	assert.Contains(t, body, "<BALANCE>920</BALANCE>")
	assert.Equal(t, int64(920), app.store.balance(7, "USD"))

	// Identical re-delivery: same outcome, no second mutation.
	code, body = app.get(t, "/betsoft/betResult", params)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<EXTSYSTEMTRANSACTIONID>abc123</EXTSYSTEMTRANSACTIONID>")
	assert.Contains(t, body, "<BALANCE>920</BALANCE>")
	assert.Equal(t, int64(920), app.store.balance(7, "USD"))
	assert.Equal(t, 1, app.store.processedCount())
}

func TestGateway_RefundRestoresAndIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")
	app.store.seedBalance(7, "USD", 1000)

	_, body := app.get(t, "/betsoft/betResult", betResultParams(7, "80|abc123", "", "r1", "g1"))
	require.Contains(t, body, "<RESULT>OK</RESULT>")
	require.Equal(t, int64(920), app.store.balance(7, "USD"))

	code, body := app.get(t, "/betsoft/refundBet", refundParams(7, "abc123"))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>OK</RESULT>")
	assert.Contains(t, body, "<EXTSYSTEMTRANSACTIONID>abc123</EXTSYSTEMTRANSACTIONID>")
	assert.Equal(t, int64(1000), app.store.balance(7, "USD"))

	// Re-delivered refund does not credit twice.
	code, body = app.get(t, "/betsoft/refundBet", refundParams(7, "abc123"))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>OK</RESULT>")
	assert.Equal(t, int64(1000), app.store.balance(7, "USD"))
}

func TestGateway_RefundWithoutOriginal(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")
	app.store.seedBalance(7, "USD", 1000)

	code, body := app.get(t, "/betsoft/refundBet", refundParams(7, "ghost"))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>FAILED</RESULT>")
	assert.Contains(t, body, "<CODE>302</CODE>")
	assert.Contains(t, body, "ORIGINAL_TRANSACTION_NOT_FOUND")
	assert.Equal(t, int64(1000), app.store.balance(7, "USD"))
}

func TestGateway_BadHashWritesNothing(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")
	app.store.seedBalance(7, "USD", 1000)

	params := betResultParams(7, "80|abc123", "", "r1", "g1")
	params.Set("hash", "ffffffffffffffffffffffffffffffff")

	code, body := app.get(t, "/betsoft/betResult", params)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>FAILED</RESULT>")
	assert.Contains(t, body, "INVALID_HASH")
	assert.Equal(t, int64(1000), app.store.balance(7, "USD"))
	assert.Equal(t, 0, app.store.processedCount())
}

func TestGateway_BetAndWinInOneCallback(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")
	app.store.seedBalance(7, "USD", 1000)

	_, body := app.get(t, "/betsoft/betResult", betResultParams(7, "100|ext-bet", "250|ext-win", "r2", "g1"))
	assert.Contains(t, body, "<RESULT>OK</RESULT>")
	assert.Contains(t, body, "<EXTSYSTEMTRANSACTIONID>ext-win</EXTSYSTEMTRANSACTIONID>")
	assert.Contains(t, body, "<BALANCE>1150</BALANCE>")
	assert.Equal(t, int64(1150), app.store.balance(7, "USD"))
	assert.Equal(t, 2, app.store.processedCount())
}

func TestGateway_Authenticate(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")

	token, _, err := app.tokenSvc.Generate(7, domain.SessionKindGame, testBankID, "g1")
	require.NoError(t, err)
	app.store.seedSession(&domain.Session{
		PlayerID: 7, Token: token, BankID: testBankID,
		Kind: domain.SessionKindGame, Status: domain.SessionStatusActive,
	})

	v := url.Values{}
	v.Set("bankId", testBankID)
	v.Set("token", token)
	v.Set("hash", md5sum(token+testPassKey))

	code, body := app.get(t, "/betsoft/authenticate", v)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>OK</RESULT>")
	assert.Contains(t, body, "<USERID>7</USERID>")
	assert.Contains(t, body, "<USERNAME>alice</USERNAME>")
	assert.Contains(t, body, "<CURRENCY>USD</CURRENCY>")
}

// A game session opened under one bank must not authenticate a callback
// arriving under another bank's credentials, even with a valid digest.
func TestGateway_Authenticate_SessionBoundToOtherBank(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")

	token, _, err := app.tokenSvc.Generate(7, domain.SessionKindGame, testBankID, "g1")
	require.NoError(t, err)
	app.store.seedSession(&domain.Session{
		PlayerID: 7, Token: token, BankID: "other-bank",
		Kind: domain.SessionKindGame, Status: domain.SessionStatusActive,
	})

	v := url.Values{}
	v.Set("bankId", testBankID)
	v.Set("token", token)
	v.Set("hash", md5sum(token+testPassKey))

	code, body := app.get(t, "/betsoft/authenticate", v)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>FAILED</RESULT>")
	assert.Contains(t, body, "SESSION_NOT_FOUND")
}

func TestGateway_Authenticate_NoSession(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")

	token, _, err := app.tokenSvc.Generate(7, domain.SessionKindGame, testBankID, "g1")
	require.NoError(t, err)

	v := url.Values{}
	v.Set("bankId", testBankID)
	v.Set("token", token)
	v.Set("hash", md5sum(token+testPassKey))

	_, body := app.get(t, "/betsoft/authenticate", v)
	assert.Contains(t, body, "<RESULT>FAILED</RESULT>")
	assert.Contains(t, body, "SESSION_NOT_FOUND")
}

func TestGateway_BalanceCreatesWalletOnFirstTouch(t *testing.T) {
	app := newTestApp(t)

	v := url.Values{}
	v.Set("bankId", testBankID)
	v.Set("userId", "99")
	v.Set("hash", md5sum("99"+testPassKey))

	code, body := app.get(t, "/betsoft/balance", v)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<RESULT>OK</RESULT>")
	assert.Contains(t, body, "<BALANCE>0</BALANCE>")
}

// The ledger invariant: every committed balance equals the signed sum of
// Processed journal amounts.
func TestGateway_BalanceMatchesJournalSum(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")

	for i := 0; i < 5; i++ {
		ext := fmt.Sprintf("bet-%d", i)
		_, body := app.get(t, "/betsoft/betResult", betResultParams(7, "10|"+ext, "", "r1", "g1"))
		require.Contains(t, body, "<RESULT>OK</RESULT>")
	}
	_, body := app.get(t, "/betsoft/betResult", betResultParams(7, "", "120|win-1", "r1", "g1"))
	require.Contains(t, body, "<RESULT>OK</RESULT>")

	repo := &memJournalRepo{app.store}
	wallet, err := (&memWalletRepo{app.store}).GetOrCreate(context.Background(), 7, "USD")
	require.NoError(t, err)
	sum, err := repo.SumProcessedCents(context.Background(), wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, app.store.balance(7, "USD"), sum)
	assert.Equal(t, int64(70), sum)
}
