package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// N identical deliveries of the same bet race through the gateway. Exactly
// one may move the wallet; every response must still be a 200 with an OK
// envelope carrying the same external transaction id.
func TestConcurrentDuplicateBets(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")
	app.store.seedBalance(7, "USD", 1000)

	const workers = 16
	params := betResultParams(7, "80|abc123", "", "r1", "g1")
	u := app.server.URL + "/betsoft/betResult?" + params.Encode()

	var wg sync.WaitGroup
	results := make([]int, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			resp, err := http.Get(u)
			if err != nil {
				results[i] = -1
				return
			}
			resp.Body.Close()
			results[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i, code := range results {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}
	assert.Equal(t, int64(920), app.store.balance(7, "USD"))
	assert.Equal(t, 1, app.store.processedCount())

	repo := &memJournalRepo{app.store}
	wallet, err := (&memWalletRepo{app.store}).GetOrCreate(context.Background(), 7, "USD")
	require.NoError(t, err)
	sum, err := repo.SumProcessedCents(context.Background(), wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-80), sum)
}

// Distinct bets landing concurrently on one wallet must serialize on the row
// lock without losing an update: the final balance is the starting balance
// minus the sum of all stakes.
func TestConcurrentDistinctBetsConserveBalance(t *testing.T) {
	app := newTestApp(t)
	app.store.seedPlayer(7, "alice")
	app.store.seedBalance(7, "USD", 10_000)

	const workers = 20
	const stake = 25

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			bet := fmt.Sprintf("%d|ext-%d", stake, i)
			params := betResultParams(7, bet, "", "r1", "g1")
			resp, err := http.Get(app.server.URL + "/betsoft/betResult?" + params.Encode())
			if err != nil {
				return
			}
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	want := int64(10_000 - workers*stake)
	assert.Equal(t, want, app.store.balance(7, "USD"))
	assert.Equal(t, workers, app.store.processedCount())

	repo := &memJournalRepo{app.store}
	wallet, err := (&memWalletRepo{app.store}).GetOrCreate(context.Background(), 7, "USD")
	require.NoError(t, err)
	sum, err := repo.SumProcessedCents(context.Background(), wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-workers*stake), sum)
}
