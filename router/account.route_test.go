package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecbarko/ecbarko-db/handlers"
	"github.com/ecbarko/ecbarko-db/models"
	"github.com/ecbarko/ecbarko-db/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	h := handlers.NewAccountHandler(s, 100000, nil, nil)
	srv := httptest.NewServer(Router(h, Options{MetricsHandler: promhttp.Handler()}))
	t.Cleanup(srv.Close)
	return srv, s
}

// doJSON sends body as JSON, checks the status and decodes the reply into out.
func doJSON(t *testing.T, method, url string, body interface{}, wantCode int, out interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, wantCode, resp.StatusCode, "%s %s", method, url)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func TestLoadThenHistoryScenario(t *testing.T) {
	srv, s := newTestServer(t)
	s.Put(models.Account{UserID: "u1", Balance: 100})

	var loaded models.LoadResponse
	doJSON(t, http.MethodPost, srv.URL+"/load", map[string]interface{}{"userId": "u1", "amount": 50}, http.StatusOK, &loaded)
	assert.True(t, loaded.Success)
	assert.Equal(t, 150.0, loaded.NewBalance)

	var balance models.BalanceResponse
	doJSON(t, http.MethodGet, srv.URL+"/balance/u1", nil, http.StatusOK, &balance)
	assert.Equal(t, 150.0, balance.Balance)

	var history models.HistoryResponse
	doJSON(t, http.MethodGet, srv.URL+"/history/u1", nil, http.StatusOK, &history)
	require.Len(t, history.History, 1)
	assert.Equal(t, 50.0, history.History[0].Amount)
	assert.Equal(t, "load", history.History[0].Type)
	assert.False(t, history.History[0].Timestamp.IsZero())
}

func TestReadsOfUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/balance/ghost", "/history/ghost"} {
		var body map[string]interface{}
		doJSON(t, http.MethodGet, srv.URL+path, nil, http.StatusNotFound, &body)
		assert.Equal(t, map[string]interface{}{"error": "User not found"}, body, path)
	}
}

func TestBalanceIndependentOfHistorySize(t *testing.T) {
	srv, s := newTestServer(t)
	txs := make([]models.Transaction, 500)
	for i := range txs {
		txs[i] = models.NewLoad(1, time.Now())
	}
	s.Put(models.Account{UserID: "u1", Balance: 42.5, Transactions: txs})

	var balance models.BalanceResponse
	doJSON(t, http.MethodGet, srv.URL+"/balance/u1", nil, http.StatusOK, &balance)
	assert.Equal(t, 42.5, balance.Balance)
}

func TestFirstLoadCreatesAccount(t *testing.T) {
	srv, _ := newTestServer(t)

	var loaded models.LoadResponse
	doJSON(t, http.MethodPost, srv.URL+"/load", map[string]interface{}{"userId": "new-rider", "amount": 75}, http.StatusOK, &loaded)
	assert.Equal(t, 75.0, loaded.NewBalance)

	var history models.HistoryResponse
	doJSON(t, http.MethodGet, srv.URL+"/history/new-rider", nil, http.StatusOK, &history)
	require.Len(t, history.History, 1, "the creating load is recorded too")
	assert.Equal(t, 75.0, history.History[0].Amount)
}

func TestSequentialLoadsKeepOrder(t *testing.T) {
	srv, s := newTestServer(t)
	s.Put(models.Account{UserID: "u1", Balance: 10})

	doJSON(t, http.MethodPost, srv.URL+"/load", map[string]interface{}{"userId": "u1", "amount": 5}, http.StatusOK, nil)
	doJSON(t, http.MethodPost, srv.URL+"/load", map[string]interface{}{"userId": "u1", "amount": 7}, http.StatusOK, nil)

	var history models.HistoryResponse
	doJSON(t, http.MethodGet, srv.URL+"/history/u1", nil, http.StatusOK, &history)
	require.Len(t, history.History, 2)
	assert.Equal(t, 5.0, history.History[0].Amount)
	assert.Equal(t, 7.0, history.History[1].Amount)

	var balance models.BalanceResponse
	doJSON(t, http.MethodGet, srv.URL+"/balance/u1", nil, http.StatusOK, &balance)
	assert.Equal(t, 22.0, balance.Balance)
}

func TestConcurrentLoadsConverge(t *testing.T) {
	srv, s := newTestServer(t)
	s.Put(models.Account{UserID: "u1", Balance: 100})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := strings.NewReader(`{"userId":"u1","amount":2}`)
			resp, err := http.Post(srv.URL+"/load", "application/json", body)
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	var balance models.BalanceResponse
	doJSON(t, http.MethodGet, srv.URL+"/balance/u1", nil, http.StatusOK, &balance)
	assert.Equal(t, 100.0+2*n, balance.Balance)

	var history models.HistoryResponse
	doJSON(t, http.MethodGet, srv.URL+"/history/u1", nil, http.StatusOK, &history)
	assert.Len(t, history.History, n)
}

func TestLoadValidation(t *testing.T) {
	srv, s := newTestServer(t)

	tests := []struct {
		body string
		want string
	}{
		{body: `{"userId":"u1","amount":-5}`, want: models.ErrInvalidAmount.Error()},
		{body: `{"userId":"u1"}`, want: models.ErrInvalidAmount.Error()},
		{body: `{"amount":5}`, want: models.ErrMissingUserID.Error()},
		{body: `{"userId":"u1","amount":100001}`, want: models.ErrAmountTooLarge.Error()},
		{body: `{"userId":"u1","amount":"50"}`, want: "Invalid request body"},
		{body: `not json`, want: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/load", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Error)
		})
	}

	_, err := s.FindByUserID(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrAccountNotFound, "rejected loads must not create accounts")
}

func TestEmptyHistoryIsArray(t *testing.T) {
	srv, s := newTestServer(t)
	s.Put(models.Account{UserID: "legacy", Balance: 30})

	resp, err := http.Get(srv.URL + "/history/legacy")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["history"]))
}

func TestPreflightAndAuxRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/load", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var health map[string]string
	doJSON(t, http.MethodGet, srv.URL+"/health", nil, http.StatusOK, &health)
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/load")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPaddedUserIDReadsTheLoadedAccount(t *testing.T) {
	srv, _ := newTestServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/load", map[string]interface{}{"userId": " u1 ", "amount": 20}, http.StatusOK, nil)

	var balance models.BalanceResponse
	doJSON(t, http.MethodGet, srv.URL+"/balance/%20u1%20", nil, http.StatusOK, &balance)
	assert.Equal(t, 20.0, balance.Balance)

	var history models.HistoryResponse
	doJSON(t, http.MethodGet, srv.URL+"/history/u1", nil, http.StatusOK, &history)
	assert.Len(t, history.History, 1)
}
