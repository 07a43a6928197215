package blockfrost

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brojonat/ledgerscope/service/amount"
	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/brojonat/ledgerscope/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, projectID string) (*Client, *int32) {
	t.Helper()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewMetrics(prometheus.NewRegistry())
	c := NewClient(Config{BaseURL: server.URL, ProjectID: projectID}, nil, m, logger)
	return c, &calls
}

func writeProviderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status_code": status,
		"error":       http.StatusText(status),
		"message":     message,
	})
}

func TestFetch_AttachesCredential(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/blocks/latest", r.URL.Path)
		assert.Equal(t, "mainnetSecret", r.Header.Get(HeaderProjectID))
		w.Write([]byte(`{"hash":"abc","height":42,"slot":100,"epoch":5,"tx_count":3,"fees":"170000"}`))
	}, "mainnetSecret")

	block, err := c.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", block.Hash)
	require.NotNil(t, block.Height)
	assert.Equal(t, int64(42), *block.Height)
	require.NotNil(t, block.Fees)
	assert.Equal(t, "170000", *block.Fees)
}

func TestFetch_MissingCredentialFailsBeforeNetwork(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, "")

	var out map[string]interface{}
	err := c.Fetch(context.Background(), "/blocks/latest", &out)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindConfig))
	assert.Equal(t, http.StatusInternalServerError, apierr.HTTPStatus(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestFetch_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		message    string
		wantKind   apierr.Kind
		wantStatus int
	}{
		{"not found", http.StatusNotFound, "The requested component has not been found.", apierr.KindNotFound, http.StatusNotFound},
		{"forbidden", http.StatusForbidden, "Invalid project token.", apierr.KindUpstreamAuth, http.StatusForbidden},
		{"rate limited", http.StatusTooManyRequests, "Usage is over limit.", apierr.KindRateLimited, http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError, "Oops", apierr.KindUpstream, http.StatusInternalServerError},
		{"bad request", http.StatusBadRequest, "Invalid address for this network.", apierr.KindUpstream, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeProviderError(w, tt.status, tt.message)
			}, "secret")

			_, err := c.Transaction(context.Background(), "deadbeef")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apierr.KindOf(err))
			assert.Equal(t, tt.wantStatus, apierr.HTTPStatus(err))

			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.message, perr.Message)
			assert.Equal(t, "/txs/deadbeef", perr.Endpoint)
		})
	}
}

func TestFetch_NonJSONErrorBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}, "secret")

	_, err := c.LatestBlock(context.Background())
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Bad Gateway", perr.Message)
	assert.Equal(t, http.StatusBadGateway, apierr.HTTPStatus(err))
}

func TestFetch_InvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hash":`))
	}, "secret")

	_, err := c.LatestBlock(context.Background())
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindUpstream))
}

func TestFetch_DeadlineBecomesTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.LatestBlock(ctx)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindTimeout))
	assert.Equal(t, http.StatusRequestTimeout, apierr.HTTPStatus(err))
}

func TestEndpointPaths(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}, "secret")
	ctx := context.Background()

	_, err := c.PreviousBlocks(ctx, "abc", 20, 2)
	require.NoError(t, err)
	assert.Equal(t, "/blocks/abc/previous", gotPath)
	assert.Equal(t, "count=20&page=2", gotQuery)

	_, err = c.AddressTransactions(ctx, "addr1xyz", 20)
	require.NoError(t, err)
	assert.Equal(t, "/addresses/addr1xyz/transactions", gotPath)
	assert.Equal(t, "count=20&order=desc", gotQuery)

	_, err = c.AccountRewards(ctx, "stake1xyz", 10)
	require.NoError(t, err)
	assert.Equal(t, "/accounts/stake1xyz/rewards", gotPath)
	assert.Equal(t, "count=10", gotQuery)

	_, err = c.BlockTransactions(ctx, "abc", 50)
	require.NoError(t, err)
	assert.Equal(t, "/blocks/abc/txs", gotPath)
}

func TestAddress_ScalarAndListAmounts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/addresses/addr1list":
			w.Write([]byte(`{"address":"addr1list","amount":[{"unit":"lovelace","quantity":"9007199254740993"},{"unit":"abc","quantity":"5"}]}`))
		default:
			w.Write([]byte(`{"address":"addr1scalar","amount":"123"}`))
		}
	}, "secret")

	addr, err := c.Address(context.Background(), "addr1list")
	require.NoError(t, err)
	assert.Equal(t, amount.Entries{
		{Unit: amount.Lovelace, Quantity: "9007199254740993"},
		{Unit: "abc", Quantity: "5"},
	}, addr.Amount)

	addr, err = c.Address(context.Background(), "addr1scalar")
	require.NoError(t, err)
	assert.Equal(t, amount.Entries{{Unit: amount.Lovelace, Quantity: "123"}}, addr.Amount)
}

func TestFetch_CancelledContextSkipsLimiter(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClient(Config{BaseURL: server.URL, ProjectID: "secret", RPS: 1}, nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.LatestBlock(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
