package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/dimfeld/httptreemux/v5"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

var heightRegex = regexp.MustCompile(`^[0-9]+$`)

var errInvalidQuery = errors.New("page and limit must be integers")

// successResponse is the envelope of every successful API response.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// errorResponse is the envelope of every failed API response. Stack is
// only filled outside production.
type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Status  int      `json:"status"`
	Stack   []string `json:"stack,omitempty"`
}

// responder runs an aggregator call under the request timeout and writes
// the result envelope.
type responder struct {
	timeout     time.Duration
	exposeStack bool
	logger      *slog.Logger
}

type apiFunc func(ctx context.Context, r *http.Request) (any, error)

func (rs *responder) handle(fn apiFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rs.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, rs.timeout)
			defer cancel()
		}

		data, err := fn(ctx, r)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, successResponse{Success: true, Data: data}, http.StatusOK)
	})
}

func (rs *responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	classified := apierr.From(err)
	status := apierr.HTTPStatus(classified)

	logger := rs.logger.With("request_id", requestIDFrom(r.Context()), "path", r.URL.Path, "status", status)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "error", err)
	}

	var stack []string
	if rs.exposeStack {
		stack = apierr.Chain(err)
	}
	writeError(w, status, classified.Message, stack)
}

// handleLatestBlock returns the chain tip.
// GET /blocks/latest
func handleLatestBlock(ex Explorer, rs *responder) http.Handler {
	return rs.handle(func(ctx context.Context, r *http.Request) (any, error) {
		return ex.LatestBlock(ctx)
	})
}

// handleListBlocks returns a page of recent blocks.
// GET /blocks?page={page}&limit={limit}
func handleListBlocks(ex Explorer, rs *responder) http.Handler {
	return rs.handle(func(ctx context.Context, r *http.Request) (any, error) {
		page, err := queryInt(r, "page", defaultPage)
		if err != nil {
			return nil, err
		}
		limit, err := queryInt(r, "limit", defaultPageSize)
		if err != nil {
			return nil, err
		}
		return ex.BlocksPage(ctx, page, limit)
	})
}

// handleBlock returns a block by hash, or by height when the id is numeric.
// GET /blocks/{hashOrHeight}
func handleBlock(ex Explorer, rs *responder) http.Handler {
	return rs.handle(func(ctx context.Context, r *http.Request) (any, error) {
		id := param(r, "id")
		if heightRegex.MatchString(id) && len(id) < 64 {
			height, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, apierr.InvalidInput(err, "height must be a non-negative integer")
			}
			return ex.BlockByHeight(ctx, height)
		}
		return ex.BlockByHash(ctx, id)
	})
}

// handleBlockTransactions returns summaries of a block's transactions.
// GET /blocks/{hash}/transactions
func handleBlockTransactions(ex Explorer, rs *responder) http.Handler {
	return rs.handle(func(ctx context.Context, r *http.Request) (any, error) {
		return ex.BlockTransactions(ctx, param(r, "id"))
	})
}

// handleTransaction returns transaction details.
// GET /blocks/tx/{hash} and GET /tx/{hash}
func handleTransaction(ex Explorer, rs *responder) http.Handler {
	return rs.handle(func(ctx context.Context, r *http.Request) (any, error) {
		return ex.TransactionDetails(ctx, param(r, "hash"))
	})
}

// handleAddress returns address details.
// GET /blocks/address/{address}
func handleAddress(ex Explorer, rs *responder) http.Handler {
	return rs.handle(func(ctx context.Context, r *http.Request) (any, error) {
		return ex.AddressDetails(ctx, param(r, "address"))
	})
}

// handleSearch dispatches a free-text query.
// GET /blocks/search?q={query}
func handleSearch(ex Explorer, rs *responder) http.Handler {
	return rs.handle(func(ctx context.Context, r *http.Request) (any, error) {
		return ex.Search(ctx, r.URL.Query().Get("q"))
	})
}

func param(r *http.Request, name string) string {
	return httptreemux.ContextParams(r.Context())[name]
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.InvalidInput(errInvalidQuery, "invalid %s parameter: must be an integer", name)
	}
	return v, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string, stack []string) {
	writeJSON(w, errorResponse{
		Success: false,
		Error:   message,
		Status:  statusCode,
		Stack:   stack,
	}, statusCode)
}
