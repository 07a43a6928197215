// Package client is a typed HTTP client for the ledgerscope explorer API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brojonat/ledgerscope/service/explorer"
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Message string
	Stack   []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// Client is the HTTP client for the explorer service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new explorer service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// LatestBlock returns the chain tip.
func (c *Client) LatestBlock(ctx context.Context) (*explorer.Block, error) {
	var b explorer.Block
	if err := c.get(ctx, "/blocks/latest", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Block returns a block by hash or height.
func (c *Client) Block(ctx context.Context, hashOrHeight string) (*explorer.Block, error) {
	var b explorer.Block
	if err := c.get(ctx, "/blocks/"+url.PathEscape(hashOrHeight), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Blocks returns a page of recent blocks, newest first.
func (c *Client) Blocks(ctx context.Context, page, limit int) (*explorer.BlockPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var p explorer.BlockPage
	if err := c.get(ctx, "/blocks", q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// BlockTransactions returns summaries of a block's transactions.
func (c *Client) BlockTransactions(ctx context.Context, hash string) (*explorer.BlockTransactions, error) {
	var txs explorer.BlockTransactions
	if err := c.get(ctx, "/blocks/"+url.PathEscape(hash)+"/transactions", nil, &txs); err != nil {
		return nil, err
	}
	return &txs, nil
}

// Transaction returns transaction details.
func (c *Client) Transaction(ctx context.Context, hash string) (*explorer.Transaction, error) {
	var tx explorer.Transaction
	if err := c.get(ctx, "/tx/"+url.PathEscape(hash), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Address returns address details.
func (c *Client) Address(ctx context.Context, address string) (*explorer.Address, error) {
	var a explorer.Address
	if err := c.get(ctx, "/blocks/address/"+url.PathEscape(address), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Search runs a free-text search.
func (c *Client) Search(ctx context.Context, query string) (*explorer.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)

	var r explorer.SearchResult
	if err := c.get(ctx, "/blocks/search", q, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// envelope is the server's response wrapper for both outcomes.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Status  int             `json:"status"`
	Stack   []string        `json:"stack"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: string(body)}
	}
	if !env.Success || resp.StatusCode != http.StatusOK {
		status := env.Status
		if status == 0 {
			status = resp.StatusCode
		}
		return &APIError{Status: status, Message: env.Error, Stack: env.Stack}
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("request completed", "path", path, "status", resp.StatusCode)
	return nil
}
