// Package blockfrost is the client for the upstream block-data provider.
//
// Every call is a single GET with the project credential attached; there
// are no retries. Non-success responses are classified into apierr kinds
// at this boundary so callers never inspect raw status codes.
package blockfrost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/brojonat/ledgerscope/service/metrics"
	"go.uber.org/ratelimit"
)

// HeaderProjectID is the header carrying the provider credential.
const HeaderProjectID = "project_id"

const maxErrorBodySize = 64 << 10

// Config holds the settings the client needs.
type Config struct {
	BaseURL   string
	ProjectID string
	Timeout   time.Duration // transport timeout, 0 for none
	RPS       int           // client-side request rate, 0 for unlimited
}

// Client issues requests against the provider.
type Client struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a new provider client.
// If httpClient is nil, one is built with cfg.Timeout. If metrics is nil, no
// metrics will be recorded.
func NewClient(cfg Config, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RPS > 0 {
		limiter = ratelimit.New(cfg.RPS)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		projectID:  cfg.ProjectID,
		httpClient: httpClient,
		limiter:    limiter,
		metrics:    m,
		logger:     logger,
	}
}

// ProviderError describes a non-success response from the provider.
type ProviderError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned %d for %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Fetch issues a GET for the relative endpoint and decodes the JSON body
// into out.
func (c *Client) Fetch(ctx context.Context, endpoint string, out any) error {
	return c.get(ctx, "raw", endpoint, out)
}

// LatestBlock returns the chain tip.
func (c *Client) LatestBlock(ctx context.Context) (*Block, error) {
	var b Block
	if err := c.get(ctx, "blocks_latest", "/blocks/latest", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Block returns a block by hash or height.
func (c *Client) Block(ctx context.Context, hashOrHeight string) (*Block, error) {
	var b Block
	if err := c.get(ctx, "blocks", "/blocks/"+url.PathEscape(hashOrHeight), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// PreviousBlocks returns up to count blocks preceding hash, oldest first.
// page is 1-based and moves further back from hash.
func (c *Client) PreviousBlocks(ctx context.Context, hash string, count, page int) ([]Block, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	q.Set("page", strconv.Itoa(page))

	var blocks []Block
	endpoint := "/blocks/" + url.PathEscape(hash) + "/previous?" + q.Encode()
	if err := c.get(ctx, "blocks_previous", endpoint, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// BlockTransactions returns the hashes of the first count transactions in
// a block, in block order.
func (c *Client) BlockTransactions(ctx context.Context, hash string, count int) ([]string, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))

	var hashes []string
	endpoint := "/blocks/" + url.PathEscape(hash) + "/txs?" + q.Encode()
	if err := c.get(ctx, "blocks_txs", endpoint, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// Transaction returns the core transaction record.
func (c *Client) Transaction(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	if err := c.get(ctx, "txs", "/txs/"+url.PathEscape(hash), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// TransactionUTXOs returns the inputs and outputs of a transaction.
func (c *Client) TransactionUTXOs(ctx context.Context, hash string) (*TransactionUTXOs, error) {
	var utxos TransactionUTXOs
	if err := c.get(ctx, "txs_utxos", "/txs/"+url.PathEscape(hash)+"/utxos", &utxos); err != nil {
		return nil, err
	}
	return &utxos, nil
}

// Address returns an address summary.
func (c *Client) Address(ctx context.Context, address string) (*Address, error) {
	var a Address
	if err := c.get(ctx, "addresses", "/addresses/"+url.PathEscape(address), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddressUTXOs returns up to count unspent outputs of an address.
func (c *Client) AddressUTXOs(ctx context.Context, address string, count int) ([]AddressUTXO, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))

	var utxos []AddressUTXO
	endpoint := "/addresses/" + url.PathEscape(address) + "/utxos?" + q.Encode()
	if err := c.get(ctx, "addresses_utxos", endpoint, &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

// AddressTransactions returns the count most recent transactions of an
// address, newest first.
func (c *Client) AddressTransactions(ctx context.Context, address string, count int) ([]AddressTransaction, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	q.Set("order", "desc")

	var txs []AddressTransaction
	endpoint := "/addresses/" + url.PathEscape(address) + "/transactions?" + q.Encode()
	if err := c.get(ctx, "addresses_transactions", endpoint, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Account returns a stake account.
func (c *Client) Account(ctx context.Context, stakeAddress string) (*Account, error) {
	var a Account
	if err := c.get(ctx, "accounts", "/accounts/"+url.PathEscape(stakeAddress), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountRewards returns the first count rewards of a stake account.
func (c *Client) AccountRewards(ctx context.Context, stakeAddress string, count int) ([]AccountReward, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))

	var rewards []AccountReward
	endpoint := "/accounts/" + url.PathEscape(stakeAddress) + "/rewards?" + q.Encode()
	if err := c.get(ctx, "accounts_rewards", endpoint, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}

// Pool returns a stake pool.
func (c *Client) Pool(ctx context.Context, poolID string) (*Pool, error) {
	var p Pool
	if err := c.get(ctx, "pools", "/pools/"+url.PathEscape(poolID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PoolMetadata returns a stake pool's registered metadata.
func (c *Client) PoolMetadata(ctx context.Context, poolID string) (*PoolMetadata, error) {
	var md PoolMetadata
	if err := c.get(ctx, "pools_metadata", "/pools/"+url.PathEscape(poolID)+"/metadata", &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// Epoch returns an epoch by number.
func (c *Client) Epoch(ctx context.Context, number int64) (*Epoch, error) {
	var e Epoch
	if err := c.get(ctx, "epochs", "/epochs/"+strconv.FormatInt(number, 10), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// get performs one GET request. op is a constant label for metrics.
func (c *Client) get(ctx context.Context, op, endpoint string, out any) (err error) {
	if c.projectID == "" {
		return apierr.Config("block-data provider credential is not configured")
	}

	// Abandoned requests must not consume limiter tokens.
	if err := ctx.Err(); err != nil {
		return transportError(err)
	}
	waitStart := time.Now()
	c.limiter.Take()
	if c.metrics != nil {
		c.metrics.RecordThrottleWait(time.Since(waitStart).Seconds())
	}
	if err := ctx.Err(); err != nil {
		return transportError(err)
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordUpstreamCall(op, statusLabel(err), time.Since(start).Seconds())
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return apierr.Upstream(0, err, "failed to build upstream request")
	}
	req.Header.Set(HeaderProjectID, c.projectID)
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "calling provider", "op", op, "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "provider request failed", "op", op, "endpoint", endpoint, "error", err)
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		classified := c.classify(resp, endpoint)
		if apierr.Is(classified, apierr.KindRateLimited) && c.metrics != nil {
			c.metrics.RecordRateLimitHit(op)
		}
		c.logger.DebugContext(ctx, "provider returned non-success status",
			"op", op,
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
		return classified
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.Upstream(http.StatusBadGateway, err, "invalid upstream response")
	}
	return nil
}

// classify turns a non-success response into a kinded error.
func (c *Client) classify(resp *http.Response, endpoint string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	perr := &ProviderError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	var parsed providerError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		perr.Message = parsed.Message
	} else {
		perr.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apierr.NotFound(perr, "resource not found")
	case http.StatusForbidden:
		return apierr.New(apierr.KindUpstreamAuth, perr, "upstream authorization failed")
	case http.StatusTooManyRequests:
		return apierr.New(apierr.KindRateLimited, perr, "upstream rate limit exceeded")
	default:
		return apierr.Upstream(resp.StatusCode, perr, "upstream request failed: %s", perr.Message)
	}
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apierr.Timeout(err, "upstream request timed out")
	}
	return apierr.Upstream(http.StatusBadGateway, err, "upstream request failed")
}

func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch apierr.KindOf(err) {
	case apierr.KindNotFound:
		return "not_found"
	case apierr.KindUpstreamAuth:
		return "unauthorized"
	case apierr.KindRateLimited:
		return "rate_limited"
	case apierr.KindTimeout:
		return "timeout"
	default:
		return "error"
	}
}
