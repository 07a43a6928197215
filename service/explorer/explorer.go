// Package explorer aggregates block-data provider records into the
// normalized blocks, transactions, addresses and search results served by
// the HTTP API.
//
// Each operation validates its input before touching the network, fans
// independent provider calls out concurrently, and waits for all of them
// before returning. Nothing is cached between calls.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/brojonat/ledgerscope/service/amount"
	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/brojonat/ledgerscope/service/blockfrost"
	"github.com/brojonat/ledgerscope/service/metrics"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/go-playground/validator/v10"
)

const (
	maxBlockTransactions = 50
	maxPageSize          = 100
	addressTxLimit       = 20
	addressUTXOLimit     = 50
	rewardsLimit         = 10
	maxAddressLength     = 200
)

var (
	ErrInvalidHash         = errors.New("hash must be 64 hexadecimal characters")
	ErrInvalidHeight       = errors.New("height must be a non-negative integer")
	ErrInvalidPage         = errors.New("page must be at least 1 and limit between 1 and 100")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrHeightOutOfRange    = errors.New("block height exceeds current chain height")
	ErrBlockNotFound       = errors.New("block not found")
	ErrTxNotFound          = errors.New("transaction not found")
	ErrAddressNotFound     = errors.New("address not found")
	ErrStakeNotFound       = errors.New("stake address not found")
	ErrPoolNotFound        = errors.New("pool not found")
	ErrEpochNotFound       = errors.New("epoch not found")
	ErrNotFound            = errors.New("no block or transaction found for hash")
	ErrQueryTooShort       = errors.New("search query must be at least 3 characters")
	ErrInvalidSearchFormat = errors.New("unrecognized search format")
)

var (
	hashPattern   = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
	// Byron base58 and Shelley bech32 addresses both fit this alphabet.
	addressPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Provider is the set of upstream calls the aggregators need.
// *blockfrost.Client implements it.
type Provider interface {
	LatestBlock(ctx context.Context) (*blockfrost.Block, error)
	Block(ctx context.Context, hashOrHeight string) (*blockfrost.Block, error)
	PreviousBlocks(ctx context.Context, hash string, count, page int) ([]blockfrost.Block, error)
	BlockTransactions(ctx context.Context, hash string, count int) ([]string, error)
	Transaction(ctx context.Context, hash string) (*blockfrost.Transaction, error)
	TransactionUTXOs(ctx context.Context, hash string) (*blockfrost.TransactionUTXOs, error)
	Address(ctx context.Context, address string) (*blockfrost.Address, error)
	AddressUTXOs(ctx context.Context, address string, count int) ([]blockfrost.AddressUTXO, error)
	AddressTransactions(ctx context.Context, address string, count int) ([]blockfrost.AddressTransaction, error)
	Account(ctx context.Context, stakeAddress string) (*blockfrost.Account, error)
	AccountRewards(ctx context.Context, stakeAddress string, count int) ([]blockfrost.AccountReward, error)
	Pool(ctx context.Context, poolID string) (*blockfrost.Pool, error)
	PoolMetadata(ctx context.Context, poolID string) (*blockfrost.PoolMetadata, error)
	Epoch(ctx context.Context, number int64) (*blockfrost.Epoch, error)
}

// Network holds the bech32 human-readable prefixes of a ledger network.
type Network struct {
	Name       string
	AddressHRP string
	StakeHRP   string
	PoolHRP    string
}

// NetworkFor returns the prefixes for "mainnet", "preprod" or "preview".
// Unknown names get the testnet prefixes.
func NetworkFor(name string) Network {
	if name == "mainnet" {
		return Network{Name: name, AddressHRP: "addr", StakeHRP: "stake", PoolHRP: "pool"}
	}
	return Network{Name: name, AddressHRP: "addr_test", StakeHRP: "stake_test", PoolHRP: "pool"}
}

// Options configures a Service.
type Options struct {
	Network       string
	TxConcurrency int // max concurrent transaction lookups per block listing
}

// Service implements the block, transaction and address aggregators and
// the search dispatcher.
type Service struct {
	provider      Provider
	network       Network
	txConcurrency int
	validate      *validator.Validate
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewService creates a new explorer service.
// If metrics is nil, no metrics will be recorded.
func NewService(p Provider, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if opts.TxConcurrency < 1 {
		opts.TxConcurrency = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterValidation("ledgerhash", func(fl validator.FieldLevel) bool {
		return hashPattern.MatchString(fl.Field().String())
	})

	return &Service{
		provider:      p,
		network:       NetworkFor(opts.Network),
		txConcurrency: opts.TxConcurrency,
		validate:      v,
		metrics:       m,
		logger:        logger,
	}
}

type pageRequest struct {
	Page     int `validate:"gte=1"`
	PageSize int `validate:"gte=1,lte=100"`
}

func (s *Service) validateHash(hash string) error {
	if err := s.validate.Var(hash, "required,ledgerhash"); err != nil {
		return apierr.Domain(apierr.KindInvalidInput, ErrInvalidHash, nil)
	}
	return nil
}

func (s *Service) validateAddress(address string) error {
	if err := s.validate.Var(address, fmt.Sprintf("required,max=%d", maxAddressLength)); err != nil {
		return apierr.Domain(apierr.KindInvalidInput, ErrInvalidAddress, nil)
	}
	if !addressPattern.MatchString(address) {
		return apierr.Domain(apierr.KindInvalidInput, ErrInvalidAddress, nil)
	}
	if strings.HasPrefix(strings.ToLower(address), s.network.AddressHRP+"1") {
		if err := checkBech32(address, s.network.AddressHRP); err != nil {
			return apierr.Domain(apierr.KindInvalidInput, ErrInvalidAddress, err)
		}
	}
	return nil
}

// checkBech32 verifies the checksum and prefix of a bech32 string. Ledger
// addresses exceed the 90 character limit of BIP-173.
func checkBech32(s, wantHRP string) error {
	hrp, _, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return err
	}
	if hrp != wantHRP {
		return fmt.Errorf("prefix %q does not match %q", hrp, wantHRP)
	}
	return nil
}

// mapNotFound converts an upstream not-found into the given domain error
// and leaves every other error untouched.
func mapNotFound(err error, sentinel error) error {
	if apierr.Is(err, apierr.KindNotFound) {
		return apierr.Domain(apierr.KindNotFound, sentinel, err)
	}
	return err
}

// malformed reports provider data that could not be normalized.
func malformed(field string, err error) error {
	return apierr.Upstream(http.StatusBadGateway, err, "malformed %s in provider response", field)
}

func newBlock(raw *blockfrost.Block) (*Block, error) {
	fees, err := amount.Normalize(raw.Fees)
	if err != nil {
		return nil, malformed("block fees", err)
	}
	output, err := amount.Normalize(raw.Output)
	if err != nil {
		return nil, malformed("block output", err)
	}

	return &Block{
		Hash:          raw.Hash,
		Height:        deref(raw.Height),
		Slot:          deref(raw.Slot),
		Epoch:         deref(raw.Epoch),
		EpochSlot:     deref(raw.EpochSlot),
		Time:          raw.Time,
		Size:          raw.Size,
		TxCount:       raw.TxCount,
		Fees:          fees,
		Output:        output,
		SlotLeader:    raw.SlotLeader,
		PreviousBlock: raw.PreviousBlock,
		NextBlock:     raw.NextBlock,
		Confirmations: raw.Confirmations,
	}, nil
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
