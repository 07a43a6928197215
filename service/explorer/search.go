package explorer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/brojonat/ledgerscope/service/amount"
	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/brojonat/ledgerscope/service/blockfrost"
	"golang.org/x/sync/errgroup"
)

const minQueryLength = 3

var epochPattern = regexp.MustCompile(`(?i)^epoch(?::\s*|\s+)([0-9]+)$`)

// Search classifies query by its shape and returns the matching entity.
//
// Shapes are tried in a fixed order: block height (all digits), block or
// transaction hash (64 hex characters), payment address, stake address,
// pool id and finally "epoch:N". The first shape that matches decides the
// lookup; there is no fallback to later shapes.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		err := apierr.Domain(apierr.KindInvalidInput, ErrQueryTooShort, nil)
		s.recordSearch("none", err)
		return nil, err
	}

	kind, result, err := s.dispatch(ctx, query)
	s.recordSearch(kind, err)
	if err != nil {
		s.logger.DebugContext(ctx, "search failed", "query", query, "type", kind, "error", err)
		return nil, err
	}
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, query string) (string, *SearchResult, error) {
	lower := strings.ToLower(query)

	switch {
	case digitsPattern.MatchString(query) && len(query) != 64:
		height, err := strconv.ParseInt(query, 10, 64)
		if err != nil {
			return "block", nil, apierr.Domain(apierr.KindInvalidInput, ErrInvalidHeight, err)
		}
		block, err := s.BlockByHeight(ctx, height)
		if err != nil {
			return "block", nil, err
		}
		return "block", &SearchResult{Type: ResultBlock, Block: block}, nil

	case hashPattern.MatchString(query):
		result, err := s.searchHash(ctx, query)
		return "hash", result, err

	case strings.HasPrefix(lower, s.network.AddressHRP+"1"):
		addr, err := s.AddressDetails(ctx, query)
		if err != nil {
			return "address", nil, err
		}
		return "address", &SearchResult{Type: ResultAddress, Address: addr}, nil

	case strings.HasPrefix(lower, s.network.StakeHRP+"1"):
		account, err := s.stakeAccount(ctx, query)
		if err != nil {
			return "stake_address", nil, err
		}
		return "stake_address", &SearchResult{Type: ResultStakeAddress, StakeAccount: account}, nil

	case strings.HasPrefix(lower, s.network.PoolHRP+"1"):
		pool, err := s.pool(ctx, query)
		if err != nil {
			return "pool", nil, err
		}
		return "pool", &SearchResult{Type: ResultPool, Pool: pool}, nil

	case epochPattern.MatchString(query):
		epoch, err := s.epoch(ctx, epochPattern.FindStringSubmatch(query)[1])
		if err != nil {
			return "epoch", nil, err
		}
		return "epoch", &SearchResult{Type: ResultEpoch, Epoch: epoch}, nil
	}

	return "unknown", nil, apierr.Domain(apierr.KindInvalidInput, ErrInvalidSearchFormat, nil)
}

// searchHash looks the hash up as a transaction and as a block at the same
// time. A transaction match wins over a block match.
func (s *Service) searchHash(ctx context.Context, hash string) (*SearchResult, error) {
	var (
		wg       sync.WaitGroup
		tx       *Transaction
		block    *Block
		txErr    error
		blockErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tx, txErr = s.TransactionDetails(ctx, hash)
	}()
	go func() {
		defer wg.Done()
		block, blockErr = s.BlockByHash(ctx, hash)
	}()
	wg.Wait()

	switch {
	case txErr == nil:
		return &SearchResult{Type: ResultTransaction, Transaction: tx}, nil
	case blockErr == nil:
		return &SearchResult{Type: ResultBlock, Block: block}, nil
	}

	err := firstError(txErr, blockErr)
	if apierr.Is(err, apierr.KindNotFound) {
		return nil, apierr.Domain(apierr.KindNotFound, ErrNotFound, nil)
	}
	return nil, err
}

func (s *Service) stakeAccount(ctx context.Context, stakeAddress string) (*StakeAccount, error) {
	if err := checkBech32(stakeAddress, s.network.StakeHRP); err != nil {
		return nil, apierr.Domain(apierr.KindInvalidInput, ErrInvalidAddress, err)
	}

	var (
		account *blockfrost.Account
		rewards []blockfrost.AccountReward
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = s.provider.Account(gctx, stakeAddress)
		return mapNotFound(err, ErrStakeNotFound)
	})
	g.Go(func() error {
		var err error
		rewards, err = s.provider.AccountRewards(gctx, stakeAddress, rewardsLimit)
		return mapNotFound(err, ErrStakeNotFound)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(rewards) > rewardsLimit {
		rewards = rewards[:rewardsLimit]
	}
	out := &StakeAccount{
		StakeAddress:       account.StakeAddress,
		Active:             account.Active,
		ActiveEpoch:        account.ActiveEpoch,
		ControlledAmount:   account.ControlledAmount,
		RewardsSum:         account.RewardsSum,
		WithdrawalsSum:     account.WithdrawalsSum,
		WithdrawableAmount: account.WithdrawableAmount,
		PoolID:             account.PoolID,
		Rewards:            make([]Reward, 0, len(rewards)),
	}
	for _, r := range rewards {
		out.Rewards = append(out.Rewards, Reward(r))
	}
	return out, nil
}

func (s *Service) pool(ctx context.Context, poolID string) (*Pool, error) {
	if err := checkBech32(poolID, s.network.PoolHRP); err != nil {
		return nil, apierr.Domain(apierr.KindInvalidInput, ErrInvalidAddress, err)
	}

	var (
		wg      sync.WaitGroup
		raw     *blockfrost.Pool
		meta    *blockfrost.PoolMetadata
		poolErr error
		metaErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		raw, poolErr = s.provider.Pool(ctx, poolID)
	}()
	go func() {
		defer wg.Done()
		meta, metaErr = s.provider.PoolMetadata(ctx, poolID)
	}()
	wg.Wait()

	if poolErr != nil {
		return nil, mapNotFound(poolErr, ErrPoolNotFound)
	}
	if metaErr != nil && !apierr.Is(metaErr, apierr.KindNotFound) {
		return nil, metaErr
	}

	owners := raw.Owners
	if owners == nil {
		owners = []string{}
	}
	out := &Pool{
		PoolID:         raw.PoolID,
		Hex:            raw.Hex,
		VRFKey:         raw.VRFKey,
		BlocksMinted:   raw.BlocksMinted,
		LiveStake:      raw.LiveStake,
		ActiveStake:    raw.ActiveStake,
		LiveSaturation: raw.LiveSaturation,
		LiveDelegators: raw.LiveDelegators,
		DeclaredPledge: raw.DeclaredPledge,
		MarginCost:     raw.MarginCost,
		FixedCost:      raw.FixedCost,
		RewardAccount:  raw.RewardAccount,
		Owners:         owners,
	}
	if meta != nil && metaErr == nil {
		out.Metadata = &PoolMetadata{
			URL:         meta.URL,
			Hash:        meta.Hash,
			Ticker:      meta.Ticker,
			Name:        meta.Name,
			Description: meta.Description,
			Homepage:    meta.Homepage,
		}
	}
	return out, nil
}

func (s *Service) epoch(ctx context.Context, digits string) (*Epoch, error) {
	number, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, apierr.Domain(apierr.KindInvalidInput, ErrInvalidSearchFormat, err)
	}

	raw, err := s.provider.Epoch(ctx, number)
	if err != nil {
		return nil, mapNotFound(err, ErrEpochNotFound)
	}

	output, err := amount.Normalize(&raw.Output)
	if err != nil {
		return nil, malformed("epoch output", err)
	}
	fees, err := amount.Normalize(&raw.Fees)
	if err != nil {
		return nil, malformed("epoch fees", err)
	}

	return &Epoch{
		Epoch:          raw.Epoch,
		StartTime:      raw.StartTime,
		EndTime:        raw.EndTime,
		FirstBlockTime: raw.FirstBlockTime,
		LastBlockTime:  raw.LastBlockTime,
		BlockCount:     raw.BlockCount,
		TxCount:        raw.TxCount,
		Output:         output,
		Fees:           fees,
		ActiveStake:    raw.ActiveStake,
	}, nil
}

func (s *Service) recordSearch(kind string, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case apierr.Is(err, apierr.KindNotFound):
		status = "not_found"
	case apierr.Is(err, apierr.KindInvalidInput):
		status = "invalid"
	default:
		status = "error"
	}
	s.metrics.RecordSearch(kind, status)
}
