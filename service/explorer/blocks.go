package explorer

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/brojonat/ledgerscope/service/amount"
	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/brojonat/ledgerscope/service/blockfrost"
	"golang.org/x/sync/errgroup"
)

// LatestBlock returns the newest block on the chain.
func (s *Service) LatestBlock(ctx context.Context) (*Block, error) {
	raw, err := s.provider.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	return newBlock(raw)
}

// BlockByHash returns the block with the given hash.
func (s *Service) BlockByHash(ctx context.Context, hash string) (*Block, error) {
	if err := s.validateHash(hash); err != nil {
		return nil, err
	}

	raw, err := s.provider.Block(ctx, hash)
	if err != nil {
		return nil, mapNotFound(err, ErrBlockNotFound)
	}
	return newBlock(raw)
}

// BlockByHeight returns the block at the given height. Heights above the
// current tip fail with ErrHeightOutOfRange.
func (s *Service) BlockByHeight(ctx context.Context, height int64) (*Block, error) {
	if height < 0 {
		return nil, apierr.Domain(apierr.KindInvalidInput, ErrInvalidHeight, nil)
	}

	latest, err := s.provider.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	if tip := deref(latest.Height); height > tip {
		return nil, apierr.Domain(apierr.KindInvalidInput, ErrHeightOutOfRange,
			fmt.Errorf("height %d is above tip %d", height, tip))
	}

	raw, err := s.provider.Block(ctx, strconv.FormatInt(height, 10))
	if err != nil {
		return nil, mapNotFound(err, ErrBlockNotFound)
	}
	return newBlock(raw)
}

// BlocksPage returns the chain tip followed by pageSize blocks preceding
// it at the given page. Every page is anchored at the tip at request time.
func (s *Service) BlocksPage(ctx context.Context, page, pageSize int) (*BlockPage, error) {
	if err := s.validate.Struct(pageRequest{Page: page, PageSize: pageSize}); err != nil {
		return nil, apierr.Domain(apierr.KindInvalidInput, ErrInvalidPage, nil)
	}

	rawLatest, err := s.provider.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := newBlock(rawLatest)
	if err != nil {
		return nil, err
	}

	previous, err := s.provider.PreviousBlocks(ctx, latest.Hash, pageSize, page)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, 0, len(previous)+1)
	blocks = append(blocks, *latest)
	for i := range previous {
		b, err := newBlock(&previous[i])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
	// The provider lists previous blocks oldest first.
	sort.SliceStable(blocks[1:], func(i, j int) bool {
		return blocks[1+i].Height > blocks[1+j].Height
	})

	totalPages := (latest.Height + int64(pageSize) - 1) / int64(pageSize)
	return &BlockPage{
		Blocks: blocks,
		Pagination: Pagination{
			Page:         page,
			Limit:        pageSize,
			TotalPages:   totalPages,
			HasNext:      int64(page) < totalPages,
			HasPrevious:  page > 1,
			LatestHeight: latest.Height,
		},
	}, nil
}

// BlockTransactions summarizes up to the first 50 transactions of a block.
// Transactions whose lookups fail are logged and left out, so the result
// may hold fewer entries than the block's tx_count.
func (s *Service) BlockTransactions(ctx context.Context, hash string) (*BlockTransactions, error) {
	if err := s.validateHash(hash); err != nil {
		return nil, err
	}

	var (
		rawBlock *blockfrost.Block
		hashes   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawBlock, err = s.provider.Block(gctx, hash)
		return mapNotFound(err, ErrBlockNotFound)
	})
	g.Go(func() error {
		var err error
		hashes, err = s.provider.BlockTransactions(gctx, hash, maxBlockTransactions)
		return mapNotFound(err, ErrBlockNotFound)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	block, err := newBlock(rawBlock)
	if err != nil {
		return nil, err
	}
	if len(hashes) > maxBlockTransactions {
		hashes = hashes[:maxBlockTransactions]
	}

	// One slot per hash keeps block order; failed lookups leave a nil slot.
	results := make([]*TxSummary, len(hashes))
	var fan errgroup.Group
	fan.SetLimit(s.txConcurrency)
	for i, txHash := range hashes {
		i, txHash := i, txHash
		fan.Go(func() error {
			summary, err := s.txSummary(ctx, txHash, block.Time)
			if err != nil {
				s.logger.WarnContext(ctx, "dropping transaction from block listing",
					"block", hash, "tx", txHash, "error", err)
				return nil
			}
			results[i] = summary
			return nil
		})
	}
	fan.Wait()
	if err := ctx.Err(); err != nil {
		return nil, apierr.From(err)
	}

	out := &BlockTransactions{
		BlockHash:    block.Hash,
		BlockHeight:  block.Height,
		TxCount:      block.TxCount,
		Transactions: make([]TxSummary, 0, len(results)),
	}
	for _, r := range results {
		if r != nil {
			out.Transactions = append(out.Transactions, *r)
		}
	}
	if dropped := len(hashes) - len(out.Transactions); dropped > 0 && s.metrics != nil {
		s.metrics.RecordBlockTransactionsDropped(dropped)
	}
	return out, nil
}

func (s *Service) txSummary(ctx context.Context, hash string, blockTime int64) (*TxSummary, error) {
	var (
		core  *blockfrost.Transaction
		utxos *blockfrost.TransactionUTXOs
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		core, err = s.provider.Transaction(gctx, hash)
		return err
	})
	g.Go(func() error {
		var err error
		utxos, err = s.provider.TransactionUTXOs(gctx, hash)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	_, inputs, err := normalizeInputs(utxos.Inputs)
	if err != nil {
		return nil, err
	}
	_, outputs, err := normalizeOutputs(utxos.Outputs)
	if err != nil {
		return nil, err
	}
	fees, err := amount.Normalize(&core.Fees)
	if err != nil {
		return nil, malformed("transaction fees", err)
	}

	return &TxSummary{
		Hash:         hash,
		BlockTime:    blockTime,
		InputCount:   len(utxos.Inputs),
		OutputCount:  len(utxos.Outputs),
		InputAmount:  inputs,
		OutputAmount: outputs,
		Fees:         fees,
	}, nil
}
