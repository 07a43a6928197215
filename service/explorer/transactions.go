package explorer

import (
	"context"
	"sync"

	"github.com/brojonat/ledgerscope/service/amount"
	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/brojonat/ledgerscope/service/blockfrost"
)

// TransactionDetails returns a transaction with its normalized inputs and
// outputs. A not-found from the core, UTXO or block lookup yields
// ErrTxNotFound; any other failure is returned as is.
func (s *Service) TransactionDetails(ctx context.Context, hash string) (*Transaction, error) {
	if err := s.validateHash(hash); err != nil {
		return nil, err
	}

	core, err := s.provider.Transaction(ctx, hash)
	if err != nil {
		return nil, mapNotFound(err, ErrTxNotFound)
	}

	// Both lookups run to completion so a not-found from one never hides a
	// different failure from the other.
	var (
		wg       sync.WaitGroup
		utxos    *blockfrost.TransactionUTXOs
		block    *blockfrost.Block
		utxoErr  error
		blockErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		utxos, utxoErr = s.provider.TransactionUTXOs(ctx, hash)
	}()
	go func() {
		defer wg.Done()
		block, blockErr = s.provider.Block(ctx, core.Block)
	}()
	wg.Wait()

	if err := firstError(utxoErr, blockErr); err != nil {
		return nil, mapNotFound(err, ErrTxNotFound)
	}

	inputs, inputTotal, err := normalizeInputs(utxos.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, outputTotal, err := normalizeOutputs(utxos.Outputs)
	if err != nil {
		return nil, err
	}
	fees, err := amount.Normalize(&core.Fees)
	if err != nil {
		return nil, malformed("transaction fees", err)
	}
	deposit, err := amount.Normalize(&core.Deposit)
	if err != nil {
		return nil, malformed("transaction deposit", err)
	}

	blockHeight := core.BlockHeight
	if block.Height != nil {
		blockHeight = *block.Height
	}

	return &Transaction{
		Hash:             core.Hash,
		BlockHash:        core.Block,
		BlockHeight:      blockHeight,
		BlockTime:        block.Time,
		Slot:             core.Slot,
		Index:            core.Index,
		Fees:             fees,
		Deposit:          deposit,
		Size:             core.Size,
		InvalidBefore:    core.InvalidBefore,
		InvalidHereafter: core.InvalidHereafter,
		ValidContract:    core.ValidContract,
		Inputs:           inputs,
		Outputs:          outputs,
		InputCount:       len(inputs),
		OutputCount:      len(outputs),
		InputAmount:      inputTotal,
		OutputAmount:     outputTotal,
	}, nil
}

// firstError returns the first error that is not a not-found, falling back
// to the first not-found.
func firstError(errs ...error) error {
	var notFound error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !apierr.Is(err, apierr.KindNotFound) {
			return err
		}
		if notFound == nil {
			notFound = err
		}
	}
	return notFound
}

func normalizeInputs(raw []blockfrost.UTXOInput) ([]UTXO, string, error) {
	out := make([]UTXO, 0, len(raw))
	var all []amount.Entry
	for _, in := range raw {
		lovelace, err := amount.TotalBaseUnits(in.Amount)
		if err != nil {
			return nil, "", malformed("input amount", err)
		}
		out = append(out, UTXO{
			Address:     in.Address,
			Amount:      lovelace,
			Assets:      amount.Assets(in.Amount),
			TxHash:      in.TxHash,
			OutputIndex: in.OutputIndex,
			Collateral:  in.Collateral,
			Reference:   in.Reference,
		})
		all = append(all, in.Amount...)
	}

	total, err := amount.TotalBaseUnits(all)
	if err != nil {
		return nil, "", malformed("input amount", err)
	}
	return out, total, nil
}

func normalizeOutputs(raw []blockfrost.UTXOOutput) ([]UTXO, string, error) {
	out := make([]UTXO, 0, len(raw))
	var all []amount.Entry
	for _, o := range raw {
		lovelace, err := amount.TotalBaseUnits(o.Amount)
		if err != nil {
			return nil, "", malformed("output amount", err)
		}
		out = append(out, UTXO{
			Address:     o.Address,
			Amount:      lovelace,
			Assets:      amount.Assets(o.Amount),
			OutputIndex: o.OutputIndex,
			Collateral:  o.Collateral,
			DataHash:    o.DataHash,
		})
		all = append(all, o.Amount...)
	}

	total, err := amount.TotalBaseUnits(all)
	if err != nil {
		return nil, "", malformed("output amount", err)
	}
	return out, total, nil
}
