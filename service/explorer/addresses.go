package explorer

import (
	"context"
	"sync"

	"github.com/brojonat/ledgerscope/service/amount"
	"github.com/brojonat/ledgerscope/service/blockfrost"
)

// AddressDetails returns an address summary with its UTXOs and most recent
// transactions. The summary is required. When the UTXO or history lookup
// fails, that list is returned empty and the failure is logged.
func (s *Service) AddressDetails(ctx context.Context, address string) (*Address, error) {
	if err := s.validateAddress(address); err != nil {
		return nil, err
	}

	var (
		wg         sync.WaitGroup
		summary    *blockfrost.Address
		summaryErr error
		utxos      []blockfrost.AddressUTXO
		utxoErr    error
		history    []blockfrost.AddressTransaction
		historyErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		summary, summaryErr = s.provider.Address(ctx, address)
	}()
	go func() {
		defer wg.Done()
		utxos, utxoErr = s.provider.AddressUTXOs(ctx, address, addressUTXOLimit)
	}()
	go func() {
		defer wg.Done()
		history, historyErr = s.provider.AddressTransactions(ctx, address, addressTxLimit)
	}()
	wg.Wait()

	if summaryErr != nil {
		return nil, mapNotFound(summaryErr, ErrAddressNotFound)
	}

	balance, err := amount.TotalBaseUnits(summary.Amount)
	if err != nil {
		return nil, malformed("address amount", err)
	}

	out := &Address{
		Address:      summary.Address,
		Balance:      balance,
		Assets:       amount.Assets(summary.Amount),
		StakeAddress: summary.StakeAddress,
		Type:         summary.Type,
		Script:       summary.Script,
		UTXOs:        make([]AddressUTXO, 0, len(utxos)),
		Transactions: make([]AddressTx, 0, len(history)),
	}
	if out.Address == "" {
		out.Address = address
	}

	if utxoErr != nil {
		s.degraded(ctx, "utxos", address, utxoErr)
	} else if err := out.addUTXOs(utxos); err != nil {
		out.UTXOs = out.UTXOs[:0]
		s.degraded(ctx, "utxos", address, err)
	}

	if historyErr != nil {
		s.degraded(ctx, "transactions", address, historyErr)
	} else {
		if len(history) > addressTxLimit {
			history = history[:addressTxLimit]
		}
		for _, tx := range history {
			out.Transactions = append(out.Transactions, AddressTx(tx))
		}
	}

	return out, nil
}

func (a *Address) addUTXOs(raw []blockfrost.AddressUTXO) error {
	if len(raw) > addressUTXOLimit {
		raw = raw[:addressUTXOLimit]
	}
	for _, u := range raw {
		lovelace, err := amount.TotalBaseUnits(u.Amount)
		if err != nil {
			return malformed("utxo amount", err)
		}
		a.UTXOs = append(a.UTXOs, AddressUTXO{
			TxHash:      u.TxHash,
			OutputIndex: u.OutputIndex,
			Amount:      lovelace,
			Assets:      amount.Assets(u.Amount),
			Block:       u.Block,
		})
	}
	return nil
}

func (s *Service) degraded(ctx context.Context, part, address string, err error) {
	s.logger.WarnContext(ctx, "address lookup degraded", "part", part, "address", address, "error", err)
	if s.metrics != nil {
		s.metrics.RecordAddressDegraded(part)
	}
}
