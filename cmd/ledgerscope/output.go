package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/brojonat/ledgerscope/service/explorer"
	"github.com/itchyny/gojq"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printJQ runs each filter in turn over the JSON form of data. Every
// result of a filter becomes an input of the next one.
func printJQ(w io.Writer, data interface{}, filters []string) error {
	compiled := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}

	// gojq only understands plain JSON values.
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	values := []interface{}{input}
	for i, code := range compiled {
		var next []interface{}
		for _, v := range values {
			iter := code.Run(v)
			for {
				out, ok := iter.Next()
				if !ok {
					break
				}
				if err, isErr := out.(error); isErr {
					return fmt.Errorf("jq filter %q failed: %w", filters[i], err)
				}
				next = append(next, out)
			}
		}
		values = next
	}

	for _, v := range values {
		if err := printJSON(w, v); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(unix int64) string {
	if unix == 0 {
		return "(unknown)"
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func formatOptional(s *string) string {
	if s != nil && *s != "" {
		return *s
	}
	return "(none)"
}

func printBlock(w io.Writer, b *explorer.Block) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Block:         %s\n", b.Hash)
	fmt.Fprintf(w, "Height:        %d\n", b.Height)
	fmt.Fprintf(w, "Epoch/Slot:    %d / %d\n", b.Epoch, b.EpochSlot)
	fmt.Fprintf(w, "Time:          %s\n", formatTime(b.Time))
	fmt.Fprintf(w, "Transactions:  %d\n", b.TxCount)
	fmt.Fprintf(w, "Fees:          %s lovelace\n", b.Fees)
	fmt.Fprintf(w, "Output:        %s lovelace\n", b.Output)
	fmt.Fprintf(w, "Slot leader:   %s\n", b.SlotLeader)
	fmt.Fprintf(w, "Previous:      %s\n", formatOptional(b.PreviousBlock))
	fmt.Fprintf(w, "Next:          %s\n", formatOptional(b.NextBlock))
	fmt.Fprintf(w, "Confirmations: %d\n", b.Confirmations)
	fmt.Fprintln(w, rule)
}

func printTransaction(w io.Writer, tx *explorer.Transaction) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Transaction:  %s\n", tx.Hash)
	fmt.Fprintf(w, "Block:        %s (height %d)\n", tx.BlockHash, tx.BlockHeight)
	fmt.Fprintf(w, "Time:         %s\n", formatTime(tx.BlockTime))
	fmt.Fprintf(w, "Fees:         %s lovelace\n", tx.Fees)
	fmt.Fprintf(w, "Inputs:       %d (%s lovelace)\n", tx.InputCount, tx.InputAmount)
	for _, in := range tx.Inputs {
		fmt.Fprintf(w, "  <- %s  %s\n", in.Address, in.Amount)
	}
	fmt.Fprintf(w, "Outputs:      %d (%s lovelace)\n", tx.OutputCount, tx.OutputAmount)
	for _, out := range tx.Outputs {
		fmt.Fprintf(w, "  -> %s  %s\n", out.Address, out.Amount)
	}
	fmt.Fprintln(w, rule)
}

func printAddress(w io.Writer, a *explorer.Address) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Address:      %s\n", a.Address)
	fmt.Fprintf(w, "Type:         %s\n", a.Type)
	fmt.Fprintf(w, "Balance:      %s lovelace\n", a.Balance)
	fmt.Fprintf(w, "Stake:        %s\n", formatOptional(a.StakeAddress))
	if len(a.Assets) > 0 {
		fmt.Fprintf(w, "Assets:       %d\n", len(a.Assets))
	}
	fmt.Fprintf(w, "UTXOs:        %d\n", len(a.UTXOs))
	fmt.Fprintf(w, "Recent txs:   %d\n", len(a.Transactions))
	for _, tx := range a.Transactions {
		fmt.Fprintf(w, "  %s  height=%d  %s\n", tx.TxHash, tx.BlockHeight, formatTime(tx.BlockTime))
	}
	fmt.Fprintln(w, rule)
}
