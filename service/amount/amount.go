// Package amount normalizes provider amount lists into exact base-unit
// totals.
//
// Quantities are carried as decimal strings end to end. They routinely
// exceed 2^53 and are never converted through float64.
package amount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Lovelace is the unit tag of the ledger's base currency.
const Lovelace = "lovelace"

// Entry is one asset quantity as returned by the provider.
type Entry struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// Entries is an amount list. It unmarshals from the provider's list form
// or from a bare scalar, which is read as a single lovelace entry.
type Entries []Entry

// UnmarshalJSON accepts `[{"unit":..,"quantity":..}]`, `"123"` or `123`.
func (e *Entries) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}

	switch data[0] {
	case '[':
		var list []Entry
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*e = list
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Entries{{Unit: Lovelace, Quantity: s}}
	default:
		// A bare JSON number; keep its literal digits.
		if _, ok := new(big.Int).SetString(string(data), 10); !ok {
			return fmt.Errorf("amount: unsupported scalar %s", data)
		}
		*e = Entries{{Unit: Lovelace, Quantity: string(data)}}
	}
	return nil
}

// TotalBaseUnits sums the lovelace entries and returns the total as a
// decimal string. Entries of any other unit are ignored.
func TotalBaseUnits(entries []Entry) (string, error) {
	total := new(big.Int)
	for _, entry := range entries {
		if entry.Unit != Lovelace {
			continue
		}
		q, err := parseQuantity(entry.Quantity)
		if err != nil {
			return "", err
		}
		total.Add(total, q)
	}
	return total.String(), nil
}

// Assets returns the entries whose unit is not lovelace, unchanged and in
// their original order. It never returns nil.
func Assets(entries []Entry) []Entry {
	assets := make([]Entry, 0)
	for _, entry := range entries {
		if entry.Unit != Lovelace {
			assets = append(assets, entry)
		}
	}
	return assets
}

// Normalize converts a scalar decimal string as returned by the provider
// (possibly empty or nil) into a canonical decimal string. Missing values
// become "0".
func Normalize(value *string) (string, error) {
	if value == nil || *value == "" {
		return "0", nil
	}
	q, err := parseQuantity(*value)
	if err != nil {
		return "", err
	}
	return q.String(), nil
}

func parseQuantity(s string) (*big.Int, error) {
	q, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("amount: invalid quantity %q", s)
	}
	if q.Sign() < 0 {
		return nil, fmt.Errorf("amount: negative quantity %q", s)
	}
	return q, nil
}
