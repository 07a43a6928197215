package amount

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalBaseUnits(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    string
	}{
		{
			name: "empty",
			want: "0",
		},
		{
			name:    "beyond float precision",
			entries: []Entry{{Unit: Lovelace, Quantity: "9007199254740993"}},
			want:    "9007199254740993",
		},
		{
			name: "multi asset bundle ignores tokens",
			entries: []Entry{
				{Unit: Lovelace, Quantity: "500000"},
				{Unit: "customtoken", Quantity: "7"},
				{Unit: Lovelace, Quantity: "1000000"},
			},
			want: "1500000",
		},
		{
			name: "huge sums stay exact",
			entries: []Entry{
				{Unit: Lovelace, Quantity: "45000000000000000"},
				{Unit: Lovelace, Quantity: "45000000000000001"},
			},
			want: "90000000000000001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TotalBaseUnits(tt.entries)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTotalBaseUnits_OrderIndependent(t *testing.T) {
	entries := []Entry{
		{Unit: Lovelace, Quantity: "9007199254740993"},
		{Unit: "policy.token", Quantity: "99"},
		{Unit: Lovelace, Quantity: "1"},
		{Unit: Lovelace, Quantity: "18446744073709551615"},
	}
	want, err := TotalBaseUnits(entries)
	require.NoError(t, err)
	assert.Equal(t, "18455751272964292609", want)

	permutations := [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, perm := range permutations {
		shuffled := make([]Entry, len(entries))
		for i, j := range perm {
			shuffled[i] = entries[j]
		}
		got, err := TotalBaseUnits(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestTotalBaseUnits_RejectsMalformedQuantity(t *testing.T) {
	_, err := TotalBaseUnits([]Entry{{Unit: Lovelace, Quantity: "1.5"}})
	require.Error(t, err)

	_, err = TotalBaseUnits([]Entry{{Unit: Lovelace, Quantity: "-3"}})
	require.Error(t, err)

	// malformed non-lovelace entries are not inspected
	got, err := TotalBaseUnits([]Entry{{Unit: "token", Quantity: "garbage"}})
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestAssets(t *testing.T) {
	entries := []Entry{
		{Unit: Lovelace, Quantity: "500000"},
		{Unit: "customtoken", Quantity: "7"},
	}
	assert.Equal(t, []Entry{{Unit: "customtoken", Quantity: "7"}}, Assets(entries))
	assert.Empty(t, Assets([]Entry{{Unit: Lovelace, Quantity: "1"}}))
	assert.NotNil(t, Assets(nil))
}

func TestEntriesUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Entries
	}{
		{
			name: "list",
			raw:  `[{"unit":"lovelace","quantity":"42"},{"unit":"abc","quantity":"1"}]`,
			want: Entries{{Unit: Lovelace, Quantity: "42"}, {Unit: "abc", Quantity: "1"}},
		},
		{
			name: "string scalar",
			raw:  `"9007199254740993"`,
			want: Entries{{Unit: Lovelace, Quantity: "9007199254740993"}},
		},
		{
			name: "number scalar keeps digits",
			raw:  `9007199254740993`,
			want: Entries{{Unit: Lovelace, Quantity: "9007199254740993"}},
		},
		{
			name: "null",
			raw:  `null`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Entries
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	var bad Entries
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &bad))
}

func TestNormalize(t *testing.T) {
	s := "0170000"
	got, err := Normalize(&s)
	require.NoError(t, err)
	assert.Equal(t, "170000", got)

	got, err = Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}
