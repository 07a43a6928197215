package explorer

import (
	"encoding/json"
	"fmt"

	"github.com/brojonat/ledgerscope/service/amount"
)

// Block is a normalized block.
type Block struct {
	Hash          string  `json:"hash"`
	Height        int64   `json:"height"`
	Slot          int64   `json:"slot"`
	Epoch         int64   `json:"epoch"`
	EpochSlot     int64   `json:"epoch_slot"`
	Time          int64   `json:"time"`
	Size          int64   `json:"size"`
	TxCount       int64   `json:"tx_count"`
	Fees          string  `json:"fees"`
	Output        string  `json:"output"`
	SlotLeader    string  `json:"slot_leader"`
	PreviousBlock *string `json:"previous_block"`
	NextBlock     *string `json:"next_block"`
	Confirmations int64   `json:"confirmations"`
}

// Pagination describes a page of the block list. Pages are anchored at
// the chain tip at request time, so page N shifts as new blocks arrive.
type Pagination struct {
	Page         int   `json:"page"`
	Limit        int   `json:"limit"`
	TotalPages   int64 `json:"total_pages"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
	LatestHeight int64 `json:"latest_height"`
}

// BlockPage is a page of recent blocks, newest first.
type BlockPage struct {
	Blocks     []Block    `json:"blocks"`
	Pagination Pagination `json:"pagination"`
}

// UTXO is one input or output of a transaction. Amount is the lovelace
// total; Assets holds every other unit unchanged.
type UTXO struct {
	Address     string         `json:"address"`
	Amount      string         `json:"amount"`
	Assets      []amount.Entry `json:"assets"`
	TxHash      string         `json:"tx_hash,omitempty"`
	OutputIndex int            `json:"output_index"`
	Collateral  bool           `json:"collateral,omitempty"`
	Reference   bool           `json:"reference,omitempty"`
	DataHash    *string        `json:"data_hash,omitempty"`
}

// Transaction is a normalized transaction with its inputs and outputs.
type Transaction struct {
	Hash             string  `json:"hash"`
	BlockHash        string  `json:"block_hash"`
	BlockHeight      int64   `json:"block_height"`
	BlockTime        int64   `json:"block_time"`
	Slot             int64   `json:"slot"`
	Index            int     `json:"index"`
	Fees             string  `json:"fees"`
	Deposit          string  `json:"deposit"`
	Size             int64   `json:"size"`
	InvalidBefore    *string `json:"invalid_before"`
	InvalidHereafter *string `json:"invalid_hereafter"`
	ValidContract    bool    `json:"valid_contract"`
	Inputs           []UTXO  `json:"inputs"`
	Outputs          []UTXO  `json:"outputs"`
	InputCount       int     `json:"input_count"`
	OutputCount      int     `json:"output_count"`
	InputAmount      string  `json:"input_amount"`
	OutputAmount     string  `json:"output_amount"`
}

// TxSummary is the short form of a transaction used in block listings.
type TxSummary struct {
	Hash         string `json:"hash"`
	BlockTime    int64  `json:"block_time"`
	InputCount   int    `json:"input_count"`
	OutputCount  int    `json:"output_count"`
	InputAmount  string `json:"input_amount"`
	OutputAmount string `json:"output_amount"`
	Fees         string `json:"fees"`
}

// BlockTransactions lists the transactions of a block that could be
// resolved. Transactions may be fewer than TxCount.
type BlockTransactions struct {
	BlockHash    string      `json:"block_hash"`
	BlockHeight  int64       `json:"block_height"`
	TxCount      int64       `json:"tx_count"`
	Transactions []TxSummary `json:"transactions"`
}

// AddressUTXO is an unspent output held by an address.
type AddressUTXO struct {
	TxHash      string         `json:"tx_hash"`
	OutputIndex int            `json:"output_index"`
	Amount      string         `json:"amount"`
	Assets      []amount.Entry `json:"assets"`
	Block       string         `json:"block"`
}

// AddressTx is a transaction reference in an address history.
type AddressTx struct {
	TxHash      string `json:"tx_hash"`
	TxIndex     int    `json:"tx_index"`
	BlockHeight int64  `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

// Address is a normalized address with recent activity.
type Address struct {
	Address      string         `json:"address"`
	Balance      string         `json:"balance"`
	Assets       []amount.Entry `json:"assets"`
	StakeAddress *string        `json:"stake_address"`
	Type         string         `json:"type"`
	Script       bool           `json:"script"`
	UTXOs        []AddressUTXO  `json:"utxos"`
	Transactions []AddressTx    `json:"transactions"`
}

// Reward is one reward payout of a stake account.
type Reward struct {
	Epoch  int64  `json:"epoch"`
	Amount string `json:"amount"`
	PoolID string `json:"pool_id"`
	Type   string `json:"type"`
}

// StakeAccount is a stake address with its first rewards.
type StakeAccount struct {
	StakeAddress       string   `json:"stake_address"`
	Active             bool     `json:"active"`
	ActiveEpoch        *int64   `json:"active_epoch"`
	ControlledAmount   string   `json:"controlled_amount"`
	RewardsSum         string   `json:"rewards_sum"`
	WithdrawalsSum     string   `json:"withdrawals_sum"`
	WithdrawableAmount string   `json:"withdrawable_amount"`
	PoolID             *string  `json:"pool_id"`
	Rewards            []Reward `json:"rewards"`
}

// PoolMetadata is the off-chain description of a pool.
type PoolMetadata struct {
	URL         *string `json:"url"`
	Hash        *string `json:"hash"`
	Ticker      *string `json:"ticker"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Homepage    *string `json:"homepage"`
}

// Pool is a stake pool with its metadata, when registered.
type Pool struct {
	PoolID         string        `json:"pool_id"`
	Hex            string        `json:"hex"`
	VRFKey         string        `json:"vrf_key"`
	BlocksMinted   int64         `json:"blocks_minted"`
	LiveStake      string        `json:"live_stake"`
	ActiveStake    string        `json:"active_stake"`
	LiveSaturation float64       `json:"live_saturation"`
	LiveDelegators int64         `json:"live_delegators"`
	DeclaredPledge string        `json:"declared_pledge"`
	MarginCost     float64       `json:"margin_cost"`
	FixedCost      string        `json:"fixed_cost"`
	RewardAccount  string        `json:"reward_account"`
	Owners         []string      `json:"owners"`
	Metadata       *PoolMetadata `json:"metadata"`
}

// Epoch is a normalized epoch.
type Epoch struct {
	Epoch          int64   `json:"epoch"`
	StartTime      int64   `json:"start_time"`
	EndTime        int64   `json:"end_time"`
	FirstBlockTime int64   `json:"first_block_time"`
	LastBlockTime  int64   `json:"last_block_time"`
	BlockCount     int64   `json:"block_count"`
	TxCount        int64   `json:"tx_count"`
	Output         string  `json:"output"`
	Fees           string  `json:"fees"`
	ActiveStake    *string `json:"active_stake"`
}

// ResultType tags the populated variant of a SearchResult.
type ResultType string

const (
	ResultBlock        ResultType = "block"
	ResultTransaction  ResultType = "transaction"
	ResultAddress      ResultType = "address"
	ResultStakeAddress ResultType = "stake_address"
	ResultPool         ResultType = "pool"
	ResultEpoch        ResultType = "epoch"
)

// SearchResult holds exactly one populated variant, named by Type. It
// encodes as {"type": ..., "result": ...}.
type SearchResult struct {
	Type         ResultType
	Block        *Block
	Transaction  *Transaction
	Address      *Address
	StakeAccount *StakeAccount
	Pool         *Pool
	Epoch        *Epoch
}

type searchResultJSON struct {
	Type   ResultType      `json:"type"`
	Result json.RawMessage `json:"result"`
}

// MarshalJSON implements json.Marshaler.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	var v any
	switch r.Type {
	case ResultBlock:
		v = r.Block
	case ResultTransaction:
		v = r.Transaction
	case ResultAddress:
		v = r.Address
	case ResultStakeAddress:
		v = r.StakeAccount
	case ResultPool:
		v = r.Pool
	case ResultEpoch:
		v = r.Epoch
	default:
		return nil, fmt.Errorf("search result: unknown type %q", r.Type)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(searchResultJSON{Type: r.Type, Result: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var wire searchResultJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = SearchResult{Type: wire.Type}
	var target any
	switch wire.Type {
	case ResultBlock:
		r.Block = &Block{}
		target = r.Block
	case ResultTransaction:
		r.Transaction = &Transaction{}
		target = r.Transaction
	case ResultAddress:
		r.Address = &Address{}
		target = r.Address
	case ResultStakeAddress:
		r.StakeAccount = &StakeAccount{}
		target = r.StakeAccount
	case ResultPool:
		r.Pool = &Pool{}
		target = r.Pool
	case ResultEpoch:
		r.Epoch = &Epoch{}
		target = r.Epoch
	default:
		return fmt.Errorf("search result: unknown type %q", wire.Type)
	}
	return json.Unmarshal(wire.Result, target)
}
