package blockfrost

import "github.com/brojonat/ledgerscope/service/amount"

// These types mirror the provider's JSON records. They are decoded as-is
// and reshaped by the explorer package; nothing here is exposed to clients.

// Block is a block record.
type Block struct {
	Time          int64   `json:"time"`
	Height        *int64  `json:"height"`
	Hash          string  `json:"hash"`
	Slot          *int64  `json:"slot"`
	Epoch         *int64  `json:"epoch"`
	EpochSlot     *int64  `json:"epoch_slot"`
	SlotLeader    string  `json:"slot_leader"`
	Size          int64   `json:"size"`
	TxCount       int64   `json:"tx_count"`
	Output        *string `json:"output"`
	Fees          *string `json:"fees"`
	BlockVRF      *string `json:"block_vrf"`
	PreviousBlock *string `json:"previous_block"`
	NextBlock     *string `json:"next_block"`
	Confirmations int64   `json:"confirmations"`
}

// Transaction is the core transaction record.
type Transaction struct {
	Hash             string         `json:"hash"`
	Block            string         `json:"block"`
	BlockHeight      int64          `json:"block_height"`
	BlockTime        int64          `json:"block_time"`
	Slot             int64          `json:"slot"`
	Index            int            `json:"index"`
	OutputAmount     amount.Entries `json:"output_amount"`
	Fees             string         `json:"fees"`
	Deposit          string         `json:"deposit"`
	Size             int64          `json:"size"`
	InvalidBefore    *string        `json:"invalid_before"`
	InvalidHereafter *string        `json:"invalid_hereafter"`
	UTXOCount        int            `json:"utxo_count"`
	ValidContract    bool           `json:"valid_contract"`
}

// TransactionUTXOs lists the inputs and outputs of a transaction.
type TransactionUTXOs struct {
	Hash    string       `json:"hash"`
	Inputs  []UTXOInput  `json:"inputs"`
	Outputs []UTXOOutput `json:"outputs"`
}

// UTXOInput is a consumed output.
type UTXOInput struct {
	Address     string         `json:"address"`
	Amount      amount.Entries `json:"amount"`
	TxHash      string         `json:"tx_hash"`
	OutputIndex int            `json:"output_index"`
	Collateral  bool           `json:"collateral"`
	Reference   bool           `json:"reference"`
}

// UTXOOutput is a created output.
type UTXOOutput struct {
	Address     string         `json:"address"`
	Amount      amount.Entries `json:"amount"`
	OutputIndex int            `json:"output_index"`
	Collateral  bool           `json:"collateral"`
	DataHash    *string        `json:"data_hash"`
}

// Address is an address summary.
type Address struct {
	Address      string         `json:"address"`
	Amount       amount.Entries `json:"amount"`
	StakeAddress *string        `json:"stake_address"`
	Type         string         `json:"type"`
	Script       bool           `json:"script"`
}

// AddressUTXO is an unspent output held by an address.
type AddressUTXO struct {
	Address     string         `json:"address"`
	TxHash      string         `json:"tx_hash"`
	OutputIndex int            `json:"output_index"`
	Amount      amount.Entries `json:"amount"`
	Block       string         `json:"block"`
	DataHash    *string        `json:"data_hash"`
}

// AddressTransaction is one entry of an address's transaction history.
type AddressTransaction struct {
	TxHash      string `json:"tx_hash"`
	TxIndex     int    `json:"tx_index"`
	BlockHeight int64  `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

// Account is a stake account.
type Account struct {
	StakeAddress       string  `json:"stake_address"`
	Active             bool    `json:"active"`
	ActiveEpoch        *int64  `json:"active_epoch"`
	ControlledAmount   string  `json:"controlled_amount"`
	RewardsSum         string  `json:"rewards_sum"`
	WithdrawalsSum     string  `json:"withdrawals_sum"`
	ReservesSum        string  `json:"reserves_sum"`
	TreasurySum        string  `json:"treasury_sum"`
	WithdrawableAmount string  `json:"withdrawable_amount"`
	PoolID             *string `json:"pool_id"`
}

// AccountReward is a per-epoch reward paid to a stake account.
type AccountReward struct {
	Epoch  int64  `json:"epoch"`
	Amount string `json:"amount"`
	PoolID string `json:"pool_id"`
	Type   string `json:"type"`
}

// Pool is a stake pool record.
type Pool struct {
	PoolID         string   `json:"pool_id"`
	Hex            string   `json:"hex"`
	VRFKey         string   `json:"vrf_key"`
	BlocksMinted   int64    `json:"blocks_minted"`
	BlocksEpoch    int64    `json:"blocks_epoch"`
	LiveStake      string   `json:"live_stake"`
	LiveSize       float64  `json:"live_size"`
	LiveSaturation float64  `json:"live_saturation"`
	LiveDelegators int64    `json:"live_delegators"`
	ActiveStake    string   `json:"active_stake"`
	ActiveSize     float64  `json:"active_size"`
	DeclaredPledge string   `json:"declared_pledge"`
	LivePledge     string   `json:"live_pledge"`
	MarginCost     float64  `json:"margin_cost"`
	FixedCost      string   `json:"fixed_cost"`
	RewardAccount  string   `json:"reward_account"`
	Owners         []string `json:"owners"`
	Registration   []string `json:"registration"`
	Retirement     []string `json:"retirement"`
}

// PoolMetadata is the off-chain metadata registered for a pool.
type PoolMetadata struct {
	PoolID      string  `json:"pool_id"`
	Hex         string  `json:"hex"`
	URL         *string `json:"url"`
	Hash        *string `json:"hash"`
	Ticker      *string `json:"ticker"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Homepage    *string `json:"homepage"`
}

// Epoch is an epoch record.
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

// providerError is the provider's error body.
type providerError struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
