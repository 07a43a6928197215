package explorer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/brojonat/ledgerscope/service/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestBlock(t *testing.T) {
	tip := hashN(100)
	svc, _ := newTestService(t, map[string]route{
		"/blocks/latest": ok(blockJSON(tip, 100, 4)),
	})

	block, err := svc.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tip, block.Hash)
	assert.Equal(t, int64(100), block.Height)
	assert.Equal(t, "170000", block.Fees)
	assert.Equal(t, "9007199254740993", block.Output)
}

func TestBlockByHash(t *testing.T) {
	known := hashN(7)
	svc, fake := newTestService(t, map[string]route{
		"/blocks/" + known: ok(blockJSON(known, 7, 0)),
	})
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		block, err := svc.BlockByHash(ctx, known)
		require.NoError(t, err)
		assert.Equal(t, int64(7), block.Height)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.BlockByHash(ctx, hashN(8))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBlockNotFound))
		assert.Equal(t, http.StatusNotFound, apierr.HTTPStatus(err))
	})

	t.Run("invalid hash makes no call", func(t *testing.T) {
		before := fake.Total()
		for _, bad := range []string{"", "abc", strings.Repeat("g", 64), hashN(1) + "0"} {
			_, err := svc.BlockByHash(ctx, bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidHash), bad)
			assert.Equal(t, http.StatusBadRequest, apierr.HTTPStatus(err))
		}
		assert.Equal(t, before, fake.Total())
	})
}

func TestBlockByHeight(t *testing.T) {
	svc, fake := newTestService(t, map[string]route{
		"/blocks/latest": ok(blockJSON(hashN(100), 100, 1)),
		"/blocks/42":     ok(blockJSON(hashN(42), 42, 1)),
	})
	ctx := context.Background()

	block, err := svc.BlockByHeight(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, hashN(42), block.Hash)

	_, err = svc.BlockByHeight(ctx, 101)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHeightOutOfRange))
	assert.False(t, errors.Is(err, ErrBlockNotFound))
	assert.Equal(t, http.StatusBadRequest, apierr.HTTPStatus(err))
	assert.Equal(t, 0, fake.Hits("/blocks/101"))

	_, err = svc.BlockByHeight(ctx, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlockNotFound))

	_, err = svc.BlockByHeight(ctx, -1)
	assert.True(t, errors.Is(err, ErrInvalidHeight))
}

func TestBlocksPage(t *testing.T) {
	tip := hashN(100)
	svc, _ := newTestService(t, map[string]route{
		"/blocks/latest": ok(blockJSON(tip, 100, 1)),
		"/blocks/" + tip + "/previous": ok(fmt.Sprintf("[%s,%s]",
			blockJSON(hashN(98), 98, 1), blockJSON(hashN(99), 99, 1))),
	})

	page, err := svc.BlocksPage(context.Background(), 1, 2)
	require.NoError(t, err)

	heights := make([]int64, 0, len(page.Blocks))
	for _, b := range page.Blocks {
		heights = append(heights, b.Height)
	}
	assert.Equal(t, []int64{100, 99, 98}, heights)
	assert.Equal(t, Pagination{
		Page:         1,
		Limit:        2,
		TotalPages:   50,
		HasNext:      true,
		HasPrevious:  false,
		LatestHeight: 100,
	}, page.Pagination)

	page, err = svc.BlocksPage(context.Background(), 50, 2)
	require.NoError(t, err)
	assert.False(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrevious)
}

func TestBlocksPage_Validation(t *testing.T) {
	svc, fake := newTestService(t, nil)

	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"zero page", 0, 20},
		{"zero size", 1, 0},
		{"oversized", 1, 101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BlocksPage(context.Background(), tt.page, tt.pageSize)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPage))
		})
	}
	assert.Equal(t, 0, fake.Total())
}

func TestBlockTransactions_DropsFailedLookups(t *testing.T) {
	block := hashN(500)
	tx1, tx2, tx3 := hashN(501), hashN(502), hashN(503)

	svc, _ := newTestService(t, map[string]route{
		"/blocks/" + block:         ok(blockJSON(block, 500, 3)),
		"/blocks/" + block + "/txs": ok(fmt.Sprintf("[%q,%q,%q]", tx1, tx2, tx3)),
		"/txs/" + tx1:              ok(txJSON(tx1, block, 500)),
		"/txs/" + tx1 + "/utxos":   ok(utxosJSON(tx1)),
		"/txs/" + tx2:              fail(http.StatusInternalServerError),
		"/txs/" + tx2 + "/utxos":   ok(utxosJSON(tx2)),
		"/txs/" + tx3:              ok(txJSON(tx3, block, 500)),
		"/txs/" + tx3 + "/utxos":   ok(utxosJSON(tx3)),
	})

	result, err := svc.BlockTransactions(context.Background(), block)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TxCount)
	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, tx1, first.Hash)
	assert.Equal(t, tx3, result.Transactions[1].Hash)
	assert.Equal(t, int64(1700000500), first.BlockTime)
	assert.Equal(t, 2, first.InputCount)
	assert.Equal(t, 1, first.OutputCount)
	assert.Equal(t, "1500000", first.InputAmount)
	assert.Equal(t, "1320000", first.OutputAmount)
	assert.Equal(t, "180000", first.Fees)
}

func TestBlockTransactions_CapsAtFifty(t *testing.T) {
	block := hashN(600)
	routes := map[string]route{
		"/blocks/" + block: ok(blockJSON(block, 600, 60)),
	}
	hashes := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		h := hashN(1000 + i)
		hashes = append(hashes, fmt.Sprintf("%q", h))
		routes["/txs/"+h] = ok(txJSON(h, block, 600))
		routes["/txs/"+h+"/utxos"] = ok(utxosJSON(h))
	}
	routes["/blocks/"+block+"/txs"] = ok("[" + strings.Join(hashes, ",") + "]")

	svc, fake := newTestService(t, routes)

	result, err := svc.BlockTransactions(context.Background(), block)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, maxBlockTransactions)
	assert.Equal(t, hashN(1000), result.Transactions[0].Hash)
	assert.Equal(t, 0, fake.Hits("/txs/"+hashN(1055)))
}

func TestBlockTransactions_BlockNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.BlockTransactions(context.Background(), hashN(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlockNotFound))
}

func TestBlockTransactions_RequestTimeout(t *testing.T) {
	block := hashN(700)
	routes := map[string]route{
		"/blocks/" + block: ok(blockJSON(block, 700, 3)),
	}
	hashes := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		h := hashN(701 + i)
		hashes = append(hashes, fmt.Sprintf("%q", h))
		routes["/txs/"+h] = slow(ok(txJSON(h, block, 700)), 2*time.Second)
		routes["/txs/"+h+"/utxos"] = slow(ok(utxosJSON(h)), 2*time.Second)
	}
	routes["/blocks/"+block+"/txs"] = ok("[" + strings.Join(hashes, ",") + "]")

	svc, _ := newTestService(t, routes)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result, err := svc.BlockTransactions(ctx, block)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apierr.Is(err, apierr.KindTimeout))
	assert.Equal(t, http.StatusRequestTimeout, apierr.HTTPStatus(err))
}
