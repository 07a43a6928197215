package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brojonat/ledgerscope/client"
	"github.com/brojonat/ledgerscope/service/explorer"
	"github.com/urfave/cli/v2"
)

const cliDefaultTimeout = 30 * time.Second

func newClient(c *cli.Context) *client.Client {
	httpClient := &http.Client{Timeout: c.Duration("timeout")}
	return client.NewClient(c.String("server-url"), httpClient, nil)
}

// withTimeout runs fn under the global --timeout.
func withTimeout(c *cli.Context, fn func(ctx context.Context, cl *client.Client) (any, error)) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	data, err := fn(ctx, newClient(c))
	if err != nil {
		return err
	}
	return render(c, data)
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("%s is required", name)
	}
	return c.Args().Get(0), nil
}

func blockCommands() *cli.Command {
	return &cli.Command{
		Name:  "block",
		Usage: "Block commands",
		Subcommands: []*cli.Command{
			{
				Name:  "latest",
				Usage: "Show the latest block",
				Action: func(c *cli.Context) error {
					return withTimeout(c, func(ctx context.Context, cl *client.Client) (any, error) {
						return cl.LatestBlock(ctx)
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a block by hash or height",
				ArgsUsage: "HASH_OR_HEIGHT",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "block hash or height")
					if err != nil {
						return err
					}
					return withTimeout(c, func(ctx context.Context, cl *client.Client) (any, error) {
						return cl.Block(ctx, id)
					})
				},
			},
			{
				Name:  "list",
				Usage: "List recent blocks",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Blocks per page (max 100)"},
				},
				Action: func(c *cli.Context) error {
					return withTimeout(c, func(ctx context.Context, cl *client.Client) (any, error) {
						return cl.Blocks(ctx, c.Int("page"), c.Int("limit"))
					})
				},
			},
			{
				Name:      "txs",
				Usage:     "List the transactions of a block",
				ArgsUsage: "HASH",
				Action: func(c *cli.Context) error {
					hash, err := requireArg(c, "block hash")
					if err != nil {
						return err
					}
					return withTimeout(c, func(ctx context.Context, cl *client.Client) (any, error) {
						return cl.BlockTransactions(ctx, hash)
					})
				},
			},
		},
	}
}

func txCommand() *cli.Command {
	return &cli.Command{
		Name:      "tx",
		Usage:     "Show transaction details",
		ArgsUsage: "HASH",
		Action: func(c *cli.Context) error {
			hash, err := requireArg(c, "transaction hash")
			if err != nil {
				return err
			}
			return withTimeout(c, func(ctx context.Context, cl *client.Client) (any, error) {
				return cl.Transaction(ctx, hash)
			})
		},
	}
}

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:      "address",
		Usage:     "Show address balance, UTXOs and recent transactions",
		ArgsUsage: "ADDRESS",
		Action: func(c *cli.Context) error {
			address, err := requireArg(c, "address")
			if err != nil {
				return err
			}
			return withTimeout(c, func(ctx context.Context, cl *client.Client) (any, error) {
				return cl.Address(ctx, address)
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search by height, hash, address, stake address, pool id or epoch:N",
		ArgsUsage: "QUERY",
		Action: func(c *cli.Context) error {
			query, err := requireArg(c, "query")
			if err != nil {
				return err
			}
			return withTimeout(c, func(ctx context.Context, cl *client.Client) (any, error) {
				return cl.Search(ctx, query)
			})
		},
	}
}

// render prints data as JSON when --json or --jq is set, otherwise as a
// short human-readable summary.
func render(c *cli.Context, data any) error {
	filters := c.StringSlice("jq")
	if len(filters) > 0 {
		return printJQ(c.App.Writer, data, filters)
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, data)
	}

	w := c.App.Writer
	switch v := data.(type) {
	case *explorer.Block:
		printBlock(w, v)
	case *explorer.BlockPage:
		for i := range v.Blocks {
			b := &v.Blocks[i]
			fmt.Fprintf(w, "%-10d %s  txs=%d\n", b.Height, b.Hash, b.TxCount)
		}
		p := v.Pagination
		fmt.Fprintf(w, "\npage %d of %d (latest height %d)\n", p.Page, p.TotalPages, p.LatestHeight)
	case *explorer.BlockTransactions:
		fmt.Fprintf(w, "Block %s (height %d): showing %d of %d transactions\n",
			v.BlockHash, v.BlockHeight, len(v.Transactions), v.TxCount)
		for _, tx := range v.Transactions {
			fmt.Fprintf(w, "  %s  in=%s out=%s fee=%s\n", tx.Hash, tx.InputAmount, tx.OutputAmount, tx.Fees)
		}
	case *explorer.Transaction:
		printTransaction(w, v)
	case *explorer.Address:
		printAddress(w, v)
	case *explorer.SearchResult:
		return printSearchResult(c, v)
	default:
		return printJSON(w, data)
	}
	return nil
}

func printSearchResult(c *cli.Context, r *explorer.SearchResult) error {
	w := c.App.Writer
	fmt.Fprintf(w, "Found %s\n\n", r.Type)
	switch r.Type {
	case explorer.ResultBlock:
		printBlock(w, r.Block)
	case explorer.ResultTransaction:
		printTransaction(w, r.Transaction)
	case explorer.ResultAddress:
		printAddress(w, r.Address)
	case explorer.ResultStakeAddress:
		return printJSON(w, r.StakeAccount)
	case explorer.ResultPool:
		return printJSON(w, r.Pool)
	case explorer.ResultEpoch:
		return printJSON(w, r.Epoch)
	}
	return nil
}
