package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ledgerscope",
		Usage: "Cardano block explorer CLI",
		Description: `A command-line tool for querying a running ledgerscope server.

Every command prints a human-readable summary by default. Use --json for the
raw response data, and --jq to filter it (the flag may be repeated; filters
are applied in order).`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// jq filters routinely contain commas.
		DisableSliceFlagSeparator: true,
		Commands: []*cli.Command{
			blockCommands(),
			txCommand(),
			addressCommand(),
			searchCommand(),
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "ledgerscope server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq filter applied to the response data (implies --json)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: cliDefaultTimeout,
			},
		},
	}
}
