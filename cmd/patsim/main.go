package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/patsim/internal/config"
	"github.com/kailas-cloud/patsim/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "patsim:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "patsim",
		Usage:   "Prior-art similarity ranking over patent fingerprints",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Configuration environment (config/<env>.yaml)",
				Value:   config.GetEnv(),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
			},
			{
				Name:   "search",
				Usage:  "Rank publications similar to a patent XML document",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "xml",
						Aliases:  []string{"x"},
						Usage:    "Path to the reference patent XML",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "CSV output path (default: stdout)",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of results (default: ranking.k)",
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Discard candidates scoring below this cosine similarity",
					},
					&cli.IntFlag{
						Name:  "prefix-len",
						Usage: "Classification prefix length (default: ranking.prefix_len)",
					},
					&cli.IntFlag{
						Name:  "preview",
						Usage: "Print the top N results as a table on stderr (0 disables)",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "bom",
						Usage: "Prefix the CSV with a UTF-8 byte order mark",
						Value: true,
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Load Parquet chunk files into Valkey and build the prefix index",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "parquet-dir",
						Aliases:  []string{"d"},
						Usage:    "Directory of *.parquet chunk files",
						Required: true,
					},
				},
			},
		},
	}
}
