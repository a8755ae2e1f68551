// Package main provides the operator CLI of the confidential auction ledger.
// The ledger is stored in a bbolt database and the sealed values are
// encrypted with the ElGamal key of the operator.
//
//	sealbid keygen
//	sealbid --as alice create --title Lamp --description "Desk lamp" --category home --minimum 10
//	sealbid --as bob bid --id 1 --amount 15 --payment 15
//	sealbid --as alice end --id 1
//	sealbid proxy --addr 127.0.0.1:8080
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args, os.Stdout)
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	app := &cli.App{
		Name:   "sealbid",
		Usage:  "operate a confidential auction ledger",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the path to a yaml config file",
			},
			&cli.StringFlag{
				Name:  "db",
				Value: "sealbid.db",
				Usage: "the path to the ledger database",
			},
			&cli.StringFlag{
				Name:  "key",
				Value: "sealbid.key",
				Usage: "the path to the sealing key",
			},
			&cli.StringFlag{
				Name:  "as",
				Usage: "the principal that performs the command",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "generate a new sealing key",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "force", Usage: "overwrite the key"}},
				Action: keygenAction,
			},
			{
				Name:  "create",
				Usage: "open an auction",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "description", Required: true},
					&cli.StringFlag{Name: "category", Required: true},
					&cli.Uint64Flag{Name: "minimum", Required: true, Usage: "the public minimum bid"},
				},
				Action: createAction,
			},
			{
				Name:  "bid",
				Usage: "bid on an auction",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "id", Required: true},
					&cli.Uint64Flag{Name: "amount", Required: true, Usage: "the sealed amount"},
					&cli.Uint64Flag{Name: "payment", Required: true, Usage: "the escrowed payment"},
					&cli.BoolFlag{Name: "claim", Usage: "claim to be a leading bid"},
					&cli.StringFlag{Name: "comment"},
				},
				Action: bidAction,
			},
			{
				Name:   "end",
				Usage:  "end and settle an auction",
				Flags:  []cli.Flag{&cli.Uint64Flag{Name: "id", Required: true}},
				Action: endAction,
			},
			{
				Name:   "show",
				Usage:  "show an auction",
				Flags:  []cli.Flag{&cli.Uint64Flag{Name: "id", Required: true}},
				Action: showAction,
			},
			{
				Name:   "list",
				Usage:  "list the active auctions",
				Action: listAction,
			},
			{
				Name:   "mine",
				Usage:  "list the auctions created by the principal",
				Action: mineAction,
			},
			{
				Name:   "reveal",
				Usage:  "reveal the bid of the principal",
				Flags:  []cli.Flag{&cli.Uint64Flag{Name: "id", Required: true}},
				Action: revealAction,
			},
			{
				Name:  "proxy",
				Usage: "serve the ledger over http",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: "127.0.0.1:8080"},
					&cli.StringFlag{Name: "metrics", Value: "/metrics", Usage: "path of the metrics, empty to disable"},
					&cli.BoolFlag{Name: "trace", Usage: "trace the requests with jaeger"},
				},
				Action: proxyAction,
			},
		},
	}

	return app.Run(args)
}
