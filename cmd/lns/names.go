package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/learner-ns/lns/internal/contracts"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/urfave/cli/v2"
)

func priceCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "price",
		Usage:     "Show the mint price of a name",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return fmt.Errorf("name is required")
			}
			fmt.Printf("%s%s costs %s %s\n", name, e.cfg.Contract.TLD, contracts.PriceLabel(name), e.cfg.Network.NativeCurrency.Symbol)
			return nil
		},
	}
}

func namesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "names",
		Usage: "List registered names",
		Action: func(c *cli.Context) error {
			return e.withClient(c, func(ctx context.Context, cl *client) error {
				return e.printNames(c.App.Writer, cl)
			})
		},
	}
}

func (e *env) printNames(out io.Writer, cl *client) error {
	snap := cl.session.Snapshot()
	if snap.ChainID != e.cfg.Network.ChainID {
		fmt.Fprintf(out, "Wallet is on chain %d, switch to %s to see names (lns network switch)\n", snap.ChainID, e.cfg.Network.Name)
		return nil
	}

	entries := cl.registry.Snapshot()
	if cl.registry.FetchedAt().IsZero() {
		fmt.Fprintln(out, "Names could not be loaded")
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No names registered yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRECORD\tOWNER\t")
	for _, entry := range entries {
		mark := ""
		if cl.orch.CanEdit(entry) {
			mark = "(yours)"
		}
		fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\t%s\n", entry.ID, entry.Name, e.cfg.Contract.TLD, entry.Record, networks.ShortenAddress(entry.Owner.Hex()), mark)
	}
	return w.Flush()
}
