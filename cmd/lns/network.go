package main

import (
	"context"
	"fmt"

	"github.com/learner-ns/lns/internal/networks"
	"github.com/urfave/cli/v2"
)

func networkCommands(e *env) *cli.Command {
	return &cli.Command{
		Name:  "network",
		Usage: "Inspect or change the wallet network",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the wallet's current network",
				Action: func(c *cli.Context) error {
					return e.withClient(c, func(ctx context.Context, cl *client) error {
						snap := cl.session.Snapshot()
						label := snap.Network
						if label == "" {
							label = "unknown network"
						}
						supported := "no"
						if snap.ChainID == e.cfg.Network.ChainID {
							supported = "yes"
						}
						fmt.Fprintf(c.App.Writer, "%s (%s)\nsupported: %s\n", label,
							networks.Descriptor{ChainID: snap.ChainID}.HexChainID(), supported)
						return nil
					})
				},
			},
			{
				Name:  "switch",
				Usage: "Switch the wallet to the supported network",
				Action: func(c *cli.Context) error {
					return e.withClient(c, func(ctx context.Context, cl *client) error {
						return reported(cl.orch.SwitchNetwork(ctx))
					})
				},
			},
		},
	}
}
