package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

func mintCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "mint",
		Usage:     "Register a name and set its record",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "record", Aliases: []string{"r"}, Usage: "Record to attach to the name"},
		},
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return fmt.Errorf("name is required")
			}
			return e.withClient(c, func(ctx context.Context, cl *client) error {
				if err := cl.ready(ctx); err != nil {
					return reported(err)
				}
				if err := cl.orch.SetName(name); err != nil {
					return err
				}
				cl.orch.SetRecord(c.String("record"))
				return reported(cl.orch.Mint(ctx))
			})
		},
	}
}

func recordCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Update the record of a name you own",
		ArgsUsage: "<name> <record>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: lns record <name> <record>")
			}
			name, record := c.Args().Get(0), c.Args().Get(1)
			return e.withClient(c, func(ctx context.Context, cl *client) error {
				if err := cl.ready(ctx); err != nil {
					return reported(err)
				}
				if err := cl.orch.EditRecord(name); err != nil {
					return err
				}
				cl.orch.SetRecord(record)
				return reported(cl.orch.Mint(ctx))
			})
		},
	}
}
