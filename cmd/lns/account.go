package main

import (
	"fmt"

	"github.com/learner-ns/lns/internal/keys"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func accountCommands(e *env) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage the wallet account",
		Subcommands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Create a new account",
				Action: func(c *cli.Context) error {
					address, err := keys.GenerateKeyFile(e.keyfile())
					if err != nil {
						return err
					}
					e.logger.Info("Account created", zap.String("address", address.Hex()), zap.String("keyfile", e.keyfile()))
					fmt.Println(address.Hex())
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Get the account address",
				Action: func(c *cli.Context) error {
					_, address, err := keys.LoadPrivateKey(e.keyfile())
					if err != nil {
						return err
					}
					fmt.Println(address.Hex())
					return nil
				},
			},
		},
	}
}
