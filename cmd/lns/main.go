package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/learner-ns/lns/internal/config"
	"github.com/learner-ns/lns/internal/gateway"
	"github.com/learner-ns/lns/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const defaultKeyfile = "walletkey.json"

// env is filled in by the Before hook and shared by all commands.
type env struct {
	home   string
	yes    bool
	cfg    *config.Config
	logger *zap.Logger
	// dial overrides how the wallet reaches RPC endpoints.
	dial gateway.Dialer
}

func (e *env) keyfile() string {
	if e.cfg != nil && e.cfg.Wallet.Keyfile != "" {
		return e.cfg.Wallet.Keyfile
	}
	return filepath.Join(e.home, defaultKeyfile)
}

func main() {
	e := &env{}
	if err := newApp(e).Run(os.Args); err != nil {
		var shown *reportedError
		if errors.As(err, &shown) {
			os.Exit(1)
		}
		if e.logger != nil {
			e.logger.Fatal("failed to run app", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(e *env) *cli.App {
	return &cli.App{
		Name:  "lns",
		Usage: "Register and browse names on the Learner Name Service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "home",
				Value:       config.GetDefaultConfigHome(),
				Usage:       "Path to the lns home directory",
				EnvVars:     []string{"LNS_HOME"},
				Destination: &e.home,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "Approve wallet prompts without asking",
				Destination: &e.yes,
			},
		},
		Before: func(c *cli.Context) error {
			return e.load(c.Args().First() == "init")
		},
		Commands: []*cli.Command{
			initCommand(e),
			accountCommands(e),
			priceCommand(e),
			namesCommand(e),
			mintCommand(e),
			recordCommand(e),
			networkCommands(e),
			shellCommand(e),
		},
	}
}

// load reads the config and builds the logger. A missing config is tolerated
// for init, which creates it.
func (e *env) load(optional bool) error {
	path := filepath.Join(e.home, config.ConfigFileName)
	cfg, err := config.LoadConfig(path)
	switch {
	case err == nil:
		e.cfg = cfg
	case optional && os.IsNotExist(err):
		e.cfg = config.Default()
	case os.IsNotExist(err):
		return fmt.Errorf("no config at %s, run `lns init` first", path)
	default:
		return err
	}

	e.logger, err = logger.New(e.cfg.Logger.Verbosity, e.cfg.Logger.Encoding)
	if err != nil {
		return err
	}
	e.logger = e.logger.Named("cli")
	return nil
}
