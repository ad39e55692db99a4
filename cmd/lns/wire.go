package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/learner-ns/lns/internal/contracts"
	"github.com/learner-ns/lns/internal/gateway"
	"github.com/learner-ns/lns/internal/orchestrator"
	"github.com/learner-ns/lns/internal/registry"
	"github.com/learner-ns/lns/internal/session"
	"github.com/learner-ns/lns/internal/txlog"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// client is the assembled name service stack.
type client struct {
	app      *fx.App
	wallet   *gateway.KeyfileWallet
	session  *session.Session
	domains  *contracts.Domains
	registry *registry.Cache
	txlog    *txlog.Log
	orch     *orchestrator.Orchestrator
}

func (e *env) open(ctx context.Context, approve gateway.Approver, notifier orchestrator.Notifier) (*client, error) {
	cfg := e.cfg
	if !common.IsHexAddress(cfg.Contract.Address) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.Contract.Address)
	}

	chains := make([]gateway.Chain, 0, len(cfg.Wallet.Chains))
	for _, ch := range cfg.Wallet.Chains {
		chains = append(chains, gateway.Chain{ID: ch.ChainID, RPCURL: ch.RPCURL})
	}
	if len(chains) == 0 {
		chains = append(chains, gateway.Chain{ID: cfg.Network.ChainID, RPCURL: cfg.Network.RPCURL})
	}

	cl := &client{}
	cl.app = fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: e.logger.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(
			e.logger,
			gateway.Options{
				Keyfile:  e.keyfile(),
				Chains:   chains,
				Dialer:   e.dial,
				Approver: approve,
			},
			orchestrator.Config{
				Network:        cfg.Network,
				MarketplaceURL: cfg.Marketplace.BaseURL,
				RefreshDelay:   cfg.Registry.RefreshDelay,
				ConfirmTimeout: cfg.Tx.ConfirmTimeout,
			},
		),
		fx.Provide(
			gateway.NewKeyfileWallet,
			func(wallet *gateway.KeyfileWallet, logger *zap.Logger) (*contracts.Domains, error) {
				return contracts.NewDomains(wallet, common.HexToAddress(cfg.Contract.Address), logger)
			},
			func(domains *contracts.Domains, logger *zap.Logger) *registry.Cache {
				return registry.NewCache(domains, cfg.Registry.Concurrency, cfg.Registry.PollInterval, logger)
			},
			func() *txlog.Log {
				return txlog.New(cfg.TxLog.TTL)
			},
			func(wallet *gateway.KeyfileWallet, logger *zap.Logger) *session.Session {
				return session.New(wallet, logger)
			},
			func(
				c orchestrator.Config,
				wallet *gateway.KeyfileWallet,
				sess *session.Session,
				domains *contracts.Domains,
				cache *registry.Cache,
				log *txlog.Log,
				logger *zap.Logger,
			) *orchestrator.Orchestrator {
				return orchestrator.New(c, orchestrator.Deps{
					Gateway:  wallet,
					Session:  sess,
					Contract: domains,
					Registry: cache,
					TxLog:    log,
					Notifier: notifier,
				}, logger)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, wallet *gateway.KeyfileWallet, sess *session.Session, orch *orchestrator.Orchestrator) {
			lc.Append(fx.StopHook(wallet.Close))
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if err := sess.Init(ctx); err != nil {
						return err
					}
					orch.Init(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					orch.Close()
					sess.Close()
					return nil
				},
			})
		}),
		fx.Populate(&cl.wallet, &cl.session, &cl.domains, &cl.registry, &cl.txlog, &cl.orch),
	)

	if err := cl.app.Start(ctx); err != nil {
		return nil, err
	}
	return cl, nil
}

func (c *client) Close() error {
	return c.app.Stop(context.Background())
}

// ready connects the wallet and moves it to the supported network.
func (c *client) ready(ctx context.Context) error {
	if err := c.orch.Connect(ctx); err != nil {
		return err
	}
	if c.orch.MintAvailable() {
		return nil
	}
	return c.orch.SwitchNetwork(ctx)
}

// withClient runs fn with a client whose context is cancelled on Ctrl-C.
func (e *env) withClient(c *cli.Context, fn func(ctx context.Context, cl *client) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	in := bufio.NewReader(os.Stdin)
	cl, err := e.open(ctx, e.approver(in, os.Stdout), printNotices(os.Stdout))
	if err != nil {
		return err
	}
	defer cl.Close()
	return fn(ctx, cl)
}

func (e *env) approver(in *bufio.Reader, out io.Writer) gateway.Approver {
	if e.yes {
		return gateway.AutoApprove
	}
	return promptApprover(in, out)
}

// promptApprover asks y/N on out and reads the answer from in.
func promptApprover(in *bufio.Reader, out io.Writer) gateway.Approver {
	return func(_ context.Context, p gateway.Prompt) bool {
		fmt.Fprintf(out, "%s [y/N] ", p)
		line, err := in.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func printNotices(out io.Writer) orchestrator.NotifierFunc {
	return func(n orchestrator.Notice) {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
		if n.TxURL != "" {
			fmt.Fprintf(out, "  tx:    %s\n", n.TxURL)
		}
		if n.AssetURL != "" {
			fmt.Fprintf(out, "  asset: %s\n", n.AssetURL)
		}
	}
}
