package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/learner-ns/lns/internal/contracts"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/learner-ns/lns/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shellHelp = `Commands:
  connect           connect the wallet
  switch            switch the wallet to the supported network
  name <name>       set the name to mint
  record <text>     set the record to attach
  mint              mint the name, or set the record when editing
  edit <name>       edit the record of a name you own
  cancel            stop editing
  names             list registered names
  refresh           reload registered names
  status            show wallet, network and form
  history           show recent transactions
  price <name>      show the price of a name
  quit              leave the shell`

func shellCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start the interactive shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Action: func(c *cli.Context) error {
			return e.runShell(c.Context, os.Stdin, c.App.Writer, c.String("metrics-addr"))
		},
	}
}

type shell struct {
	e   *env
	cl  *client
	in  *bufio.Reader
	out io.Writer
}

func (e *env) runShell(ctx context.Context, input io.Reader, out io.Writer, metricsAddr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := bufio.NewReader(input)
	cl, err := e.open(ctx, e.approver(in, out), printNotices(out))
	if err != nil {
		return err
	}
	defer cl.Close()

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, e.logger)
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	go cl.registry.Run(ctx)

	s := &shell{e: e, cl: cl, in: in, out: out}
	s.banner()
	for {
		fmt.Fprint(out, "> ")
		line, err := in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			e.logger.Error("Shell input error, exiting shell loop.", zap.Error(err))
			return err
		}
		if quit := s.exec(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("Serving metrics", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

func (s *shell) banner() {
	fmt.Fprintln(s.out, figure.NewFigure("LNS", "", true).String())
	s.status()
	fmt.Fprintln(s.out, "-----------------------------------------------")
	fmt.Fprintln(s.out, "Type 'help' for commands. Ctrl-C cancels a pending wait.")
}

// exec runs one shell line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var err error
	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(s.out, shellHelp)
	case "connect":
		err = s.cl.orch.Connect(ctx)
	case "switch":
		err = s.cl.orch.SwitchNetwork(ctx)
	case "name":
		err = s.cl.orch.SetName(arg)
	case "record":
		s.cl.orch.SetRecord(arg)
	case "mint":
		err = s.cl.orch.Mint(ctx)
	case "edit":
		err = s.cl.orch.EditRecord(arg)
	case "cancel":
		s.cl.orch.CancelEdit()
	case "names":
		if perr := s.e.printNames(s.out, s.cl); perr != nil {
			fmt.Fprintf(s.out, "error: %v\n", perr)
		}
	case "refresh":
		if _, rerr := s.cl.registry.Refresh(ctx); rerr != nil {
			fmt.Fprintf(s.out, "error: %v\n", rerr)
		}
	case "status":
		s.status()
	case "history":
		s.history()
	case "price":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: price <name>")
			break
		}
		fmt.Fprintf(s.out, "%s%s costs %s %s\n", arg, s.e.cfg.Contract.TLD, contracts.PriceLabel(arg), s.e.cfg.Network.NativeCurrency.Symbol)
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for commands.")
	}

	if err != nil && !notified(err) {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

// notified reports whether the orchestrator already published a notice for err.
func notified(err error) bool {
	switch {
	case errors.Is(err, orchestrator.ErrBusy),
		errors.Is(err, orchestrator.ErrEmptyName),
		errors.Is(err, orchestrator.ErrEmptyRecord),
		errors.Is(err, orchestrator.ErrNameLocked),
		errors.Is(err, orchestrator.ErrUnknownName),
		errors.Is(err, orchestrator.ErrNotOwner):
		return false
	}
	return true
}

// reportedError is an orchestrator error the user has already seen as a notice.
type reportedError struct {
	err error
}

func (r *reportedError) Error() string { return r.err.Error() }
func (r *reportedError) Unwrap() error { return r.err }

// reported marks err as shown when the orchestrator published a notice for it.
// Only pass errors returned by orchestrator calls.
func reported(err error) error {
	if err == nil || !notified(err) {
		return err
	}
	return &reportedError{err: err}
}

func (s *shell) status() {
	snap := s.cl.session.Snapshot()
	account := "not connected"
	if snap.IsConnected() {
		account = networks.ShortenAddress(snap.Account)
	}
	network := snap.Network
	if network == "" {
		network = fmt.Sprintf("chain %d", snap.ChainID)
	}
	if snap.ChainID != s.e.cfg.Network.ChainID {
		network += " (unsupported, type 'switch')"
	}

	form := s.cl.orch.Form()
	fmt.Fprintf(s.out, "Wallet:  %s\n", account)
	fmt.Fprintf(s.out, "Network: %s\n", network)
	fmt.Fprintf(s.out, "State:   %s\n", s.cl.orch.Status())
	if form.Name != "" {
		mode := "mint"
		if form.EditingExistingName {
			mode = "edit"
		}
		fmt.Fprintf(s.out, "Form:    %s%s record=%q (%s, %s %s)\n", form.Name, s.e.cfg.Contract.TLD, form.Record, mode,
			contracts.PriceLabel(form.Name), s.e.cfg.Network.NativeCurrency.Symbol)
	}
}

func (s *shell) history() {
	entries := s.cl.txlog.List()
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No transactions yet")
		return
	}
	for _, tx := range entries {
		fmt.Fprintf(s.out, "%s  %-9s %-10s %s%s  %s\n", tx.At.Format(time.TimeOnly), tx.Status, tx.Kind, tx.Name, s.e.cfg.Contract.TLD, tx.URL)
	}
}
