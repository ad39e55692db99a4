package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learner-ns/lns/internal/contracts"
	"github.com/learner-ns/lns/internal/gateway"
	"github.com/learner-ns/lns/internal/metrics"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/learner-ns/lns/internal/txlog"
	"go.uber.org/zap"
)

const (
	flowConnect = "connect"
	flowSwitch  = "switch"
	flowMint    = "mint"
	flowEdit    = "edit"
)

// Connect asks the wallet for access to the account.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.setStatus(StateAwaitingWalletConnection, ReasonNone)

	account, err := o.session.Connect(ctx)
	if err != nil {
		reason := ReasonNoWallet
		message := fmt.Sprintf("Could not open the wallet: %v", err)
		outcome := metrics.OutcomeFailure
		switch {
		case errors.Is(err, gateway.ErrNoWallet):
			message = "No wallet found. Create one with `lns account new`"
		case errors.Is(err, gateway.ErrConnectionRejected):
			reason = ReasonConnectionRejected
			message = "Connection request was rejected"
			outcome = metrics.OutcomeRejected
		}
		o.logger.Warn("Connect failed", zap.String("reason", string(reason)), zap.Error(err))
		metrics.Flows.WithLabelValues(flowConnect, outcome).Inc()
		o.setStatus(StateFailed, reason)
		o.notify(Notice{Level: LevelError, Reason: reason, Message: message})
		return err
	}

	o.logger.Info("Connected", zap.String("account", account))
	metrics.Flows.WithLabelValues(flowConnect, metrics.OutcomeSuccess).Inc()
	o.setStatus(StateIdle, ReasonNone)
	o.notify(Notice{Level: LevelInfo, Message: "Connected " + networks.ShortenAddress(account)})
	return nil
}

// SwitchNetwork moves the wallet to the supported network, teaching the
// wallet the network first if it does not know it. It never retries on its
// own; the state returns to Idle either way.
func (o *Orchestrator) SwitchNetwork(ctx context.Context) error {
	o.setStatus(StateAwaitingNetworkSwitch, ReasonUnsupportedNetwork)
	target := o.cfg.Network

	err := o.gw.SwitchChain(ctx, target.ChainID)
	reason := ReasonSwitchFailed
	if errors.Is(err, gateway.ErrChainUnknown) {
		o.logger.Info("Network unknown to wallet, adding it", zap.String("network", target.Name))
		reason = ReasonChainUnknownToWallet
		if err = o.gw.AddAndSwitchChain(ctx, target); err == nil {
			reason = ReasonSwitchFailed
			err = o.gw.SwitchChain(ctx, target.ChainID)
		}
	}

	o.setStatus(StateIdle, ReasonNone)
	if err != nil {
		o.logger.Warn("Network switch failed", zap.String("reason", string(reason)), zap.Error(err))
		metrics.Flows.WithLabelValues(flowSwitch, outcomeOf(err)).Inc()
		o.notify(Notice{
			Level:   LevelError,
			Reason:  reason,
			Message: fmt.Sprintf("Could not switch to %s: %v", target.Name, err),
		})
		return err
	}

	metrics.Flows.WithLabelValues(flowSwitch, metrics.OutcomeSuccess).Inc()
	o.notify(Notice{Level: LevelInfo, Message: "Switched to " + target.Name})
	return nil
}

// Mint registers the form's name and then sets its record. While editing an
// existing name only the record is set. Concurrent calls return ErrBusy.
func (o *Orchestrator) Mint(ctx context.Context) error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.busy.Store(false)

	o.mu.Lock()
	form, retry := o.form, o.recordRetry
	o.mu.Unlock()
	if form.Name == "" {
		return ErrEmptyName
	}

	snap := o.session.Snapshot()
	if !o.supported(snap) {
		o.setStatus(StateAwaitingNetworkSwitch, ReasonUnsupportedNetwork)
		o.notify(Notice{
			Level:   LevelWarn,
			Reason:  ReasonUnsupportedNetwork,
			Message: "Please switch to " + o.cfg.Network.Name,
		})
		return ErrUnsupportedNetwork
	}
	if !snap.IsConnected() {
		o.notify(Notice{Level: LevelWarn, Message: "Connect your wallet first"})
		return ErrNotConnected
	}

	if form.EditingExistingName {
		return o.updateRecord(ctx, form, retry)
	}
	return o.mint(ctx, form)
}

func (o *Orchestrator) mint(ctx context.Context, form Form) error {
	price := contracts.Price(form.Name)
	o.setStatus(StateAwaitingRegisterConfirmation, ReasonNone)
	o.logger.Info("Minting name",
		zap.String("name", form.Name),
		zap.String("price", contracts.PriceLabel(form.Name)),
		zap.String("symbol", o.cfg.Network.NativeCurrency.Symbol))

	registerTx, err := o.transact(ctx, txlog.KindRegister, form.Name, func() (*contracts.PendingTx, error) {
		return o.contract.Register(ctx, form.Name, price)
	})
	if err != nil {
		metrics.Flows.WithLabelValues(flowMint, outcomeOf(err)).Inc()
		o.setStatus(StateFailed, ReasonRegisterFailed)
		o.notify(Notice{
			Level:   LevelError,
			Reason:  ReasonRegisterFailed,
			Message: fmt.Sprintf("Minting %s failed: %v", form.Name, err),
			TxURL:   o.pendingURL(registerTx),
		})
		return err
	}
	o.logger.Info("Domain minted!", zap.String("tx", o.txURL(registerTx.Hash())))

	o.setStatus(StateAwaitingSetRecordConfirmation, ReasonNone)
	recordTx, err := o.transact(ctx, txlog.KindSetRecord, form.Name, func() (*contracts.PendingTx, error) {
		return o.contract.SetRecord(ctx, form.Name, form.Record)
	})
	if err != nil {
		metrics.Flows.WithLabelValues(flowMint, metrics.OutcomePartial).Inc()
		o.mu.Lock()
		o.status = Status{State: StateFailed, Reason: ReasonPartialMint}
		o.form.EditingExistingName = true
		o.recordRetry = true
		o.mu.Unlock()
		o.notify(Notice{
			Level:   LevelError,
			Reason:  ReasonPartialMint,
			Message: fmt.Sprintf("%s is yours but its record was not set (%v). Mint again to set only the record", form.Name, err),
			TxURL:   o.pendingURL(recordTx),
		})
		return &PartialMintError{Name: form.Name, Err: err}
	}
	o.logger.Info("Record set!", zap.String("tx", o.txURL(recordTx.Hash())))

	assetURL := ""
	if o.finish(ctx) {
		if entry, ok := o.registry.Lookup(form.Name); ok {
			assetURL = networks.AssetURL(o.cfg.MarketplaceURL, o.contract.Address().Hex(), entry.ID)
		}
	}
	metrics.Flows.WithLabelValues(flowMint, metrics.OutcomeSuccess).Inc()
	o.notify(Notice{
		Level:    LevelSuccess,
		Message:  fmt.Sprintf("%s minted with record %q", form.Name, form.Record),
		TxURL:    o.txURL(registerTx.Hash()),
		AssetURL: assetURL,
	})
	return nil
}

// updateRecord sets the record of an existing name. An empty record is only
// sent when completing a partial mint.
func (o *Orchestrator) updateRecord(ctx context.Context, form Form, completingMint bool) error {
	if form.Record == "" && !completingMint {
		return ErrEmptyRecord
	}

	o.setStatus(StateAwaitingSetRecordConfirmation, ReasonNone)
	recordTx, err := o.transact(ctx, txlog.KindSetRecord, form.Name, func() (*contracts.PendingTx, error) {
		return o.contract.SetRecord(ctx, form.Name, form.Record)
	})
	if err != nil {
		metrics.Flows.WithLabelValues(flowEdit, outcomeOf(err)).Inc()
		o.setStatus(StateFailed, ReasonSetRecordFailed)
		o.notify(Notice{
			Level:   LevelError,
			Reason:  ReasonSetRecordFailed,
			Message: fmt.Sprintf("Setting the record of %s failed: %v", form.Name, err),
			TxURL:   o.pendingURL(recordTx),
		})
		return err
	}
	o.logger.Info("Record set!", zap.String("tx", o.txURL(recordTx.Hash())))

	o.finish(ctx)
	metrics.Flows.WithLabelValues(flowEdit, metrics.OutcomeSuccess).Inc()
	o.notify(Notice{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Record of %s set to %q", form.Name, form.Record),
		TxURL:   o.txURL(recordTx.Hash()),
	})
	return nil
}

// transact submits a transaction and waits for it to be mined. Submission
// errors, timeouts and reverts all come back as the error. The returned tx is
// nil only when nothing was submitted.
func (o *Orchestrator) transact(ctx context.Context, kind txlog.Kind, name string, submit func() (*contracts.PendingTx, error)) (*contracts.PendingTx, error) {
	pending, err := submit()
	if err != nil {
		metrics.Transactions.WithLabelValues(string(kind), outcomeOf(err)).Inc()
		o.logger.Warn("Transaction failed", zap.String("kind", string(kind)), zap.String("name", name), zap.Error(err))
		return nil, err
	}

	hash := pending.Hash().Hex()
	o.txlog.Submitted(hash, kind, name, o.txURL(pending.Hash()))

	waitCtx := ctx
	if o.cfg.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
		defer cancel()
	}

	var receipt *types.Receipt
	if receipt, err = pending.Wait(waitCtx); err != nil {
		o.txlog.Resolve(hash, txlog.StatusFailed)
		metrics.Transactions.WithLabelValues(string(kind), metrics.OutcomeFailure).Inc()
		o.logger.Warn("Transaction not confirmed", zap.String("kind", string(kind)), zap.String("hash", hash), zap.Error(err))
		return pending, err
	}

	o.txlog.Resolve(hash, txlog.StatusConfirmed)
	metrics.Transactions.WithLabelValues(string(kind), metrics.OutcomeSuccess).Inc()
	o.logger.Debug("Transaction confirmed", zap.String("hash", hash), zap.Stringer("block", receipt.BlockNumber))
	return pending, nil
}

// finish waits out the refresh delay, re-reads the registry and clears the
// form. It reports whether the registry was refreshed.
func (o *Orchestrator) finish(ctx context.Context) bool {
	o.setStatus(StateRefreshingRegistry, ReasonNone)

	refreshed := false
	select {
	case <-ctx.Done():
		o.logger.Warn("Registry refresh skipped", zap.Error(ctx.Err()))
	case <-o.after(o.cfg.RefreshDelay):
		refreshed = o.refresh(ctx)
	}

	o.mu.Lock()
	o.form = Form{}
	o.recordRetry = false
	o.status = Status{State: StateIdle}
	o.mu.Unlock()
	return refreshed
}

// EditRecord switches the form to updating the record of an owned name.
func (o *Orchestrator) EditRecord(name string) error {
	if o.busy.Load() {
		return ErrBusy
	}
	entry, ok := o.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	if !o.CanEdit(entry) {
		return fmt.Errorf("%w: %s", ErrNotOwner, name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.Name = name
	o.form.EditingExistingName = true
	o.recordRetry = false
	o.status = Status{State: StateEditing}
	return nil
}

// CancelEdit leaves edit mode. The typed values are kept.
func (o *Orchestrator) CancelEdit() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.EditingExistingName = false
	o.recordRetry = false
	if o.status.State == StateEditing {
		o.status = Status{State: StateIdle}
	}
}

func outcomeOf(err error) string {
	if errors.Is(err, gateway.ErrTransactionRejected) || errors.Is(err, gateway.ErrRequestRejected) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailure
}

func (o *Orchestrator) pendingURL(tx *contracts.PendingTx) string {
	if tx == nil {
		return ""
	}
	return o.txURL(tx.Hash())
}
