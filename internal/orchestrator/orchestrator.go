package orchestrator

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/learner-ns/lns/internal/contracts"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/learner-ns/lns/internal/registry"
	"github.com/learner-ns/lns/internal/session"
	"github.com/learner-ns/lns/internal/txlog"
	"go.uber.org/zap"
)

// ChainSwitcher is the part of the wallet used by the network switch flow.
type ChainSwitcher interface {
	SwitchChain(ctx context.Context, chainID int64) error
	AddAndSwitchChain(ctx context.Context, chain networks.Descriptor) error
}

type Session interface {
	Connect(ctx context.Context) (string, error)
	Snapshot() session.Snapshot
	OnReload(fn func(session.Snapshot)) (dispose func())
}

type Contract interface {
	Address() common.Address
	Register(ctx context.Context, name string, value *big.Int) (*contracts.PendingTx, error)
	SetRecord(ctx context.Context, name, record string) (*contracts.PendingTx, error)
}

type Registry interface {
	Refresh(ctx context.Context) ([]registry.Entry, error)
	Lookup(name string) (registry.Entry, bool)
}

type Config struct {
	// Network is the only network writes are allowed on.
	Network        networks.Descriptor
	MarketplaceURL string
	// RefreshDelay is how long to wait after a confirmed write before
	// re-reading the registry.
	RefreshDelay time.Duration
	// ConfirmTimeout bounds each confirmation wait. Zero waits until the
	// context is cancelled.
	ConfirmTimeout time.Duration
}

type Deps struct {
	Gateway  ChainSwitcher
	Session  Session
	Contract Contract
	Registry Registry
	TxLog    *txlog.Log
	Notifier Notifier
}

// Orchestrator drives wallet connection, the network gate, the two step
// register/setRecord mint and record edits.
type Orchestrator struct {
	cfg      Config
	gw       ChainSwitcher
	session  Session
	contract Contract
	registry Registry
	txlog    *txlog.Log
	notifier Notifier
	logger   *zap.Logger

	after func(time.Duration) <-chan time.Time
	busy  atomic.Bool

	mu     sync.Mutex
	status Status
	form   Form
	// recordRetry is set after a partial mint. The record-only retry that
	// follows sends the typed record even when it is empty.
	recordRetry bool
	ctx         context.Context
	dispose     func()
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Orchestrator {
	logger = logger.Named("orchestrator")
	notifier := deps.Notifier
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}
	log := deps.TxLog
	if log == nil {
		log = txlog.New(0)
	}
	return &Orchestrator{
		cfg:      cfg,
		gw:       deps.Gateway,
		session:  deps.Session,
		contract: deps.Contract,
		registry: deps.Registry,
		txlog:    log,
		notifier: notifier,
		logger:   logger,
		after:    time.After,
	}
}

// Init refreshes the registry whenever the session reloads on the supported
// network, and once now if it already is.
func (o *Orchestrator) Init(ctx context.Context) {
	o.mu.Lock()
	if o.dispose != nil {
		o.mu.Unlock()
		return
	}
	o.ctx = ctx
	o.dispose = o.session.OnReload(o.sessionReloaded)
	o.mu.Unlock()

	if o.supported(o.session.Snapshot()) {
		o.refresh(ctx)
	}
}

func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dispose != nil {
		o.dispose()
		o.dispose = nil
	}
}

func (o *Orchestrator) sessionReloaded(snap session.Snapshot) {
	o.mu.Lock()
	ctx := o.ctx
	o.mu.Unlock()
	if ctx == nil || ctx.Err() != nil || !o.supported(snap) {
		return
	}
	o.refresh(ctx)
}

func (o *Orchestrator) supported(snap session.Snapshot) bool {
	return snap.ChainID == o.cfg.Network.ChainID
}

// refresh re-reads the registry. A failure keeps the old snapshot and is
// reported as a notice.
func (o *Orchestrator) refresh(ctx context.Context) bool {
	if _, err := o.registry.Refresh(ctx); err != nil {
		o.notify(Notice{
			Level:   LevelWarn,
			Reason:  ReasonReadFailure,
			Message: "Could not load registered names, showing the last known list",
		})
		return false
	}
	return true
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) Form() Form {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.form
}

// MintAvailable reports whether the mint form can be used: an account is
// connected and the wallet is on the supported network.
func (o *Orchestrator) MintAvailable() bool {
	snap := o.session.Snapshot()
	return snap.IsConnected() && o.supported(snap)
}

// CanEdit reports whether the connected account owns entry.
func (o *Orchestrator) CanEdit(entry registry.Entry) bool {
	return entry.OwnedBy(o.session.Snapshot().Account)
}

// Busy reports whether a mint or record update is outstanding.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

func (o *Orchestrator) SetName(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.form.EditingExistingName && name != o.form.Name {
		return ErrNameLocked
	}
	o.form.Name = name
	return nil
}

func (o *Orchestrator) SetRecord(record string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form.Record = record
}

func (o *Orchestrator) setStatus(state State, reason Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = Status{State: state, Reason: reason}
}

func (o *Orchestrator) notify(n Notice) {
	o.notifier.Notify(n)
}

func (o *Orchestrator) txURL(hash common.Hash) string {
	return networks.TxURL(o.cfg.Network.ExplorerURL, hash.Hex())
}
