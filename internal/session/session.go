package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/learner-ns/lns/internal/gateway"
	"github.com/learner-ns/lns/internal/networks"
	"go.uber.org/zap"
)

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	Account string
	ChainID int64
	// Network is the label of ChainID, empty for chains without one.
	Network string
}

func (s Snapshot) IsConnected() bool {
	return s.Account != ""
}

// Session tracks the current account and network as reported by the wallet.
// A chain change resets and reloads it.
type Session struct {
	gw     gateway.Gateway
	logger *zap.Logger

	mu      sync.RWMutex
	state   Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
	dispose func()

	listenerMu sync.Mutex
	listeners  map[uint64]func(Snapshot)
	nextID     uint64
}

func New(gw gateway.Gateway, logger *zap.Logger) *Session {
	return &Session{
		gw:        gw,
		logger:    logger.Named("session"),
		listeners: make(map[uint64]func(Snapshot)),
	}
}

// Init loads the current account and chain and subscribes to chain changes.
// A missing wallet is logged and leaves the session empty.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.dispose != nil {
		s.mu.Unlock()
		return fmt.Errorf("session already initialized")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.dispose = s.gw.OnChainChanged(s.chainChanged)
	s.mu.Unlock()

	err := s.load(ctx)
	if errors.Is(err, gateway.ErrNoWallet) {
		s.logger.Warn("No wallet found, create one with `lns account new`")
		return nil
	}
	return err
}

func (s *Session) chainChanged(chainID int64) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	s.logger.Info("Chain changed, reloading session", zap.Int64("chainID", chainID))
	if err := s.Reload(ctx); err != nil {
		s.logger.Error("Failed to reload session", zap.Error(err))
	}
}

// Connect asks the wallet for the account, then reloads.
func (s *Session) Connect(ctx context.Context) (string, error) {
	account, err := s.gw.Connect(ctx)
	if err != nil {
		return "", err
	}
	if err := s.load(ctx); err != nil {
		return "", err
	}
	return account, nil
}

// Reload clears the session and queries the wallet again.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.state = Snapshot{}
	s.mu.Unlock()
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	accounts, err := s.gw.CurrentAccounts(ctx)
	if err != nil {
		return err
	}
	chainID, err := s.gw.CurrentChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id: %w", err)
	}

	next := Snapshot{ChainID: chainID, Network: networks.Label(chainID)}
	if len(accounts) > 0 {
		next.Account = accounts[0]
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("Session loaded",
		zap.String("account", next.Account),
		zap.Int64("chainID", next.ChainID),
		zap.String("network", next.Network))
	s.notify(next)
	return nil
}

func (s *Session) notify(snap Snapshot) {
	s.listenerMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// OnReload registers fn to run after every load of the session.
func (s *Session) OnReload(fn func(Snapshot)) (dispose func()) {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Account() string { return s.Snapshot().Account }
func (s *Session) ChainID() int64 { return s.Snapshot().ChainID }
func (s *Session) Network() string { return s.Snapshot().Network }
func (s *Session) IsConnected() bool { return s.Snapshot().IsConnected() }

// Close unsubscribes from chain changes. The session can be initialized again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dispose != nil {
		s.dispose()
		s.dispose = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
}
