package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/learner-ns/lns/internal/contracts"
	"github.com/learner-ns/lns/internal/gateway"
	"github.com/learner-ns/lns/internal/keys"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/learner-ns/lns/internal/registry"
	"github.com/learner-ns/lns/internal/session"
	"github.com/learner-ns/lns/internal/testutil/fakechain"
	"github.com/learner-ns/lns/internal/txlog"
	"github.com/learner-ns/lns/pkg/ethclient"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

const (
	mainnetRPC  = "http://mainnet.local:8545"
	marketplace = "https://testnets.opensea.io/assets/mumbai"
)

var (
	contractAddress = common.HexToAddress("0x8405653C638acd1DBED603FC39d2EAdCB75d208B")
	stranger        = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func (r *recorder) withReason(reason Reason) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.Reason == reason {
			out = append(out, n)
		}
	}
	return out
}

// user answers wallet prompts. Kinds in reject are declined. When hold is
// set, transaction prompts block until it is closed.
type user struct {
	mu      sync.Mutex
	reject  map[gateway.PromptKind]bool
	hold    chan struct{}
	entered chan struct{}
}

func (u *user) approve(ctx context.Context, p gateway.Prompt) bool {
	u.mu.Lock()
	rejected := u.reject[p.Kind]
	hold, entered := u.hold, u.entered
	u.mu.Unlock()

	if p.Kind == gateway.PromptTransaction && hold != nil {
		entered <- struct{}{}
		select {
		case <-hold:
		case <-ctx.Done():
			return false
		}
	}
	return !rejected
}

func (u *user) set(kind gateway.PromptKind, reject bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reject[kind] = reject
}

type harnessOpts struct {
	noKey  bool
	chains []gateway.Chain
}

type harness struct {
	ctx     context.Context
	account common.Address
	mumbai  *fakechain.Chain
	mainnet *fakechain.Chain
	wallet  *gateway.KeyfileWallet
	session *session.Session
	cache   *registry.Cache
	txlog   *txlog.Log
	orch    *Orchestrator
	notices *recorder
	user    *user
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	keyfile := filepath.Join(t.TempDir(), "walletkey.json")
	var account common.Address
	if !opts.noKey {
		var err error
		account, err = keys.GenerateKeyFile(keyfile)
		require.NoError(t, err)
	}

	mumbai := fakechain.New(networks.Mumbai.ChainID, contractAddress)
	mainnet := fakechain.New(1, contractAddress)
	routes := map[string]*fakechain.Chain{
		networks.Mumbai.RPCURL: mumbai,
		mainnetRPC:             mainnet,
	}
	dialer := func(_ context.Context, rpcURL string) (ethclient.EthClient, error) {
		c, ok := routes[rpcURL]
		if !ok {
			return nil, errors.New("no route to " + rpcURL)
		}
		return c, nil
	}

	chains := opts.chains
	if chains == nil {
		chains = []gateway.Chain{
			{ID: networks.Mumbai.ChainID, RPCURL: networks.Mumbai.RPCURL},
			{ID: 1, RPCURL: mainnetRPC},
		}
	}

	u := &user{reject: make(map[gateway.PromptKind]bool)}
	rec := &recorder{}
	h := &harness{
		ctx:     ctx,
		account: account,
		mumbai:  mumbai,
		mainnet: mainnet,
		notices: rec,
		user:    u,
	}

	app := fxtest.New(t,
		fx.Supply(
			logger,
			gateway.Options{
				Keyfile:  keyfile,
				Chains:   chains,
				Dialer:   dialer,
				Approver: u.approve,
			},
			Config{
				Network:        networks.Mumbai,
				MarketplaceURL: marketplace,
			},
		),
		fx.Provide(
			gateway.NewKeyfileWallet,
			func(wallet *gateway.KeyfileWallet, logger *zap.Logger) (*contracts.Domains, error) {
				return contracts.NewDomains(wallet, contractAddress, logger)
			},
			func(domains *contracts.Domains, logger *zap.Logger) *registry.Cache {
				return registry.NewCache(domains, 4, 0, logger)
			},
			func() *txlog.Log {
				return txlog.New(time.Hour)
			},
			func(wallet *gateway.KeyfileWallet, logger *zap.Logger) *session.Session {
				return session.New(wallet, logger)
			},
			func(
				cfg Config,
				wallet *gateway.KeyfileWallet,
				sess *session.Session,
				domains *contracts.Domains,
				cache *registry.Cache,
				log *txlog.Log,
				logger *zap.Logger,
			) *Orchestrator {
				return New(cfg, Deps{
					Gateway:  wallet,
					Session:  sess,
					Contract: domains,
					Registry: cache,
					TxLog:    log,
					Notifier: rec,
				}, logger)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, wallet *gateway.KeyfileWallet, sess *session.Session, orch *Orchestrator) {
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
		fx.Populate(&h.wallet, &h.session, &h.cache, &h.txlog, &h.orch),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, h.orch.Connect(h.ctx))
}

func (h *harness) fill(t *testing.T, name, record string) {
	t.Helper()
	require.NoError(t, h.orch.SetName(name))
	h.orch.SetRecord(record)
}

// entries returns the snapshot entries named name after a fresh read.
func (h *harness) entries(t *testing.T, name string) []registry.Entry {
	t.Helper()
	snap, err := h.cache.Refresh(h.ctx)
	require.NoError(t, err)
	var out []registry.Entry
	for _, e := range snap {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
