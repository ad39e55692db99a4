package gateway

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	goethclient "github.com/ethereum/go-ethereum/ethclient"
	"github.com/learner-ns/lns/internal/keys"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/learner-ns/lns/pkg/ethclient"
	"go.uber.org/zap"
)

const dialTimeout = 8 * time.Second

// Dialer opens an RPC client for a chain endpoint.
type Dialer func(ctx context.Context, rpcURL string) (ethclient.EthClient, error)

// DialRPC dials a JSON-RPC endpoint with go-ethereum's client.
func DialRPC(ctx context.Context, rpcURL string) (ethclient.EthClient, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := goethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Chain is an RPC endpoint the wallet knows about.
type Chain struct {
	ID     int64
	RPCURL string
}

type Options struct {
	Keyfile string
	// Chains the wallet knows at start. The first one is selected.
	Chains   []Chain
	Dialer   Dialer
	Approver Approver
}

// KeyfileWallet is a Gateway backed by a local key file. It plays the part a
// browser wallet extension plays for a web client: it holds the key, keeps a
// list of chains it can reach, and asks the user before acting.
type KeyfileWallet struct {
	keyfile string
	dial    Dialer
	approve Approver
	logger  *zap.Logger

	mu        sync.Mutex
	chains    map[int64]string
	clients   map[int64]ethclient.EthClient
	chainID   int64
	key       *ecdsa.PrivateKey
	account   common.Address
	connected bool

	subMu   sync.Mutex
	subs    map[uint64]func(int64)
	nextSub uint64
}

var _ Gateway = (*KeyfileWallet)(nil)

func NewKeyfileWallet(opts Options, logger *zap.Logger) (*KeyfileWallet, error) {
	if len(opts.Chains) == 0 {
		return nil, fmt.Errorf("wallet needs at least one chain")
	}
	if opts.Dialer == nil {
		opts.Dialer = DialRPC
	}
	if opts.Approver == nil {
		opts.Approver = AutoApprove
	}

	chains := make(map[int64]string, len(opts.Chains))
	for _, c := range opts.Chains {
		chains[c.ID] = c.RPCURL
	}

	return &KeyfileWallet{
		keyfile: opts.Keyfile,
		dial:    opts.Dialer,
		approve: opts.Approver,
		logger:  logger.Named("wallet"),
		chains:  chains,
		clients: make(map[int64]ethclient.EthClient),
		chainID: opts.Chains[0].ID,
		subs:    make(map[uint64]func(int64)),
	}, nil
}

func (w *KeyfileWallet) Connect(ctx context.Context) (string, error) {
	if !keys.Exists(w.keyfile) {
		return "", fmt.Errorf("%w at %s", ErrNoWallet, w.keyfile)
	}

	w.mu.Lock()
	if w.connected {
		account := w.account.Hex()
		w.mu.Unlock()
		return account, nil
	}
	w.mu.Unlock()

	key, address, err := keys.LoadPrivateKey(w.keyfile)
	if err != nil {
		return "", fmt.Errorf("failed to open wallet: %w", err)
	}

	if !w.approve(ctx, Prompt{Kind: PromptConnect, Account: address.Hex()}) {
		w.logger.Info("Connection request rejected", zap.String("account", address.Hex()))
		return "", ErrConnectionRejected
	}

	w.mu.Lock()
	w.key = key
	w.account = address
	w.connected = true
	w.mu.Unlock()

	w.logger.Info("Wallet connected", zap.String("account", address.Hex()))
	return address.Hex(), nil
}

func (w *KeyfileWallet) CurrentAccounts(_ context.Context) ([]string, error) {
	if !keys.Exists(w.keyfile) {
		return nil, fmt.Errorf("%w at %s", ErrNoWallet, w.keyfile)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return []string{}, nil
	}
	return []string{w.account.Hex()}, nil
}

func (w *KeyfileWallet) CurrentChainID(_ context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID, nil
}

func (w *KeyfileWallet) SwitchChain(ctx context.Context, chainID int64) error {
	w.mu.Lock()
	current := w.chainID
	_, known := w.chains[chainID]
	w.mu.Unlock()

	if chainID == current {
		return nil
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrChainUnknown, networks.Descriptor{ChainID: chainID}.HexChainID())
	}
	if !w.approve(ctx, Prompt{Kind: PromptSwitchChain, ChainID: chainID}) {
		return ErrRequestRejected
	}

	w.selectChain(chainID)
	return nil
}

func (w *KeyfileWallet) AddAndSwitchChain(ctx context.Context, chain networks.Descriptor) error {
	if err := chain.Validate(); err != nil {
		return err
	}
	if !w.approve(ctx, Prompt{Kind: PromptAddChain, ChainID: chain.ChainID, Chain: &chain}) {
		return ErrRequestRejected
	}

	w.mu.Lock()
	if _, known := w.chains[chain.ChainID]; !known {
		w.chains[chain.ChainID] = chain.RPCURL
	}
	w.mu.Unlock()
	w.logger.Info("Chain added", zap.Int64("chainID", chain.ChainID), zap.String("name", chain.Name))

	w.selectChain(chain.ChainID)
	return nil
}

// selectChain makes chainID current and notifies subscribers outside the locks.
func (w *KeyfileWallet) selectChain(chainID int64) {
	w.mu.Lock()
	changed := w.chainID != chainID
	w.chainID = chainID
	w.mu.Unlock()
	if !changed {
		return
	}

	w.logger.Info("Chain changed", zap.Int64("chainID", chainID), zap.String("network", networks.Label(chainID)))

	w.subMu.Lock()
	subs := make([]func(int64), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.subMu.Unlock()

	for _, fn := range subs {
		fn(chainID)
	}
}

func (w *KeyfileWallet) OnChainChanged(fn func(chainID int64)) func() {
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.subMu.Lock()
			delete(w.subs, id)
			w.subMu.Unlock()
		})
	}
}

func (w *KeyfileWallet) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	client, err := w.currentClient(ctx)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{To: &to, Data: data}
	w.mu.Lock()
	if w.connected {
		msg.From = w.account
	}
	w.mu.Unlock()

	return client.CallContract(ctx, msg, nil)
}

func (w *KeyfileWallet) SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	w.mu.Lock()
	connected, key, from, chainID := w.connected, w.key, w.account, w.chainID
	w.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}
	if value == nil {
		value = new(big.Int)
	}

	client, err := w.clientFor(ctx, chainID)
	if err != nil {
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	if !w.approve(ctx, Prompt{Kind: PromptTransaction, To: to, Value: value, Gas: gas}) {
		return nil, ErrTransactionRejected
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(chainID)), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	w.logger.Debug("Transaction sent", zap.Stringer("hash", signed.Hash()), zap.Uint64("nonce", nonce))
	return signed, nil
}

// WaitMined blocks until tx is included, on the chain it was signed for.
func (w *KeyfileWallet) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	client, err := w.clientFor(ctx, tx.ChainId().Int64())
	if err != nil {
		return nil, err
	}
	return bind.WaitMined(ctx, client, tx)
}

// Close releases all RPC connections.
func (w *KeyfileWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, client := range w.clients {
		client.Close()
		delete(w.clients, id)
	}
}

func (w *KeyfileWallet) currentClient(ctx context.Context) (ethclient.EthClient, error) {
	w.mu.Lock()
	chainID := w.chainID
	w.mu.Unlock()
	return w.clientFor(ctx, chainID)
}

func (w *KeyfileWallet) clientFor(ctx context.Context, chainID int64) (ethclient.EthClient, error) {
	w.mu.Lock()
	if client, ok := w.clients[chainID]; ok {
		w.mu.Unlock()
		return client, nil
	}
	rpcURL, known := w.chains[chainID]
	w.mu.Unlock()
	if !known {
		return nil, fmt.Errorf("%w: %d", ErrChainUnknown, chainID)
	}

	client, err := w.dial(ctx, rpcURL)
	if err != nil {
		w.logger.Error("Failed to dial RPC", zap.String("rpcURL", rpcURL), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}
	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to query chain id from %s: %w", rpcURL, err)
	}
	if remote.Int64() != chainID {
		client.Close()
		return nil, fmt.Errorf("rpc %s serves chain %s, expected %d", rpcURL, remote, chainID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.clients[chainID]; ok {
		client.Close()
		return existing, nil
	}
	w.clients[chainID] = client
	return client, nil
}
