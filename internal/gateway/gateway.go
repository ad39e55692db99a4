package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learner-ns/lns/internal/networks"
)

var (
	// ErrNoWallet means there is no wallet to connect to. Nothing short of
	// creating one (lns account new) fixes it.
	ErrNoWallet = errors.New("no wallet found")
	// ErrConnectionRejected means the user declined to connect the account.
	ErrConnectionRejected = errors.New("user rejected the connection request")
	// ErrRequestRejected means the user declined a chain switch or add request.
	ErrRequestRejected = errors.New("user rejected the request")
	// ErrChainUnknown means the wallet has no RPC endpoint for the requested
	// chain. Wallets report this as error code 4902.
	ErrChainUnknown = errors.New("chain has not been added to the wallet")
	// ErrTransactionRejected means the user declined to sign a transaction.
	ErrTransactionRejected = errors.New("user rejected the transaction")
	// ErrNotConnected is returned by SendTransaction before Connect succeeded.
	ErrNotConnected = errors.New("wallet is not connected")
)

// Gateway is the wallet boundary: account access, chain selection, and the
// raw call/transaction primitives used by the contract client.
type Gateway interface {
	Connect(ctx context.Context) (string, error)
	CurrentAccounts(ctx context.Context) ([]string, error)
	CurrentChainID(ctx context.Context) (int64, error)
	SwitchChain(ctx context.Context, chainID int64) error
	AddAndSwitchChain(ctx context.Context, chain networks.Descriptor) error
	// OnChainChanged registers fn to be called once for every chain change.
	// The returned func unregisters it.
	OnChainChanged(fn func(chainID int64)) (dispose func())

	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type PromptKind int

const (
	PromptConnect PromptKind = iota
	PromptSwitchChain
	PromptAddChain
	PromptTransaction
)

// Prompt describes a request that needs the user's consent.
type Prompt struct {
	Kind    PromptKind
	Account string
	ChainID int64
	Chain   *networks.Descriptor
	To      common.Address
	Value   *big.Int
	Gas     uint64
}

func (p Prompt) String() string {
	switch p.Kind {
	case PromptConnect:
		return fmt.Sprintf("Connect account %s?", p.Account)
	case PromptSwitchChain:
		label := networks.Label(p.ChainID)
		if label == "" {
			label = fmt.Sprintf("chain %d", p.ChainID)
		}
		return fmt.Sprintf("Switch wallet network to %s?", label)
	case PromptAddChain:
		return fmt.Sprintf("Add network %s (%s, %s) to the wallet?", p.Chain.Name, p.Chain.HexChainID(), p.Chain.RPCURL)
	case PromptTransaction:
		return fmt.Sprintf("Send transaction to %s with value %s wei (gas %d)?", p.To.Hex(), p.Value, p.Gas)
	default:
		return "Approve request?"
	}
}

// Approver asks the user to confirm a prompt.
type Approver func(ctx context.Context, p Prompt) bool

// AutoApprove approves everything. Used for non-interactive commands run with --yes.
func AutoApprove(context.Context, Prompt) bool { return true }
