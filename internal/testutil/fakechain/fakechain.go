// Package fakechain is an in-memory chain that runs the name service contract.
// It satisfies ethclient.EthClient so wallet and contract code can be tested
// without a node.
package fakechain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learner-ns/lns/fixtures"
	"github.com/learner-ns/lns/internal/contracts"
	"github.com/learner-ns/lns/pkg/ethclient"
)

const gasLimit = 120_000

var errReverted = errors.New("execution reverted")

type Chain struct {
	chainID  *big.Int
	contract common.Address
	abi      abi.ABI

	mu       sync.Mutex
	names    []string
	owners   map[string]common.Address
	records  map[string]string
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	block    int64

	revertNext map[string]bool
	readErrs   map[string]error
	sent       []string
}

var _ ethclient.EthClient = (*Chain)(nil)

func New(chainID int64, contract common.Address) *Chain {
	parsed, err := abi.JSON(strings.NewReader(fixtures.DomainsABI))
	if err != nil {
		panic(err)
	}
	return &Chain{
		chainID:    big.NewInt(chainID),
		contract:   contract,
		abi:        parsed,
		owners:     make(map[string]common.Address),
		records:    make(map[string]string),
		nonces:     make(map[common.Address]uint64),
		receipts:   make(map[common.Hash]*types.Receipt),
		revertNext: make(map[string]bool),
		readErrs:   make(map[string]error),
	}
}

// Dial returns the chain itself. Its signature matches gateway.Dialer.
func (c *Chain) Dial(context.Context, string) (ethclient.EthClient, error) {
	return c, nil
}

// Seed appends names to the contract state as if they had been registered,
// duplicates included.
func (c *Chain) Seed(owner common.Address, record string, names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		c.names = append(c.names, name)
		c.owners[name] = owner
		c.records[name] = record
	}
}

// RevertNext makes the next transaction calling method be mined with a
// failure status.
func (c *Chain) RevertNext(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revertNext[method] = true
}

// FailReads makes calls to method return err until cleared with a nil err.
func (c *Chain) FailReads(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.readErrs, method)
		return
	}
	c.readErrs[method] = err
}

// Sent lists the methods of every transaction accepted so far.
func (c *Chain) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *Chain) Record(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[name]
	return r, ok
}

func (c *Chain) Owner(name string) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[name]
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method, args, err := c.decode(msg.To, msg.Data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readErrs[method.Name]; err != nil {
		return nil, err
	}

	switch method.Name {
	case "getAllNames":
		return method.Outputs.Pack(append([]string{}, c.names...))
	case "getRecord":
		return method.Outputs.Pack(c.records[args[0].(string)])
	case "getAddress":
		return method.Outputs.Pack(c.owners[args[0].(string)])
	case "price":
		return method.Outputs.Pack(contracts.Price(args[0].(string)))
	default:
		if err := c.check(method.Name, args, msg.From, msg.Value); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func (c *Chain) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	if account == c.contract {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *Chain) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	method, args, err := c.decode(msg.To, msg.Data)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(method.Name, args, msg.From, msg.Value); err != nil {
		return 0, err
	}
	return gasLimit, nil
}

func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	method, args, err := c.decode(tx.To(), tx.Data())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tx.Nonce() != c.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), c.nonces[from])
	}
	c.nonces[from]++
	c.block++
	c.sent = append(c.sent, method.Name)

	status := types.ReceiptStatusSuccessful
	if c.revertNext[method.Name] {
		delete(c.revertNext, method.Name)
		status = types.ReceiptStatusFailed
	} else if err := c.check(method.Name, args, from, tx.Value()); err != nil {
		status = types.ReceiptStatusFailed
	} else {
		c.apply(method.Name, args, from)
	}

	c.receipts[tx.Hash()] = &types.Receipt{
		Type:        tx.Type(),
		Status:      status,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: big.NewInt(c.block),
		Logs:        []*types.Log{},
	}
	return nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (c *Chain) Close() {}

func (c *Chain) decode(to *common.Address, data []byte) (*abi.Method, []interface{}, error) {
	if to == nil || *to != c.contract {
		return nil, nil, fmt.Errorf("no contract at %v", to)
	}
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: missing selector", errReverted)
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errReverted, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errReverted, err)
	}
	return method, args, nil
}

// check runs the contract's require statements. Callers hold c.mu.
func (c *Chain) check(method string, args []interface{}, from common.Address, value *big.Int) error {
	switch method {
	case "register":
		name := args[0].(string)
		if _, taken := c.owners[name]; taken {
			return fmt.Errorf("%w: name already registered", errReverted)
		}
		if value == nil || value.Cmp(contracts.Price(name)) < 0 {
			return fmt.Errorf("%w: not enough Matic paid", errReverted)
		}
	case "setRecord":
		name := args[0].(string)
		if owner, ok := c.owners[name]; !ok || owner != from {
			return fmt.Errorf("%w: not the owner", errReverted)
		}
	}
	return nil
}

func (c *Chain) apply(method string, args []interface{}, from common.Address) {
	switch method {
	case "register":
		name := args[0].(string)
		c.names = append(c.names, name)
		c.owners[name] = from
	case "setRecord":
		c.records[args[0].(string)] = args[1].(string)
	}
}
