package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learner-ns/lns/fixtures"
	"go.uber.org/zap"
)

// ErrTransactionReverted is returned by PendingTx.Wait when the transaction
// was mined with a failure status.
var ErrTransactionReverted = errors.New("transaction reverted")

// Backend executes calls and transactions against the selected chain.
// gateway.Gateway satisfies it.
type Backend interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Domains is a client for the name service contract.
type Domains struct {
	backend         Backend
	contractAddress common.Address
	contractABI     abi.ABI
	logger          *zap.Logger
}

func NewDomains(backend Backend, contractAddress common.Address, logger *zap.Logger) (*Domains, error) {
	parsedABI, err := abi.JSON(strings.NewReader(fixtures.DomainsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Domains ABI: %w", err)
	}

	return &Domains{
		backend:         backend,
		contractAddress: contractAddress,
		contractABI:     parsedABI,
		logger:          logger.Named("domains"),
	}, nil
}

func (d *Domains) Address() common.Address {
	return d.contractAddress
}

func (d *Domains) call(ctx context.Context, out interface{}, methodName string, args ...interface{}) error {
	callData, err := d.contractABI.Pack(methodName, args...)
	if err != nil {
		d.logger.Error("Failed to pack call", zap.String("method", methodName), zap.Error(err))
		return fmt.Errorf("failed to pack data for %s: %w", methodName, err)
	}

	result, err := d.backend.Call(ctx, d.contractAddress, callData)
	if err != nil {
		d.logger.Error("Failed to call contract", zap.String("method", methodName), zap.String("contractAddress", d.contractAddress.Hex()), zap.Error(err))
		return fmt.Errorf("failed to call %s: %w", methodName, err)
	}

	if err := d.contractABI.UnpackIntoInterface(out, methodName, result); err != nil {
		d.logger.Error("Failed to unpack call result", zap.String("method", methodName), zap.Error(err))
		return fmt.Errorf("failed to unpack %s result: %w", methodName, err)
	}
	return nil
}

func (d *Domains) transact(ctx context.Context, value *big.Int, methodName string, args ...interface{}) (*PendingTx, error) {
	callData, err := d.contractABI.Pack(methodName, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack data for %s: %w", methodName, err)
	}

	tx, err := d.backend.SendTransaction(ctx, d.contractAddress, value, callData)
	if err != nil {
		d.logger.Warn("Transaction not submitted", zap.String("method", methodName), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", methodName, err)
	}

	d.logger.Info("Transaction submitted", zap.String("method", methodName), zap.Stringer("hash", tx.Hash()))
	return &PendingTx{Tx: tx, wait: d.backend.WaitMined}, nil
}

// GetAllNames returns every registered name in contract order. Duplicates are
// returned as the contract reports them.
func (d *Domains) GetAllNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := d.call(ctx, &names, "getAllNames"); err != nil {
		return nil, err
	}
	return names, nil
}

func (d *Domains) GetRecord(ctx context.Context, name string) (string, error) {
	var record string
	if err := d.call(ctx, &record, "getRecord", name); err != nil {
		return "", err
	}
	return record, nil
}

// GetOwner returns the address that owns name (contract method getAddress).
func (d *Domains) GetOwner(ctx context.Context, name string) (common.Address, error) {
	var owner common.Address
	if err := d.call(ctx, &owner, "getAddress", name); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

// Register submits a payable register(name) transaction carrying value wei.
func (d *Domains) Register(ctx context.Context, name string, value *big.Int) (*PendingTx, error) {
	return d.transact(ctx, value, "register", name)
}

func (d *Domains) SetRecord(ctx context.Context, name, record string) (*PendingTx, error) {
	return d.transact(ctx, nil, "setRecord", name, record)
}

// PendingTx is a submitted transaction awaiting confirmation.
type PendingTx struct {
	Tx   *types.Transaction
	wait func(context.Context, *types.Transaction) (*types.Receipt, error)
}

func (p *PendingTx) Hash() common.Hash {
	return p.Tx.Hash()
}

// Wait blocks until the transaction is mined. A receipt with a failure
// status yields ErrTransactionReverted.
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	receipt, err := p.wait(ctx, p.Tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", p.Tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, p.Tx.Hash().Hex())
	}
	return receipt, nil
}
