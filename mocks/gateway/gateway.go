package mocks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/learner-ns/lns/internal/networks"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a testify mock of gateway.Gateway.
type MockGateway struct {
	mock.Mock
}

// NewMockGateway creates a mock that asserts its expectations when the test ends.
func NewMockGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGateway {
	m := &MockGateway{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGateway) Connect(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CurrentAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]string)
	return accounts, args.Error(1)
}

func (m *MockGateway) CurrentChainID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGateway) SwitchChain(ctx context.Context, chainID int64) error {
	return m.Called(ctx, chainID).Error(0)
}

func (m *MockGateway) AddAndSwitchChain(ctx context.Context, chain networks.Descriptor) error {
	return m.Called(ctx, chain).Error(0)
}

func (m *MockGateway) OnChainChanged(fn func(chainID int64)) func() {
	args := m.Called(fn)
	if dispose, ok := args.Get(0).(func()); ok {
		return dispose
	}
	return func() {}
}

func (m *MockGateway) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	args := m.Called(ctx, to, data)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (m *MockGateway) SendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	args := m.Called(ctx, to, value, data)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Error(1)
}

func (m *MockGateway) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	args := m.Called(ctx, tx)
	receipt, _ := args.Get(0).(*types.Receipt)
	return receipt, args.Error(1)
}
