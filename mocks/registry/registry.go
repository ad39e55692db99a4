package mocks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockReader is a testify mock of registry.Reader.
type MockReader struct {
	mock.Mock
}

// NewMockReader creates a mock that asserts its expectations when the test ends.
func NewMockReader(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReader {
	m := &MockReader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockReader) GetAllNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockReader) GetRecord(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockReader) GetOwner(ctx context.Context, name string) (common.Address, error) {
	args := m.Called(ctx, name)
	owner, _ := args.Get(0).(common.Address)
	return owner, args.Error(1)
}
