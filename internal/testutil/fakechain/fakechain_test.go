package fakechain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/learner-ns/lns/internal/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contract = common.HexToAddress("0x8405653C638acd1DBED603FC39d2EAdCB75d208B")

func signed(t *testing.T, c *Chain, nonce uint64, value *big.Int, method string, args ...interface{}) *types.Transaction {
	t.Helper()
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	data, err := c.abi.Pack(method, args...)
	require.NoError(t, err)
	tx := types.NewTx(&types.LegacyTx{Nonce: nonce, To: &contract, Value: value, Gas: gasLimit, GasPrice: big.NewInt(1), Data: data})
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	require.NoError(t, err)
	return signedTx
}

func TestChain_RegisterAndRead(t *testing.T) {
	ctx := context.Background()
	c := New(80001, contract)

	cheap := signed(t, c, 0, big.NewInt(1), "register", "alice")
	require.NoError(t, c.SendTransaction(ctx, cheap))
	receipt, err := c.TransactionReceipt(ctx, cheap.Hash())
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	paid := signed(t, c, 1, contracts.Price("alice"), "register", "alice")
	require.NoError(t, c.SendTransaction(ctx, paid))
	receipt, err = c.TransactionReceipt(ctx, paid.Hash())
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	sender, err := types.Sender(types.LatestSignerForChainID(c.chainID), paid)
	require.NoError(t, err)
	assert.Equal(t, sender, c.Owner("alice"))

	data, err := c.abi.Pack("getAllNames")
	require.NoError(t, err)
	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	require.NoError(t, err)
	var names []string
	require.NoError(t, c.abi.UnpackIntoInterface(&names, "getAllNames", out))
	assert.Equal(t, []string{"alice"}, names)

	_, err = c.EstimateGas(ctx, ethereum.CallMsg{From: common.Address{1}, To: &contract, Data: mustPack(t, c, "setRecord", "alice", "x")})
	assert.ErrorIs(t, err, errReverted)

	_, err = c.TransactionReceipt(ctx, common.Hash{})
	assert.ErrorIs(t, err, ethereum.NotFound)
	assert.Equal(t, []string{"register", "register"}, c.Sent())
}

func TestChain_NonceAndKnobs(t *testing.T) {
	ctx := context.Background()
	c := New(80001, contract)

	tx := signed(t, c, 5, contracts.Price("bob"), "register", "bob")
	assert.Error(t, c.SendTransaction(ctx, tx))

	c.RevertNext("register")
	tx = signed(t, c, 0, contracts.Price("bob"), "register", "bob")
	require.NoError(t, c.SendTransaction(ctx, tx))
	receipt, err := c.TransactionReceipt(ctx, tx.Hash())
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Equal(t, common.Address{}, c.Owner("bob"))
}

func mustPack(t *testing.T, c *Chain, method string, args ...interface{}) []byte {
	t.Helper()
	data, err := c.abi.Pack(method, args...)
	require.NoError(t, err)
	return data
}
