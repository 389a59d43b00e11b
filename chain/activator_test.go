package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

var testContract = common.HexToAddress("0xB3eFE5105b835E5Dd9D206445Dbd66DF24b912AB")

// fakeContract signs a legacy transaction to the contract, the way
// bind.BoundContract would after estimating gas.
type fakeContract struct {
	err    error
	calls  int
	method string
	from   common.Address
}

func (f *fakeContract) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	f.calls++
	f.method = method
	f.from = opts.From
	if f.err != nil {
		return nil, f.err
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    uint64(f.calls),
		To:       &testContract,
		Gas:      50000,
		GasPrice: big.NewInt(1),
		Data:     crypto.Keccak256([]byte("active()"))[:4],
	})
	return opts.Signer(opts.From, tx)
}

type fakeBackend struct {
	chainID      *big.Int
	chainIDCalls int
	status       uint64
	pending      bool
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	f.chainIDCalls++
	return f.chainID, nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.pending {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.status, TxHash: hash}, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x00}, nil
}

func TestActivate(t *testing.T) {
	contract := &fakeContract{}
	backend := &fakeBackend{chainID: big.NewInt(1125), status: types.ReceiptStatusSuccessful}
	a := newActivator(testContract, contract, backend, time.Second)

	hash, err := a.Activate(context.Background(), testKey)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
	assert.Equal(t, "active", contract.method)
	assert.Equal(t, common.HexToAddress(testAddress), contract.from)
}

func TestActivateCachesChainID(t *testing.T) {
	contract := &fakeContract{}
	backend := &fakeBackend{chainID: big.NewInt(1125), status: types.ReceiptStatusSuccessful}
	a := newActivator(testContract, contract, backend, time.Second)

	first, err := a.Activate(context.Background(), testKey)
	require.NoError(t, err)
	second, err := a.Activate(context.Background(), testKey)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, backend.chainIDCalls)
}

func TestActivateSendFailure(t *testing.T) {
	contract := &fakeContract{err: errors.New("insufficient funds for gas * price + value")}
	backend := &fakeBackend{chainID: big.NewInt(1125)}
	a := newActivator(testContract, contract, backend, time.Second)

	hash, err := a.Activate(context.Background(), testKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Equal(t, common.Hash{}, hash)
	assert.Equal(t, 1, contract.calls, "activation must not be retried")
}

func TestActivateReverted(t *testing.T) {
	contract := &fakeContract{}
	backend := &fakeBackend{chainID: big.NewInt(1125), status: types.ReceiptStatusFailed}
	a := newActivator(testContract, contract, backend, time.Second)

	_, err := a.Activate(context.Background(), testKey)
	require.ErrorIs(t, err, ErrReverted)
}

func TestActivateConfirmTimeout(t *testing.T) {
	contract := &fakeContract{}
	backend := &fakeBackend{chainID: big.NewInt(1125), pending: true}
	a := newActivator(testContract, contract, backend, 50*time.Millisecond)

	_, err := a.Activate(context.Background(), testKey)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestActivateInvalidKey(t *testing.T) {
	contract := &fakeContract{}
	backend := &fakeBackend{chainID: big.NewInt(1125)}
	a := newActivator(testContract, contract, backend, time.Second)

	_, err := a.Activate(context.Background(), "not-a-key")
	require.Error(t, err)
	assert.Zero(t, contract.calls)
}

func TestActiveABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(activeABI))
	require.NoError(t, err)

	method, ok := parsed.Methods["active"]
	require.True(t, ok)
	assert.Empty(t, method.Inputs)
	assert.False(t, method.IsConstant())

	packed, err := parsed.Pack("active")
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256([]byte("active()"))[:4], packed)
}
