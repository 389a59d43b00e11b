// Package chain confirms mining sessions on-chain by calling the mining
// contract's active() entry point from the wallet's own account.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"takerminer/logger"
	"takerminer/wallet"
)

// activeABI is the only contract surface used: function active() external.
const activeABI = `[{"inputs":[],"name":"active","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

const activeMethod = "active"

// ErrReverted is returned when the activation transaction was mined but
// failed.
var ErrReverted = errors.New("transaction reverted")

// transactor is satisfied by *bind.BoundContract.
type transactor interface {
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// Backend is the read side of the node the activator needs: receipts for
// confirmation and the chain id for signing.
type Backend interface {
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Activator submits active() for a wallet and waits for it to be mined.
// It is not safe for concurrent use; wallets are activated one at a time.
type Activator struct {
	contract       common.Address
	bound          transactor
	backend        Backend
	confirmTimeout time.Duration
	chainID        *big.Int
}

// Dial connects to the chain RPC endpoint. The returned client is meant to be
// shared for the life of the process.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return client, nil
}

// NewActivator binds the mining contract at address through client.
// confirmTimeout bounds the wait for each transaction receipt.
func NewActivator(client *ethclient.Client, address common.Address, confirmTimeout time.Duration) (*Activator, error) {
	parsed, err := abi.JSON(strings.NewReader(activeABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	bound := bind.NewBoundContract(address, parsed, client, client, client)
	return newActivator(address, bound, client, confirmTimeout), nil
}

func newActivator(address common.Address, bound transactor, backend Backend, confirmTimeout time.Duration) *Activator {
	return &Activator{
		contract:       address,
		bound:          bound,
		backend:        backend,
		confirmTimeout: confirmTimeout,
	}
}

// Activate calls active() signed by privateKey and waits for the receipt.
// It returns the hash of the confirmed transaction. Failures are logged and
// returned; nothing is retried.
func (a *Activator) Activate(ctx context.Context, privateKey string) (common.Hash, error) {
	hash, err := a.activate(ctx, privateKey)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to activate mining", "contract", a.contract.Hex(), "error", err)
		return common.Hash{}, err
	}
	logger.SuccessContext(ctx, "Mining activated successfully", "tx", hash.Hex())
	return hash, nil
}

func (a *Activator) activate(ctx context.Context, privateKey string) (common.Hash, error) {
	key, err := wallet.ParsePrivateKey(privateKey)
	if err != nil {
		return common.Hash{}, err
	}

	chainID, err := a.getChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx

	// Gas estimation fails here when the wallet has no balance or the
	// contract rejects a second activation.
	tx, err := a.bound.Transact(opts, activeMethod)
	if err != nil {
		return common.Hash{}, fmt.Errorf("send %s(): %w", activeMethod, err)
	}
	logger.DebugContext(ctx, "Activation transaction sent", "tx", tx.Hash().Hex(), "from", opts.From.Hex())

	waitCtx, cancel := context.WithTimeout(ctx, a.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, a.backend, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
	}
	return tx.Hash(), nil
}

func (a *Activator) getChainID(ctx context.Context) (*big.Int, error) {
	if a.chainID != nil {
		return a.chainID, nil
	}
	id, err := a.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	a.chainID = id
	return id, nil
}
