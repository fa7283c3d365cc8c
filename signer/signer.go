// Package signer defines the chain capability boundary the facilitator
// depends on. The pipeline and schemes never talk to a blockchain
// client directly; they go through this interface, bound to a single
// controlling account for the lifetime of the process.
package signer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ContractCall identifies one contract function invocation.
type ContractCall struct {
	Address common.Address
	ABI     abi.ABI
	Method  string
	Args    []interface{}
}

// Receipt is the confirmation of a mined transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber *big.Int
	// Status is 1 for a successful execution, 0 for a revert.
	Status  uint64
	GasUsed uint64
}

// Signer is the capability set the facilitator needs from a chain
// client. Implementations perform no retries; retry policy belongs to
// the underlying client.
type Signer interface {
	// Address returns the controlling account transactions are sent from.
	Address() common.Address

	// GetCode returns the deployed bytecode at an address, empty for
	// externally owned accounts. Used to route smart-account signature
	// verification.
	GetCode(ctx context.Context, address common.Address) ([]byte, error)

	// ReadContract performs a stateless contract call and returns the
	// unpacked outputs.
	ReadContract(ctx context.Context, call ContractCall) ([]interface{}, error)

	// WriteContract submits a state-changing contract call signed by
	// the controlling account and returns the transaction hash.
	WriteContract(ctx context.Context, call ContractCall) (common.Hash, error)

	// VerifyTypedData checks an EIP-712 signature against an address,
	// supporting plain keys, deployed contract accounts (ERC-1271) and
	// not-yet-deployed smart accounts (EIP-6492).
	VerifyTypedData(ctx context.Context, address common.Address, data apitypes.TypedData, signature []byte) (bool, error)

	// SendTransaction submits a raw transaction to the given address.
	SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error)

	// WaitForTransactionReceipt blocks until the transaction is mined
	// or the context is cancelled.
	WaitForTransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// ChainError wraps any failure of the underlying chain client so
// callers can distinguish infrastructure faults from payment verdicts.
type ChainError struct {
	Op  string
	Err error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain: %s: %v", e.Op, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

func chainErr(op string, err error) error {
	return &ChainError{Op: op, Err: err}
}
