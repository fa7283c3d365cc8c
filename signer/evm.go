package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/openpay-labs/x402-facilitator/types"
)

var _ Signer = (*EVMSigner)(nil)

// EVMSigner implements the Signer capability set against a JSON-RPC
// endpoint, bound to one controlling private key.
type EVMSigner struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
	network types.Network

	receiptPollInterval time.Duration
}

// NewEVMSigner dials the RPC endpoint and binds the controlling key.
func NewEVMSigner(network types.Network, rpcURL, hexKey string) (*EVMSigner, error) {
	if !network.IsEVM() {
		return nil, fmt.Errorf("network %s is not an EVM network", network)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to EVM RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid controlling key: %w", err)
	}

	return &EVMSigner{
		client:              client,
		key:                 key,
		address:             crypto.PubkeyToAddress(key.PublicKey),
		network:             network,
		receiptPollInterval: 500 * time.Millisecond,
	}, nil
}

func (s *EVMSigner) Address() common.Address {
	return s.address
}

// Network returns the CAIP-2 identifier the signer is bound to.
func (s *EVMSigner) Network() types.Network {
	return s.network
}

func (s *EVMSigner) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	code, err := s.client.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, chainErr("getCode", err)
	}
	return code, nil
}

func (s *EVMSigner) ReadContract(ctx context.Context, call ContractCall) ([]interface{}, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, chainErr("readContract: pack "+call.Method, err)
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &call.Address,
		Data: data,
	}, nil)
	if err != nil {
		return nil, chainErr("readContract: call "+call.Method, err)
	}

	values, err := call.ABI.Unpack(call.Method, out)
	if err != nil {
		return nil, chainErr("readContract: unpack "+call.Method, err)
	}
	return values, nil
}

func (s *EVMSigner) WriteContract(ctx context.Context, call ContractCall) (common.Hash, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return common.Hash{}, chainErr("writeContract: pack "+call.Method, err)
	}
	return s.SendTransaction(ctx, call.Address, data)
}

func (s *EVMSigner) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	chainID, err := s.network.ChainID()
	if err != nil {
		return common.Hash{}, chainErr("sendTransaction", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, chainErr("sendTransaction: nonce", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, chainErr("sendTransaction: gas price", err)
	}

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, chainErr("sendTransaction: estimate gas", err)
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return common.Hash{}, chainErr("sendTransaction: sign", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, chainErr("sendTransaction: send", err)
	}

	return signed.Hash(), nil
}

func (s *EVMSigner) WaitForTransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(s.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return &Receipt{
				TxHash:      receipt.TxHash,
				BlockNumber: receipt.BlockNumber,
				Status:      receipt.Status,
				GasUsed:     receipt.GasUsed,
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, chainErr("waitForTransactionReceipt", err)
		}

		select {
		case <-ctx.Done():
			return nil, chainErr("waitForTransactionReceipt", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *EVMSigner) VerifyTypedData(ctx context.Context, address common.Address, data apitypes.TypedData, signature []byte) (bool, error) {
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return false, chainErr("verifyTypedData: hash", err)
	}

	// EIP-6492 wrapped signatures may belong to a smart account that is
	// not deployed yet; unwrap before probing for code.
	inner, wrapped := Unwrap6492(signature)

	code, err := s.GetCode(ctx, address)
	if err != nil {
		return false, err
	}

	if len(code) > 0 {
		return s.verify1271(ctx, address, digest, inner)
	}

	if wrapped {
		// Undeployed smart account: validate the inner signature as a
		// plain key signature of the controlling signer. Full
		// counterfactual validation would need the wallet factory.
		return verifyECDSA(address, digest, inner), nil
	}

	return verifyECDSA(address, digest, signature), nil
}

func (s *EVMSigner) verify1271(ctx context.Context, address common.Address, digest, signature []byte) (bool, error) {
	var hash [32]byte
	copy(hash[:], digest)

	out, err := s.ReadContract(ctx, ContractCall{
		Address: address,
		ABI:     erc1271ABI,
		Method:  "isValidSignature",
		Args:    []interface{}{hash, signature},
	})
	if err != nil {
		// The wallet rejecting the signature surfaces as an execution
		// revert. Anything else, transport outages included, is a chain
		// fault the caller must see.
		if isExecutionRevert(err) {
			return false, nil
		}
		return false, err
	}

	magic, ok := out[0].([4]byte)
	if !ok {
		return false, nil
	}
	return magic == erc1271Magic, nil
}

// isExecutionRevert reports whether a call failure is the EVM reverting
// the execution, as opposed to a transport or node fault. Nodes attach
// the revert return data to the JSON-RPC error; geth additionally uses
// a fixed "execution reverted" message.
func isExecutionRevert(err error) bool {
	var de rpc.DataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func verifyECDSA(address common.Address, digest, signature []byte) bool {
	if len(signature) != 65 {
		return false
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	// Normalize v from 27/28 to 0/1 for go-ethereum recovery.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == address
}

// Close releases the underlying RPC connection.
func (s *EVMSigner) Close() {
	s.client.Close()
}
