// Package exactevm implements the "exact" payment scheme on EVM
// networks: a fixed-amount EIP-3009 transferWithAuthorization signed by
// the payer and submitted onchain by the facilitator's controlling
// account.
package exactevm

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/openpay-labs/x402-facilitator/logger"
	"github.com/openpay-labs/x402-facilitator/scheme"
	"github.com/openpay-labs/x402-facilitator/signer"
	"github.com/openpay-labs/x402-facilitator/types"
)

// Invalid-payment reasons returned in VerifyResponse and abort reasons.
const (
	ReasonInvalidPayload      = "invalid_exact_evm_payload"
	ReasonSchemeMismatch      = "scheme_mismatch"
	ReasonNetworkMismatch     = "network_mismatch"
	ReasonInvalidSignature    = "invalid_signature"
	ReasonInvalidAmount       = "invalid_amount"
	ReasonInvalidReceiver     = "invalid_receiver"
	ReasonNotYetValid         = "authorization_not_yet_valid"
	ReasonExpired             = "authorization_expired"
	ReasonAuthorizationUsed   = "authorization_already_used"
	ReasonInsufficientFunds   = "insufficient_funds"
	ReasonTransactionReverted = "transaction_reverted"
)

// Canonical USDC EIP-712 domain, used when requirements.extra does not
// override it.
const (
	defaultDomainName    = "USD Coin"
	defaultDomainVersion = "2"
)

var _ scheme.Scheme = (*Exact)(nil)

// Exact verifies and settles exact-amount EIP-3009 payments on one EVM
// network through the signer capability boundary.
type Exact struct {
	signer  signer.Signer
	network types.Network
	log     logger.Logger

	// now is a clock hook for tests.
	now func() time.Time
}

func New(s signer.Signer, network types.Network, log logger.Logger) *Exact {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Exact{
		signer:  s,
		network: network,
		log:     log,
		now:     time.Now,
	}
}

func (e *Exact) Scheme() string {
	return "exact"
}

func (e *Exact) Network() string {
	return e.network.String()
}

// Verify checks the signed authorization against the requirements and
// current chain state without submitting anything.
func (e *Exact) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error) {
	p, reason, err := e.check(ctx, payload, requirements)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return &types.VerifyResponse{IsValid: false, InvalidReason: reason}, nil
	}
	return &types.VerifyResponse{IsValid: true, Payer: p.Authorization.From}, nil
}

// Settle re-checks the authorization and submits the transfer. A
// payment that no longer passes the checks aborts with a structured
// AbortError; chain faults propagate as infrastructure errors.
func (e *Exact) Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error) {
	p, reason, err := e.check(ctx, payload, requirements)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return nil, scheme.Abort(reason)
	}

	auth := p.Authorization
	value, _ := auth.value()
	validAfter, validBefore, _ := auth.window()
	nonce, _ := auth.nonce32()

	sig, err := decodeSignature(p.Signature)
	if err != nil {
		return nil, scheme.Abort(ReasonInvalidPayload)
	}
	// Smart-account signatures are not v,r,s decomposable; the token
	// contract only accepts plain-key authorizations on this path.
	inner, _ := signer.Unwrap6492(sig)
	v, r, s, err := splitSignature(inner)
	if err != nil {
		return nil, scheme.Abort(ReasonInvalidSignature)
	}

	txHash, err := e.signer.WriteContract(ctx, signer.ContractCall{
		Address: common.HexToAddress(requirements.Asset),
		ABI:     eip3009ABI,
		Method:  "transferWithAuthorization",
		Args: []interface{}{
			common.HexToAddress(auth.From),
			common.HexToAddress(auth.To),
			value,
			validAfter,
			validBefore,
			nonce,
			v, r, s,
		},
	})
	if err != nil {
		return nil, err
	}

	receipt, err := e.signer.WaitForTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}

	if receipt.Status == 0 {
		e.log.Warn("settlement transaction reverted", map[string]any{
			"txHash":  txHash.Hex(),
			"network": e.network.String(),
		})
		return &types.SettleResponse{
			Success:     false,
			ErrorReason: ReasonTransactionReverted,
			Network:     e.network.String(),
		}, nil
	}

	return &types.SettleResponse{
		Success:         true,
		TransactionHash: receipt.TxHash.Hex(),
		Network:         e.network.String(),
		Payer:           auth.From,
	}, nil
}

// check runs every verification step shared by Verify and Settle.
// It returns a non-empty reason for an invalid payment, or an error for
// an infrastructure fault.
func (e *Exact) check(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*Payload, string, error) {
	if payload.Scheme != e.Scheme() || requirements.Scheme != e.Scheme() {
		return nil, ReasonSchemeMismatch, nil
	}
	if payload.Network != e.Network() || requirements.Network != e.Network() {
		return nil, ReasonNetworkMismatch, nil
	}

	p, err := decodePayload(payload)
	if err != nil {
		return nil, ReasonInvalidPayload, nil
	}
	auth := p.Authorization

	value, err := auth.value()
	if err != nil {
		return nil, ReasonInvalidAmount, nil
	}

	required, ok := new(big.Int).SetString(requirements.MaxAmountRequired, 10)
	if !ok || value.Cmp(required) < 0 {
		return nil, ReasonInvalidAmount, nil
	}

	if !strings.EqualFold(auth.To, requirements.PayTo) {
		return nil, ReasonInvalidReceiver, nil
	}

	validAfter, validBefore, err := auth.window()
	if err != nil {
		return nil, ReasonInvalidPayload, nil
	}
	now := big.NewInt(e.now().Unix())
	if now.Cmp(validAfter) < 0 {
		return nil, ReasonNotYetValid, nil
	}
	// EIP-3009 requires block.timestamp strictly below validBefore, so
	// the boundary instant is already expired.
	if now.Cmp(validBefore) >= 0 {
		return nil, ReasonExpired, nil
	}

	nonce, err := auth.nonce32()
	if err != nil {
		return nil, ReasonInvalidPayload, nil
	}

	sig, err := decodeSignature(p.Signature)
	if err != nil {
		return nil, ReasonInvalidSignature, nil
	}

	td, err := e.typedData(auth, requirements)
	if err != nil {
		return nil, ReasonInvalidPayload, nil
	}
	valid, err := e.signer.VerifyTypedData(ctx, common.HexToAddress(auth.From), td, sig)
	if err != nil {
		return nil, "", err
	}
	if !valid {
		return nil, ReasonInvalidSignature, nil
	}

	used, err := e.authorizationUsed(ctx, requirements.Asset, auth.From, nonce)
	if err != nil {
		return nil, "", err
	}
	if used {
		return nil, ReasonAuthorizationUsed, nil
	}

	balance, err := e.balanceOf(ctx, requirements.Asset, auth.From)
	if err != nil {
		return nil, "", err
	}
	if balance.Cmp(value) < 0 {
		return nil, ReasonInsufficientFunds, nil
	}

	return p, "", nil
}

// typedData builds the EIP-712 envelope for TransferWithAuthorization.
// Domain name and version come from requirements.extra, defaulting to
// the canonical USDC domain.
func (e *Exact) typedData(auth Authorization, requirements *types.PaymentRequirements) (apitypes.TypedData, error) {
	chainID, err := e.network.ChainID()
	if err != nil {
		return apitypes.TypedData{}, err
	}

	name, version := defaultDomainName, defaultDomainVersion
	if v, ok := requirements.Extra["name"].(string); ok && v != "" {
		name = v
	}
	if v, ok := requirements.Extra["version"].(string); ok && v != "" {
		version = v
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: requirements.Asset,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From,
			"to":          auth.To,
			"value":       auth.Value,
			"validAfter":  auth.ValidAfter,
			"validBefore": auth.ValidBefore,
			"nonce":       auth.Nonce,
		},
	}, nil
}

func (e *Exact) authorizationUsed(ctx context.Context, asset, from string, nonce [32]byte) (bool, error) {
	out, err := e.signer.ReadContract(ctx, signer.ContractCall{
		Address: common.HexToAddress(asset),
		ABI:     eip3009ABI,
		Method:  "authorizationState",
		Args:    []interface{}{common.HexToAddress(from), nonce},
	})
	if err != nil {
		return false, err
	}
	used, _ := out[0].(bool)
	return used, nil
}

func (e *Exact) balanceOf(ctx context.Context, asset, account string) (*big.Int, error) {
	out, err := e.signer.ReadContract(ctx, signer.ContractCall{
		Address: common.HexToAddress(asset),
		ABI:     eip3009ABI,
		Method:  "balanceOf",
		Args:    []interface{}{common.HexToAddress(account)},
	})
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		balance = new(big.Int)
	}
	return balance, nil
}
