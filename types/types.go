// Package types defines the wire types exchanged between resource
// servers and the facilitator, following the x402 protocol shapes.
package types

import "fmt"

// ProtocolVersion is the x402 protocol version this facilitator speaks.
const ProtocolVersion = 1

// PaymentPayload is the client-supplied description of a claimed
// payment. Beyond the common envelope fields the payload body is
// scheme-specific and treated as opaque by the pipeline; schemes decode
// it themselves.
type PaymentPayload struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`

	// Payload carries the scheme-specific signed data, e.g. an
	// EIP-3009 authorization plus signature for the exact scheme.
	Payload map[string]interface{} `json:"payload"`
}

// PaymentRequirements declares the constraints a payment must satisfy,
// supplied by the resource server per request and never stored.
type PaymentRequirements struct {
	Scheme  string `json:"scheme"`
	Network string `json:"network"`

	// MaxAmountRequired is the amount in atomic units of the asset,
	// as a decimal string because uint256 does not fit a Go int.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Resource is the URL or path of the resource being paid for.
	Resource string `json:"resource"`

	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`

	// PayTo is the address the payment must be sent to.
	PayTo string `json:"payTo"`

	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty"`

	// Asset is the address of the payment token contract.
	Asset string `json:"asset"`

	// Extra carries scheme-specific details, e.g. the EIP-712 domain
	// name and version for the exact scheme on EVM.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// FacilitatorRequest is the body of both POST /verify and POST /settle.
// Both fields are required; the HTTP layer rejects the request with 400
// before any pipeline work when either is missing.
type FacilitatorRequest struct {
	PaymentPayload      *PaymentPayload      `json:"paymentPayload" validate:"required"`
	PaymentRequirements *PaymentRequirements `json:"paymentRequirements" validate:"required"`
}

// VerifyResponse is the facilitator's verdict on a claimed payment.
// An invalid payment is a normal verdict, not an error.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResponse reports the outcome of submitting a payment onchain.
// Success is only set after the transaction is confirmed.
type SettleResponse struct {
	Success         bool   `json:"success"`
	ErrorReason     string `json:"errorReason,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	Network         string `json:"network"`
	Payer           string `json:"payer,omitempty"`
}

// SupportedKind identifies one scheme/network pair the facilitator can
// verify and settle.
type SupportedKind struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
}

// SupportedResponse is the body of GET /supported.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}

// Validate checks the envelope fields common to every scheme.
func (p *PaymentPayload) Validate() error {
	if p.Scheme == "" {
		return fmt.Errorf("paymentPayload.scheme is required")
	}
	if p.Network == "" {
		return fmt.Errorf("paymentPayload.network is required")
	}
	if len(p.Payload) == 0 {
		return fmt.Errorf("paymentPayload.payload is required")
	}
	return nil
}

// Validate checks that the requirements carry every field a scheme
// needs to evaluate a payment.
func (pr *PaymentRequirements) Validate() error {
	if pr.Scheme == "" {
		return fmt.Errorf("paymentRequirements.scheme is required")
	}
	if pr.Network == "" {
		return fmt.Errorf("paymentRequirements.network is required")
	}
	if pr.MaxAmountRequired == "" {
		return fmt.Errorf("paymentRequirements.maxAmountRequired is required")
	}
	if pr.PayTo == "" {
		return fmt.Errorf("paymentRequirements.payTo is required")
	}
	if pr.Asset == "" {
		return fmt.Errorf("paymentRequirements.asset is required")
	}
	return nil
}
