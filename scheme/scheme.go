// Package scheme defines the payment-scheme contract the facilitation
// pipeline delegates to, and the registry binding scheme
// implementations to networks.
package scheme

import (
	"context"
	"errors"

	"github.com/openpay-labs/x402-facilitator/types"
)

// Scheme is one payment protocol variant bound to one network. The
// pipeline resolves a Scheme per request and delegates the actual
// cryptographic and onchain work to it.
type Scheme interface {
	// Scheme returns the scheme identifier, e.g. "exact".
	Scheme() string

	// Network returns the CAIP-2 network identifier the scheme settles on.
	Network() string

	// Verify checks the payload against the requirements without
	// touching chain state. An invalid payment is a normal verdict;
	// only infrastructure faults return an error.
	Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error)

	// Settle submits the payment onchain and waits for confirmation.
	// A payment that can no longer be settled returns an AbortError;
	// infrastructure faults return any other error.
	Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error)
}

// AbortError marks a settlement the scheme determined cannot proceed,
// e.g. a reused authorization. It is a recoverable outcome for the
// caller, distinguished from infrastructure faults by type rather than
// by message text.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	return "settlement aborted: " + e.Reason
}

// Abort builds an AbortError with the given caller-visible reason.
func Abort(reason string) error {
	return &AbortError{Reason: reason}
}

// AsAbort extracts an AbortError from an error chain.
func AsAbort(err error) (*AbortError, bool) {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort, true
	}
	return nil, false
}
