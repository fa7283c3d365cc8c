package types

// FacilitatorError is a structured error carried across package
// boundaries so callers can branch on Code instead of message text.
type FacilitatorError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *FacilitatorError) Error() string {
	return e.Message
}

// Common error codes.
const (
	ErrInvalidPayload      = "INVALID_PAYLOAD"
	ErrInvalidRequirements = "INVALID_REQUIREMENTS"
	ErrUnsupportedScheme   = "UNSUPPORTED_SCHEME"
	ErrUnsupportedNetwork  = "UNSUPPORTED_NETWORK"
	ErrVerificationFailed  = "VERIFICATION_FAILED"
	ErrSettlementFailed    = "SETTLEMENT_FAILED"
	ErrNetworkError        = "NETWORK_ERROR"
	ErrConfigError         = "CONFIG_ERROR"
)
