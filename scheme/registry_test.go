package scheme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpay-labs/x402-facilitator/types"
)

type stubScheme struct {
	scheme  string
	network string
	tag     string
}

func (s *stubScheme) Scheme() string  { return s.scheme }
func (s *stubScheme) Network() string { return s.network }

func (s *stubScheme) Verify(context.Context, *types.PaymentPayload, *types.PaymentRequirements) (*types.VerifyResponse, error) {
	return &types.VerifyResponse{IsValid: true}, nil
}

func (s *stubScheme) Settle(context.Context, *types.PaymentPayload, *types.PaymentRequirements) (*types.SettleResponse, error) {
	return &types.SettleResponse{Success: true}, nil
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("exact", "eip155:84532")
	require.Error(t, err)

	var fe *types.FacilitatorError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, types.ErrUnsupportedScheme, fe.Code)
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	s := &stubScheme{scheme: "exact", network: "eip155:84532"}
	r.Register(s)

	got, err := r.Resolve("exact", "eip155:84532")
	require.NoError(t, err)
	require.Same(t, s, got)
}

func TestRegistry_DuplicateRegistrationReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubScheme{scheme: "exact", network: "eip155:84532", tag: "old"})
	replacement := &stubScheme{scheme: "exact", network: "eip155:84532", tag: "new"}
	r.Register(replacement)

	got, err := r.Resolve("exact", "eip155:84532")
	require.NoError(t, err)
	require.Equal(t, "new", got.(*stubScheme).tag)
	require.Len(t, r.Supported(), 1)
}

func TestRegistry_SupportedKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubScheme{scheme: "exact", network: "eip155:8453"})
	r.Register(&stubScheme{scheme: "exact", network: "eip155:84532"})

	kinds := r.Supported()
	require.Equal(t, []types.SupportedKind{
		{X402Version: types.ProtocolVersion, Scheme: "exact", Network: "eip155:8453"},
		{X402Version: types.ProtocolVersion, Scheme: "exact", Network: "eip155:84532"},
	}, kinds)
}

func TestAbortError_Tagging(t *testing.T) {
	err := Abort("authorization_already_used")

	abort, ok := AsAbort(err)
	require.True(t, ok)
	require.Equal(t, "authorization_already_used", abort.Reason)

	_, ok = AsAbort(context.DeadlineExceeded)
	require.False(t, ok)
}
