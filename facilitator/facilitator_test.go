package facilitator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpay-labs/x402-facilitator/scheme"
	"github.com/openpay-labs/x402-facilitator/types"
)

type fakeScheme struct {
	scheme  string
	network string

	verifyRes *types.VerifyResponse
	verifyErr error
	settleRes *types.SettleResponse
	settleErr error
}

func (f *fakeScheme) Scheme() string  { return f.scheme }
func (f *fakeScheme) Network() string { return f.network }

func (f *fakeScheme) Verify(context.Context, *types.PaymentPayload, *types.PaymentRequirements) (*types.VerifyResponse, error) {
	return f.verifyRes, f.verifyErr
}

func (f *fakeScheme) Settle(context.Context, *types.PaymentPayload, *types.PaymentRequirements) (*types.SettleResponse, error) {
	return f.settleRes, f.settleErr
}

func recordingHook(calls *[]string, name string) Hook {
	return func(context.Context, *HookContext) error {
		*calls = append(*calls, name)
		return nil
	}
}

func testRequest() (*types.PaymentPayload, *types.PaymentRequirements) {
	payload := &types.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "eip155:84532",
		Payload:     map[string]interface{}{"signature": "0xabc"},
	}
	requirements := &types.PaymentRequirements{
		Scheme:            "exact",
		Network:           "eip155:84532",
		MaxAmountRequired: "1000000",
		Resource:          "/premium-article",
		PayTo:             "0x0000000000000000000000000000000000000001",
		Asset:             "0x0000000000000000000000000000000000000002",
	}
	return payload, requirements
}

func newPipeline(s scheme.Scheme, calls *[]string) *Facilitator {
	registry := scheme.NewRegistry()
	registry.Register(s)
	return New(registry, WithHooks(Hooks{
		BeforeVerify:  []Hook{recordingHook(calls, "beforeVerify")},
		AfterVerify:   []Hook{recordingHook(calls, "afterVerify")},
		VerifyFailure: []Hook{recordingHook(calls, "verifyFailure")},
		BeforeSettle:  []Hook{recordingHook(calls, "beforeSettle")},
		AfterSettle:   []Hook{recordingHook(calls, "afterSettle")},
		SettleFailure: []Hook{recordingHook(calls, "settleFailure")},
	}))
}

func TestVerify_HookOrderOnSuccess(t *testing.T) {
	var calls []string
	f := newPipeline(&fakeScheme{
		scheme:    "exact",
		network:   "eip155:84532",
		verifyRes: &types.VerifyResponse{IsValid: true, Payer: "0xpayer"},
	}, &calls)

	payload, requirements := testRequest()
	res, err := f.Verify(context.Background(), payload, requirements)
	require.NoError(t, err)
	require.True(t, res.IsValid)
	require.Equal(t, []string{"beforeVerify", "afterVerify"}, calls)
}

func TestVerify_HookOrderOnFailure(t *testing.T) {
	var calls []string
	f := newPipeline(&fakeScheme{
		scheme:    "exact",
		network:   "eip155:84532",
		verifyErr: errors.New("rpc unreachable"),
	}, &calls)

	payload, requirements := testRequest()
	_, err := f.Verify(context.Background(), payload, requirements)
	require.Error(t, err)
	require.Equal(t, []string{"beforeVerify", "verifyFailure"}, calls)
}

func TestVerify_InvalidPaymentIsNotAnError(t *testing.T) {
	var calls []string
	f := newPipeline(&fakeScheme{
		scheme:    "exact",
		network:   "eip155:84532",
		verifyRes: &types.VerifyResponse{IsValid: false, InvalidReason: "invalid_signature"},
	}, &calls)

	payload, requirements := testRequest()
	res, err := f.Verify(context.Background(), payload, requirements)
	require.NoError(t, err)
	require.False(t, res.IsValid)
	require.Equal(t, "invalid_signature", res.InvalidReason)
	require.Equal(t, []string{"beforeVerify", "afterVerify"}, calls)
}

func TestVerify_UnknownSchemeIsInfrastructureError(t *testing.T) {
	var calls []string
	f := newPipeline(&fakeScheme{scheme: "exact", network: "eip155:8453"}, &calls)

	payload, requirements := testRequest() // requirements want eip155:84532
	_, err := f.Verify(context.Background(), payload, requirements)
	require.Error(t, err)

	var fe *types.FacilitatorError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, types.ErrUnsupportedScheme, fe.Code)
	require.Equal(t, []string{"beforeVerify", "verifyFailure"}, calls)
}

func TestSettle_AbortIsRecovered(t *testing.T) {
	var calls []string
	f := newPipeline(&fakeScheme{
		scheme:    "exact",
		network:   "eip155:84532",
		settleErr: scheme.Abort("authorization_already_used"),
	}, &calls)

	payload, requirements := testRequest()
	res, err := f.Settle(context.Background(), payload, requirements)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "authorization_already_used", res.ErrorReason)
	require.Equal(t, "eip155:84532", res.Network)
	require.Equal(t, []string{"beforeSettle", "settleFailure"}, calls)
}

func TestSettle_InfrastructureErrorPropagates(t *testing.T) {
	var calls []string
	f := newPipeline(&fakeScheme{
		scheme:    "exact",
		network:   "eip155:84532",
		settleErr: errors.New("nonce too low"),
	}, &calls)

	payload, requirements := testRequest()
	_, err := f.Settle(context.Background(), payload, requirements)
	require.Error(t, err)
	require.Equal(t, []string{"beforeSettle", "settleFailure"}, calls)
}

func TestSettle_HookOrderOnSuccess(t *testing.T) {
	var calls []string
	f := newPipeline(&fakeScheme{
		scheme:  "exact",
		network: "eip155:84532",
		settleRes: &types.SettleResponse{
			Success:         true,
			TransactionHash: "0xdeadbeef",
			Network:         "eip155:84532",
		},
	}, &calls)

	payload, requirements := testRequest()
	res, err := f.Settle(context.Background(), payload, requirements)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"beforeSettle", "afterSettle"}, calls)
}

func TestHookFailuresAreIsolated(t *testing.T) {
	registry := scheme.NewRegistry()
	registry.Register(&fakeScheme{
		scheme:    "exact",
		network:   "eip155:84532",
		verifyRes: &types.VerifyResponse{IsValid: true},
	})

	var afterRan bool
	f := New(registry, WithHooks(Hooks{
		BeforeVerify: []Hook{
			func(context.Context, *HookContext) error { return errors.New("broken observer") },
			func(context.Context, *HookContext) error { panic("worse observer") },
		},
		AfterVerify: []Hook{func(context.Context, *HookContext) error {
			afterRan = true
			return nil
		}},
	}))

	payload, requirements := testRequest()
	res, err := f.Verify(context.Background(), payload, requirements)
	require.NoError(t, err)
	require.True(t, res.IsValid)
	require.True(t, afterRan)
}

func TestSupported_IdempotentAndSideEffectFree(t *testing.T) {
	registry := scheme.NewRegistry()
	registry.Register(&fakeScheme{scheme: "exact", network: "eip155:84532"})
	registry.Register(&fakeScheme{scheme: "exact", network: "eip155:8453"})
	f := New(registry)

	first := f.Supported()
	second := f.Supported()
	require.Equal(t, first, second)
	require.Len(t, first.Kinds, 2)
	require.Equal(t, "eip155:84532", first.Kinds[0].Network)
	require.Equal(t, "eip155:8453", first.Kinds[1].Network)
}
