package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpay-labs/x402-facilitator/types"
)

func TestExtract_PrefersResponseFields(t *testing.T) {
	payload := &types.PaymentPayload{
		Network: "eip155:1",
		Payload: map[string]interface{}{
			"payer":  "0xfromPayload",
			"amount": "500",
		},
	}
	requirements := &types.PaymentRequirements{
		Network:           "eip155:8453",
		Resource:          "/premium-article",
		MaxAmountRequired: "1000000",
	}
	res := &types.SettleResponse{
		Success:         true,
		Payer:           "0xfromResponse",
		Network:         "eip155:84532",
		TransactionHash: "0xabc123",
	}

	a := extract(payload, requirements, res)
	require.Equal(t, "0xfromResponse", a.Payer)
	require.Equal(t, "500", a.Amount.String())
	require.Equal(t, "/premium-article", a.Path)
	require.Equal(t, "eip155:84532", a.Network)
	require.Equal(t, "0xabc123", a.TxHash)
}

func TestExtract_AliasFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		payer   string
		amount  string
	}{
		{
			name:    "from alias",
			payload: map[string]interface{}{"from": "0xaaa", "value": "42"},
			payer:   "0xaaa",
			amount:  "42",
		},
		{
			name:    "sender alias",
			payload: map[string]interface{}{"sender": "0xbbb", "maxAmountRequired": "7"},
			payer:   "0xbbb",
			amount:  "7",
		},
		{
			name: "nested authorization",
			payload: map[string]interface{}{
				"signature": "0xsig",
				"authorization": map[string]interface{}{
					"from":  "0xccc",
					"value": "1000000",
				},
			},
			payer:  "0xccc",
			amount: "1000000",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := extract(&types.PaymentPayload{Payload: tc.payload}, nil, nil)
			require.Equal(t, tc.payer, a.Payer)
			require.Equal(t, tc.amount, a.Amount.String())
		})
	}
}

func TestExtract_NetworkAliasFromBody(t *testing.T) {
	for _, key := range []string{"network", "chain", "chainId"} {
		t.Run(key, func(t *testing.T) {
			a := extract(&types.PaymentPayload{
				Payload: map[string]interface{}{key: "eip155:137"},
			}, nil, nil)
			require.Equal(t, "eip155:137", a.Network)
		})
	}
}

func TestExtract_SentinelDefaults(t *testing.T) {
	a := extract(&types.PaymentPayload{Payload: map[string]interface{}{}}, nil, nil)
	require.Equal(t, UnknownPayer, a.Payer)
	require.True(t, a.Amount.IsZero())
	require.Equal(t, UnknownPath, a.Path)
	require.Equal(t, UnknownNetwork, a.Network)
	require.Equal(t, UnknownTxHash, a.TxHash)
}

func TestExtract_MalformedAmountDefaultsToZero(t *testing.T) {
	a := extract(&types.PaymentPayload{
		Payload: map[string]interface{}{"amount": "not-a-number"},
	}, nil, nil)
	require.True(t, a.Amount.IsZero())
}

func TestExtract_NilPayload(t *testing.T) {
	a := extract(nil, nil, nil)
	require.Equal(t, UnknownPayer, a.Payer)
	require.Equal(t, UnknownPath, a.Path)
}
