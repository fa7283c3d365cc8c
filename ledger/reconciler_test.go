package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openpay-labs/x402-facilitator/types"
)

type failingEndpointStore struct{}

func (failingEndpointStore) FindByPathAndNetwork(context.Context, string, string) (*EndpointRecord, error) {
	return nil, errors.New("connection refused")
}

type failingTransactionStore struct{}

func (failingTransactionStore) Insert(context.Context, *TransactionRecord) error {
	return errors.New("insert rejected")
}

func settledPayment() (*types.PaymentPayload, *types.PaymentRequirements, *types.SettleResponse) {
	payload := &types.PaymentPayload{
		Scheme:  "exact",
		Network: "eip155:84532",
		Payload: map[string]interface{}{
			"signature": "0xsig",
			"authorization": map[string]interface{}{
				"from":  "0xpayer",
				"value": "1000000",
			},
		},
	}
	requirements := &types.PaymentRequirements{
		Scheme:            "exact",
		Network:           "eip155:84532",
		Resource:          "/premium-article",
		MaxAmountRequired: "1000000",
	}
	res := &types.SettleResponse{
		Success:         true,
		TransactionHash: "0x9f2c",
		Network:         "eip155:84532",
		Payer:           "0xpayer",
	}
	return payload, requirements, res
}

func TestRecord_AppendsExactlyOneTransaction(t *testing.T) {
	store := NewMemoryStore()
	store.SeedEndpoint(EndpointRecord{
		ID:      "ep1",
		UserID:  "u1",
		Path:    "/premium-article",
		Network: "eip155:84532",
	})

	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	r := NewReconciler(store, store, nil)
	r.now = func() time.Time { return at }

	payload, requirements, res := settledPayment()
	r.Record(context.Background(), payload, requirements, res)

	records := store.Transactions()
	require.Len(t, records, 1)
	rec := records[0]
	require.Equal(t, "u1", rec.UserID)
	require.Equal(t, "ep1", rec.EndpointID)
	require.Equal(t, "0xpayer", rec.PayerWallet)
	require.Equal(t, "1000000", rec.Amount.String())
	require.Equal(t, rec.Amount, rec.NetAmount)
	require.Equal(t, "0x9f2c", rec.TxHash)
	require.Equal(t, "eip155:84532", rec.Chain)
	require.Equal(t, StatusSuccess, rec.Status)
	require.Equal(t, at, rec.CreatedAt)
	require.NotEmpty(t, rec.ID)
}

func TestRecord_UnattributedSettlementWritesNothing(t *testing.T) {
	store := NewMemoryStore()
	r := NewReconciler(store, store, nil)

	payload, requirements, res := settledPayment()
	requirements.Resource = "/nobody-registered-this"
	r.Record(context.Background(), payload, requirements, res)

	require.Empty(t, store.Transactions())
}

func TestRecord_SkipsUnsuccessfulSettlements(t *testing.T) {
	store := NewMemoryStore()
	store.SeedEndpoint(EndpointRecord{ID: "ep1", UserID: "u1", Path: "/premium-article", Network: "eip155:84532"})
	r := NewReconciler(store, store, nil)

	payload, requirements, res := settledPayment()
	res.Success = false
	r.Record(context.Background(), payload, requirements, res)
	r.Record(context.Background(), payload, requirements, nil)

	require.Empty(t, store.Transactions())
}

func TestRecord_LookupFailureIsSwallowed(t *testing.T) {
	store := NewMemoryStore()
	r := NewReconciler(failingEndpointStore{}, store, nil)

	payload, requirements, res := settledPayment()
	require.NotPanics(t, func() {
		r.Record(context.Background(), payload, requirements, res)
	})
	require.Empty(t, store.Transactions())
}

func TestRecord_InsertFailureIsSwallowed(t *testing.T) {
	endpoints := NewMemoryStore()
	endpoints.SeedEndpoint(EndpointRecord{ID: "ep1", UserID: "u1", Path: "/premium-article", Network: "eip155:84532"})
	r := NewReconciler(endpoints, failingTransactionStore{}, nil)

	payload, requirements, res := settledPayment()
	require.NotPanics(t, func() {
		r.Record(context.Background(), payload, requirements, res)
	})
}
