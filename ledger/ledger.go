// Package ledger records successful settlements against the registry
// of payment-accepting endpoints. Reconciliation is best-effort: it
// runs after the settle response is final and none of its failures ever
// reach the payment caller.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EndpointRecord is one registered payment-accepting endpoint, owned by
// a user and keyed by (path, network). Read-only from this service.
type EndpointRecord struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Path    string `json:"path"`
	Network string `json:"network"`
}

// TransactionRecord is one append-only ledger entry for a settled
// payment attributed to an endpoint. Never updated or deleted.
type TransactionRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	EndpointID  string          `json:"endpoint_id"`
	PayerWallet string          `json:"payer_wallet"`
	Amount      decimal.Decimal `json:"amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	TxHash      string          `json:"tx_hash"`
	Chain       string          `json:"chain"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StatusSuccess is the only status reconciliation writes today.
const StatusSuccess = "success"

// EndpointStore looks up the endpoint registry. A missing endpoint is
// (nil, nil), not an error.
type EndpointStore interface {
	FindByPathAndNetwork(ctx context.Context, path, network string) (*EndpointRecord, error)
}

// TransactionStore appends ledger entries.
type TransactionStore interface {
	Insert(ctx context.Context, record *TransactionRecord) error
}
