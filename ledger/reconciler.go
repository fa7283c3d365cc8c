package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openpay-labs/x402-facilitator/logger"
	"github.com/openpay-labs/x402-facilitator/types"
)

// Reconciler attributes successful settlements to registered endpoints
// and appends one ledger entry per attributed settlement.
type Reconciler struct {
	endpoints    EndpointStore
	transactions TransactionStore
	log          logger.Logger

	// now is a clock hook for tests.
	now func() time.Time
}

func NewReconciler(endpoints EndpointStore, transactions TransactionStore, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Reconciler{
		endpoints:    endpoints,
		transactions: transactions,
		log:          log,
		now:          time.Now,
	}
}

// Record reconciles one successful settlement. It returns nothing: the
// settle response is already final when Record runs, and every failure
// here is logged and discarded so the caller-visible result is never
// affected.
func (r *Reconciler) Record(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements, res *types.SettleResponse) {
	if res == nil || !res.Success {
		return
	}

	a := extract(payload, requirements, res)

	endpoint, err := r.endpoints.FindByPathAndNetwork(ctx, a.Path, a.Network)
	if err != nil {
		r.log.Error("endpoint lookup failed", map[string]any{
			"path":    a.Path,
			"network": a.Network,
			"error":   err.Error(),
		})
		return
	}
	if endpoint == nil {
		r.log.Warn("unattributed settlement", map[string]any{
			"path":    a.Path,
			"network": a.Network,
			"txHash":  a.TxHash,
		})
		return
	}

	record := &TransactionRecord{
		ID:          uuid.NewString(),
		UserID:      endpoint.UserID,
		EndpointID:  endpoint.ID,
		PayerWallet: a.Payer,
		Amount:      a.Amount,
		// Fee deduction is not implemented yet; net equals gross.
		NetAmount: a.Amount,
		TxHash:    a.TxHash,
		Chain:     a.Network,
		Status:    StatusSuccess,
		CreatedAt: r.now(),
	}

	if err := r.transactions.Insert(ctx, record); err != nil {
		r.log.Error("transaction insert failed", map[string]any{
			"endpointId": endpoint.ID,
			"txHash":     a.TxHash,
			"error":      err.Error(),
		})
		return
	}

	r.log.Info("settlement recorded", map[string]any{
		"userId":     endpoint.UserID,
		"endpointId": endpoint.ID,
		"amount":     a.Amount.String(),
		"txHash":     a.TxHash,
	})
}
