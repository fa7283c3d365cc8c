package facilitator

import (
	"context"

	"github.com/openpay-labs/x402-facilitator/types"
)

// HookContext is the read-only view handed to lifecycle hooks. After
// and failure hooks additionally see the response or the error; hooks
// observe and side-effect, they never steer the pipeline.
type HookContext struct {
	Payload      *types.PaymentPayload
	Requirements *types.PaymentRequirements

	// VerifyResponse is set for AfterVerify hooks.
	VerifyResponse *types.VerifyResponse

	// SettleResponse is set for AfterSettle hooks.
	SettleResponse *types.SettleResponse

	// Err is set for failure hooks, including recovered settlement
	// aborts.
	Err error
}

// Hook observes one pipeline transition. A hook's error never reaches
// the caller; it is logged and discarded so instrumentation bugs cannot
// block payment processing.
type Hook func(ctx context.Context, hc *HookContext) error

// Hooks holds the ordered observer lists for each transition point.
// Hooks run sequentially in registration order.
type Hooks struct {
	BeforeVerify  []Hook
	AfterVerify   []Hook
	VerifyFailure []Hook

	BeforeSettle  []Hook
	AfterSettle   []Hook
	SettleFailure []Hook
}

// runHooks invokes a hook list, isolating each hook: errors are logged,
// panics are recovered and logged, and the pipeline's real outcome is
// never masked.
func (f *Facilitator) runHooks(ctx context.Context, stage string, hooks []Hook, hc *HookContext) {
	for i, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("lifecycle hook panicked", map[string]any{
						"stage": stage,
						"index": i,
						"panic": r,
					})
				}
			}()
			if err := hook(ctx, hc); err != nil {
				f.log.Warn("lifecycle hook failed", map[string]any{
					"stage": stage,
					"index": i,
					"error": err.Error(),
				})
			}
		}()
	}
}
