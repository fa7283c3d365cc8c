// Package facilitator implements the verify/settle orchestration
// pipeline: resolve the scheme, fire lifecycle hooks around the
// delegated work, and normalize recoverable settlement aborts into
// ordinary responses.
package facilitator

import (
	"context"
	"time"

	"github.com/openpay-labs/x402-facilitator/logger"
	"github.com/openpay-labs/x402-facilitator/metrics"
	"github.com/openpay-labs/x402-facilitator/scheme"
	"github.com/openpay-labs/x402-facilitator/types"
)

// Facilitator is the per-process pipeline. It holds no per-request
// state; the registry and hook lists are fixed at construction.
type Facilitator struct {
	registry *scheme.Registry
	hooks    Hooks
	log      logger.Logger
	metrics  metrics.Recorder
}

func New(registry *scheme.Registry, opts ...Option) *Facilitator {
	f := &Facilitator{
		registry: registry,
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Verify runs the verification pipeline. Invalid payments come back as
// a normal VerifyResponse; an error means an infrastructure fault.
func (f *Facilitator) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error) {
	start := time.Now()
	labels := map[string]string{"network": requirements.Network}
	hc := &HookContext{Payload: payload, Requirements: requirements}

	f.runHooks(ctx, "beforeVerify", f.hooks.BeforeVerify, hc)

	res, err := f.delegateVerify(ctx, payload, requirements)
	f.metrics.ObserveLatency("verify", time.Since(start), labels)

	if err != nil {
		hc.Err = err
		f.runHooks(ctx, "verifyFailure", f.hooks.VerifyFailure, hc)
		f.metrics.IncCounter("verify_error", labels)
		f.log.Error("verify failed", map[string]any{
			"network": requirements.Network,
			"scheme":  requirements.Scheme,
			"error":   err.Error(),
		})
		return nil, err
	}

	hc.VerifyResponse = res
	f.runHooks(ctx, "afterVerify", f.hooks.AfterVerify, hc)
	f.metrics.IncCounter("verify_"+verdict(res.IsValid), labels)
	return res, nil
}

func (f *Facilitator) delegateVerify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.VerifyResponse, error) {
	s, err := f.registry.Resolve(requirements.Scheme, requirements.Network)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, payload, requirements)
}

// Settle runs the settlement pipeline. A scheme-level abort is a
// recovered outcome: it comes back as Success=false with the abort
// reason, not as an error. Any other error is an infrastructure fault.
func (f *Facilitator) Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error) {
	start := time.Now()
	labels := map[string]string{"network": requirements.Network}
	hc := &HookContext{Payload: payload, Requirements: requirements}

	f.runHooks(ctx, "beforeSettle", f.hooks.BeforeSettle, hc)

	res, err := f.delegateSettle(ctx, payload, requirements)
	f.metrics.ObserveLatency("settle", time.Since(start), labels)

	if err != nil {
		hc.Err = err
		f.runHooks(ctx, "settleFailure", f.hooks.SettleFailure, hc)

		if abort, ok := scheme.AsAbort(err); ok {
			f.metrics.IncCounter("settle_aborted", labels)
			f.log.Warn("settlement aborted", map[string]any{
				"network": requirements.Network,
				"scheme":  requirements.Scheme,
				"reason":  abort.Reason,
			})
			return &types.SettleResponse{
				Success:     false,
				ErrorReason: abort.Reason,
				Network:     requirements.Network,
			}, nil
		}

		f.metrics.IncCounter("settle_error", labels)
		f.log.Error("settle failed", map[string]any{
			"network": requirements.Network,
			"scheme":  requirements.Scheme,
			"error":   err.Error(),
		})
		return nil, err
	}

	hc.SettleResponse = res
	f.runHooks(ctx, "afterSettle", f.hooks.AfterSettle, hc)
	f.metrics.IncCounter("settle_"+verdict(res.Success), labels)
	return res, nil
}

func (f *Facilitator) delegateSettle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) (*types.SettleResponse, error) {
	s, err := f.registry.Resolve(requirements.Scheme, requirements.Network)
	if err != nil {
		return nil, err
	}
	return s.Settle(ctx, payload, requirements)
}

// Supported reports the registered scheme/network pairs. Pure read, no
// side effects.
func (f *Facilitator) Supported() *types.SupportedResponse {
	return &types.SupportedResponse{Kinds: f.registry.Supported()}
}

func verdict(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
