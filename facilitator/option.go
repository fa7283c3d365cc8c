package facilitator

import (
	"github.com/openpay-labs/x402-facilitator/logger"
	"github.com/openpay-labs/x402-facilitator/metrics"
)

type Option func(*Facilitator)

func WithLogger(l logger.Logger) Option {
	return func(f *Facilitator) {
		f.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(f *Facilitator) {
		f.metrics = r
	}
}

// WithHooks installs the lifecycle observer lists. Later options append
// to earlier ones, so callers can layer logging and metrics hooks.
func WithHooks(h Hooks) Option {
	return func(f *Facilitator) {
		f.hooks.BeforeVerify = append(f.hooks.BeforeVerify, h.BeforeVerify...)
		f.hooks.AfterVerify = append(f.hooks.AfterVerify, h.AfterVerify...)
		f.hooks.VerifyFailure = append(f.hooks.VerifyFailure, h.VerifyFailure...)
		f.hooks.BeforeSettle = append(f.hooks.BeforeSettle, h.BeforeSettle...)
		f.hooks.AfterSettle = append(f.hooks.AfterSettle, h.AfterSettle...)
		f.hooks.SettleFailure = append(f.hooks.SettleFailure, h.SettleFailure...)
	}
}
