package scheme

import (
	"fmt"

	"github.com/openpay-labs/x402-facilitator/types"
)

type registryKey struct {
	scheme  string
	network string
}

// Registry holds the scheme bindings for the process. It is populated
// once at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	schemes map[registryKey]Scheme
	order   []registryKey
}

func NewRegistry() *Registry {
	return &Registry{
		schemes: make(map[registryKey]Scheme),
	}
}

// Register binds a scheme implementation. Registering the same
// (scheme, network) pair again replaces the previous binding.
func (r *Registry) Register(s Scheme) {
	key := registryKey{scheme: s.Scheme(), network: s.Network()}
	if _, exists := r.schemes[key]; !exists {
		r.order = append(r.order, key)
	}
	r.schemes[key] = s
}

// Resolve returns the scheme bound to the pair, or a structured error
// when nothing is registered for it.
func (r *Registry) Resolve(scheme, network string) (Scheme, error) {
	s, ok := r.schemes[registryKey{scheme: scheme, network: network}]
	if !ok {
		return nil, &types.FacilitatorError{
			Code:    types.ErrUnsupportedScheme,
			Message: fmt.Sprintf("no scheme registered for %s on %s", scheme, network),
		}
	}
	return s, nil
}

// Supported lists the registered scheme/network pairs in registration
// order. The result is a fresh slice; callers cannot mutate the
// registry through it.
func (r *Registry) Supported() []types.SupportedKind {
	kinds := make([]types.SupportedKind, 0, len(r.order))
	for _, key := range r.order {
		kinds = append(kinds, types.SupportedKind{
			X402Version: types.ProtocolVersion,
			Scheme:      key.scheme,
			Network:     key.network,
		})
	}
	return kinds
}
