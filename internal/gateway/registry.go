package gateway

import (
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// Registry holds the configured gateway adapters keyed by provider type
type Registry struct {
	adapters map[types.PaymentGatewayType]Gateway
}

// NewRegistry builds a registry from the given adapters
func NewRegistry(adapters ...Gateway) *Registry {
	r := &Registry{adapters: make(map[types.PaymentGatewayType]Gateway)}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Get returns the adapter for a provider type
func (r *Registry) Get(provider types.PaymentGatewayType) (Gateway, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, ierr.NewError("unsupported payment gateway").
			WithHintf("No adapter registered for gateway %s", provider).
			Mark(ierr.ErrNoGatewayConfigured)
	}
	return adapter, nil
}
