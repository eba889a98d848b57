package payments

import (
	"fmt"
	"sort"

	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

// Registry resolves configured providers by name.
type Registry struct {
	providers map[enums.PaymentProvider]Provider
}

// NewRegistry registers every non-nil provider.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[enums.PaymentProvider]Provider{}}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name. An unknown or
// unconfigured provider is a dependency error.
func (r *Registry) Get(name enums.PaymentProvider) (Provider, error) {
	if r != nil {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment provider %s is not configured", name))
}

// Names lists the registered providers in a stable order.
func (r *Registry) Names() []enums.PaymentProvider {
	if r == nil {
		return nil
	}
	out := make([]enums.PaymentProvider, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
