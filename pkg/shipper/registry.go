package shipper

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered delivery providers, keyed by provider name.
type Registry struct {
	shippers map[string]Shipper
	mu       sync.RWMutex
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		shippers: make(map[string]Shipper),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shippers[s.Name()] = s
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.shippers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered providers.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.shippers))
	for _, s := range r.shippers {
		result = append(result, s)
	}
	return result
}

// Names returns the names of all registered providers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shippers))
	for name := range r.shippers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// QuoteAll fetches quotes from every registered provider in parallel.
// Quote never fails, so each provider contributes exactly one result,
// keyed by provider name.
func (r *Registry) QuoteAll(ctx context.Context, req *QuoteRequest) map[string]*RateResult {
	shippers := r.All()
	results := make(map[string]*RateResult, len(shippers))
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range shippers {
		g.Go(func() error {
			res := s.Quote(ctx, req)
			mu.Lock()
			results[s.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}
