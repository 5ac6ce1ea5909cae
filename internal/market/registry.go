// Package market holds the exchange client registry and shared client
// plumbing. Concrete venue clients live in sub-packages.
package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// Limiter paces outbound API calls. Satisfied by the Redis-backed rate
// limiter; a nil Limiter on a client disables pacing.
type Limiter interface {
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// Registry maps exchange names to their clients. Lookups of unregistered
// names fail immediately; market selection errors must surface at session
// start, never mid-loop.
type Registry struct {
	clients map[string]domain.MarketClient
}

// NewRegistry creates a Registry holding the given clients, keyed by each
// client's Name.
func NewRegistry(clients ...domain.MarketClient) *Registry {
	r := &Registry{clients: make(map[string]domain.MarketClient, len(clients))}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	return r
}

// Register adds or replaces a client under its Name.
func (r *Registry) Register(c domain.MarketClient) {
	r.clients[c.Name()] = c
}

// Get returns the client for the given exchange name, or
// domain.ErrUnknownExchange when no such client is registered.
func (r *Registry) Get(name string) (domain.MarketClient, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("market: %q: %w", name, domain.ErrUnknownExchange)
	}
	return c, nil
}

// Names returns the registered exchange names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
