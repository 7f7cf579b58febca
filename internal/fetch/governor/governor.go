// Package governor bounds in-flight requests with a global ceiling and a
// per-domain ceiling. A request proceeds only once both permits are
// held; permits release on completion or error. The global ceiling keeps
// the process from drowning in sockets, the per-domain ceiling keeps
// bursts against one origin from tripping anti-bot defenses.
package governor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/fetch"
	"github.com/zadorian/SEARCH-ENGINEER-sub004/internal/metrics"
)

// Governor manages the global and per-domain semaphores for one tier.
type Governor struct {
	global chan struct{}

	mu          sync.Mutex
	domains     map[string]chan struct{}
	domainLimit int
}

// New creates a Governor. globalLimit <= 0 disables the global ceiling;
// domainLimit <= 0 falls back to the default of 10.
func New(globalLimit, domainLimit int) *Governor {
	var global chan struct{}
	if globalLimit > 0 {
		global = make(chan struct{}, globalLimit)
	}
	if domainLimit <= 0 {
		domainLimit = fetch.DefaultPerDomainLimit
	}
	return &Governor{
		global:      global,
		domains:     make(map[string]chan struct{}),
		domainLimit: domainLimit,
	}
}

// Acquire blocks until both the global and the per-domain permit for
// rawURL are held, or the context finishes. The returned release func
// must be called exactly once; it is safe under panic via defer.
func (g *Governor) Acquire(ctx context.Context, rawURL string) (func(), error) {
	domain := fetch.HostOf(rawURL)
	domainSem := g.domainSem(domain)

	start := time.Now()
	if g.global != nil {
		select {
		case g.global <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("global permit wait: %w", ctx.Err())
		}
	}

	select {
	case domainSem <- struct{}{}:
	case <-ctx.Done():
		if g.global != nil {
			<-g.global
		}
		return nil, fmt.Errorf("domain permit wait for %s: %w", domain, ctx.Err())
	}

	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveGovernorWait(domain, waited)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-domainSem
			if g.global != nil {
				<-g.global
			}
		})
	}
	return release, nil
}

// InFlight reports the number of requests currently holding a permit for
// the given domain. Instrumentation helper, used by tests.
func (g *Governor) InFlight(domain string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.domains[domain]
	if !ok {
		return 0
	}
	return len(sem)
}

func (g *Governor) domainSem(domain string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.domains[domain]
	if !ok {
		sem = make(chan struct{}, g.domainLimit)
		g.domains[domain] = sem
	}
	return sem
}
