package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jingkaihe/skillgraph/pkg/logger"
)

// Purger periodically removes stale cache entries
type Purger struct {
	cache  *Cache
	maxAge time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPurger creates a purger removing entries older than maxAge
func NewPurger(cache *Cache, maxAge time.Duration) *Purger {
	return &Purger{cache: cache, maxAge: maxAge}
}

// Start runs a purge every interval until Stop is called or ctx is done
func (p *Purger) Start(ctx context.Context, interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.loop(ctx, interval, p.stopCh, p.doneCh)
}

// Stop stops the purger and waits for the loop to exit
func (p *Purger) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done
}

func (p *Purger) loop(ctx context.Context, interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.G(ctx).Debug("cache purger stopped due to context cancellation")
			return
		case <-stopCh:
			logger.G(ctx).Debug("cache purger stopped")
			return
		case <-ticker.C:
			n, err := p.cache.Purge(ctx, p.maxAge)
			if err != nil {
				logger.G(ctx).WithError(err).Warn("failed to purge cache")
				continue
			}
			logger.G(ctx).WithField("removed", n).Debug("cache purge completed")
		}
	}
}
