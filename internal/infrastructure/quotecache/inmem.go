package quotecache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"putshield-service/internal/application"
	"putshield-service/internal/domain"
)

var _ application.QuoteCache = (*InMemCache)(nil)

// InMemCache implements the same state machine as RedisCache under a single
// mutex. Only safe within one process; meant for environments without the
// shared store. A janitor sweep evicts expired entries, and a hard capacity
// bound sheds the oldest tenth of entries so unbounded quote creation cannot
// exhaust memory.
type InMemCache struct {
	mu        sync.Mutex
	entries   map[string]*domain.CachedQuote
	byHolding map[string]map[string]struct{}

	Capacity   int
	TTLBuffer  time.Duration
	SweepEvery time.Duration
	now        func() time.Time
}

func NewInMemCache(capacity int, ttlBuffer time.Duration) *InMemCache {
	return &InMemCache{
		entries:    map[string]*domain.CachedQuote{},
		byHolding:  map[string]map[string]struct{}{},
		Capacity:   capacity,
		TTLBuffer:  ttlBuffer,
		SweepEvery: time.Minute,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the janitor until the context is canceled.
func (c *InMemCache) Start(ctx context.Context) {
	every := c.SweepEvery
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

// Sweep removes every entry past its TTL. Exposed so tests can trigger a
// pass directly.
func (c *InMemCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.TTLBuffer)
	removed := 0
	for id, e := range c.entries {
		if cutoff.After(e.Quote.ValidUntil) {
			c.removeLocked(id)
			removed++
		}
	}
	return removed
}

func (c *InMemCache) Put(_ context.Context, q domain.Quote, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !q.ValidUntil.After(now) {
		return fmt.Errorf("quote %s already expired: %w", q.ID, domain.ErrExpired)
	}

	c.entries[q.ID] = &domain.CachedQuote{
		Quote:     q,
		UserID:    userID,
		CreatedAt: now,
		Status:    domain.QuoteStatusAvailable,
	}
	idx, ok := c.byHolding[q.HoldingID]
	if !ok {
		idx = map[string]struct{}{}
		c.byHolding[q.HoldingID] = idx
	}
	idx[q.ID] = struct{}{}

	if c.Capacity > 0 && len(c.entries) > c.Capacity {
		c.evictOldestLocked()
	}
	return nil
}

func (c *InMemCache) GetAndValidate(_ context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.liveEntryLocked(quoteID, userID)
	if err != nil {
		return domain.CachedQuote{}, err
	}
	if e.Status == domain.QuoteStatusReserved {
		return domain.CachedQuote{}, fmt.Errorf("quote %s is reserved: %w", quoteID, domain.ErrConflict)
	}
	return *e, nil
}

func (c *InMemCache) Reserve(_ context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.liveEntryLocked(quoteID, userID)
	if err != nil {
		return domain.CachedQuote{}, err
	}
	if e.Status == domain.QuoteStatusReserved {
		return domain.CachedQuote{}, fmt.Errorf("quote %s: %w", quoteID, domain.ErrQuoteInUse)
	}

	now := c.now()
	e.Status = domain.QuoteStatusReserved
	e.ReservedAt = &now
	return *e, nil
}

func (c *InMemCache) Release(_ context.Context, quoteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[quoteID]; ok && e.Status == domain.QuoteStatusReserved {
		e.Status = domain.QuoteStatusAvailable
		e.ReservedAt = nil
	}
	return nil
}

func (c *InMemCache) Consume(_ context.Context, quoteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[quoteID]
	if !ok {
		return fmt.Errorf("quote %s: %w", quoteID, domain.ErrNotFound)
	}
	e.Status = domain.QuoteStatusConsumed

	for id := range c.byHolding[e.Quote.HoldingID] {
		if id != quoteID {
			delete(c.entries, id)
		}
	}
	delete(c.byHolding, e.Quote.HoldingID)
	return nil
}

func (c *InMemCache) InvalidateForHolding(_ context.Context, holdingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.byHolding[holdingID] {
		delete(c.entries, id)
	}
	delete(c.byHolding, holdingID)
	return nil
}

// Len reports the current entry count.
func (c *InMemCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// liveEntryLocked resolves a non-consumed, owned, unexpired entry. Expired
// entries are removed as a side effect so subsequent lookups also miss.
func (c *InMemCache) liveEntryLocked(quoteID, userID string) (*domain.CachedQuote, error) {
	e, ok := c.entries[quoteID]
	if !ok || e.Status == domain.QuoteStatusConsumed {
		return nil, fmt.Errorf("quote %s: %w", quoteID, domain.ErrNotFound)
	}
	if e.UserID != userID {
		return nil, fmt.Errorf("quote %s: %w", quoteID, domain.ErrUnauthorized)
	}
	if c.now().After(e.Quote.ValidUntil) {
		c.removeLocked(quoteID)
		return nil, fmt.Errorf("quote %s: %w", quoteID, domain.ErrExpired)
	}
	return e, nil
}

func (c *InMemCache) removeLocked(quoteID string) {
	e, ok := c.entries[quoteID]
	if !ok {
		return
	}
	delete(c.entries, quoteID)
	if idx, ok := c.byHolding[e.Quote.HoldingID]; ok {
		delete(idx, quoteID)
		if len(idx) == 0 {
			delete(c.byHolding, e.Quote.HoldingID)
		}
	}
}

// evictOldestLocked sheds the oldest ~10% of entries once the capacity
// bound is exceeded.
func (c *InMemCache) evictOldestLocked() {
	type aged struct {
		id string
		at time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for id, e := range c.entries {
		all = append(all, aged{id: id, at: e.CreatedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	n := len(all) / 10
	if n < 1 {
		n = 1
	}
	for _, a := range all[:n] {
		c.removeLocked(a.id)
	}
}
