package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"putshield-service/internal/application"
	"putshield-service/internal/domain"
)

// Ensure Fake implements application.PriceFeed.
var _ application.PriceFeed = (*Fake)(nil)

// Fake serves a fixed price table. Used for local runs without API access.
type Fake struct {
	mu     sync.RWMutex
	prices map[string]domain.Price
}

func NewFake(prices map[string]domain.Price) *Fake {
	cp := make(map[string]domain.Price, len(prices))
	for k, v := range prices {
		cp[k] = v
	}
	return &Fake{prices: cp}
}

func (f *Fake) Current(_ context.Context, assetID string) (domain.Price, error) {
	f.mu.RLock()
	p, ok := f.prices[assetID]
	f.mu.RUnlock()
	if !ok {
		return domain.Price{}, fmt.Errorf("%w: no price for %s", domain.ErrUnavailable, assetID)
	}
	p.AsOf = time.Now().UTC()
	return p, nil
}

// Set replaces one asset's price, for demo scripts that move the market.
func (f *Fake) Set(p domain.Price) {
	f.mu.Lock()
	f.prices[p.AssetID] = p
	f.mu.Unlock()
}
