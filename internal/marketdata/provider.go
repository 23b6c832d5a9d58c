// Package marketdata supplies market quotes for contests, either from a
// live quote stream or from a static snapshot.
package marketdata

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/oddsmith/internal/models"
)

// QuoteProvider returns the latest known quotes for a contest. Missing or
// stale selections simply have no entry; the edge evaluator skips them.
type QuoteProvider interface {
	Quotes(ctx context.Context, contestID uuid.UUID) (map[string]models.MarketQuote, error)
}

// SnapshotProvider serves quotes from an in-memory snapshot. Used in
// backtests and as the write target of the live stream consumer.
type SnapshotProvider struct {
	mu     sync.RWMutex
	quotes map[uuid.UUID]map[string]models.MarketQuote
}

// NewSnapshotProvider creates an empty snapshot provider.
func NewSnapshotProvider() *SnapshotProvider {
	return &SnapshotProvider{
		quotes: make(map[uuid.UUID]map[string]models.MarketQuote),
	}
}

// Quotes implements QuoteProvider.
func (p *SnapshotProvider) Quotes(ctx context.Context, contestID uuid.UUID) (map[string]models.MarketQuote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap, ok := p.quotes[contestID]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := make(map[string]models.MarketQuote, len(snap))
	for id, q := range snap {
		out[id] = q
	}
	return out, nil
}

// Update merges a quote update for one selection in a contest.
func (p *SnapshotProvider) Update(contestID uuid.UUID, selectionID string, quote models.MarketQuote) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap, ok := p.quotes[contestID]
	if !ok {
		snap = make(map[string]models.MarketQuote)
		p.quotes[contestID] = snap
	}
	snap[selectionID] = quote
}

// Remove drops all quotes for a contest, typically after settlement.
func (p *SnapshotProvider) Remove(contestID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.quotes, contestID)
}
