// Package app contains the price discovery engine and its ports.
package app

import (
	"context"

	marketdomain "github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/business/pricing/domain"
)

// SnapshotProvider is the market data surface the engine consumes.
type SnapshotProvider interface {
	// Fresh returns the latest snapshot. On staleness it returns BOTH the
	// old snapshot and a STALE_SNAPSHOT error so the engine can degrade.
	Fresh() (*marketdomain.Snapshot, error)

	// Refresh forces a new snapshot fetch.
	Refresh(ctx context.Context) (*marketdomain.Snapshot, error)

	// OnUpdate subscribes to snapshot installs.
	OnUpdate(func(*marketdomain.Snapshot))
}

// PriceStore persists computed price sets so a restart (or a dead
// upstream) can serve the last known good prices.
type PriceStore interface {
	// Save overwrites the stored price set.
	Save(ctx context.Context, set *domain.PriceSet) error

	// Load returns the stored price set, or a CACHE_MISS error.
	Load(ctx context.Context) (*domain.PriceSet, error)
}
