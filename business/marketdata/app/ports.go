// Package app contains application services and port definitions for the
// market data context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/internal/token"
)

// VaultSource fetches the current vault set from the chain.
type VaultSource interface {
	// FetchVaults returns all known vaults with their reserves plus the
	// token metadata referenced by them.
	FetchVaults(ctx context.Context) ([]domain.Vault, []domain.TokenMeta, error)

	// ChainTip returns the latest block of the chain.
	ChainTip(ctx context.Context) (domain.ChainTip, error)
}

// AnchorOracle supplies external USD prices for anchor tokens.
type AnchorOracle interface {
	// AnchorPrices returns the USD price per whole token for each
	// configured anchor.
	AnchorPrices(ctx context.Context) (map[token.ID]decimal.Decimal, error)
}

// BlockFeed streams chain tip updates, typically over a websocket.
type BlockFeed interface {
	// Subscribe starts the feed and returns a channel of tips. The channel
	// is closed when the feed shuts down.
	Subscribe(ctx context.Context) (<-chan domain.ChainTip, error)
	Close() error
}
