package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/token"
)

// TokenMeta is the display metadata attached to a snapshot.
type TokenMeta struct {
	ID       token.ID
	Symbol   string
	Name     string
	Decimals uint8
}

// Snapshot is a consistent view of all vaults and anchor prices at a
// single chain height. Pricing always runs against one snapshot so that
// every returned price is internally consistent.
type Snapshot struct {
	BlockHeight  uint64
	TakenAt      time.Time
	Vaults       []Vault
	Tokens       []TokenMeta
	AnchorPrices map[token.ID]decimal.Decimal // USD per whole anchor token
}

// Age returns how old the snapshot is.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.TakenAt)
}

// IsStale reports whether the snapshot is older than maxAge.
func (s *Snapshot) IsStale(maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return s.Age() > maxAge
}

// VaultByContract finds a vault by its contract identifier.
func (s *Snapshot) VaultByContract(id token.ID) (*Vault, bool) {
	for i := range s.Vaults {
		if s.Vaults[i].ContractID == id {
			return &s.Vaults[i], true
		}
	}
	return nil, false
}

// LPVault finds the pool vault that issued the given LP token.
func (s *Snapshot) LPVault(lp token.ID) (*Vault, bool) {
	for i := range s.Vaults {
		if s.Vaults[i].LPToken == lp {
			return &s.Vaults[i], true
		}
	}
	return nil, false
}

// ChainTip is the latest observed block of the chain.
type ChainTip struct {
	Height    uint64
	BlockHash string
	Time      time.Time
}
