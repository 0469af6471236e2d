// Package domain contains the core domain types for the market data context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/token"
)

// VaultType distinguishes liquidity pools from subnet wrapper vaults.
type VaultType string

const (
	// VaultTypePool is a constant-product AMM pool holding two tokens.
	VaultTypePool VaultType = "POOL"
	// VaultTypeSubnet is a 1:1 wrapper vault. The wrapped token (TokenB)
	// is redeemable for the base token (TokenA) and inherits its price.
	VaultTypeSubnet VaultType = "SUBNET"
)

// Vault is an on-chain contract holding token liquidity.
// Reserves are in whole-token units, already adjusted for decimals.
type Vault struct {
	ContractID token.ID
	Type       VaultType
	TokenA     token.ID
	TokenB     token.ID
	ReserveA   decimal.Decimal
	ReserveB   decimal.Decimal
	FeeBps     int64 // swap fee in basis points, e.g. 30 = 0.30%
	LPToken    token.ID
	LPSupply   decimal.Decimal
	UpdatedAt  time.Time
}

// Validate checks structural invariants. Pools with empty or negative
// reserves are rejected so they never reach the pricing graph.
func (v *Vault) Validate() error {
	if v.ContractID == "" {
		return apperror.Validation(apperror.CodeRequiredField, "vault contract id")
	}
	if v.TokenA == "" || v.TokenB == "" {
		return apperror.Validation(apperror.CodeRequiredField,
			fmt.Sprintf("vault %s: missing token", v.ContractID))
	}
	if v.TokenA == v.TokenB {
		return apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("vault %s: identical tokens on both sides", v.ContractID))
	}

	switch v.Type {
	case VaultTypePool:
		if v.ReserveA.Sign() <= 0 || v.ReserveB.Sign() <= 0 {
			return apperror.Validation(apperror.CodeInvalidReserves,
				fmt.Sprintf("vault %s: reserves %s/%s", v.ContractID, v.ReserveA, v.ReserveB))
		}
		if v.FeeBps < 0 || v.FeeBps >= 10_000 {
			return apperror.Validation(apperror.CodeInvalidInput,
				fmt.Sprintf("vault %s: fee %d bps", v.ContractID, v.FeeBps))
		}
		if v.LPToken != "" && v.LPSupply.Sign() <= 0 {
			return apperror.Validation(apperror.CodeInvalidInput,
				fmt.Sprintf("vault %s: LP token with supply %s", v.ContractID, v.LPSupply))
		}
	case VaultTypeSubnet:
		// Wrapper vaults carry no tradable reserves.
	default:
		return apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("vault %s: unknown type %q", v.ContractID, v.Type))
	}
	return nil
}

// HasLiquidity reports whether the vault can price a swap.
func (v *Vault) HasLiquidity() bool {
	return v.Type == VaultTypePool && v.ReserveA.Sign() > 0 && v.ReserveB.Sign() > 0
}

// Liquidity is the depth heuristic used for path scoring: the sum of both
// reserves in whole-token units.
func (v *Vault) Liquidity() decimal.Decimal {
	return v.ReserveA.Add(v.ReserveB)
}

// Other returns the counterpart token of id within the vault.
func (v *Vault) Other(id token.ID) (token.ID, bool) {
	switch id {
	case v.TokenA:
		return v.TokenB, true
	case v.TokenB:
		return v.TokenA, true
	}
	return "", false
}

// Reserve returns the reserve held for the given token.
func (v *Vault) Reserve(id token.ID) (decimal.Decimal, bool) {
	switch id {
	case v.TokenA:
		return v.ReserveA, true
	case v.TokenB:
		return v.ReserveB, true
	}
	return decimal.Zero, false
}
