package stacksapi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/internal/token"
)

// Wire DTOs for the vault indexer API. Reserves and supplies arrive as
// base-unit integer strings and are converted to whole-token units here,
// at the boundary. Nothing past this file sees raw wire data.

type tokenDTO struct {
	ContractID string `json:"contract_id"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Decimals   uint8  `json:"decimals"`
}

type vaultDTO struct {
	ContractID string   `json:"contract_id"`
	Type       string   `json:"type"`
	TokenA     tokenDTO `json:"token_a"`
	TokenB     tokenDTO `json:"token_b"`
	ReserveA   string   `json:"reserve_a"`
	ReserveB   string   `json:"reserve_b"`
	FeeBps     int64    `json:"fee_bps"`
	LPToken    string   `json:"lp_token,omitempty"`
	LPSupply   string   `json:"lp_supply,omitempty"`
	UpdatedAt  int64    `json:"updated_at"` // unix seconds
}

type vaultsResponse struct {
	BlockHeight uint64     `json:"block_height"`
	Vaults      []vaultDTO `json:"vaults"`
}

type blockDTO struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	BlockTime int64  `json:"block_time"`
}

type blocksResponse struct {
	Results []blockDTO `json:"results"`
}

func (d *tokenDTO) toDomain() (domain.TokenMeta, error) {
	id, err := token.Parse(d.ContractID)
	if err != nil {
		return domain.TokenMeta{}, err
	}
	if d.Symbol == "" {
		return domain.TokenMeta{}, fmt.Errorf("token %s: empty symbol", d.ContractID)
	}
	if d.Decimals > 30 {
		return domain.TokenMeta{}, fmt.Errorf("token %s: decimals %d out of range", d.ContractID, d.Decimals)
	}
	return domain.TokenMeta{
		ID:       id,
		Symbol:   d.Symbol,
		Name:     d.Name,
		Decimals: d.Decimals,
	}, nil
}

func (d *vaultDTO) toDomain() (domain.Vault, error) {
	contractID, err := token.Parse(d.ContractID)
	if err != nil {
		return domain.Vault{}, fmt.Errorf("vault contract id: %w", err)
	}
	tokA, err := d.TokenA.toDomain()
	if err != nil {
		return domain.Vault{}, fmt.Errorf("vault %s: %w", d.ContractID, err)
	}
	tokB, err := d.TokenB.toDomain()
	if err != nil {
		return domain.Vault{}, fmt.Errorf("vault %s: %w", d.ContractID, err)
	}

	// Wrapper vaults report no reserves; an empty amount is only valid there.
	var reserveA, reserveB decimal.Decimal
	if domain.VaultType(d.Type) != domain.VaultTypeSubnet {
		reserveA, err = parseBaseUnits(d.ReserveA, tokA.Decimals)
		if err != nil {
			return domain.Vault{}, fmt.Errorf("vault %s: reserve_a: %w", d.ContractID, err)
		}
		reserveB, err = parseBaseUnits(d.ReserveB, tokB.Decimals)
		if err != nil {
			return domain.Vault{}, fmt.Errorf("vault %s: reserve_b: %w", d.ContractID, err)
		}
	}

	v := domain.Vault{
		ContractID: contractID,
		Type:       domain.VaultType(d.Type),
		TokenA:     tokA.ID,
		TokenB:     tokB.ID,
		ReserveA:   reserveA,
		ReserveB:   reserveB,
		FeeBps:     d.FeeBps,
		UpdatedAt:  time.Unix(d.UpdatedAt, 0),
	}

	if d.LPToken != "" {
		lpID, err := token.Parse(d.LPToken)
		if err != nil {
			return domain.Vault{}, fmt.Errorf("vault %s: lp_token: %w", d.ContractID, err)
		}
		// LP tokens use the vault's own decimal convention; the indexer
		// reports supply in base units of the LP token itself.
		supply, err := parseBaseUnits(d.LPSupply, 6)
		if err != nil {
			return domain.Vault{}, fmt.Errorf("vault %s: lp_supply: %w", d.ContractID, err)
		}
		v.LPToken = lpID
		v.LPSupply = supply
	}

	return v, nil
}

func parseBaseUnits(raw string, decimals uint8) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return token.FromBaseUnits(d, decimals), nil
}
