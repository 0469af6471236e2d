package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/token"
)

var (
	tokenCHA  = token.MustParse("SP2ZNGJ85ENDY6QTHCQE98FQEMWY5XKXZERF2FB8E.charisma-token::charisma")
	tokenSBTC = token.MustParse("SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token::sbtc-token")
	vaultID   = token.MustParse("SP2ZNGJ85ENDY6QTHCQE98FQEMWY5XKXZERF2FB8E.cha-sbtc-pool")
)

func validPool() Vault {
	return Vault{
		ContractID: vaultID,
		Type:       VaultTypePool,
		TokenA:     tokenCHA,
		TokenB:     tokenSBTC,
		ReserveA:   decimal.NewFromInt(100_000),
		ReserveB:   decimal.NewFromInt(2),
		FeeBps:     30,
		UpdatedAt:  time.Now(),
	}
}

func TestVault_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(v *Vault)
		wantCode apperror.Code
	}{
		{
			name:   "valid_pool",
			mutate: func(v *Vault) {},
		},
		{
			name:     "zero_reserve_a",
			mutate:   func(v *Vault) { v.ReserveA = decimal.Zero },
			wantCode: apperror.CodeInvalidReserves,
		},
		{
			name:     "negative_reserve_b",
			mutate:   func(v *Vault) { v.ReserveB = decimal.NewFromInt(-5) },
			wantCode: apperror.CodeInvalidReserves,
		},
		{
			name:     "missing_token",
			mutate:   func(v *Vault) { v.TokenB = "" },
			wantCode: apperror.CodeRequiredField,
		},
		{
			name:     "same_token_both_sides",
			mutate:   func(v *Vault) { v.TokenB = v.TokenA },
			wantCode: apperror.CodeInvalidInput,
		},
		{
			name:     "fee_above_100_percent",
			mutate:   func(v *Vault) { v.FeeBps = 10_000 },
			wantCode: apperror.CodeInvalidInput,
		},
		{
			name: "lp_token_without_supply",
			mutate: func(v *Vault) {
				v.LPToken = token.MustParse("SP2ZNGJ85ENDY6QTHCQE98FQEMWY5XKXZERF2FB8E.cha-sbtc-pool::lp-token")
			},
			wantCode: apperror.CodeInvalidInput,
		},
		{
			name: "subnet_without_reserves_is_valid",
			mutate: func(v *Vault) {
				v.Type = VaultTypeSubnet
				v.ReserveA = decimal.Zero
				v.ReserveB = decimal.Zero
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validPool()
			tt.mutate(&v)

			err := v.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if got := apperror.GetCode(err); got != tt.wantCode {
				t.Errorf("error code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestVault_Other(t *testing.T) {
	v := validPool()

	if got, ok := v.Other(tokenCHA); !ok || got != tokenSBTC {
		t.Errorf("Other(CHA) = %s, %v", got, ok)
	}
	if got, ok := v.Other(tokenSBTC); !ok || got != tokenCHA {
		t.Errorf("Other(sBTC) = %s, %v", got, ok)
	}
	if _, ok := v.Other("SP000000000000000000002Q6VF78.unknown"); ok {
		t.Error("Other(unknown) should not resolve")
	}
}

func TestSnapshot_IsStale(t *testing.T) {
	s := Snapshot{TakenAt: time.Now().Add(-15 * time.Minute)}

	if !s.IsStale(10 * time.Minute) {
		t.Error("15m old snapshot should be stale with 10m limit")
	}
	if s.IsStale(20 * time.Minute) {
		t.Error("15m old snapshot should not be stale with 20m limit")
	}
	if s.IsStale(0) {
		t.Error("zero limit disables staleness")
	}
}
