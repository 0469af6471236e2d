package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/token"
)

// PriceSource says how a price was derived.
type PriceSource string

const (
	// SourceAnchor is an externally oracled anchor token.
	SourceAnchor PriceSource = "anchor"
	// SourceMarket is a swap-path quote through pool reserves.
	SourceMarket PriceSource = "market"
	// SourceIntrinsic is an LP token valued by its redeemable share.
	SourceIntrinsic PriceSource = "intrinsic"
	// SourceAlias is a wrapped token inheriting its base token's price.
	SourceAlias PriceSource = "alias"
)

// RouteSummary describes one viable path to the anchor.
type RouteSummary struct {
	Pools       []token.ID
	Hops        int
	Reliability float64
}

// TokenPrice is one priced token within a snapshot.
type TokenPrice struct {
	Token        token.ID
	USD          decimal.Decimal
	AnchorRatio  decimal.Decimal // price in anchor-token units, 1 for the anchor itself
	Confidence   float64         // in [0, 1], 1 = anchor
	Liquidity    float64         // summed depth of every pool the token sits in
	Source       PriceSource
	Route        []token.ID     // pool ids of the primary path, empty for anchors
	Alternatives []RouteSummary // other viable paths, best first
	Hops         int
	ComputedAt   time.Time
}

// Rate multiplies the per-hop rates of the route: how many target-token
// units one source unit buys after fees.
func (p *Path) Rate() decimal.Decimal {
	rate := decimal.NewFromInt(1)
	for i := range p.Edges {
		rate = rate.Mul(p.Edges[i].Rate())
	}
	return rate
}

// IntrinsicLPPrice values one LP token by the USD worth of the pool it
// can redeem: (reserveA*priceA + reserveB*priceB) / supply.
func IntrinsicLPPrice(reserveA, priceA, reserveB, priceB, supply decimal.Decimal) (decimal.Decimal, error) {
	if supply.Sign() <= 0 {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidInput, "LP supply must be positive")
	}
	tvl := reserveA.Mul(priceA).Add(reserveB.Mul(priceB))
	return tvl.Div(supply), nil
}

// QuoteRedemption returns the pro-rata share of both reserves that
// burning lpAmount LP tokens releases.
func QuoteRedemption(lpAmount, reserveA, reserveB, supply decimal.Decimal) (outA, outB decimal.Decimal, err error) {
	if supply.Sign() <= 0 {
		return decimal.Zero, decimal.Zero,
			apperror.Validation(apperror.CodeInvalidInput, "LP supply must be positive")
	}
	if lpAmount.Sign() < 0 || lpAmount.GreaterThan(supply) {
		return decimal.Zero, decimal.Zero,
			apperror.Validation(apperror.CodeInvalidInput, "LP amount outside [0, supply]")
	}
	share := lpAmount.Div(supply)
	return reserveA.Mul(share), reserveB.Mul(share), nil
}

// redemptionTolerance is the maximum relative deviation allowed between
// an LP token's unit price and the value of what it actually redeems.
var redemptionTolerance = decimal.RequireFromString("0.0001") // 0.01%

// VerifyRedemptionLinearity checks that valuing a redemption of lpAmount
// at the component prices lands within tolerance of lpAmount * unitPrice.
// A deviation signals corrupted reserves or a non-proportional vault.
func VerifyRedemptionLinearity(lpAmount, reserveA, priceA, reserveB, priceB, supply decimal.Decimal) error {
	unit, err := IntrinsicLPPrice(reserveA, priceA, reserveB, priceB, supply)
	if err != nil {
		return err
	}
	outA, outB, err := QuoteRedemption(lpAmount, reserveA, reserveB, supply)
	if err != nil {
		return err
	}

	expected := unit.Mul(lpAmount)
	if expected.Sign() == 0 {
		return nil
	}
	actual := outA.Mul(priceA).Add(outB.Mul(priceB))
	deviation := actual.Sub(expected).Abs().Div(expected)
	if deviation.GreaterThan(redemptionTolerance) {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithMessage("LP redemption value deviates from unit price"),
			apperror.WithContext(deviation.String()))
	}
	return nil
}
