package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/token"
)

func TestPriceSet_MarkUnreachable_SkipsPriced(t *testing.T) {
	id := token.MustParse("SP1.token-a::a")
	set := &PriceSet{
		Prices: map[token.ID]TokenPrice{
			id: {Token: id, USD: decimal.NewFromInt(2)},
		},
		Unreachable: map[token.ID]struct{}{},
	}

	set.MarkUnreachable(id)
	if len(set.Unreachable) != 0 {
		t.Error("priced token also recorded as unreachable")
	}

	other := token.MustParse("SP1.token-b::b")
	set.MarkUnreachable(other)
	if _, ok := set.Unreachable[other]; !ok {
		t.Error("unpriced token not recorded as unreachable")
	}
}

func TestPriceSet_TokenIDs_NoDuplicates(t *testing.T) {
	id := token.MustParse("SP1.token-a::a")
	set := &PriceSet{
		Prices: map[token.ID]TokenPrice{
			id: {Token: id, USD: decimal.NewFromInt(2)},
		},
		// A persisted set from an older run can carry the id in both maps.
		Unreachable: map[token.ID]struct{}{id: {}},
	}

	ids := set.TokenIDs()
	if len(ids) != 1 {
		t.Fatalf("TokenIDs = %v, want the id once", ids)
	}
	if _, outcome := set.Lookup(id); outcome != LookupPriced {
		t.Errorf("Lookup outcome = %v, want priced", outcome)
	}
}
