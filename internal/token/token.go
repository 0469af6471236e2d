package token

import "github.com/shopspring/decimal"

// Token is the metadata of a Stacks fungible token. It is a reference
// entity with stable identity (the contract ID); symbol and name are
// display metadata only.
type Token struct {
	id       ID
	symbol   string
	name     string
	decimals uint8
}

// New creates a Token with the given identity and decimals.
func New(id ID, symbol string, decimals uint8) *Token {
	if symbol == "" {
		panic("token: empty symbol")
	}
	if decimals > 30 {
		panic("token: suspicious decimals (>30)")
	}
	return &Token{id: id, symbol: symbol, decimals: decimals}
}

// NewWithName creates a Token with a human-readable name.
func NewWithName(id ID, symbol, name string, decimals uint8) *Token {
	t := New(id, symbol, decimals)
	t.name = name
	return t
}

// ID returns the contract identifier.
func (t *Token) ID() ID { return t.id }

// Symbol returns the ticker symbol (e.g. "CHA", "sBTC").
func (t *Token) Symbol() string { return t.symbol }

// Name returns the human-readable name, falling back to the symbol.
func (t *Token) Name() string {
	if t.name == "" {
		return t.symbol
	}
	return t.name
}

// Decimals returns the number of decimal places of the token's base unit.
func (t *Token) Decimals() uint8 { return t.decimals }

func (t *Token) String() string { return t.symbol }

// Equals compares two tokens by identity.
func (t *Token) Equals(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.id == other.id
}

// FromBaseUnits converts an integer base-unit quantity (micro-units) into
// whole-token units. Boundary function for wire payloads.
func FromBaseUnits(raw decimal.Decimal, decimals uint8) decimal.Decimal {
	return raw.Shift(-int32(decimals))
}

// ToBaseUnits converts a whole-token quantity into integer base units,
// truncating any sub-unit remainder.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) decimal.Decimal {
	return amount.Shift(int32(decimals)).Truncate(0)
}
