// Package token provides a type-safe model for Stacks fungible tokens.
// Identity is the on-chain contract principal, not the display symbol.
package token

import (
	"fmt"
	"strings"
)

// ID uniquely identifies a token by its fully qualified contract identifier,
// optionally suffixed with the asset class name:
//
//	SP2ZNGJ85ENDY6QTHCQE98FQEMWY5XKXZERF2FB8E.charisma-token::charisma
//
// The principal + contract name are the TRUE identity - the symbol is just
// display metadata.
type ID string

// Parse validates a raw contract identifier and returns it as an ID.
func Parse(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("token: empty contract id")
	}

	base := raw
	if contract, asset, ok := strings.Cut(raw, "::"); ok {
		if asset == "" {
			return "", fmt.Errorf("token: %q has an empty asset name", raw)
		}
		base = contract
	}

	principal, contract, ok := strings.Cut(base, ".")
	if !ok || contract == "" {
		return "", fmt.Errorf("token: %q is not a contract identifier", raw)
	}
	if !validPrincipal(principal) {
		return "", fmt.Errorf("token: %q has an invalid principal", raw)
	}

	return ID(raw), nil
}

// MustParse is Parse that panics; for constants and tests.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Principal returns the standard principal part (e.g. "SP2ZNG…FB8E").
func (id ID) Principal() string {
	principal, _, _ := strings.Cut(string(id), ".")
	return principal
}

// Contract returns the contract identifier without the asset suffix.
func (id ID) Contract() string {
	contract, _, _ := strings.Cut(string(id), "::")
	return contract
}

// AssetName returns the asset class suffix, or "" when absent.
func (id ID) AssetName() string {
	_, asset, _ := strings.Cut(string(id), "::")
	return asset
}

// ContractName returns the contract name part (e.g. "charisma-token").
func (id ID) ContractName() string {
	_, rest, _ := strings.Cut(id.Contract(), ".")
	return rest
}

func (id ID) String() string {
	return string(id)
}

// validPrincipal checks the c32 address shape: mainnet SP/SM, testnet ST/SN.
func validPrincipal(p string) bool {
	if len(p) < 3 || len(p) > 41 {
		return false
	}
	switch {
	case strings.HasPrefix(p, "SP"), strings.HasPrefix(p, "SM"),
		strings.HasPrefix(p, "ST"), strings.HasPrefix(p, "SN"):
	default:
		return false
	}
	for _, r := range p[2:] {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
