package domain

import (
	"sort"
	"time"

	"github.com/stxquote/price-engine/internal/token"
)

// PriceSet is the full pricing output for one snapshot. It is what gets
// cached, served and persisted: every priced token, plus the tokens that
// were present but unreachable from the anchor.
type PriceSet struct {
	BlockHeight uint64
	ComputedAt  time.Time
	Stale       bool // served from fallback, newer data unavailable
	Prices      map[token.ID]TokenPrice
	Unreachable map[token.ID]struct{}
}

// Lookup distinguishes the three outcomes for a token id: priced,
// known-but-unreachable, or unknown.
func (s *PriceSet) Lookup(id token.ID) (TokenPrice, LookupOutcome) {
	if p, ok := s.Prices[id]; ok {
		return p, LookupPriced
	}
	if _, ok := s.Unreachable[id]; ok {
		return TokenPrice{}, LookupUnreachable
	}
	return TokenPrice{}, LookupUnknown
}

// MarkUnreachable records a token as having no route to the anchor. A
// token that already carries a price is never demoted; the two states
// are mutually exclusive.
func (s *PriceSet) MarkUnreachable(id token.ID) {
	if _, ok := s.Prices[id]; ok {
		return
	}
	s.Unreachable[id] = struct{}{}
}

// LookupOutcome classifies a PriceSet lookup.
type LookupOutcome int

const (
	LookupPriced LookupOutcome = iota
	LookupUnreachable
	LookupUnknown
)

// TokenIDs returns every token the set knows about, priced or not, in
// lexical order. An id present in both maps counts once, as priced.
func (s *PriceSet) TokenIDs() []token.ID {
	out := make([]token.ID, 0, len(s.Prices)+len(s.Unreachable))
	for id := range s.Prices {
		out = append(out, id)
	}
	for id := range s.Unreachable {
		if _, ok := s.Prices[id]; ok {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
