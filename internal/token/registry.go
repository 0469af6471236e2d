package token

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe registry of known tokens.
type Registry struct {
	byID     map[ID]*Token
	bySymbol map[string][]*Token
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[ID]*Token),
		bySymbol: make(map[string][]*Token),
	}
}

// Register adds a token. Panics if the same contract ID is already present.
func (r *Registry) Register(t *Token) {
	if t == nil {
		panic("token: cannot register nil token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[t.ID()]; exists {
		panic(fmt.Sprintf("token: %s already registered", t.ID()))
	}
	r.byID[t.ID()] = t
	r.bySymbol[t.Symbol()] = append(r.bySymbol[t.Symbol()], t)
}

// Upsert adds a token or replaces the existing entry with the same ID.
// Used when refreshing metadata from a vault snapshot.
func (r *Registry) Upsert(t *Token) {
	if t == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.byID[t.ID()]; exists {
		syms := r.bySymbol[old.Symbol()]
		for i, cand := range syms {
			if cand.ID() == old.ID() {
				r.bySymbol[old.Symbol()] = append(syms[:i], syms[i+1:]...)
				break
			}
		}
	}
	r.byID[t.ID()] = t
	r.bySymbol[t.Symbol()] = append(r.bySymbol[t.Symbol()], t)
}

// Get retrieves a token by contract ID.
func (r *Registry) Get(id ID) (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// GetBySymbol retrieves all tokens with the given symbol. Symbols are not
// unique across contracts, so this may return more than one.
func (r *Registry) GetBySymbol(symbol string) []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	toks := r.bySymbol[symbol]
	if len(toks) == 0 {
		return nil
	}
	out := make([]*Token, len(toks))
	copy(out, toks)
	return out
}

// All returns all registered tokens.
func (r *Registry) All() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Token, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	return out
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Has reports whether a token with the given ID is registered.
func (r *Registry) Has(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}
