package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/stxquote/price-engine/business/pricing/domain"
	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/token"
)

// Response envelope. Every payload carries the snapshot metadata so a
// consumer can tell how fresh and how consistent the numbers are.

type meta struct {
	BlockHeight uint64 `json:"block_height"`
	ComputedAt  string `json:"computed_at"`
	Stale       bool   `json:"stale,omitempty"`
}

type envelope struct {
	Data   any            `json:"data"`
	Meta   *meta          `json:"meta,omitempty"`
	Errors map[string]any `json:"errors,omitempty"`
}

type priceJSON struct {
	Token        string      `json:"token"`
	Symbol       string      `json:"symbol,omitempty"`
	USD          string      `json:"usd"`
	AnchorRatio  string      `json:"anchor_ratio"`
	Confidence   float64     `json:"confidence"`
	Liquidity    float64     `json:"liquidity"`
	Source       string      `json:"source"`
	Hops         int         `json:"hops,omitempty"`
	Route        []string    `json:"route,omitempty"`
	Alternatives []routeJSON `json:"alternatives,omitempty"`
}

type routeJSON struct {
	Pools       []string `json:"pools"`
	Hops        int      `json:"hops"`
	Reliability float64  `json:"reliability"`
}

type tokenJSON struct {
	Token    string `json:"token"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

func (s *Server) toPriceJSON(p domain.TokenPrice, detail bool) priceJSON {
	out := priceJSON{
		Token:       string(p.Token),
		USD:         p.USD.String(),
		AnchorRatio: p.AnchorRatio.String(),
		Confidence:  p.Confidence,
		Liquidity:   p.Liquidity,
		Source:      string(p.Source),
		Hops:        p.Hops,
	}
	if t, ok := s.tokens.Get(p.Token); ok {
		out.Symbol = t.Symbol()
	}
	if detail {
		out.Route = make([]string, len(p.Route))
		for i, r := range p.Route {
			out.Route[i] = string(r)
		}
		for _, a := range p.Alternatives {
			pools := make([]string, len(a.Pools))
			for i, id := range a.Pools {
				pools[i] = string(id)
			}
			out.Alternatives = append(out.Alternatives, routeJSON{
				Pools:       pools,
				Hops:        a.Hops,
				Reliability: a.Reliability,
			})
		}
	}
	return out
}

func setMeta(set *domain.PriceSet) *meta {
	return &meta{
		BlockHeight: set.BlockHeight,
		ComputedAt:  set.ComputedAt.UTC().Format(time.RFC3339),
		Stale:       set.Stale,
	}
}

// GET /v1/prices?ids=a,b,c[&detail=1]
func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail := r.URL.Query().Get("detail") == "1"

	set, err := s.service.All(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rawIDs := r.URL.Query().Get("ids")
	if rawIDs == "" {
		// Full set, sorted for stable output.
		out := make([]priceJSON, 0, len(set.Prices))
		for _, id := range set.TokenIDs() {
			if p, ok := set.Prices[id]; ok {
				out = append(out, s.toPriceJSON(p, detail))
			}
		}
		s.writeJSON(w, http.StatusOK, envelope{Data: out, Meta: setMeta(set)})
		return
	}

	ids := make([]token.ID, 0, 8)
	for _, raw := range strings.Split(rawIDs, ",") {
		id, err := token.Parse(raw)
		if err != nil {
			s.writeError(w, r, apperror.Validation(apperror.CodeInvalidInput, raw))
			return
		}
		ids = append(ids, id)
	}

	prices, failed, err := s.service.Prices(ctx, ids)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]priceJSON, 0, len(prices))
	for _, p := range prices {
		out = append(out, s.toPriceJSON(p, detail))
	}

	resp := envelope{Data: out, Meta: setMeta(set)}
	if len(failed) > 0 {
		resp.Errors = make(map[string]any, len(failed))
		for id, ferr := range failed {
			var appErr *apperror.AppError
			if errors.As(ferr, &appErr) {
				resp.Errors[string(id)] = appErr.ToResponse()["error"]
			} else {
				resp.Errors[string(id)] = ferr.Error()
			}
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GET /v1/prices/{id}
func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := token.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, apperror.Validation(apperror.CodeInvalidInput, r.PathValue("id")))
		return
	}

	p, err := s.service.Price(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	set, err := s.service.All(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Data: s.toPriceJSON(p, true),
		Meta: setMeta(set),
	})
}

// GET /v1/tokens
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	all := s.tokens.All()
	out := make([]tokenJSON, 0, len(all))
	for _, t := range all {
		out = append(out, tokenJSON{
			Token:    string(t.ID()),
			Symbol:   t.Symbol(),
			Name:     t.Name(),
			Decimals: t.Decimals(),
		})
	}
	// Registry iteration order is random; keep the wire order stable.
	sortTokens(out)
	s.writeJSON(w, http.StatusOK, envelope{Data: out})
}

// POST /v1/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	set, err := s.service.RefreshAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, envelope{
		Data: map[string]int{"priced": len(set.Prices), "unreachable": len(set.Unreachable)},
		Meta: setMeta(set),
	})
}

func sortTokens(toks []tokenJSON) {
	sort.Slice(toks, func(i, j int) bool { return toks[i].Token < toks[j].Token })
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), "response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(apperror.CodeInternalError, "", err)
	}

	if appErr.StatusCode >= 500 {
		s.logger.Error(r.Context(), "request failed",
			"path", r.URL.Path, "code", appErr.Code, "error", appErr)
	} else {
		s.logger.Debug(r.Context(), "request rejected",
			"path", r.URL.Path, "code", appErr.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	json.NewEncoder(w).Encode(appErr.ToResponse())
}
