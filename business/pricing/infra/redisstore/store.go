// Package redisstore persists computed price sets in Redis so restarts
// and upstream outages can serve the last known good prices.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/business/pricing/domain"
	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/token"
)

const priceSetKey = "price-engine:priceset"

// Store implements app.PriceStore on Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Store. A zero ttl keeps entries forever.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Storage DTOs. Decimals travel as strings to survive round-trips intact.

type routeDTO struct {
	Pools       []string `json:"pools"`
	Hops        int      `json:"hops"`
	Reliability float64  `json:"reliability"`
}

type priceDTO struct {
	Token        string     `json:"token"`
	USD          string     `json:"usd"`
	AnchorRatio  string     `json:"anchor_ratio"`
	Confidence   float64    `json:"confidence"`
	Liquidity    float64    `json:"liquidity"`
	Source       string     `json:"source"`
	Route        []string   `json:"route,omitempty"`
	Alternatives []routeDTO `json:"alternatives,omitempty"`
	Hops         int        `json:"hops,omitempty"`
	ComputedAt   int64      `json:"computed_at"`
}

type priceSetDTO struct {
	BlockHeight uint64     `json:"block_height"`
	ComputedAt  int64      `json:"computed_at"`
	Prices      []priceDTO `json:"prices"`
	Unreachable []string   `json:"unreachable,omitempty"`
}

// Save implements app.PriceStore.
func (s *Store) Save(ctx context.Context, set *domain.PriceSet) error {
	dto := priceSetDTO{
		BlockHeight: set.BlockHeight,
		ComputedAt:  set.ComputedAt.Unix(),
		Prices:      make([]priceDTO, 0, len(set.Prices)),
		Unreachable: make([]string, 0, len(set.Unreachable)),
	}
	for _, id := range set.TokenIDs() {
		if p, ok := set.Prices[id]; ok {
			route := idsToStrings(p.Route)
			alts := make([]routeDTO, len(p.Alternatives))
			for i, a := range p.Alternatives {
				alts[i] = routeDTO{
					Pools:       idsToStrings(a.Pools),
					Hops:        a.Hops,
					Reliability: a.Reliability,
				}
			}
			dto.Prices = append(dto.Prices, priceDTO{
				Token:        string(p.Token),
				USD:          p.USD.String(),
				AnchorRatio:  p.AnchorRatio.String(),
				Confidence:   p.Confidence,
				Liquidity:    p.Liquidity,
				Source:       string(p.Source),
				Route:        route,
				Alternatives: alts,
				Hops:         p.Hops,
				ComputedAt:   p.ComputedAt.Unix(),
			})
			continue
		}
		dto.Unreachable = append(dto.Unreachable, string(id))
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return apperror.Internal(apperror.CodeInternalError, "marshal price set", err)
	}
	if err := s.client.Set(ctx, priceSetKey, data, s.ttl).Err(); err != nil {
		return apperror.External(apperror.CodeExternalServiceError, "redis SET", err)
	}
	return nil
}

// Load implements app.PriceStore.
func (s *Store) Load(ctx context.Context) (*domain.PriceSet, error) {
	data, err := s.client.Get(ctx, priceSetKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.New(apperror.CodeCacheMiss, apperror.WithContext(priceSetKey))
	}
	if err != nil {
		return nil, apperror.External(apperror.CodeExternalServiceError, "redis GET", err)
	}

	var dto priceSetDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, apperror.Internal(apperror.CodeSnapshotDecodeFailed, priceSetKey, err)
	}

	set := &domain.PriceSet{
		BlockHeight: dto.BlockHeight,
		ComputedAt:  time.Unix(dto.ComputedAt, 0),
		Prices:      make(map[token.ID]domain.TokenPrice, len(dto.Prices)),
		Unreachable: make(map[token.ID]struct{}, len(dto.Unreachable)),
	}
	for _, p := range dto.Prices {
		usd, err := decimal.NewFromString(p.USD)
		if err != nil {
			return nil, apperror.Internal(apperror.CodeSnapshotDecodeFailed, p.Token, err)
		}
		var ratio decimal.Decimal
		if p.AnchorRatio != "" {
			if ratio, err = decimal.NewFromString(p.AnchorRatio); err != nil {
				return nil, apperror.Internal(apperror.CodeSnapshotDecodeFailed, p.Token, err)
			}
		}
		route := stringsToIDs(p.Route)
		alts := make([]domain.RouteSummary, len(p.Alternatives))
		for i, a := range p.Alternatives {
			alts[i] = domain.RouteSummary{
				Pools:       stringsToIDs(a.Pools),
				Hops:        a.Hops,
				Reliability: a.Reliability,
			}
		}
		id := token.ID(p.Token)
		set.Prices[id] = domain.TokenPrice{
			Token:        id,
			USD:          usd,
			AnchorRatio:  ratio,
			Confidence:   p.Confidence,
			Liquidity:    p.Liquidity,
			Source:       domain.PriceSource(p.Source),
			Route:        route,
			Alternatives: alts,
			Hops:         p.Hops,
			ComputedAt:   time.Unix(p.ComputedAt, 0),
		}
	}
	for _, id := range dto.Unreachable {
		set.Unreachable[token.ID(id)] = struct{}{}
	}
	return set, nil
}

// Ping checks connectivity, used by the health server.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func idsToStrings(ids []token.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func stringsToIDs(in []string) []token.ID {
	out := make([]token.ID, len(in))
	for i, s := range in {
		out[i] = token.ID(s)
	}
	return out
}
