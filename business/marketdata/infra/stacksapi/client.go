// Package stacksapi implements the market data ports against a Stacks
// vault indexer HTTP API and the node's websocket event stream.
package stacksapi

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/circuitbreaker"
	"github.com/stxquote/price-engine/internal/httpclient"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/ratelimit"
)

// ClientConfig configures the vault indexer client.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimitRPS float64
}

// Client fetches vaults and chain state over HTTP. Requests are rate
// limited and guarded by a circuit breaker.
type Client struct {
	http    httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*vaultsResponse]
	tipCB   *circuitbreaker.CircuitBreaker[*blocksResponse]
	logger  logger.LoggerInterface
}

// NewClient creates a vault indexer client.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}

	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithProviderName("stacks-indexer"),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, err
	}

	c := &Client{
		http:    hc,
		limiter: ratelimit.NewWithBurst(cfg.RateLimitRPS, int(cfg.RateLimitRPS)+1),
		logger:  log,
	}

	vaultCfg := circuitbreaker.DefaultConfig("stacks-vaults")
	vaultCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[*vaultsResponse](vaultCfg)

	tipCfg := circuitbreaker.DefaultConfig("stacks-tip")
	tipCfg.OnStateChange = vaultCfg.OnStateChange
	c.tipCB = circuitbreaker.New[*blocksResponse](tipCfg)

	return c, nil
}

// FetchVaults implements app.VaultSource. Vaults that fail boundary
// conversion are skipped; the indexer occasionally lists half-initialized
// contracts and one bad row must not sink the refresh.
func (c *Client) FetchVaults(ctx context.Context) ([]domain.Vault, []domain.TokenMeta, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	resp, err := c.cb.Execute(func() (*vaultsResponse, error) {
		var out vaultsResponse
		res, err := c.http.NewRequest().
			SetResult(&out).
			Get(ctx, "/v1/vaults")
		if err != nil {
			return nil, err
		}
		if res.IsError() {
			return nil, fmt.Errorf("indexer returned %s", res.Status)
		}
		return &out, nil
	})
	if err != nil {
		return nil, nil, apperror.External(apperror.CodeVaultFetchFailed, "GET /v1/vaults", err)
	}

	vaults := make([]domain.Vault, 0, len(resp.Vaults))
	seen := make(map[string]domain.TokenMeta)
	for i := range resp.Vaults {
		v, err := resp.Vaults[i].toDomain()
		if err != nil {
			c.logger.Warn(ctx, "skipping malformed vault row",
				"vault", resp.Vaults[i].ContractID, "error", err)
			continue
		}
		vaults = append(vaults, v)

		for _, t := range []tokenDTO{resp.Vaults[i].TokenA, resp.Vaults[i].TokenB} {
			meta, err := t.toDomain()
			if err != nil {
				continue
			}
			seen[string(meta.ID)] = meta
		}
	}

	tokens := make([]domain.TokenMeta, 0, len(seen))
	for _, meta := range seen {
		tokens = append(tokens, meta)
	}
	return vaults, tokens, nil
}

// ChainTip implements app.VaultSource.
func (c *Client) ChainTip(ctx context.Context) (domain.ChainTip, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ChainTip{}, err
	}

	resp, err := c.tipCB.Execute(func() (*blocksResponse, error) {
		var out blocksResponse
		res, err := c.http.NewRequest().
			SetQueryParam("limit", "1").
			SetResult(&out).
			Get(ctx, "/extended/v2/blocks")
		if err != nil {
			return nil, err
		}
		if res.IsError() {
			return nil, fmt.Errorf("indexer returned %s", res.Status)
		}
		return &out, nil
	})
	if err != nil {
		return domain.ChainTip{}, apperror.External(apperror.CodeStacksAPIError, "GET /extended/v2/blocks", err)
	}
	if len(resp.Results) == 0 {
		return domain.ChainTip{}, apperror.New(apperror.CodeStacksAPIError,
			apperror.WithContext("empty blocks response"))
	}

	b := resp.Results[0]
	return domain.ChainTip{
		Height:    b.Height,
		BlockHash: b.Hash,
		Time:      time.Unix(b.BlockTime, 0),
	}, nil
}
