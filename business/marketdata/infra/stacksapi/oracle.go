package stacksapi

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/httpclient"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/token"
)

// OracleConfig configures the anchor price oracle client.
type OracleConfig struct {
	URL          string
	Timeout      time.Duration
	StaleTimeout time.Duration // quotes older than this are rejected
}

// Oracle fetches USD prices for anchor tokens from an external feed.
type Oracle struct {
	http   httpclient.Client
	config OracleConfig
	logger logger.LoggerInterface
}

type anchorQuoteDTO struct {
	TokenID   string `json:"token_id"`
	USDPrice  string `json:"usd_price"`
	UpdatedAt int64  `json:"updated_at"`
}

type anchorResponse struct {
	Quotes []anchorQuoteDTO `json:"quotes"`
}

// NewOracle creates an anchor oracle client.
func NewOracle(cfg OracleConfig, log logger.LoggerInterface) (*Oracle, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.URL),
		httpclient.WithProviderName("anchor-oracle"),
		httpclient.WithRequestTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, err
	}
	return &Oracle{http: hc, config: cfg, logger: log}, nil
}

// AnchorPrices implements app.AnchorOracle. Quotes with unparseable token
// ids, non-positive prices or expired timestamps are dropped.
func (o *Oracle) AnchorPrices(ctx context.Context) (map[token.ID]decimal.Decimal, error) {
	var out anchorResponse
	res, err := o.http.NewRequest().
		SetResult(&out).
		Get(ctx, "/v1/anchors")
	if err != nil {
		return nil, apperror.External(apperror.CodeOracleUnavailable, "GET /v1/anchors", err)
	}
	if res.IsError() {
		return nil, apperror.External(apperror.CodeOracleUnavailable,
			fmt.Sprintf("GET /v1/anchors: %s", res.Status), nil)
	}

	prices := make(map[token.ID]decimal.Decimal, len(out.Quotes))
	for _, q := range out.Quotes {
		id, err := token.Parse(q.TokenID)
		if err != nil {
			o.logger.Warn(ctx, "oracle quote with bad token id", "token", q.TokenID)
			continue
		}
		price, err := decimal.NewFromString(q.USDPrice)
		if err != nil || price.Sign() <= 0 {
			o.logger.Warn(ctx, "oracle quote with bad price", "token", q.TokenID, "price", q.USDPrice)
			continue
		}
		if o.config.StaleTimeout > 0 {
			age := time.Since(time.Unix(q.UpdatedAt, 0))
			if age > o.config.StaleTimeout {
				o.logger.Warn(ctx, "oracle quote expired", "token", q.TokenID, "age", age)
				continue
			}
		}
		prices[id] = price
	}

	if len(prices) == 0 {
		return nil, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithContext("no usable anchor quotes"))
	}
	return prices, nil
}
