package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/business/pricing/domain"
	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/token"
)

var (
	apiSBTC = token.MustParse("SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token::sbtc-token")
	apiCHA  = token.MustParse("SP2ZNGJ85ENDY6QTHCQE98FQEMWY5XKXZERF2FB8E.charisma-token::charisma")
	apiIso  = token.MustParse("SP1.token-iso::iso")
)

type stubService struct {
	set        *domain.PriceSet
	refreshErr error
	refreshed  int
}

func (s *stubService) lookupErr(id token.ID) error {
	_, outcome := s.set.Lookup(id)
	switch outcome {
	case domain.LookupUnreachable:
		return apperror.Unprocessable(apperror.CodeNoLiquidityPath, string(id))
	case domain.LookupUnknown:
		return apperror.NotFound(apperror.CodeTokenNotFound, string(id))
	}
	return nil
}

func (s *stubService) Price(ctx context.Context, id token.ID) (domain.TokenPrice, error) {
	if err := s.lookupErr(id); err != nil {
		return domain.TokenPrice{}, err
	}
	return s.set.Prices[id], nil
}

func (s *stubService) Prices(ctx context.Context, ids []token.ID) ([]domain.TokenPrice, map[token.ID]error, error) {
	var out []domain.TokenPrice
	failed := make(map[token.ID]error)
	for _, id := range ids {
		if err := s.lookupErr(id); err != nil {
			failed[id] = err
			continue
		}
		out = append(out, s.set.Prices[id])
	}
	return out, failed, nil
}

func (s *stubService) All(ctx context.Context) (*domain.PriceSet, error) {
	return s.set, nil
}

func (s *stubService) RefreshAll(ctx context.Context) (*domain.PriceSet, error) {
	s.refreshed++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.set, nil
}

func testServer(t *testing.T, svc PriceService) *Server {
	t.Helper()
	reg := token.NewRegistry()
	reg.Register(token.New(apiSBTC, "sBTC", 8))
	reg.Register(token.New(apiCHA, "CHA", 6))
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	return NewServer(ServerConfig{Addr: ":0"}, svc, reg, log)
}

func testSet() *domain.PriceSet {
	return &domain.PriceSet{
		BlockHeight: 1234,
		ComputedAt:  time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Prices: map[token.ID]domain.TokenPrice{
			apiSBTC: {
				Token: apiSBTC, USD: decimal.NewFromInt(60_000),
				AnchorRatio: decimal.NewFromInt(1), Liquidity: 600_010,
				Confidence: 1, Source: domain.SourceAnchor,
			},
			apiCHA: {
				Token: apiCHA, USD: decimal.RequireFromString("0.997"),
				AnchorRatio: decimal.RequireFromString("0.0000166"), Liquidity: 720_010,
				Confidence: 0.8, Source: domain.SourceMarket, Hops: 1,
				Route: []token.ID{"SP1.pool-cha-sbtc"},
			},
		},
		Unreachable: map[token.ID]struct{}{apiIso: {}},
	}
}

func doRequest(t *testing.T, srv *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return rec, body
}

func TestAPI_GetPrice(t *testing.T) {
	srv := testServer(t, &stubService{set: testSet()})

	rec, body := doRequest(t, srv, http.MethodGet, "/v1/prices/"+string(apiCHA))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}

	data := body["data"].(map[string]any)
	if data["usd"] != "0.997" {
		t.Errorf("usd = %v, want 0.997", data["usd"])
	}
	if data["anchor_ratio"] != "0.0000166" {
		t.Errorf("anchor_ratio = %v, want 0.0000166", data["anchor_ratio"])
	}
	if data["liquidity"] != float64(720_010) {
		t.Errorf("liquidity = %v, want 720010", data["liquidity"])
	}
	if data["symbol"] != "CHA" {
		t.Errorf("symbol = %v, want CHA", data["symbol"])
	}
	if data["source"] != "market" {
		t.Errorf("source = %v, want market", data["source"])
	}

	m := body["meta"].(map[string]any)
	if m["block_height"] != float64(1234) {
		t.Errorf("meta.block_height = %v, want 1234", m["block_height"])
	}
}

func TestAPI_GetPrice_ErrorMapping(t *testing.T) {
	srv := testServer(t, &stubService{set: testSet()})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown_token",
			target:     "/v1/prices/SP1.token-nope::nope",
			wantStatus: http.StatusNotFound,
			wantCode:   "TOKEN_NOT_FOUND",
		},
		{
			name:       "unreachable_token",
			target:     "/v1/prices/" + string(apiIso),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "NO_LIQUIDITY_PATH",
		},
		{
			name:       "malformed_id",
			target:     "/v1/prices/not-a-contract",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doRequest(t, srv, http.MethodGet, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d\n%s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			errObj := body["error"].(map[string]any)
			if errObj["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", errObj["code"], tt.wantCode)
			}
		})
	}
}

func TestAPI_ListPrices_Batch(t *testing.T) {
	srv := testServer(t, &stubService{set: testSet()})

	target := "/v1/prices?ids=" + strings.Join([]string{
		string(apiCHA), string(apiIso),
	}, ",")
	rec, body := doRequest(t, srv, http.MethodGet, target)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	data := body["data"].([]any)
	if len(data) != 1 {
		t.Errorf("resolved %d prices, want 1", len(data))
	}
	errs := body["errors"].(map[string]any)
	if _, ok := errs[string(apiIso)]; !ok {
		t.Error("unreachable id missing from errors map")
	}
}

func TestAPI_ListPrices_All_StableOrder(t *testing.T) {
	srv := testServer(t, &stubService{set: testSet()})

	_, first := doRequest(t, srv, http.MethodGet, "/v1/prices")
	_, second := doRequest(t, srv, http.MethodGet, "/v1/prices")

	f := first["data"].([]any)
	s := second["data"].([]any)
	if len(f) != 2 {
		t.Fatalf("len(data) = %d, want 2", len(f))
	}
	for i := range f {
		ft := f[i].(map[string]any)["token"]
		st := s[i].(map[string]any)["token"]
		if ft != st {
			t.Errorf("order differs between calls at %d: %v vs %v", i, ft, st)
		}
	}
}

func TestAPI_DetailFlag(t *testing.T) {
	srv := testServer(t, &stubService{set: testSet()})

	_, plain := doRequest(t, srv, http.MethodGet, "/v1/prices?ids="+string(apiCHA))
	if _, ok := plain["data"].([]any)[0].(map[string]any)["route"]; ok {
		t.Error("route should be omitted without detail=1")
	}

	_, detailed := doRequest(t, srv, http.MethodGet, "/v1/prices?ids="+string(apiCHA)+"&detail=1")
	route, ok := detailed["data"].([]any)[0].(map[string]any)["route"]
	if !ok {
		t.Fatal("route missing with detail=1")
	}
	if len(route.([]any)) != 1 {
		t.Errorf("route length = %d, want 1", len(route.([]any)))
	}
}

func TestAPI_ListTokens(t *testing.T) {
	srv := testServer(t, &stubService{set: testSet()})

	rec, body := doRequest(t, srv, http.MethodGet, "/v1/tokens")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("len(data) = %d, want 2", len(data))
	}
	first := data[0].(map[string]any)
	if first["symbol"] == "" {
		t.Error("token entry missing symbol")
	}
}

func TestAPI_Refresh(t *testing.T) {
	svc := &stubService{set: testSet()}
	srv := testServer(t, svc)

	rec, body := doRequest(t, srv, http.MethodPost, "/v1/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if svc.refreshed != 1 {
		t.Errorf("refreshed = %d, want 1", svc.refreshed)
	}
	data := body["data"].(map[string]any)
	if data["priced"] != float64(2) {
		t.Errorf("priced = %v, want 2", data["priced"])
	}

	// Wrong method must not trigger a refresh.
	req := httptest.NewRequest(http.MethodGet, "/v1/refresh", nil)
	plain := httptest.NewRecorder()
	srv.routes().ServeHTTP(plain, req)
	if plain.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /v1/refresh status = %d, want 405", plain.Code)
	}
	if svc.refreshed != 1 {
		t.Errorf("refreshed = %d after GET, want still 1", svc.refreshed)
	}
}

func TestAPI_StaleFlagInMeta(t *testing.T) {
	set := testSet()
	set.Stale = true
	srv := testServer(t, &stubService{set: set})

	_, body := doRequest(t, srv, http.MethodGet, "/v1/prices")
	m := body["meta"].(map[string]any)
	if m["stale"] != true {
		t.Error("meta.stale not set for a fallback price set")
	}
}
