package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/token"
)

var (
	testCHA  = token.MustParse("SP2ZNGJ85ENDY6QTHCQE98FQEMWY5XKXZERF2FB8E.charisma-token::charisma")
	testSBTC = token.MustParse("SM3VDXK3WZZSA84XXFKAFAF15NNZX32CTSG82JFQ4.sbtc-token::sbtc-token")
)

type stubSource struct {
	vaults []domain.Vault
	tokens []domain.TokenMeta
	tip    domain.ChainTip
	err    error
}

func (s *stubSource) FetchVaults(ctx context.Context) ([]domain.Vault, []domain.TokenMeta, error) {
	return s.vaults, s.tokens, s.err
}

func (s *stubSource) ChainTip(ctx context.Context) (domain.ChainTip, error) {
	return s.tip, nil
}

type stubOracle struct {
	prices map[token.ID]decimal.Decimal
	err    error
}

func (s *stubOracle) AnchorPrices(ctx context.Context) (map[token.ID]decimal.Decimal, error) {
	return s.prices, s.err
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func poolVault(reserveA, reserveB int64) domain.Vault {
	return domain.Vault{
		ContractID: token.MustParse("SP2ZNGJ85ENDY6QTHCQE98FQEMWY5XKXZERF2FB8E.cha-sbtc-pool"),
		Type:       domain.VaultTypePool,
		TokenA:     testCHA,
		TokenB:     testSBTC,
		ReserveA:   decimal.NewFromInt(reserveA),
		ReserveB:   decimal.NewFromInt(reserveB),
		FeeBps:     30,
		UpdatedAt:  time.Now(),
	}
}

func TestSnapshotService_Refresh_DropsInvalidVaults(t *testing.T) {
	empty := poolVault(0, 50) // zero reserve must not survive validation
	source := &stubSource{
		vaults: []domain.Vault{poolVault(1000, 2), empty},
		tip:    domain.ChainTip{Height: 4242},
	}
	oracle := &stubOracle{prices: map[token.ID]decimal.Decimal{
		testSBTC: decimal.NewFromInt(60_000),
	}}

	svc, err := NewSnapshotService(source, oracle, nil,
		SnapshotServiceConfig{MaxStale: time.Minute}, testLogger())
	if err != nil {
		t.Fatalf("NewSnapshotService: %v", err)
	}

	snap, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if len(snap.Vaults) != 1 {
		t.Fatalf("snapshot has %d vaults, want 1 (invalid dropped)", len(snap.Vaults))
	}
	if snap.BlockHeight != 4242 {
		t.Errorf("BlockHeight = %d, want 4242", snap.BlockHeight)
	}
	if got := snap.AnchorPrices[testSBTC]; !got.Equal(decimal.NewFromInt(60_000)) {
		t.Errorf("anchor price = %s, want 60000", got)
	}
}

func TestSnapshotService_Refresh_SourceError(t *testing.T) {
	source := &stubSource{err: errors.New("api down")}
	oracle := &stubOracle{prices: map[token.ID]decimal.Decimal{}}

	svc, err := NewSnapshotService(source, oracle, nil, SnapshotServiceConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewSnapshotService: %v", err)
	}

	_, err = svc.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh should fail when the vault source errors")
	}
	if code := apperror.GetCode(err); code != apperror.CodeVaultFetchFailed {
		t.Errorf("error code = %s, want %s", code, apperror.CodeVaultFetchFailed)
	}

	// The previous snapshot (none) is not replaced.
	if _, ok := svc.Current(); ok {
		t.Error("Current should report no snapshot after a failed first refresh")
	}
}

func TestSnapshotService_Fresh_Staleness(t *testing.T) {
	source := &stubSource{vaults: []domain.Vault{poolVault(1000, 2)}}
	oracle := &stubOracle{prices: map[token.ID]decimal.Decimal{}}

	svc, err := NewSnapshotService(source, oracle, nil,
		SnapshotServiceConfig{MaxStale: 10 * time.Minute}, testLogger())
	if err != nil {
		t.Fatalf("NewSnapshotService: %v", err)
	}

	if _, err := svc.Fresh(); apperror.GetCode(err) != apperror.CodeSnapshotUnavailable {
		t.Errorf("Fresh before refresh: code = %s, want %s",
			apperror.GetCode(err), apperror.CodeSnapshotUnavailable)
	}

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := svc.Fresh(); err != nil {
		t.Fatalf("Fresh after refresh: %v", err)
	}

	// Age the snapshot past the limit.
	snap, _ := svc.Current()
	snap.TakenAt = time.Now().Add(-time.Hour)

	stale, err := svc.Fresh()
	if apperror.GetCode(err) != apperror.CodeStaleSnapshot {
		t.Errorf("Fresh on aged snapshot: code = %s, want %s",
			apperror.GetCode(err), apperror.CodeStaleSnapshot)
	}
	if stale == nil {
		t.Error("Fresh should still return the stale snapshot for fallback use")
	}
}

func TestSnapshotService_OnUpdate(t *testing.T) {
	source := &stubSource{vaults: []domain.Vault{poolVault(1000, 2)}}
	oracle := &stubOracle{prices: map[token.ID]decimal.Decimal{}}

	svc, err := NewSnapshotService(source, oracle, nil, SnapshotServiceConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewSnapshotService: %v", err)
	}

	var notified *domain.Snapshot
	svc.OnUpdate(func(s *domain.Snapshot) { notified = s })

	snap, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if notified != snap {
		t.Error("listener did not receive the installed snapshot")
	}
}
