package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/internal/apperror"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/token"
)

// SnapshotServiceConfig tunes the snapshot refresh behaviour.
type SnapshotServiceConfig struct {
	RefreshInterval time.Duration // periodic refresh, also the fallback when the feed is down
	MaxStale        time.Duration // snapshots older than this are rejected
}

// SnapshotService maintains the current market snapshot. It refreshes on
// chain tip events and on a timer, validates every vault, and keeps the
// last good snapshot available for stale fallback.
type SnapshotService struct {
	source VaultSource
	oracle AnchorOracle
	feed   BlockFeed
	config SnapshotServiceConfig
	logger logger.LoggerInterface

	mu        sync.RWMutex
	current   *domain.Snapshot
	listeners []func(*domain.Snapshot)

	tracer          trace.Tracer
	refreshCounter  metric.Int64Counter
	rejectedCounter metric.Int64Counter
	snapshotAge     metric.Float64Gauge
}

// NewSnapshotService creates a SnapshotService. feed may be nil, in which
// case only the periodic timer drives refreshes.
func NewSnapshotService(
	source VaultSource,
	oracle AnchorOracle,
	feed BlockFeed,
	config SnapshotServiceConfig,
	log logger.LoggerInterface,
) (*SnapshotService, error) {
	s := &SnapshotService{
		source: source,
		oracle: oracle,
		feed:   feed,
		config: config,
		logger: log,
		tracer: otel.Tracer("marketdata.snapshot"),
	}

	meter := otel.Meter("marketdata.snapshot")
	var err error
	s.refreshCounter, err = meter.Int64Counter("marketdata_snapshot_refreshes_total",
		metric.WithDescription("Snapshot refresh attempts by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}
	s.rejectedCounter, err = meter.Int64Counter("marketdata_vaults_rejected_total",
		metric.WithDescription("Vaults dropped during snapshot validation"),
		metric.WithUnit("{vault}"),
	)
	if err != nil {
		return nil, err
	}
	s.snapshotAge, err = meter.Float64Gauge("marketdata_snapshot_age_seconds",
		metric.WithDescription("Age of the current snapshot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// OnUpdate registers a listener called after every successful refresh.
// Listeners run synchronously on the refresh goroutine.
func (s *SnapshotService) OnUpdate(fn func(*domain.Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Current returns the latest snapshot. The second return is false until
// the first refresh completes.
func (s *SnapshotService) Current() (*domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	s.snapshotAge.Record(context.Background(), s.current.Age().Seconds())
	return s.current, true
}

// Fresh returns the latest snapshot only if it is within the staleness
// limit. A stale snapshot comes back with a STALE_SNAPSHOT error so the
// caller can decide whether to degrade or fail.
func (s *SnapshotService) Fresh() (*domain.Snapshot, error) {
	snap, ok := s.Current()
	if !ok {
		return nil, apperror.New(apperror.CodeSnapshotUnavailable)
	}
	if snap.IsStale(s.config.MaxStale) {
		return snap, apperror.New(apperror.CodeStaleSnapshot,
			apperror.WithContext(snap.Age().Truncate(time.Second).String()))
	}
	return snap, nil
}

// Refresh fetches vaults and anchor prices, validates, and installs a new
// snapshot. Vaults failing validation are dropped, not fatal.
func (s *SnapshotService) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "marketdata.refresh")
	defer span.End()

	var (
		wg           sync.WaitGroup
		vaults       []domain.Vault
		tokens       []domain.TokenMeta
		vaultErr     error
		oraclePrices map[token.ID]decimal.Decimal
		anchorErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vaults, tokens, vaultErr = s.source.FetchVaults(ctx)
	}()
	go func() {
		defer wg.Done()
		oraclePrices, anchorErr = s.oracle.AnchorPrices(ctx)
	}()
	wg.Wait()

	if vaultErr != nil {
		s.refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "vault_error")))
		span.RecordError(vaultErr)
		return nil, apperror.Wrap(vaultErr, apperror.CodeVaultFetchFailed, "snapshot refresh")
	}
	if anchorErr != nil {
		s.refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "oracle_error")))
		span.RecordError(anchorErr)
		return nil, apperror.Wrap(anchorErr, apperror.CodeOracleUnavailable, "snapshot refresh")
	}

	tip, err := s.source.ChainTip(ctx)
	if err != nil {
		s.logger.Warn(ctx, "chain tip unavailable, snapshot height unset", "error", err)
	}

	valid := vaults[:0]
	for i := range vaults {
		if err := vaults[i].Validate(); err != nil {
			s.rejectedCounter.Add(ctx, 1)
			s.logger.Warn(ctx, "dropping invalid vault",
				"vault", vaults[i].ContractID, "error", err)
			continue
		}
		valid = append(valid, vaults[i])
	}

	snap := &domain.Snapshot{
		BlockHeight:  tip.Height,
		TakenAt:      time.Now(),
		Vaults:       valid,
		Tokens:       tokens,
		AnchorPrices: oraclePrices,
	}

	s.mu.Lock()
	s.current = snap
	listeners := make([]func(*domain.Snapshot), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	s.logger.Info(ctx, "snapshot refreshed",
		"height", snap.BlockHeight,
		"vaults", len(snap.Vaults),
		"tokens", len(snap.Tokens),
	)

	for _, l := range listeners {
		l(snap)
	}
	return snap, nil
}

// Run drives refreshes until ctx is cancelled: once immediately, then on
// every chain tip event, with the timer as fallback when the feed is quiet.
func (s *SnapshotService) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Error(ctx, "initial snapshot refresh failed", "error", err)
	}

	var tips <-chan domain.ChainTip
	if s.feed != nil {
		ch, err := s.feed.Subscribe(ctx)
		if err != nil {
			s.logger.Warn(ctx, "block feed unavailable, falling back to polling", "error", err)
		} else {
			tips = ch
		}
	}

	interval := s.config.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tip, ok := <-tips:
			if !ok {
				tips = nil // feed closed, timer keeps us going
				continue
			}
			s.logger.Debug(ctx, "chain tip advanced", "height", tip.Height)
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error(ctx, "snapshot refresh failed", "error", err)
			}
			ticker.Reset(interval)
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error(ctx, "snapshot refresh failed", "error", err)
			}
		}
	}
}
