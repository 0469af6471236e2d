package stacksapi

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stxquote/price-engine/business/marketdata/domain"
	"github.com/stxquote/price-engine/internal/logger"
	"github.com/stxquote/price-engine/internal/wsconn"
)

// FeedConfig configures the chain tip websocket feed.
type FeedConfig struct {
	URL            string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int
}

// Feed streams chain tips from the Stacks node websocket. Reconnection is
// handled by the underlying wsconn client; the SnapshotService falls back
// to polling whenever the feed goes quiet.
type Feed struct {
	config FeedConfig
	logger logger.LoggerInterface

	mu     sync.Mutex
	client *wsconn.Client
	out    chan domain.ChainTip
}

// blockEvent is the subset of the node's block notification we care about.
type blockEvent struct {
	Method string `json:"method"`
	Params struct {
		BlockHeight uint64 `json:"block_height"`
		BlockHash   string `json:"block_hash"`
		BlockTime   int64  `json:"block_time"`
	} `json:"params"`
}

// NewFeed creates a chain tip feed. Subscribe must be called to connect.
func NewFeed(cfg FeedConfig, log logger.LoggerInterface) *Feed {
	return &Feed{config: cfg, logger: log}
}

// Subscribe implements app.BlockFeed.
func (f *Feed) Subscribe(ctx context.Context) (<-chan domain.ChainTip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return f.out, nil
	}

	wsCfg := wsconn.DefaultConfig(f.config.URL, "stacks-blocks")
	if f.config.InitialBackoff > 0 {
		wsCfg.InitialBackoff = f.config.InitialBackoff
	}
	if f.config.MaxBackoff > 0 {
		wsCfg.MaxBackoff = f.config.MaxBackoff
	}
	wsCfg.MaxReconnects = f.config.MaxReconnects

	client, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.ChainTip, 16)

	client.OnMessage(func(ctx context.Context, msg []byte) {
		var ev blockEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			f.logger.Debug(ctx, "ignoring unparseable ws message", "error", err)
			return
		}
		if ev.Method != "block" {
			return
		}
		tip := domain.ChainTip{
			Height:    ev.Params.BlockHeight,
			BlockHash: ev.Params.BlockHash,
			Time:      time.Unix(ev.Params.BlockTime, 0),
		}
		select {
		case out <- tip:
		default:
			f.logger.Warn(ctx, "dropping chain tip, consumer too slow", "height", tip.Height)
		}
	})

	client.OnStateChange(func(state wsconn.State, err error) {
		switch state {
		case wsconn.StateConnected:
			f.logger.Info(context.Background(), "block feed connected")
			// Resubscribe after every (re)connect.
			sub := map[string]any{
				"jsonrpc": "2.0",
				"id":      1,
				"method":  "subscribe",
				"params":  map[string]string{"event": "block"},
			}
			if err := client.SendJSON(context.Background(), sub); err != nil {
				f.logger.Error(context.Background(), "block subscription failed", "error", err)
			}
		case wsconn.StateReconnecting:
			f.logger.Warn(context.Background(), "block feed reconnecting", "error", err)
		case wsconn.StateClosed:
			f.logger.Info(context.Background(), "block feed closed")
		}
	})

	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	f.client = client
	f.out = out
	return out, nil
}

// Close implements app.BlockFeed.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	close(f.out)
	f.client = nil
	return err
}
