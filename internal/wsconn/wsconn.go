// Package wsconn provides a WebSocket client with automatic reconnection,
// exponential backoff and keepalive pings.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/stxquote/price-engine/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// MessageHandler receives every inbound message.
type MessageHandler func(ctx context.Context, msg []byte)

// StateChangeHandler is notified on every state transition. err is non-nil
// when the transition was caused by a failure.
type StateChangeHandler func(state State, err error)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // identifies the connection in logs and errors
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int           // 0 = infinite
	PingInterval   time.Duration // 0 disables keepalive pings
	PongTimeout    time.Duration
	MaxMessageSize int64 // 0 = library default
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
	}
}

// Client is a reconnecting WebSocket client.
type Client struct {
	config Config

	mu      sync.RWMutex
	conn    *websocket.Conn
	state   State
	onMsg   MessageHandler
	onState StateChangeHandler

	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new WebSocket client. Connect must be called to dial.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithMessage("wsconn: empty URL"))
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	return &Client{
		config: config,
		state:  StateDisconnected,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage registers the inbound message handler. Must be called before
// Connect.
func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.onMsg = h
	c.mu.Unlock()
}

// OnStateChange registers the state transition handler. Must be called
// before Connect.
func (c *Client) OnStateChange(h StateChangeHandler) {
	c.mu.Lock()
	c.onState = h
	c.mu.Unlock()
}

// Connect dials the server and starts the read and keepalive loops.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return apperror.External(apperror.CodeWebSocketConnectionError, c.config.Name, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)

	if c.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(conn)
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	return conn, nil
}

// Send writes a raw text message.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(fmt.Sprintf("%s: not connected (state %s)", c.config.Name, state)))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.External(apperror.CodeWebSocketSendError, c.config.Name, err)
	}
	return nil
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidFormat, c.config.Name)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "client shutdown")
		}
		c.setState(StateClosed, nil)
	})
	c.wg.Wait()
	return nil
}

// readLoop drains inbound messages until the connection drops, then hands
// off to the reconnect loop.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ctx := context.Background()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if c.isDone() {
				return
			}
			c.reconnect(err)
			return
		}

		c.mu.RLock()
		handler := c.onMsg
		c.mu.RUnlock()
		if handler != nil {
			handler(ctx, data)
		}
	}
}

// pingLoop keeps the connection alive. A failed ping is left to the read
// loop to detect.
func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.PongTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// reconnect redials with exponential backoff and jitter until it succeeds,
// the retry budget runs out, or the client is closed.
func (c *Client) reconnect(cause error) {
	c.setState(StateReconnecting, cause)

	backoff := c.config.InitialBackoff
	for attempt := 1; ; attempt++ {
		if c.config.MaxReconnects > 0 && attempt > c.config.MaxReconnects {
			c.setState(StateDisconnected, errors.New("wsconn: reconnect attempts exhausted"))
			return
		}

		select {
		case <-c.done:
			return
		case <-time.After(jitter(backoff)):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.setState(StateConnected, nil)

			c.wg.Add(1)
			go c.readLoop(conn)
			if c.config.PingInterval > 0 {
				c.wg.Add(1)
				go c.pingLoop(conn)
			}
			return
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	if c.state == StateClosed && state != StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(state, err)
	}
}

func (c *Client) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// jitter spreads reconnect attempts across +/-20% of the base delay.
func jitter(d time.Duration) time.Duration {
	delta := int64(float64(d) * 0.2)
	if delta == 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(2*delta)-delta)
}
