package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrStaleSession  = errors.New("session stale (no heartbeat ack)")
)

// ConnConfig configures a single websocket connection.
type ConnConfig struct {
	URL              string        // Gateway URL (wss://...)
	HandshakeTimeout time.Duration // Dial deadline
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Payload channel buffer size
}

// DefaultConnConfig returns sensible defaults.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

func (c *ConnConfig) applyDefaults() {
	def := DefaultConnConfig()
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
}

// Conn is a single push-stream connection. It decodes framed payloads and
// delivers them on a channel in arrival order; protocol-level readiness
// (identify, heartbeat) is the Supervisor's concern.
type Conn struct {
	cfg    ConnConfig
	logger *slog.Logger

	conn *websocket.Conn

	payloads chan Payload
	errs     chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	connected bool
	closed    bool
}

// NewConn creates an unconnected Conn. Zero config fields fall back to
// DefaultConnConfig values.
func NewConn(cfg ConnConfig, logger *slog.Logger) *Conn {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Conn{
		cfg:      cfg,
		logger:   logger,
		payloads: make(chan Payload, cfg.BufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect dials the gateway and starts the read loop.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop()

	c.logger.Debug("gateway socket connected", "url", c.cfg.URL)

	return nil
}

// Close gracefully closes the connection. It is safe to call twice.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	close(c.done)

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return c.conn.Close()
	}

	return nil
}

// Send writes one payload to the connection.
func (c *Conn) Send(p Payload) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteJSON(p)
}

// Payloads returns the decoded payload channel.
func (c *Conn) Payloads() <-chan Payload {
	return c.payloads
}

// Errors returns the connection error channel.
func (c *Conn) Errors() <-chan error {
	return c.errs
}

// IsConnected returns the current connection state.
func (c *Conn) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop reads and decodes messages until the connection drops.
func (c *Conn) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
				select {
				case c.errs <- err:
				default:
				}
				return
			}
		}

		var p Payload
		if err := json.Unmarshal(data, &p); err != nil {
			c.logger.Warn("undecodable gateway frame", "error", err, "size", len(data))
			continue
		}

		select {
		case c.payloads <- p:
		case <-c.done:
			return
		}
	}
}
