// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomrelay/internal/presence"
)

const writeWait = 10 * time.Second

// Client is one upgraded WebSocket connection. Its id doubles as the
// presence connection id.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	maxMessageSize int64
	pingInterval   time.Duration
	pongTimeout    time.Duration
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	log            *slog.Logger
}

// NewClient creates a client with a fresh connection id and a buffered send
// channel sized from cfg.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg Config) *Client {
	cfg = cfg.sanitize()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		pingInterval:   cfg.PingInterval,
		pongTimeout:    cfg.PongTimeout,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
		log:            hub.log.With("connection_id", id, "addr", addr),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout)); err != nil {
		c.log.Error("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout)); err != nil {
			c.log.Error("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs the read failure and reports whether the read loop
// should stop. Every read error is terminal for gorilla connections.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded maximum size", "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("Client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("Client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("Unexpected WebSocket close", "error", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
	return true
}

// checkRateLimit reports whether the next frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("Rate limit exceeded; discarding frame",
			"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processMessage routes one inbound frame to the coordinator. Malformed or
// invalid frames are answered with an error event on this connection only.
func (c *Client) processMessage(raw []byte) bool {
	if !c.hub.live(c) {
		c.log.Debug("Dropped frame from unregistered client")
		return false
	}
	eventType, applied, err := dispatchInbound(c.hub.coordinator, c.id, raw)
	if err != nil {
		c.observe(eventType, outcomeInvalid)
		c.log.Debug("Rejected inbound frame", "type", eventType, "error", err)
		c.reply(ErrorEvent{Message: err.Error()})
		return false
	}
	if !applied {
		c.observe(eventType, outcomeIgnored)
		c.log.Debug("Ignored inbound frame", "type", eventType)
		return false
	}
	c.observe(eventType, outcomeApplied)
	return true
}

func (c *Client) observe(eventType, outcome string) {
	if c.hub.metrics != nil {
		c.hub.metrics.observeInbound(eventType, outcome)
	}
}

func (c *Client) reply(ev presence.Event) {
	c.hub.coordinator.Notify(c.id, ev)
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
			c.hub.disconnect(c.id)
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Error("Error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			return
		}

		if !c.checkRateLimit() {
			c.observe("", outcomeLimited)
			continue
		}

		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Error("Error closing connection in writePump", "error", err)
	}
}

// handleMessage writes one queued frame, or a close frame once the send
// channel has been closed by the hub.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Error("Error setting write deadline", "error", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Error("Error writing close message", "error", err)
		}
		return false
	}

	// Each event is its own text frame so clients can JSON-parse frames directly.
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Error("Error writing message", "error", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Error("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Error("Error writing ping message", "error", err)
		return false
	}
	return true
}
