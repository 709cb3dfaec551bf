// Package realtime carries the wire protocol over WebSockets and fans room
// events out to SSE spectators.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/registry"
)

// Dispatcher receives decoded client actions
type Dispatcher interface {
	Submit(conn registry.Conn, in model.Inbound)
	Disconnect(conn registry.Conn)
}

// Config holds WebSocket connection settings
type Config struct {
	WriteWait      time.Duration // Time allowed to write a message to the peer
	PongWait       time.Duration // Time allowed between pongs
	PingPeriod     time.Duration // Must be less than PongWait
	MaxMessageSize int64
	SendBuffer     int
	RateLimit      rate.Limit // Sustained inbound messages per second
	RateBurst      int
}

// DefaultConfig returns default connection settings
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		RateLimit:      20,
		RateBurst:      40,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.RateLimit <= 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = d.RateBurst
	}
	return c
}

// Client is one WebSocket connection. It implements registry.Conn.
type Client struct {
	id      string
	socket  *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	cfg     Config
	logger  *slog.Logger
}

var _ registry.Conn = (*Client)(nil)

func newClient(socket *websocket.Conn, cfg Config, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:      id,
		socket:  socket,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		cfg:     cfg,
		logger:  logger.With(slog.String("conn", id)),
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// Send queues a message. A client too slow to drain its buffer is dropped.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("send buffer full, dropping client")
		c.Close()
		return false
	}
}

// Close stops the write pump, which closes the socket
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// readPump decodes inbound actions until the socket fails
func (c *Client) readPump(d Dispatcher, out *Outbox) {
	defer func() {
		d.Disconnect(c)
		c.Close()
	}()

	c.socket.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", slog.String("error", err.Error()))
			}
			return
		}

		var in model.Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			out.Reject(c, in.Type, model.ErrInvalidPayload)
			continue
		}
		if !c.limiter.Allow() {
			out.Reject(c, in.Type, model.ErrRateLimited)
			continue
		}
		d.Submit(c, in)
	}
}

// writePump is the only writer to the socket
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.drain()
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain flushes messages queued before Close, such as a final room_closed
func (c *Client) drain() {
	for {
		select {
		case msg := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
