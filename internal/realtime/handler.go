package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to WebSocket game connections
type Handler struct {
	dispatcher Dispatcher
	outbox     *Outbox
	upgrader   websocket.Upgrader
	cfg        Config
	logger     *slog.Logger
}

// NewHandler creates a WebSocket handler
func NewHandler(d Dispatcher, out *Outbox, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: d,
		outbox:     out,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			// Browser clients are served from other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cfg:    cfg.withDefaults(),
		logger: logger.With(slog.String("component", "realtime")),
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
// A connection belongs to no room until it creates, joins or attaches.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(socket, h.cfg, h.logger)
	c.logger.Debug("websocket connected", slog.String("remote_addr", r.RemoteAddr))

	go c.writePump()
	c.readPump(h.dispatcher, h.outbox)

	c.logger.Debug("websocket disconnected")
}
