package realtime

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/partygames/internal/model"
)

const (
	// Time between keepalive comments
	keepalivePeriod = 15 * time.Second

	// Buffer size for spectator messages
	spectatorBuffer = 64
)

type spectator struct {
	send        chan []byte
	connectedAt time.Time
}

// hub fans public events of one room out to its spectators
type hub struct {
	roomID  model.RoomID
	clients map[*spectator]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *spectator
	unregister chan *spectator
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	refs int // Subscriptions plus pending ones, guarded by Spectators.mu
}

func newHub(roomID model.RoomID, logger *slog.Logger) *hub {
	return &hub{
		roomID:     roomID,
		clients:    make(map[*spectator]bool),
		logger:     logger.With(slog.String("room", string(roomID))),
		register:   make(chan *spectator),
		unregister: make(chan *spectator),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("spectator registered", slog.Int("total_spectators", count))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("spectator unregistered",
				slog.Duration("connection_duration", time.Since(c.connectedAt)),
				slog.Int("total_spectators", count))

		case msg := <-h.broadcast:
			h.mu.RLock()
			dropped := 0
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					dropped++
				}
			}
			h.mu.RUnlock()
			if dropped > 0 {
				h.logger.Warn("spectator messages dropped", slog.Int("dropped", dropped))
			}

		case <-h.done:
			// Drain anything published before the close so the final event reaches spectators
			for {
				select {
				case msg := <-h.broadcast:
					h.deliverAll(msg)
					continue
				default:
				}
				break
			}
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *hub) deliverAll(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *hub) add(c *spectator) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) remove(c *spectator) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *hub) publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("spectator broadcast dropped, hub buffer full")
	}
}

func (h *hub) close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Spectators manages read-only SSE streams of public room events
type Spectators struct {
	hubs   map[model.RoomID]*hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewSpectators creates an empty spectator registry
func NewSpectators(logger *slog.Logger) *Spectators {
	return &Spectators{
		hubs:   make(map[model.RoomID]*hub),
		logger: logger.With(slog.String("component", "spectators")),
	}
}

// Publish forwards an encoded envelope to the room's spectators, if any
func (s *Spectators) Publish(roomID model.RoomID, event model.EventType, data []byte) {
	s.mu.RLock()
	h, ok := s.hubs[roomID]
	s.mu.RUnlock()
	if ok {
		h.publish(formatSSEMessage(string(event), string(data)))
	}
}

// Remove ends every spectator stream of the room
func (s *Spectators) Remove(roomID model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.hubs[roomID]; ok {
		h.close()
		delete(s.hubs, roomID)
	}
}

// Count returns the number of spectators watching the room
func (s *Spectators) Count(roomID model.RoomID) int {
	s.mu.RLock()
	h, ok := s.hubs[roomID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return h.count()
}

// Close ends every stream
func (s *Spectators) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.hubs {
		h.close()
		delete(s.hubs, id)
	}
}

// Subscription is one spectator registered with a room's hub. Subscribing
// before taking the room snapshot means no event between the two is missed.
type Subscription struct {
	owner  *Spectators
	hub    *hub
	client *spectator
	once   sync.Once
}

// Subscribe registers a spectator for the room. It reports false if the
// room's stream was closed meanwhile.
func (s *Spectators) Subscribe(roomID model.RoomID) (*Subscription, bool) {
	h := s.acquire(roomID)
	c := &spectator{send: make(chan []byte, spectatorBuffer), connectedAt: time.Now()}
	if !h.add(c) {
		s.release(h)
		return nil, false
	}
	return &Subscription{owner: s, hub: h, client: c}, true
}

// Close unregisters the spectator. The hub stops once nobody watches it.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.hub.remove(sub.client)
		sub.owner.release(sub.hub)
	})
}

// acquire returns the room's hub, starting it on first use
func (s *Spectators) acquire(roomID model.RoomID) *hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hubs[roomID]
	if !ok {
		h = newHub(roomID, s.logger)
		s.hubs[roomID] = h
		go h.run()
	}
	h.refs++
	return h
}

func (s *Spectators) release(h *hub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.refs--
	if h.refs > 0 {
		return
	}
	h.close()
	if s.hubs[h.roomID] == h {
		delete(s.hubs, h.roomID)
	}
}

// Serve streams the room's public events to w until the client goes away or
// the room closes. initial is sent first as a state event.
func (sub *Subscription) Serve(w http.ResponseWriter, r *http.Request, initial []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = w.Write(formatSSEMessage(string(model.EventState), string(initial)))
	flusher.Flush()

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.client.send:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// Serve subscribes to the room and streams it. Callers that must check the
// room after subscribing use Subscribe directly.
func (s *Spectators) Serve(w http.ResponseWriter, r *http.Request, roomID model.RoomID, initial []byte) {
	sub, ok := s.Subscribe(roomID)
	if !ok {
		http.Error(w, "Room closed", http.StatusGone)
		return
	}
	defer sub.Close()
	sub.Serve(w, r, initial)
}

// formatSSEMessage prefixes every line of data with "data: "
func formatSSEMessage(event, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits on \n, dropping \r and a trailing empty line
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
