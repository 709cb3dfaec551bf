package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/partygames/internal/api/handler"
	"github.com/mcoot/partygames/internal/api/middleware"
	"github.com/mcoot/partygames/internal/api/response"
	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/realtime"
	"github.com/mcoot/partygames/internal/services/content"
	"github.com/mcoot/partygames/internal/services/dispatcher"
	"github.com/mcoot/partygames/internal/services/scheduler"
	"github.com/mcoot/partygames/internal/services/transfer"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Clock           clock.Clock
	Rooms           *dispatcher.Manager
	Scheduler       *scheduler.Scheduler
	ContentService  *content.Service
	TransferService *transfer.Service
	Spectators      *realtime.Spectators
	// WebSocket is the game connection endpoint, mounted at /ws
	WebSocket http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	roomHandler := handler.NewRoomHandler(cfg.Rooms, cfg.Spectators, cfg.Clock, cfg.Logger)
	transferHandler := handler.NewTransferHandler(cfg.Rooms, cfg.TransferService)
	opsHandler := handler.NewOpsHandler(cfg.Scheduler, cfg.ContentService)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Room routes
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/events", roomHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/transfer", transferHandler.Issue).Methods(http.MethodPost)
	api.HandleFunc("/transfer/redeem", transferHandler.Redeem).Methods(http.MethodPost)

	// Operational routes
	api.HandleFunc("/timers", opsHandler.Timers).Methods(http.MethodGet)
	api.HandleFunc("/content/stats", opsHandler.ContentStats).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Game connections
	if cfg.WebSocket != nil {
		r.Handle("/ws", recoveryMiddleware(loggingMiddleware(cfg.WebSocket))).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
