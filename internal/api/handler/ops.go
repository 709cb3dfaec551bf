package handler

import (
	"net/http"
	"sort"

	"github.com/mcoot/partygames/internal/api/response"
	"github.com/mcoot/partygames/internal/services/content"
	"github.com/mcoot/partygames/internal/services/scheduler"
)

// OpsHandler serves operational read endpoints
type OpsHandler struct {
	scheduler *scheduler.Scheduler
	content   *content.Service
}

// NewOpsHandler creates a new operations handler
func NewOpsHandler(sched *scheduler.Scheduler, content *content.Service) *OpsHandler {
	return &OpsHandler{
		scheduler: sched,
		content:   content,
	}
}

// Timers handles GET /api/v1/timers
func (h *OpsHandler) Timers(w http.ResponseWriter, r *http.Request) {
	active := h.scheduler.ActiveTimers()

	timers := make([]response.RoomTimers, 0, len(active))
	for roomID, counts := range active {
		timers = append(timers, response.RoomTimers{
			RoomID:     roomID,
			TurnTimer:  counts.TurnTimer,
			HintTimers: counts.HintTimers,
		})
	}
	sort.Slice(timers, func(i, j int) bool { return timers[i].RoomID < timers[j].RoomID })

	response.JSON(w, http.StatusOK, response.TimerList{Timers: timers})
}

// ContentStats handles GET /api/v1/content/stats
func (h *OpsHandler) ContentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.content.Stats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ContentStats{Catalogs: stats})
}
