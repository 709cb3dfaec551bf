package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
		if v.Server != "" {
			o.printf("Server: %s (%s)\n", v.Server, v.Latency)
		}
	case RoomList:
		o.printRoomList(v)
	case RoomView:
		o.printRoom(v.Room)
	case TimerList:
		o.printTimers(v)
	case ContentStats:
		o.printContentStats(v)
	case Transfer:
		o.printf("Token: %s\n", v.Token)
		o.printf("Expires: %s\n", v.ExpiresAt.Format(time.RFC3339))
	case Redeemed:
		o.printf("Room: %s\n", v.RoomID)
		o.printf("Identity: %s\n", v.Identity)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Server  string `json:"server,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// RoomSummary response type
type RoomSummary struct {
	ID          string    `json:"id"`
	GameType    string    `json:"game_type"`
	Status      string    `json:"status"`
	Host        string    `json:"host"`
	PlayerCount int       `json:"player_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomList response type
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Player response type
type Player struct {
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
	Team   int    `json:"team,omitempty"`
}

// RoomState is the public room snapshot
type RoomState struct {
	ID          string         `json:"id"`
	GameType    string         `json:"game_type"`
	Status      string         `json:"status"`
	PausedFrom  string         `json:"paused_from,omitempty"`
	Host        string         `json:"host"`
	Players     []Player       `json:"players"`
	Scores      map[string]int `json:"scores"`
	TeamScores  map[int]int    `json:"team_scores,omitempty"`
	CurrentTurn string         `json:"current_turn,omitempty"`
	Round       int            `json:"round"`
	Hints       []string       `json:"hints,omitempty"`
	Letter      string         `json:"letter,omitempty"`
	Categories  []string       `json:"categories,omitempty"`
}

// RoomView wraps a room snapshot
type RoomView struct {
	Room RoomState `json:"room"`
}

// RoomTimers response type
type RoomTimers struct {
	RoomID     string `json:"room_id"`
	TurnTimer  int    `json:"turn_timer"`
	HintTimers int    `json:"hint_timers"`
}

// TimerList response type
type TimerList struct {
	Timers []RoomTimers `json:"timers"`
}

// CatalogStats response type
type CatalogStats struct {
	GameType     string `json:"game_type"`
	TotalItems   int    `json:"total_items"`
	UnusedItems  int    `json:"unused_items"`
	NeedsRefetch bool   `json:"needs_refetch"`
}

// ContentStats response type
type ContentStats struct {
	Catalogs []CatalogStats `json:"catalogs"`
}

// Transfer response type
type Transfer struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Redeemed response type
type Redeemed struct {
	RoomID   string `json:"room_id"`
	Identity string `json:"identity"`
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		o.printf("No open rooms\n")
		return
	}
	o.printf("%-12s %-14s %-14s %-12s %s\n", "ROOM", "GAME", "STATUS", "HOST", "PLAYERS")
	for _, r := range l.Rooms {
		o.printf("%-12s %-14s %-14s %-12s %d\n", r.ID, r.GameType, r.Status, r.Host, r.PlayerCount)
	}
}

func (o *Output) printRoom(r RoomState) {
	o.printf("Room: %s\n", r.ID)
	o.printf("Game: %s\n", r.GameType)
	status := r.Status
	if r.PausedFrom != "" {
		status += " (from " + r.PausedFrom + ")"
	}
	o.printf("Status: %s\n", status)
	o.printf("Round: %d\n", r.Round)
	if r.CurrentTurn != "" {
		o.printf("Current Turn: %s\n", r.CurrentTurn)
	}
	if r.Letter != "" {
		o.printf("Letter: %s\n", r.Letter)
		o.printf("Categories: %s\n", strings.Join(r.Categories, ", "))
	}
	for i, h := range r.Hints {
		o.printf("Hint %d: %s\n", i+1, h)
	}

	o.printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		extra := ""
		if p.IsHost {
			extra += " [host]"
		}
		if p.Team > 0 {
			extra += fmt.Sprintf(" [team %d]", p.Team)
		}
		o.printf("  - %s: %d%s\n", p.Name, r.Scores[p.Name], extra)
	}

	if len(r.TeamScores) > 0 {
		teams := make([]int, 0, len(r.TeamScores))
		for t := range r.TeamScores {
			teams = append(teams, t)
		}
		sort.Ints(teams)
		for _, t := range teams {
			o.printf("Team %d: %d\n", t, r.TeamScores[t])
		}
	}
}

func (o *Output) printTimers(l TimerList) {
	if len(l.Timers) == 0 {
		o.printf("No active timers\n")
		return
	}
	o.printf("%-12s %-6s %s\n", "ROOM", "TURN", "HINTS")
	for _, t := range l.Timers {
		o.printf("%-12s %-6d %d\n", t.RoomID, t.TurnTimer, t.HintTimers)
	}
}

func (o *Output) printContentStats(s ContentStats) {
	o.printf("%-12s %-7s %-7s %s\n", "GAME", "TOTAL", "UNUSED", "REFETCH")
	for _, c := range s.Catalogs {
		refetch := "no"
		if c.NeedsRefetch {
			refetch = "yes"
		}
		o.printf("%-12s %-7d %-7d %s\n", c.GameType, c.TotalItems, c.UnusedItems, refetch)
	}
}
