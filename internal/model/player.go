package model

// Player is a roster entry. Name is the player's identity within a room.
type Player struct {
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
	Team   int    `json:"team,omitempty"` // 0 when team mode is off
	Avatar string `json:"avatar,omitempty"`
}

// Team ids used in team mode
const (
	TeamOne = 1
	TeamTwo = 2
)
