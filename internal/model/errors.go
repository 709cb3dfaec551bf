package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomExists         = errors.New("room id is already in use")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomClosed         = errors.New("room is closed")
	ErrDuplicateName      = errors.New("name is already taken in this room")
	ErrNotInRoom          = errors.New("player is not in this room")
	ErrNotHost            = errors.New("player is not the host")
	ErrInvalidRoomID      = errors.New("invalid room id")
	ErrInvalidIdentity    = errors.New("invalid player name")
	ErrUnknownGameType    = errors.New("unknown game type")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrGameAlreadyStarted = errors.New("game has already started")

	// Turn and round errors
	ErrNotYourTurn     = errors.New("not this player's turn")
	ErrWrongGameStatus = errors.New("action not allowed in the current game status")
	ErrCannotGuessOwn  = errors.New("performer cannot guess their own item")
	ErrAlreadyAnswered = errors.New("player has already answered this question")
	ErrQuestionLocked  = errors.New("question has already been answered")

	// Content errors
	ErrContentUnavailable = errors.New("no content available")
	ErrItemNotFound       = errors.New("item not found")

	// Request errors
	ErrInvalidAction  = errors.New("invalid action")
	ErrInvalidPayload = errors.New("invalid action payload")
	ErrRateLimited    = errors.New("too many messages")

	// Transfer token errors
	ErrTransferTokenInvalid = errors.New("transfer token is invalid or expired")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
)
