// Package apierr maps domain errors to the error codes reported by both the
// HTTP API and WebSocket error envelopes.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/partygames/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeRoomNotFound         = "ROOM_NOT_FOUND"
	CodeRoomExists           = "ROOM_EXISTS"
	CodeRoomFull             = "ROOM_FULL"
	CodeRoomClosed           = "ROOM_CLOSED"
	CodeDuplicateName        = "DUPLICATE_NAME"
	CodeNotInRoom            = "NOT_IN_ROOM"
	CodeNotHost              = "NOT_HOST"
	CodeInvalidRoomID        = "INVALID_ROOM_ID"
	CodeInvalidIdentity      = "INVALID_IDENTITY"
	CodeUnknownGameType      = "UNKNOWN_GAME_TYPE"
	CodeNotEnoughPlayers     = "NOT_ENOUGH_PLAYERS"
	CodeGameAlreadyStarted   = "GAME_ALREADY_STARTED"
	CodeNotYourTurn          = "NOT_YOUR_TURN"
	CodeWrongGameStatus      = "WRONG_GAME_STATUS"
	CodeCannotGuessOwn       = "CANNOT_GUESS_OWN"
	CodeAlreadyAnswered      = "ALREADY_ANSWERED"
	CodeQuestionLocked       = "QUESTION_LOCKED"
	CodeContentUnavailable   = "CONTENT_UNAVAILABLE"
	CodeItemNotFound         = "ITEM_NOT_FOUND"
	CodeInvalidAction        = "INVALID_ACTION"
	CodeInvalidPayload       = "INVALID_PAYLOAD"
	CodeRateLimited          = "RATE_LIMITED"
	CodeTransferTokenInvalid = "TRANSFER_TOKEN_INVALID"
	CodeDictionaryNotLoaded  = "DICTIONARY_NOT_LOADED"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInternalError        = "INTERNAL_ERROR"
)

type mapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins
var mappings = []mapping{
	{model.ErrRoomNotFound, http.StatusNotFound, CodeRoomNotFound},
	{model.ErrRoomExists, http.StatusConflict, CodeRoomExists},
	{model.ErrRoomFull, http.StatusConflict, CodeRoomFull},
	{model.ErrRoomClosed, http.StatusGone, CodeRoomClosed},
	{model.ErrDuplicateName, http.StatusConflict, CodeDuplicateName},
	{model.ErrNotInRoom, http.StatusForbidden, CodeNotInRoom},
	{model.ErrNotHost, http.StatusForbidden, CodeNotHost},
	{model.ErrInvalidRoomID, http.StatusBadRequest, CodeInvalidRoomID},
	{model.ErrInvalidIdentity, http.StatusBadRequest, CodeInvalidIdentity},
	{model.ErrUnknownGameType, http.StatusBadRequest, CodeUnknownGameType},
	{model.ErrNotEnoughPlayers, http.StatusConflict, CodeNotEnoughPlayers},
	{model.ErrGameAlreadyStarted, http.StatusConflict, CodeGameAlreadyStarted},
	{model.ErrNotYourTurn, http.StatusForbidden, CodeNotYourTurn},
	{model.ErrWrongGameStatus, http.StatusConflict, CodeWrongGameStatus},
	{model.ErrCannotGuessOwn, http.StatusForbidden, CodeCannotGuessOwn},
	{model.ErrAlreadyAnswered, http.StatusConflict, CodeAlreadyAnswered},
	{model.ErrQuestionLocked, http.StatusConflict, CodeQuestionLocked},
	{model.ErrContentUnavailable, http.StatusServiceUnavailable, CodeContentUnavailable},
	{model.ErrItemNotFound, http.StatusNotFound, CodeItemNotFound},
	{model.ErrInvalidAction, http.StatusBadRequest, CodeInvalidAction},
	{model.ErrInvalidPayload, http.StatusBadRequest, CodeInvalidPayload},
	{model.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{model.ErrTransferTokenInvalid, http.StatusNotFound, CodeTransferTokenInvalid},
	{model.ErrDictionaryNotLoaded, http.StatusServiceUnavailable, CodeDictionaryNotLoaded},
}

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Lookup returns the HTTP status and API error for err. Wrapped detail is
// dropped; the message is always the sentinel's.
func Lookup(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return &httpError{m.status, APIError{m.code, m.target.Error()}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
