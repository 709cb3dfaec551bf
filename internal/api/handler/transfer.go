package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/partygames/internal/api/request"
	"github.com/mcoot/partygames/internal/api/response"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/dispatcher"
	"github.com/mcoot/partygames/internal/services/transfer"
)

// TransferHandler issues and redeems page-transfer tokens
type TransferHandler struct {
	rooms    *dispatcher.Manager
	transfer *transfer.Service
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(rooms *dispatcher.Manager, transfer *transfer.Service) *TransferHandler {
	return &TransferHandler{
		rooms:    rooms,
		transfer: transfer,
	}
}

// Issue handles POST /api/v1/rooms/{id}/transfer
func (h *TransferHandler) Issue(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["id"])

	var req request.IssueTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Identity == "" {
		WriteError(w, NewInvalidRequestError("identity is required"))
		return
	}

	member, err := h.rooms.IsMember(r.Context(), roomID, req.Identity)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !member {
		WriteError(w, model.ErrNotInRoom)
		return
	}

	token, err := h.transfer.Issue(r.Context(), roomID, req.Identity)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.TransferFromModel(token))
}

// Redeem handles POST /api/v1/transfer/redeem
func (h *TransferHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req request.RedeemTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Token == "" {
		WriteError(w, NewInvalidRequestError("token is required"))
		return
	}

	token, err := h.transfer.Redeem(r.Context(), req.Token)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Redeemed{RoomID: token.RoomID, Identity: token.Identity})
}
