package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/errors"
	"pharmacy-ledger/internal/service"
)

type TransferHandler struct {
	transferService *service.TransferService
}

func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
	Description   string `json:"description,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

type TransferResponse struct {
	Reference        string        `json:"reference"`
	SourceEntry      EntryResponse `json:"source_entry"`
	DestinationEntry EntryResponse `json:"destination_entry"`
	Replayed         bool          `json:"replayed,omitempty"`
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid from_account_id format"))
		return
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid to_account_id format"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	result, svcErr := h.transferService.Transfer(service.TransferRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		Description:   req.Description,
		Reference:     req.Reference,
	})
	if svcErr != nil {
		writeServiceError(w, svcErr)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, TransferResponse{
		Reference:        result.SourceEntry.Reference,
		SourceEntry:      entryResponse(result.SourceEntry),
		DestinationEntry: entryResponse(result.DestinationEntry),
		Replayed:         result.Replayed,
	})
}
