package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

func writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		writeError(w, appErr)
		return
	}
	writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred").WithDetails(err.Error()))
}

func pathAccountID(r *http.Request) (uuid.UUID, *errors.AppError) {
	id, err := uuid.Parse(mux.Vars(r)["account_id"])
	if err != nil {
		return uuid.Nil, errors.ErrInvalidAccountID
	}
	return id, nil
}

func queryTime(r *http.Request, key string) (*time.Time, *errors.AppError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "invalid %s: expected RFC3339 timestamp", key)
	}
	return &t, nil
}

func queryInt(r *http.Request, key string, def int) (int, *errors.AppError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewAppErrorf(errors.InvalidInput, "invalid %s: expected non-negative integer", key)
	}
	return n, nil
}

// EntryResponse is the wire shape of a ledger entry; money travels as strings.
type EntryResponse struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"account_id"`
	Direction    string            `json:"direction"`
	Category     string            `json:"category"`
	Amount       string            `json:"amount"`
	BalanceAfter string            `json:"balance_after"`
	Description  string            `json:"description,omitempty"`
	Reference    string            `json:"reference,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func entryResponse(e domain.Entry) EntryResponse {
	return EntryResponse{
		ID:           e.ID.String(),
		AccountID:    e.AccountID.String(),
		Direction:    string(e.Direction),
		Category:     e.Category,
		Amount:       e.Amount.String(),
		BalanceAfter: e.BalanceAfter.String(),
		Description:  e.Description,
		Reference:    e.Reference,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
	}
}

func entryResponses(entries []domain.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse(e))
	}
	return out
}
