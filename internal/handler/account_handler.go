package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
	"pharmacy-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	OwnerID        string `json:"owner_id"`
	Kind           string `json:"kind"`
	Name           string `json:"name"`
	Category       string `json:"category,omitempty"`
	Currency       string `json:"currency,omitempty"`
	LinkedMemberID string `json:"linked_member_id,omitempty"`
	InitialBalance string `json:"initial_balance,omitempty"`
}

type UpdateAccountRequest struct {
	Name           *string `json:"name,omitempty"`
	Active         *bool   `json:"active,omitempty"`
	LinkedMemberID *string `json:"linked_member_id,omitempty"`
}

type AccountResponse struct {
	AccountID      string    `json:"account_id"`
	OwnerID        string    `json:"owner_id"`
	Kind           string    `json:"kind"`
	Name           string    `json:"name"`
	Category       string    `json:"category,omitempty"`
	Currency       string    `json:"currency"`
	Balance        string    `json:"balance"`
	Active         bool      `json:"active"`
	LinkedMemberID string    `json:"linked_member_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func accountResponse(a *domain.Account) AccountResponse {
	resp := AccountResponse{
		AccountID: a.ID.String(),
		OwnerID:   a.OwnerID.String(),
		Kind:      string(a.Kind),
		Name:      a.Name,
		Category:  a.Category,
		Currency:  a.Currency,
		Balance:   a.Balance.String(),
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.LinkedMemberID != nil {
		resp.LinkedMemberID = a.LinkedMemberID.String()
	}
	return resp
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid owner_id format"))
		return
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		initialBalance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid initial_balance format"))
			return
		}
	}

	var linkedMemberID *uuid.UUID
	if req.LinkedMemberID != "" {
		id, err := uuid.Parse(req.LinkedMemberID)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidInput, "invalid linked_member_id format"))
			return
		}
		linkedMemberID = &id
	}

	account, err := h.accountService.CreateAccount(service.CreateAccountRequest{
		OwnerID:        ownerID,
		Kind:           domain.AccountKind(req.Kind),
		Name:           req.Name,
		Category:       req.Category,
		Currency:       req.Currency,
		LinkedMemberID: linkedMemberID,
		InitialBalance: initialBalance,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	account, err := h.accountService.GetAccount(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "owner_id query parameter is required"))
		return
	}

	accounts, listErr := h.accountService.ListAccounts(ownerID)
	if listErr != nil {
		writeServiceError(w, listErr)
		return
	}

	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, accountResponse(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	patch := domain.AccountPatch{
		Name:   req.Name,
		Active: req.Active,
	}
	if req.LinkedMemberID != nil {
		memberID, err := uuid.Parse(*req.LinkedMemberID)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidInput, "invalid linked_member_id format"))
			return
		}
		patch.LinkedMemberID = &memberID
	}

	account, err := h.accountService.UpdateAccount(id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse(account))
}
