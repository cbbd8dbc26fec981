package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"pharmacy-ledger/internal/domain"
	"pharmacy-ledger/internal/errors"
	"pharmacy-ledger/internal/service"
)

type LedgerHandler struct {
	ledgerService *service.LedgerService
}

func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

type ApplyTransactionRequest struct {
	Direction   string            `json:"direction"`
	Amount      string            `json:"amount"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (h *LedgerHandler) ApplyTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := pathAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req ApplyTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error()))
		return
	}

	entry, svcErr := h.ledgerService.ApplyTransaction(service.ApplyTransactionRequest{
		AccountID:   accountID,
		Direction:   domain.Direction(req.Direction),
		Amount:      amount,
		Category:    req.Category,
		Description: req.Description,
		Reference:   req.Reference,
		Metadata:    req.Metadata,
	})
	if svcErr != nil {
		writeServiceError(w, svcErr)
		return
	}

	writeJSON(w, http.StatusCreated, entryResponse(*entry))
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := pathAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	balance, err := h.ledgerService.GetBalance(accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: accountID.String(),
		Balance:   balance.String(),
	})
}

func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := pathAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	from, appErr := queryTime(r, "from")
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	to, appErr := queryTime(r, "to")
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	limit, appErr := queryInt(r, "limit", 0)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	offset, appErr := queryInt(r, "offset", 0)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	entries, err := h.ledgerService.History(accountID, domain.EntryFilter{
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entryResponses(entries))
}

type SummaryResponse struct {
	AccountID      string `json:"account_id"`
	CreditTotal    string `json:"credit_total"`
	DebitTotal     string `json:"debit_total"`
	EntryCount     int64  `json:"entry_count"`
	OpeningBalance string `json:"opening_balance"`
	ClosingBalance string `json:"closing_balance"`
}

func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := pathAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	from, appErr := queryTime(r, "from")
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	to, appErr := queryTime(r, "to")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	summary, err := h.ledgerService.Summary(accountID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		AccountID:      summary.AccountID.String(),
		CreditTotal:    summary.CreditTotal.String(),
		DebitTotal:     summary.DebitTotal.String(),
		EntryCount:     summary.EntryCount,
		OpeningBalance: summary.OpeningBalance.String(),
		ClosingBalance: summary.ClosingBalance.String(),
	})
}

type ReconciliationResponse struct {
	AccountID  string `json:"account_id"`
	Stored     string `json:"stored_balance"`
	Calculated string `json:"calculated_balance"`
	Difference string `json:"difference"`
}

func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID, appErr := pathAccountID(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	rec, err := h.ledgerService.Reconcile(accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReconciliationResponse{
		AccountID:  rec.AccountID.String(),
		Stored:     rec.Stored.String(),
		Calculated: rec.Calculated.String(),
		Difference: rec.Difference.String(),
	})
}
