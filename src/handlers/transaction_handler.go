// backend/src/handlers/transaction_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/monbudget/backend/src/services"
)

const defaultTransactionLimit = 200

type TransactionHandler struct {
	transactionService services.TransactionService
	recurrenceService  services.RecurrenceService
}

func NewTransactionHandler(transactionService services.TransactionService, recurrenceService services.RecurrenceService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		recurrenceService:  recurrenceService,
	}
}

// HandleListTransactions returns the newest transactions first; ?limit= caps the page.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	limit := queryInt(r, "limit", defaultTransactionLimit)
	if limit < 1 || limit > 1000 {
		limit = defaultTransactionLimit
	}

	list, err := h.transactionService.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, list)
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	var input services.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.transactionService.CreateTransaction(r.Context(), userID, input)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, t)
}

// HandleConvertToRecurrence turns an existing transaction into a recurrence
// template; the body carries only the schedule fields.
func (h *TransactionHandler) HandleConvertToRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid transaction ID", http.StatusBadRequest)
		return
	}
	var schedule services.ScheduleInput
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tpl, err := h.recurrenceService.ConvertTransactionToRecurrence(r.Context(), userID, id, schedule)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, tpl)
}
