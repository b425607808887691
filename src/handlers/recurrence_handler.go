// backend/src/handlers/recurrence_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/services"
)

const defaultPreviewCount = 12

type RecurrenceHandler struct {
	recurrenceService services.RecurrenceService
}

func NewRecurrenceHandler(recurrenceService services.RecurrenceService) *RecurrenceHandler {
	return &RecurrenceHandler{recurrenceService: recurrenceService}
}

func (h *RecurrenceHandler) HandleListRecurrences(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	list, err := h.recurrenceService.ListRecurrences(r.Context(), userID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, list)
}

// HandleCreateRecurrence creates a template. With ?generate_first=true the
// occurrence at the first schedule date is written right away, even when that
// date is still in the future.
func (h *RecurrenceHandler) HandleCreateRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var input services.RecurrenceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	generateFirst, _ := strconv.ParseBool(r.URL.Query().Get("generate_first"))

	tpl, err := h.recurrenceService.CreateRecurrence(r.Context(), userID, input, generateFirst)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, tpl)
}

func (h *RecurrenceHandler) HandleGetRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid recurrence ID", http.StatusBadRequest)
		return
	}

	details, err := h.recurrenceService.GetRecurrence(r.Context(), userID, id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, details)
}

func (h *RecurrenceHandler) HandleUpdateRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid recurrence ID", http.StatusBadRequest)
		return
	}

	var input services.RecurrenceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tpl, err := h.recurrenceService.UpdateRecurrence(r.Context(), userID, id, input)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, tpl)
}

// HandleDeleteRecurrence accepts ?mode=modele (default, keeps history) or ?mode=tout.
func (h *RecurrenceHandler) HandleDeleteRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid recurrence ID", http.StatusBadRequest)
		return
	}

	mode := services.DeleteMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = services.DeleteModeTemplate
	}

	result, err := h.recurrenceService.DeleteRecurrence(r.Context(), userID, id, mode)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (h *RecurrenceHandler) HandlePauseRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid recurrence ID", http.StatusBadRequest)
		return
	}

	if err := h.recurrenceService.PauseRecurrence(r.Context(), userID, id); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecurrenceHandler) HandleResumeRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid recurrence ID", http.StatusBadRequest)
		return
	}

	tpl, err := h.recurrenceService.ResumeRecurrence(r.Context(), userID, id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, tpl)
}

// HandleExecuteRecurrence is the manual "run now" action for one template.
func (h *RecurrenceHandler) HandleExecuteRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid recurrence ID", http.StatusBadRequest)
		return
	}

	occurrenceID, err := h.recurrenceService.ExecuteOne(r.Context(), userID, id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("Recurrence executed manually", "recurrenceID", id, "transactionID", occurrenceID)
	sendJSON(w, http.StatusCreated, map[string]int64{"transaction_id": occurrenceID})
}

// HandlePreviewRecurrence returns the next ?count= dates for an unsaved schedule.
func (h *RecurrenceHandler) HandlePreviewRecurrence(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserIDFromContext(r.Context()); !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var input services.RecurrenceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dates, err := h.recurrenceService.PreviewSchedule(input, queryInt(r, "count", defaultPreviewCount))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"dates": dates})
}
