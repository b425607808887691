package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/monbudget/backend/src/services"
)

// ReferenceHandler serves categories, sub-categories and tiers.
type ReferenceHandler struct {
	referenceService services.ReferenceService
}

func NewReferenceHandler(referenceService services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{referenceService: referenceService}
}

func (h *ReferenceHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	list, err := h.referenceService.ListCategories(r.Context(), userID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, list)
}

func (h *ReferenceHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	var req struct {
		Nom  string `json:"nom"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := h.referenceService.CreateCategory(r.Context(), userID, req.Nom, req.Type)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, category)
}

func (h *ReferenceHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid category ID", http.StatusBadRequest)
		return
	}
	if err := h.referenceService.DeleteCategory(r.Context(), userID, id); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReferenceHandler) HandleListSubCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	list, err := h.referenceService.ListSubCategories(r.Context(), userID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, list)
}

func (h *ReferenceHandler) HandleCreateSubCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	var req struct {
		CategorieID int64  `json:"categorie_id"`
		Nom         string `json:"nom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.referenceService.CreateSubCategory(r.Context(), userID, req.CategorieID, req.Nom)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, sub)
}

func (h *ReferenceHandler) HandleListTiers(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	list, err := h.referenceService.ListTiers(r.Context(), userID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, list)
}

func (h *ReferenceHandler) HandleCreateTiers(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	var req struct {
		Nom string `json:"nom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tiers, err := h.referenceService.CreateTiers(r.Context(), userID, req.Nom)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, tiers)
}
