package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/littlemoments/backend/internal/models"
	"github.com/kimhsiao/littlemoments/backend/internal/service"
)

// GrowthHandler handles growth record operations.
type GrowthHandler struct {
	svc *service.DataService
}

// NewGrowthHandler creates a new GrowthHandler.
func NewGrowthHandler(svc *service.DataService) *GrowthHandler {
	return &GrowthHandler{svc: svc}
}

// ListGrowth handles GET /growth?child_id={id}
func (h *GrowthHandler) ListGrowth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	childID := r.URL.Query().Get("child_id")
	records, err := h.svc.GetGrowth(childID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*models.GrowthData{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"growth": records,
		"total":  len(records),
	})
}

// SaveGrowth handles POST /growth
func (h *GrowthHandler) SaveGrowth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var record models.GrowthData
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.SaveGrowth(&record); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &record)
}

// DeleteGrowth handles DELETE /growth/{id}
func (h *GrowthHandler) DeleteGrowth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := pathID(r, "/api/growth/")
	if id == "" {
		// Matches the storage layer, which treats an empty id as a no-op.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.svc.DeleteGrowth(id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
