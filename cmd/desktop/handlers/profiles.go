// Package handlers provides the localhost REST API consumed by the UI shell.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/kimhsiao/littlemoments/backend/internal/errors"
	"github.com/kimhsiao/littlemoments/backend/internal/models"
	"github.com/kimhsiao/littlemoments/backend/internal/service"
)

// ProfileHandler handles child profile operations.
type ProfileHandler struct {
	svc *service.DataService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.DataService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// ListProfiles handles GET /profiles
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profiles, err := h.svc.GetProfiles()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"total":    len(profiles),
	})
}

// SaveProfile handles POST /profiles
// Creates when the body carries no id, updates otherwise.
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var profile models.ChildProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.svc.SaveProfile(&profile)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// DeleteProfile handles DELETE /profiles/{id}
// Cascades to the child's memories and growth records.
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := pathID(r, "/api/profiles/")
	if id == "" {
		http.Error(w, "Profile id is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteProfile(id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID extracts the trailing id segment from the request path.
func pathID(r *http.Request, prefix string) string {
	id := r.PathValue("id")
	if id == "" && strings.HasPrefix(r.URL.Path, prefix) {
		id = r.URL.Path[len(prefix):]
	}
	return id
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation), apperrors.Is(err, apperrors.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case apperrors.Is(err, apperrors.ErrNotFound),
		apperrors.Is(err, apperrors.ErrProfileNotFound),
		apperrors.Is(err, apperrors.ErrMemoryNotFound),
		apperrors.Is(err, apperrors.ErrGrowthNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
