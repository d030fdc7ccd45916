package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/littlemoments/backend/internal/models"
	"github.com/kimhsiao/littlemoments/backend/internal/service"
)

// MemoryHandler handles memory operations.
type MemoryHandler struct {
	svc *service.DataService
}

// NewMemoryHandler creates a new MemoryHandler.
func NewMemoryHandler(svc *service.DataService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

// ListMemories handles GET /memories?child_id={id}
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	childID := r.URL.Query().Get("child_id")
	memories, err := h.svc.GetMemories(childID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if memories == nil {
		memories = []*models.Memory{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"memories": memories,
		"total":    len(memories),
	})
}

// AddMemory handles POST /memories
// Upserts by id, so the UI uses the same call for create and edit.
func (h *MemoryHandler) AddMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var memory models.Memory
	if err := json.NewDecoder(r.Body).Decode(&memory); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.AddMemory(&memory); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &memory)
}

// DeleteMemory handles DELETE /memories/{id}
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := pathID(r, "/api/memories/")
	if id == "" {
		http.Error(w, "Memory id is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteMemory(id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
