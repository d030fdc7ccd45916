package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kimhsiao/littlemoments/backend/internal/service"
	"github.com/kimhsiao/littlemoments/backend/internal/sync"
)

// SyncHandler handles manual sync triggers, sync status, and the
// connectivity reports the UI shell sends on online/offline/auth changes.
type SyncHandler struct {
	svc    *service.DataService
	engine *sync.Engine
	net    *sync.NetState
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(svc *service.DataService, engine *sync.Engine, net *sync.NetState) *SyncHandler {
	return &SyncHandler{svc: svc, engine: engine, net: net}
}

// TriggerSync handles POST /sync
// Runs one push-then-pull cycle synchronously and reports the outcome.
// Lifecycle events reach the UI through the engine's notifier, the same
// path the scheduler and facade triggers use.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result := h.svc.SyncNow(r.Context())
	if result == nil {
		// Preconditions failed (offline, unauthenticated, unconfigured
		// remote) or another sync is already running.
		writeJSON(w, http.StatusOK, map[string]interface{}{"skipped": true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skipped":     false,
		"pushed":      result.Pushed,
		"pulled":      result.Pulled,
		"protected":   result.Protected,
		"failures":    result.Failures,
		"error":       result.Error,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

// GetStatus handles GET /sync/status
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"status":        h.engine.Status(),
		"online":        h.net.Online(),
		"authenticated": h.net.Authenticated(),
	}
	if last := h.engine.LastSync(); last != nil {
		status["last_sync"] = last.UTC().Format(time.RFC3339)
	}
	if err := h.engine.LastError(); err != nil {
		status["last_error"] = err.Error()
	}

	writeJSON(w, http.StatusOK, status)
}

// ReportNetState handles POST /sync/net
// The shell reports browser online/offline events and auth session changes
// here; regaining both triggers a sync through the scheduler's regain hook.
func (h *SyncHandler) ReportNetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var report struct {
		Online        *bool `json:"online"`
		Authenticated *bool `json:"authenticated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if report.Online == nil && report.Authenticated == nil {
		http.Error(w, "online or authenticated is required", http.StatusBadRequest)
		return
	}

	if report.Online != nil {
		h.net.SetOnline(*report.Online)
	}
	if report.Authenticated != nil {
		h.net.SetAuthenticated(*report.Authenticated)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":        h.net.Online(),
		"authenticated": h.net.Authenticated(),
	})
}
