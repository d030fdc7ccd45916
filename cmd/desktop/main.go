// Package main provides the localhost backend server for the desktop shell.
// The UI communicates via REST and WebSocket on localhost.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/kimhsiao/littlemoments/backend/cmd/desktop/handlers"
	"github.com/kimhsiao/littlemoments/backend/internal/db"
	"github.com/kimhsiao/littlemoments/backend/internal/logging"
	"github.com/kimhsiao/littlemoments/backend/internal/remote"
	"github.com/kimhsiao/littlemoments/backend/internal/service"
	"github.com/kimhsiao/littlemoments/backend/internal/sync"
	"github.com/kimhsiao/littlemoments/backend/internal/sync/scheduler"
)

// syncNotifier relays engine lifecycle events to the WebSocket hub, so
// scheduler-periodic, regain-triggered, facade, and manual syncs all reach
// the UI the same way.
type syncNotifier struct {
	hub *WSHub
}

func (n *syncNotifier) SyncStarted() {
	n.hub.BroadcastSyncStarted()
}

func (n *syncNotifier) SyncFinished(r *sync.Result) {
	if r.Failures > 0 {
		n.hub.BroadcastSyncFailed(r.Error, r.Failures)
		return
	}
	n.hub.BroadcastSyncCompleted(r.Pushed, r.Pulled, r.Protected, r.Duration)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logging.Init(os.Stdout, logging.LevelInfo)

	dataDir := envOr("LM_DATA_DIR", "./data")
	port := envOr("LM_PORT", "8090")
	dsn := os.Getenv("LM_REMOTE_DSN")

	// Local store
	database, err := db.Open(dataDir)
	if err != nil {
		logging.Error("Failed to open local database", err, map[string]interface{}{"data_dir": dataDir})
		os.Exit(1)
	}
	defer database.Close()

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Migrate(); err != nil {
		logging.Error("Failed to migrate local database", err, nil)
		os.Exit(1)
	}

	store := db.NewStore(database.DB)

	// Remote store. An empty DSN leaves the client unconfigured and every
	// sync becomes a silent no-op until one is provided.
	remoteClient, err := remote.Open(dsn)
	if err != nil {
		logging.Error("Failed to open remote store", err, nil)
		os.Exit(1)
	}
	defer remoteClient.Close()

	net := sync.NewNetState()
	engine := sync.NewEngine(store, remoteClient, net)
	svc := service.NewDataService(store, remoteClient, engine, net)

	if err := svc.InitDB(); err != nil {
		logging.Error("Failed to initialize data", err, nil)
		os.Exit(1)
	}

	sched := scheduler.New(engine, net, scheduler.DefaultConfig())
	sched.Start(context.Background())
	defer sched.Stop()

	wsHub := NewWSHub()
	engine.SetNotifier(&syncNotifier{hub: wsHub})

	profileHandler := handlers.NewProfileHandler(svc)
	memoryHandler := handlers.NewMemoryHandler(svc)
	growthHandler := handlers.NewGrowthHandler(svc)
	syncHandler := handlers.NewSyncHandler(svc, engine, net)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"littlemoments-desktop"}`))
	})

	mux.HandleFunc("GET /api/profiles", profileHandler.ListProfiles)
	mux.HandleFunc("POST /api/profiles", profileHandler.SaveProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", profileHandler.DeleteProfile)

	mux.HandleFunc("GET /api/memories", memoryHandler.ListMemories)
	mux.HandleFunc("POST /api/memories", memoryHandler.AddMemory)
	mux.HandleFunc("DELETE /api/memories/{id}", memoryHandler.DeleteMemory)

	mux.HandleFunc("GET /api/growth", growthHandler.ListGrowth)
	mux.HandleFunc("POST /api/growth", growthHandler.SaveGrowth)
	mux.HandleFunc("DELETE /api/growth/{id}", growthHandler.DeleteGrowth)

	mux.HandleFunc("POST /api/sync", syncHandler.TriggerSync)
	mux.HandleFunc("GET /api/sync/status", syncHandler.GetStatus)
	mux.HandleFunc("POST /api/sync/net", syncHandler.ReportNetState)

	mux.HandleFunc("/ws", HandleWebSocket(wsHub))

	logging.Info("Little Moments desktop server starting", map[string]interface{}{
		"port":              port,
		"data_dir":          dataDir,
		"remote_configured": remoteClient.Configured(),
	})

	if err := http.ListenAndServe("localhost:"+port, mux); err != nil {
		logging.Error("Server stopped", err, nil)
		os.Exit(1)
	}
}
