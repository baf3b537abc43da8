package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cleancurrents/annotation-worker/pkg/log"
	"github.com/cleancurrents/annotation-worker/pkg/metrics"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

// StateFunc reports the lifecycle's current state and run ID.
type StateFunc func() (types.LifecycleState, string)

// DebugServer provides HTTP endpoints for poking a live worker:
// /healthz, /state and /metrics. It is off unless --debug-addr is set;
// a worker normally lives and dies unobserved.
type DebugServer struct {
	state   StateFunc
	start   time.Time
	mux     *http.ServeMux
	httpSrv *http.Server
}

// NewDebugServer creates a debug server reading state via stateFn.
func NewDebugServer(stateFn StateFunc) *DebugServer {
	mux := http.NewServeMux()
	s := &DebugServer{
		state: stateFn,
		start: time.Now(),
		mux:   mux,
	}

	// Register endpoints
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/state", s.stateHandler)
	mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start serves on addr in a background goroutine.
func (s *DebugServer) Start(addr string) {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger := log.WithComponent("api")
			logger.Error().Err(err).Msg("debug server failed")
		}
	}()
}

// Stop shuts the server down.
func (s *DebugServer) Stop() {
	if s.httpSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *DebugServer) Handler() http.Handler {
	return s.mux
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// StateResponse is the /state payload.
type StateResponse struct {
	State     types.LifecycleState `json:"state"`
	RunID     string               `json:"run_id,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

func (s *DebugServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.start).String(),
	})
}

func (s *DebugServer) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, runID := s.state()
	writeJSON(w, http.StatusOK, StateResponse{
		State:     state,
		RunID:     runID,
		Timestamp: time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
