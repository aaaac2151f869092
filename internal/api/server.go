package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"NetPulse/internal/config"
	"NetPulse/internal/coordinator"
	"NetPulse/internal/factory"
	"NetPulse/internal/query"

	"github.com/gorilla/mux"
)

// Server exposes the coordinator control plane over HTTP: report lifecycle,
// snapshots, per-host stats, and (when ClickHouse is configured) aggregate
// queries over written metrics.
type Server struct {
	coord   *coordinator.Coordinator
	querier query.Querier // may be nil
	server  *http.Server
}

// NewServer creates an API server bound to the coordinator.
func NewServer(cfg config.APIConfig, coord *coordinator.Coordinator, querier query.Querier) *Server {
	s := &Server{coord: coord, querier: querier}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/reports", s.createReportHandler).Methods("POST")
	r.HandleFunc("/api/v1/reports/{name}", s.deleteReportHandler).Methods("DELETE")
	r.HandleFunc("/api/v1/reports/{name}/snapshot", s.snapshotHandler).Methods("GET")
	r.HandleFunc("/api/v1/stats", s.statsHandler).Methods("GET")
	if querier != nil {
		r.HandleFunc("/api/v1/query/aggregate", s.aggregateHandler).Methods("POST")
	}

	s.server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("API server starting on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", s.server.Addr, err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding API response: %v", err)
	}
}

func writeControlResponse(w http.ResponseWriter, resp coordinator.Response) {
	if resp.Status != coordinator.StatusOK {
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Message: resp.Message})
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "ok"})
}

// createReportHandler builds a report from its JSON definition and registers
// it with the coordinator.
func (s *Server) createReportHandler(w http.ResponseWriter, r *http.Request) {
	var def config.ReportDef
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Message: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}
	if def.Type == "" {
		def.Type = "flow"
	}

	report, err := factory.NewReport(def)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Message: err.Error()})
		return
	}

	writeControlResponse(w, s.coord.Request(&coordinator.AddReportRequest{Report: report}))
}

func (s *Server) deleteReportHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	writeControlResponse(w, s.coord.Request(&coordinator.DeleteReportRequest{Name: name}))
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	resp := s.coord.Request(&coordinator.SnapshotRequest{Name: name})
	if resp.Status != coordinator.StatusOK {
		writeJSON(w, http.StatusNotFound, statusBody{Status: "error", Message: resp.Message})
		return
	}
	writeJSON(w, http.StatusOK, resp.Snapshot)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	var stats []coordinator.HostStats
	resp := s.coord.Request(&coordinator.CallRequest{Func: func(c *coordinator.Coordinator) error {
		stats = c.Stats()
		return nil
	}})
	if resp.Status != coordinator.StatusOK {
		writeJSON(w, http.StatusInternalServerError, statusBody{Status: "error", Message: resp.Message})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) aggregateHandler(w http.ResponseWriter, r *http.Request) {
	var req query.AggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Message: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	results, err := s.querier.AggregateTotals(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, statusBody{Status: "error", Message: fmt.Sprintf("failed to query flows: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, results)
}
