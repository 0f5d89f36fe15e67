package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/pkg/logger"
)

const defaultPageSize = 100

// EventReader reads stored port events
type EventReader interface {
	GetPortEvent(ctx context.Context, id int64) (domain.PortEvent, error)
	ListPortEvents(ctx context.Context, offset, limit int) ([]domain.PortEvent, error)
}

// RuleLister lists the application rules
type RuleLister interface {
	List(ctx context.Context) ([]domain.FirewallRule, error)
}

// Monitor reports the sampler state
type Monitor interface {
	IsMonitoring() bool
	Current() (domain.Snapshot, bool)
}

// Server is the operator HTTP surface
type Server struct {
	Hub     *Hub
	Events  EventReader
	Rules   RuleLister
	Monitor Monitor
}

type actionRequest struct {
	Action         string `json:"action"`
	AdditionalData string `json:"additional_data,omitempty"`
}

type healthResponse struct {
	Monitoring bool      `json:"monitoring"`
	Endpoints  int       `json:"endpoints"`
	Version    uint64    `json:"snapshot_version"`
	TakenAt    time.Time `json:"snapshot_taken_at,omitempty"`
	Clients    int       `json:"clients"`
}

// Routes returns the router of the operator surface
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.Hub.HandleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/{id:[0-9]+}/actions", s.handleAction).Methods(http.MethodPost)
	api.HandleFunc("/rules", s.handleListRules).Methods(http.MethodGet)
	api.HandleFunc("/ports", s.handleListPorts).Methods(http.MethodGet)

	return r
}

// ListenAndServe serves the operator surface until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warnf("failed to shut down http server: %v", err)
		}
	}()

	logger.Log.Infof("operator api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	actionType, err := domain.ParseOperatorActionType(req.Action)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.Events.GetPortEvent(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to get event", http.StatusInternalServerError)
		return
	}

	action := domain.OperatorAction{EventID: id, Type: actionType, AdditionalData: req.AdditionalData}
	if err := s.Hub.Submit(r.Context(), action); err != nil {
		http.Error(w, "failed to submit action", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, action)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	events, err := s.Events.ListPortEvents(r.Context(), offset, limit)
	if err != nil {
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.Rules.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list rules", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

// handleListPorts returns the endpoints of the latest snapshot
func (s *Server) handleListPorts(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.Monitor.Current()
	if !ok {
		writeJSON(w, http.StatusOK, []domain.PortEvent{})
		return
	}

	writeJSON(w, http.StatusOK, snap.Sorted())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var resp = healthResponse{
		Monitoring: s.Monitor.IsMonitoring(),
		Clients:    s.Hub.Clients(),
	}

	if snap, ok := s.Monitor.Current(); ok {
		resp.Endpoints = snap.Len()
		resp.Version = snap.Version
		resp.TakenAt = snap.TakenAt
	}

	var status = http.StatusOK
	if !resp.Monitoring {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}

	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugf("failed to write response: %v", err)
	}
}
