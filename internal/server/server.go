// Package server exposes a read-only HTTP status API over the decision
// loop: the last combined signal, the current regime, risk metrics and
// recent decision history. There are no mutation routes.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
)

const defaultDecisionLimit = 50

// SignalSource serves the most recent combined signal. Implemented by the
// trader.
type SignalSource interface {
	LastSignal() optional.Option[types.CombinedSignal]
}

// RegimeSource serves the current regime classification and its history.
// Implemented by the regime detector.
type RegimeSource interface {
	Current() optional.Option[types.RegimeClassification]
	History() []types.RegimeClassification
}

// RiskSource serves a read-only snapshot of the risk engine state.
type RiskSource interface {
	Metrics() types.RiskMetrics
}

// DecisionSource serves recent decision history rows. Implemented by the
// history recorder.
type DecisionSource interface {
	Recent(ctx context.Context, limit int) ([]types.DecisionRecord, error)
}

// Server is the read-only status API.
type Server struct {
	symbol    string
	signals   SignalSource
	regimes   RegimeSource
	risks     RiskSource
	decisions DecisionSource
	logger    *logger.Logger

	startedAt  time.Time
	httpServer *http.Server
	listener   net.Listener
}

// New builds a status server. Decisions may be nil when history recording
// is disabled.
func New(symbol string, signals SignalSource, regimes RegimeSource, risks RiskSource, decisions DecisionSource, l *logger.Logger) *Server {
	return &Server{
		symbol:    symbol,
		signals:   signals,
		regimes:   regimes,
		risks:     risks,
		decisions: decisions,
		logger:    l,
		startedAt: time.Now(),
	}
}

// Router builds the route table. Exposed for handler tests.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/api/signal", s.handleSignal).Methods("GET")
	router.HandleFunc("/api/regime", s.handleRegime).Methods("GET")
	router.HandleFunc("/api/risk", s.handleRisk).Methods("GET")
	router.HandleFunc("/api/decisions", s.handleDecisions).Methods("GET")

	return router
}

// Start begins serving on the given address.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.logger.Error("status API server error", zap.Error(err))
		}
	}()

	s.logger.Info("status API listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound listen address, useful when starting on :0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

type statusResponse struct {
	Symbol        string       `json:"symbol"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Regime        types.Regime `json:"regime"`
	LastAction    types.Action `json:"last_action"`
	LastDecision  string       `json:"last_decision,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	response := statusResponse{
		Symbol:        s.symbol,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Regime:        types.RegimeUnknown,
		LastAction:    types.ActionHold,
	}

	if current := s.regimes.Current(); current.IsSome() {
		response.Regime = current.Unwrap().Regime
	}

	if signal := s.signals.LastSignal(); signal.IsSome() {
		last := signal.Unwrap()
		response.LastAction = last.Action
		response.LastDecision = last.Time.UTC().Format(time.RFC3339)
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSignal(w http.ResponseWriter, _ *http.Request) {
	signal := s.signals.LastSignal()
	if signal.IsNone() {
		s.writeError(w, http.StatusNotFound, "no signal produced yet")
		return
	}

	s.writeJSON(w, http.StatusOK, signal.Unwrap())
}

type regimeResponse struct {
	Current types.RegimeClassification   `json:"current"`
	History []types.RegimeClassification `json:"history"`
}

func (s *Server) handleRegime(w http.ResponseWriter, _ *http.Request) {
	current := s.regimes.Current()
	if current.IsNone() {
		s.writeError(w, http.StatusNotFound, "no regime classified yet")
		return
	}

	s.writeJSON(w, http.StatusOK, regimeResponse{
		Current: current.Unwrap(),
		History: s.regimes.History(),
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.risks.Metrics())
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if s.decisions == nil {
		s.writeError(w, http.StatusNotFound, "decision history is disabled")
		return
	}

	limit := defaultDecisionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.decisions.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load decision history", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load decision history")

		return
	}

	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
