// internal/server/server.go

// Package server exposes the resolver over HTTP. One endpoint accepts
// both fresh queries and clarification answers; health and metrics sit
// next to it.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/models"
	"nlq-resolver/internal/resolver"
	"nlq-resolver/internal/sqlgen"
)

// QueryRequest is the body of POST /v1/query. Text submits a fresh query;
// Token plus Answer continues a clarification session.
type QueryRequest struct {
	Text   string `json:"text,omitempty"`
	Token  string `json:"token,omitempty"`
	Answer string `json:"answer,omitempty"`
}

// QueryResponse mirrors resolver.Result and, on completion, carries the
// rendered SQL for the reporting engine.
type QueryResponse struct {
	Status     resolver.Status         `json:"status"`
	Query      *models.StructuredQuery `json:"query,omitempty"`
	SQL        string                  `json:"sql,omitempty"`
	Args       []interface{}           `json:"args,omitempty"`
	Token      string                  `json:"token,omitempty"`
	Prompt     string                  `json:"prompt,omitempty"`
	Unresolved *models.UnresolvedSlot  `json:"unresolved,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Server is the HTTP front of the resolver.
type Server struct {
	svc      *resolver.Service
	renderer *sqlgen.Renderer
	log      logger.Logger
	http     *http.Server
}

// New builds a Server listening on addr.
func New(addr string, svc *resolver.Service, renderer *sqlgen.Renderer, log logger.Logger) *Server {
	s := &Server{svc: svc, renderer: renderer, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/query", s.handleQuery)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", map[string]interface{}{
		"address": s.http.Addr,
	})
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only POST is supported", "")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "request body is not valid JSON", err.Error())
		return
	}

	var res resolver.Result
	var err error
	switch {
	case req.Token != "":
		res, err = s.svc.Clarify(r.Context(), req.Token, req.Answer)
	case req.Text != "":
		res, err = s.svc.Submit(r.Context(), req.Text)
	default:
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "either text or token is required", "")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := QueryResponse{
		Status:     res.Status,
		Query:      res.Query,
		Token:      res.Token,
		Prompt:     res.Prompt,
		Unresolved: res.Unresolved,
	}
	if res.Status == resolver.StatusResolved && s.renderer != nil {
		sql, args, err := s.renderer.Render(*res.Query)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		resp.SQL = sql
		resp.Args = args
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, errors.ErrSessionNotFound):
		status = http.StatusNotFound
	case stderrors.Is(err, errors.ErrSessionBusy):
		status = http.StatusConflict
	}

	var coded *errors.StandardError
	if stderrors.As(err, &coded) {
		s.writeError(w, status, string(coded.Code), coded.Message, coded.Details)
		return
	}
	s.writeError(w, status, "INTERNAL", "internal error", err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message, details string) {
	if status >= 500 {
		s.log.Error("request failed", map[string]interface{}{
			"status": status,
			"code":   code,
		})
	}
	s.writeJSON(w, status, errorResponse{Code: code, Message: message, Details: details})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("failed to write response", nil)
	}
}
