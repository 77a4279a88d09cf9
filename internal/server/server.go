package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/pipeline"
	"github.com/ppiankov/claimwatch/internal/query"
	"github.com/ppiankov/claimwatch/internal/store"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Server exposes checks and the unsolved-query lifecycle over HTTP
type Server struct {
	pipeline *pipeline.Pipeline
	monitor  *query.Monitor
	router   *mux.Router
	logger   *zap.Logger
}

// New creates a server and registers its routes
func New(p *pipeline.Pipeline, m *query.Monitor) *Server {
	s := &Server{
		pipeline: p,
		monitor:  m,
		router:   mux.NewRouter(),
		logger:   zap.L().With(zap.String("component", "server")),
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/check", s.handleCheck).Methods(http.MethodPost)
	api.HandleFunc("/queries", s.handleStoreQuery).Methods(http.MethodPost)
	api.HandleFunc("/queries", s.handleListQueries).Methods(http.MethodGet)
	api.HandleFunc("/queries/overdue", s.handleOverdue).Methods(http.MethodGet)
	api.HandleFunc("/queries/{id}", s.handleGetQuery).Methods(http.MethodGet)
	api.HandleFunc("/queries/{id}/subscriptions", s.handleSubscribe).Methods(http.MethodPost)
	api.HandleFunc("/queries/{id}/resolve", s.handleResolve).Methods(http.MethodPost)
	api.HandleFunc("/rescan", s.handleRescan).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/alerts", s.handleHistory).Methods(http.MethodGet)

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	s.logger.Info("server: stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if !decode(w, r, &req) {
		return
	}
	if req.ContentType != "" && !req.ContentType.Valid() {
		respondWithError(w, http.StatusBadRequest, "unknown content_type")
		return
	}
	respondWithJSON(w, http.StatusOK, s.pipeline.Check(r.Context(), req))
}

func (s *Server) handleStoreQuery(w http.ResponseWriter, r *http.Request) {
	var in query.UnsolvedInput
	if !decode(w, r, &in) {
		return
	}
	q, err := s.monitor.StoreUnsolved(r.Context(), in)
	if err != nil {
		s.respondWithErr(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, q)
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filter := store.QueryFilter{
		Status: model.QueryStatus(params.Get("status")),
		UserID: params.Get("user_id"),
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	queries, err := s.monitor.List(r.Context(), filter)
	if err != nil {
		s.respondWithErr(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, queries)
}

func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	q, err := s.monitor.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithErr(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, q)
}

type overdueResponse struct {
	Query   model.UnsolvedQuery `json:"query"`
	Elapsed string              `json:"elapsed"`
	SLA     string              `json:"sla"`
}

func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request) {
	overdue, err := s.monitor.Overdue(r.Context())
	if err != nil {
		s.respondWithErr(w, err)
		return
	}
	out := make([]overdueResponse, 0, len(overdue))
	for _, o := range overdue {
		out = append(out, overdueResponse{Query: o.Query, Elapsed: o.Elapsed.String(), SLA: o.SLA.String()})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type subscribeRequest struct {
	UserID   string          `json:"user_id"`
	Channels []model.Channel `json:"channels"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}
	queryID := mux.Vars(r)["id"]
	if err := s.monitor.Subscribe(r.Context(), queryID, req.UserID, req.Channels); err != nil {
		s.respondWithErr(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{
		"query_id": queryID,
		"user_id":  req.UserID,
		"channels": req.Channels,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q, err := s.monitor.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithErr(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, q)
}

type rescanRequest struct {
	Items []query.ObservedContent `json:"items"`
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	var req rescanRequest
	if !decode(w, r, &req) {
		return
	}
	ids, err := s.monitor.Rescan(r.Context(), req.Items)
	if err != nil {
		s.respondWithErr(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"resolved": ids})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	deliveries, err := s.monitor.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithErr(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, deliveries)
}

// respondWithErr maps the error taxonomy onto HTTP status codes
func (s *Server) respondWithErr(w http.ResponseWriter, err error) {
	kind := model.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case model.KindEmptyContent, model.KindInvalidSubscription:
		code = http.StatusBadRequest
	case model.KindQueryNotFound:
		code = http.StatusNotFound
	case model.KindInvalidTransition, model.KindDuplicateAlert:
		code = http.StatusConflict
	case model.KindTimeout:
		code = http.StatusGatewayTimeout
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("server: request failed", zap.Error(err))
	}
	respondWithJSON(w, code, map[string]string{"error": err.Error(), "error_kind": string(kind)})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return false
	}
	return true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
