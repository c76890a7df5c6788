package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/go-chi/chi/v5"
)

// Server exposes the instances of a session manager over HTTP.
type Server struct {
	Sessions *session.Manager
	logger   *slog.Logger
	contract *Contract
}

// Option configures the Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler creates a new HTTP handler over the manager's instances.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	server := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	contract, err := defaultContract()
	if err != nil {
		// The contract is embedded; failing to parse it is a build defect.
		panic(err)
	}
	server.contract = contract

	r := chi.NewRouter()
	r.Use(server.contractMiddleware)
	r.Get("/openapi.yaml", server.GetOpenAPI)
	r.Get("/swagger", server.GetSwagger)
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/schema", server.GetSchema)
	r.Get("/instances", server.ListInstances)
	r.Route("/instances/{id}", func(r chi.Router) {
		r.Get("/values", server.GetValues)
		r.Get("/values/{key}", server.GetValue)
		r.Put("/values/{key}", server.SetValue)
		r.Post("/values/{key}/reset", server.ResetValue)
		r.Post("/actions/{key}", server.TriggerAction)
		r.Post("/undo", server.Undo)
		r.Post("/redo", server.Redo)
		r.Post("/validate", server.Validate)
		r.Post("/snapshots", server.SaveSnapshot)
		r.Delete("/", server.DeleteInstance)
		r.Get("/events", server.SubscribeEvents)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetValueRequest is the body of PUT /instances/{id}/values/{key}.
type SetValueRequest struct {
	Value any `json:"value"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Errors []schema.FieldError `json:"errors,omitempty"`
}

// HistoryResponse reports whether undo or redo applied a step.
type HistoryResponse struct {
	Applied bool                `json:"applied"`
	Values  []dto.ParameterView `json:"values"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":        "tendril-http",
		"version":    strings.TrimSpace(tendril.Version),
		"parameters": s.Sessions.Schema().Len(),
	})
}

// GetSchema handles the GET /schema request.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, dto.Describe(s.Sessions.Schema()))
}

// ListInstances handles the GET /instances request.
func (s *Server) ListInstances(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetValues handles the GET /instances/{id}/values request.
func (s *Server) GetValues(w http.ResponseWriter, r *http.Request) {
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		return http.StatusOK, dto.Views(c), nil
	})
}

// GetValue handles the GET /instances/{id}/values/{key} request.
func (s *Server) GetValue(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyParam(w, r)
	if !ok {
		return
	}
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		view, err := dto.View(c, key)
		return http.StatusOK, view, err
	})
}

// SetValue handles the PUT /instances/{id}/values/{key} request.
func (s *Server) SetValue(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyParam(w, r)
	if !ok {
		return
	}
	v, err := decodeValue(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		s.logger.Warn("SetValue: Invalid request body", "err", err)
		return
	}
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		if err := c.Set(ctx, key, v); err != nil {
			return 0, nil, err
		}
		view, err := dto.View(c, key)
		return http.StatusOK, view, err
	})
}

// ResetValue handles the POST /instances/{id}/values/{key}/reset request.
func (s *Server) ResetValue(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyParam(w, r)
	if !ok {
		return
	}
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		if err := c.Reset(ctx, key); err != nil {
			return 0, nil, err
		}
		view, err := dto.View(c, key)
		return http.StatusOK, view, err
	})
}

// TriggerAction handles the POST /instances/{id}/actions/{key} request.
func (s *Server) TriggerAction(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyParam(w, r)
	if !ok {
		return
	}
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		if err := c.Trigger(ctx, key); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

// Undo handles the POST /instances/{id}/undo request.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		applied, err := c.Undo(ctx)
		return http.StatusOK, HistoryResponse{Applied: applied, Values: dto.Views(c)}, err
	})
}

// Redo handles the POST /instances/{id}/redo request.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		applied, err := c.Redo(ctx)
		return http.StatusOK, HistoryResponse{Applied: applied, Values: dto.Views(c)}, err
	})
}

// Validate handles the POST /instances/{id}/validate request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	s.withInstance(w, r, func(ctx context.Context, c *runtime.Context) (int, any, error) {
		if err := c.ValidateAll(ctx); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, dto.Views(c), nil
	})
}

// SaveSnapshot handles the POST /instances/{id}/snapshots request.
func (s *Server) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.Sessions.Save(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"instance_id": id})
}

// DeleteInstance handles the DELETE /instances/{id} request.
func (s *Server) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /instances/{id}/events request (SSE).
// The optional keys query parameter restricts the stream to events about
// those keys.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	id, err := pathParam(r, "id")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	var sub *event.Subscription
	err = s.Sessions.WithInstance(r.Context(), id, func(ctx context.Context, c *runtime.Context) error {
		sub = c.SubscribeAll()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sub.Close()

	var watch []value.Key
	if raw := r.URL.Query().Get("keys"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			watch = append(watch, value.Key(strings.TrimSpace(k)))
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: Subscribed", "instance_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "instance_id", id)
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			if !concerns(e, watch) {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("SSE: encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		}
	}
}

func concerns(e event.Event, watch []value.Key) bool {
	if len(watch) == 0 || e.Type == event.Lagged {
		return true
	}
	for _, k := range watch {
		if e.Concerns(k) {
			return true
		}
	}
	return false
}

// -- Helpers --

func (s *Server) withInstance(w http.ResponseWriter, r *http.Request, fn func(context.Context, *runtime.Context) (int, any, error)) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	var (
		status int
		body   any
	)
	err = s.Sessions.WithInstance(r.Context(), id, func(ctx context.Context, c *runtime.Context) error {
		var err error
		status, body, err = fn(ctx, c)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if body == nil {
		w.WriteHeader(status)
		return
	}
	s.writeJSON(w, status, body)
}

func (s *Server) keyParam(w http.ResponseWriter, r *http.Request) (value.Key, bool) {
	key, err := pathParam(r, "key")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return value.Key(key), true
}

func decodeValue(r *http.Request) (value.Value, error) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(r.Body); err != nil {
		return value.Value{}, err
	}
	dec := json.NewDecoder(&body)
	dec.UseNumber()
	var req SetValueRequest
	if err := dec.Decode(&req); err != nil {
		return value.Value{}, fmt.Errorf("invalid request body: %w", err)
	}
	return value.FromAny(req.Value)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTypeMismatch), errors.Is(err, domain.ErrNotAction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoDefaultValue), errors.Is(err, domain.ErrDisabled):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Errors: domain.FieldErrors(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
