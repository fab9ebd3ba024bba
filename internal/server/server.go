// internal/server/server.go
// Package server exposes a loaded index over HTTP for concurrent read-only queries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mwiater/mmrag/internal/logging"
	"github.com/mwiater/mmrag/internal/rag"
)

// maxBodyBytes bounds query request bodies.
const maxBodyBytes = 1 << 20

// Answerer produces an answer and the context it was generated from.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, rag.MultimodalContext, error)
}

// StatsSource reports index statistics.
type StatsSource interface {
	Stats() rag.Stats
}

// Options configures the HTTP surface.
type Options struct {
	// Model is echoed in query responses.
	Model string
	// RequestTimeout bounds each request; zero disables the limit.
	RequestTimeout time.Duration
	// AllowedOrigins for CORS; empty allows any localhost origin.
	AllowedOrigins []string
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question string `json:"question" validate:"required,max=8000"`
}

// QueryResponse is returned by POST /v1/query.
type QueryResponse struct {
	Model  string   `json:"model,omitempty"`
	Answer string   `json:"answer"`
	Images []string `json:"images"`
	Texts  []string `json:"texts"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server serves queries against one index.
type Server struct {
	answerer Answerer
	stats    StatsSource
	opts     Options
	validate *validator.Validate
}

// New returns a Server answering with a and reporting stats from s.
func New(a Answerer, s StatsSource, opts Options) *Server {
	return &Server{answerer: a, stats: s, opts: opts, validate: validator.New()}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Post("/query", s.handleQuery)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "endpoint not found"})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: validationMessage(err)})
		return
	}

	answer, mc, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		code := rag.Classify(err)
		logging.L().Warn("query failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("code", code),
			zap.Error(err))
		writeJSON(w, statusFor(code), ErrorResponse{Error: code, Message: err.Error()})
		return
	}

	resp := QueryResponse{Model: s.opts.Model, Answer: answer, Images: mc.Images, Texts: mc.Texts}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	if resp.Texts == nil {
		resp.Texts = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a rag.Classify code onto an HTTP status.
func statusFor(code string) int {
	switch code {
	case rag.CodeGenerative:
		return http.StatusBadGateway
	case rag.CodeCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.LogEvent("write response: %v", err)
	}
}

// requestLogger logs one line per request through zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.L().Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

// ListenAndServe serves handler on addr until ctx is canceled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.L().Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
