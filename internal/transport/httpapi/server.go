// Package httpapi serves the text spotter over HTTP.
//
// Images are posted as the raw request body (PNG, JPEG, GIF, BMP or TIFF).
// Every response is JSON except /v1/annotate, which returns image/png.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ironsheep/text-spotter/internal/detection"
	"github.com/ironsheep/text-spotter/internal/geometry"
	logpkg "github.com/ironsheep/text-spotter/internal/logger"
	"github.com/ironsheep/text-spotter/internal/metrics"
	"github.com/ironsheep/text-spotter/internal/pipeline"
	"github.com/ironsheep/text-spotter/internal/spotter"
	"github.com/ironsheep/text-spotter/internal/textmatch"
	"github.com/ironsheep/text-spotter/internal/version"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest    = "bad_request"
	CodeTooLarge      = "payload_too_large"
	CodeSearchLimit   = "search_limit"
	CodeCancelled     = "cancelled"
	CodeUnsupported   = "unsupported"
	CodeInternalError = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReadResponse is returned by POST /v1/read.
type ReadResponse struct {
	Results    []pipeline.Result     `json:"results"`
	Candidates []detection.Candidate `json:"candidates,omitempty"`
	ROIs       []geometry.Box        `json:"rois,omitempty"`
	ElapsedMS  int64                 `json:"elapsed_ms"`
}

// MatchResponse is returned by POST /v1/match.
type MatchResponse struct {
	Phrase    string         `json:"phrase"`
	Found     bool           `json:"found"`
	Point     geometry.Point `json:"point"`
	Boxes     []geometry.Box `json:"boxes,omitempty"`
	Score     float64        `json:"score"`
	Truncated bool           `json:"truncated,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms"`
}

// OCRResponse is returned by POST /v1/ocr.
type OCRResponse struct {
	Text string `json:"text"`
}

// DetectResponse is returned by POST /v1/detect.
type DetectResponse struct {
	Candidates []detection.Candidate `json:"candidates"`
}

// Config holds HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Server handles HTTP requests against one Spotter.
type Server struct {
	spotter *spotter.Spotter
	cfg     Config
	logger  *zap.Logger
	http    *http.Server
	engine  string
}

// NewServer creates an HTTP API server.
func NewServer(sp *spotter.Spotter, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 20 << 20
	}
	s := &Server{spotter: sp, cfg: cfg, logger: logger, engine: sp.EngineVersion(context.Background())}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router returns the chi router with middleware and routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/read", s.Read)
		r.Post("/match", s.Match)
		r.Post("/ocr", s.OCR)
		r.Post("/detect", s.Detect)
		r.Post("/annotate", s.Annotate)
	})
	return r
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"engine":  s.engine,
	})
}

// Read handles POST /v1/read.
func (s *Server) Read(w http.ResponseWriter, r *http.Request) {
	img, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	reading, err := s.spotter.Read(r.Context(), img)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	resp := ReadResponse{
		Results:   reading.Results,
		ElapsedMS: reading.Elapsed.Milliseconds(),
	}
	if resp.Results == nil {
		resp.Results = []pipeline.Result{}
	}
	if r.URL.Query().Get("trace") == "true" {
		resp.Candidates = reading.Candidates
		resp.ROIs = reading.ROIs
	}
	writeJSON(w, http.StatusOK, resp)
}

// Match handles POST /v1/match?phrase=...
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	phrase := r.URL.Query().Get("phrase")
	if strings.TrimSpace(phrase) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "phrase query parameter is required")
		return
	}
	img, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	rep, err := s.spotter.Match(r.Context(), img, phrase)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{
		Phrase:    phrase,
		Found:     rep.Match.Found(),
		Point:     rep.Match.Point,
		Boxes:     rep.Match.Boxes,
		Score:     rep.Match.Score,
		Truncated: rep.Match.Truncated,
		ElapsedMS: rep.Reading.Elapsed.Milliseconds(),
	})
}

// OCR handles POST /v1/ocr.
func (s *Server) OCR(w http.ResponseWriter, r *http.Request) {
	img, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	text, err := s.spotter.Text(r.Context(), img)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OCRResponse{Text: text})
}

// Detect handles POST /v1/detect.
func (s *Server) Detect(w http.ResponseWriter, r *http.Request) {
	img, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	cs, err := s.spotter.Detect(img)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if cs == nil {
		cs = []detection.Candidate{}
	}
	writeJSON(w, http.StatusOK, DetectResponse{Candidates: cs})
}

// Annotate handles POST /v1/annotate[?phrase=...] and responds with a PNG.
func (s *Server) Annotate(w http.ResponseWriter, r *http.Request) {
	img, ok := s.decodeBody(w, r)
	if !ok {
		return
	}

	var (
		reading *spotter.Reading
		point   = geometry.NotFound
		err     error
	)
	if phrase := r.URL.Query().Get("phrase"); strings.TrimSpace(phrase) != "" {
		var rep *spotter.MatchReport
		rep, err = s.spotter.Match(r.Context(), img, phrase)
		if err == nil {
			reading, point = rep.Reading, rep.Match.Point
		}
	} else {
		reading, err = s.spotter.Read(r.Context(), img)
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, s.spotter.Annotate(img, reading, point)); err != nil {
		logpkg.FromContext(r.Context()).Warn("failed to write annotated image", zap.Error(err))
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (image.Image, bool) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge,
				fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxBodyBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read request body")
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "request body is empty")
		return nil, false
	}

	img, err := s.spotter.Decode(bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "request body is not a supported image")
		return nil, false
	}
	return img, true
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, textmatch.ErrSearchLimit):
		writeError(w, http.StatusUnprocessableEntity, CodeSearchLimit, err.Error())
	case errors.Is(err, spotter.ErrPageTextUnsupported):
		writeError(w, http.StatusNotImplemented, CodeUnsupported, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, CodeCancelled, "request cancelled")
	default:
		logpkg.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
