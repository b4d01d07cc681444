// Package server exposes the page heuristics over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/menta2k/page-analyzer/pkg/fetch"
	"github.com/menta2k/page-analyzer/pkg/processing"
	"github.com/menta2k/page-analyzer/pkg/types"
)

// ModeClassifier classifies a single page
type ModeClassifier interface {
	Classify(ctx context.Context, page types.Page) (types.ReaderMode, bool)
}

// AutoCropper removes white margins from a decoded page
type AutoCropper interface {
	AutoCrop(img image.Image) (image.Image, bool)
}

// Server handles HTTP requests for reader-mode detection and auto-crop
type Server struct {
	classifier   ModeClassifier
	cropper      AutoCropper
	processor    *processing.Processor
	encode       types.EncodeOptions
	maxBodyBytes int64
	allowedHosts fetch.HostList
	logger       *zap.Logger
}

// Config holds server settings
type Config struct {
	Encode       types.EncodeOptions
	MaxBodyBytes int64
	// AllowedHosts lists the page hosts reader-mode may fetch from. When empty
	// every url is rejected.
	AllowedHosts fetch.HostList
}

// New creates a Server
func New(classifier ModeClassifier, cropper AutoCropper, config Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Encode.Format == "" {
		config.Encode = types.DefaultEncodeOptions()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 32 << 20
	}
	return &Server{
		classifier:   classifier,
		cropper:      cropper,
		processor:    processing.NewProcessor(),
		encode:       config.Encode,
		maxBodyBytes: config.MaxBodyBytes,
		allowedHosts: config.AllowedHosts,
		logger:       logger,
	}
}

// Router builds the HTTP routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/reader-mode", s.handleReaderMode).Methods(http.MethodGet)
	r.HandleFunc("/v1/crop", s.handleCrop).Methods(http.MethodPost)
	return r
}

type modeResponse struct {
	URL  string            `json:"url"`
	Mode *types.ReaderMode `json:"mode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReaderMode(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		http.Error(w, "url must be an absolute http(s) url", http.StatusBadRequest)
		return
	}
	if !s.allowedHosts.Allows(u.Hostname()) {
		s.logger.Warn("reader-mode host rejected", zap.String("host", u.Hostname()))
		http.Error(w, "host not allowed", http.StatusBadRequest)
		return
	}

	resp := modeResponse{URL: pageURL}
	if mode, ok := s.classifier.Classify(r.Context(), types.Page{ID: pageURL, URL: pageURL}); ok {
		resp.Mode = &mode
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	opts, err := s.encodeOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, err := s.processor.Decode(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		http.Error(w, "cannot decode image", http.StatusUnprocessableEntity)
		return
	}

	cropped, ok := s.cropper.AutoCrop(img)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := s.processor.Encode(&buf, cropped, opts); err != nil {
		s.logger.Error("encode cropped page", zap.Error(err))
		http.Error(w, "cannot encode image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(opts.Format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Crop-Width", strconv.Itoa(cropped.Bounds().Dx()))
	w.Header().Set("X-Crop-Height", strconv.Itoa(cropped.Bounds().Dy()))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, &buf)
}

func (s *Server) encodeOptions(r *http.Request) (types.EncodeOptions, error) {
	opts := s.encode
	q := r.URL.Query()
	if f := q.Get("format"); f != "" {
		opts.Format = f
	}
	opts.Format = processing.NormalizeFormat(opts.Format)
	switch opts.Format {
	case "webp", "png", "jpg":
	default:
		return opts, errBadRequest("unsupported format " + opts.Format)
	}
	if v := q.Get("quality"); v != "" {
		quality, err := strconv.Atoi(v)
		if err != nil || quality < 1 || quality > 100 {
			return opts, errBadRequest("quality must be between 1 and 100")
		}
		opts.Quality = quality
	}
	if v := q.Get("lossless"); v != "" {
		lossless, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errBadRequest("lossless must be a boolean")
		}
		opts.Lossless = lossless
	}
	return opts, nil
}

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpg":
		return "image/jpeg"
	default:
		return "image/webp"
	}
}
