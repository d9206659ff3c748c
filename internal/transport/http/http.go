// Package http implements the HTTP transport for shouldi.
//
// This transport exposes a REST API for analysis requests and serves the
// OpenAPI UI. It is best suited for web clients, phones and scripts.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/shouldi/internal/docs" // registers the OpenAPI document
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/transport"
)

// maxUploadBytes caps request bodies, images and recordings included.
const maxUploadBytes = 25 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port int

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes returns the transport's request multiplexer.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /analyze: JSON, multipart form or a raw image body.
	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
		t.handleAnalyze(w, r, handler)
	})

	// Swagger UI serves the registered OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleAnalyze processes a POST /analyze request.
//
// @Summary     Analyze a yes/no question
// @Description Accepts a JSON request (question, base64 image and/or base64 audio), a multipart
// @Description form (question, language, image file, audio file) or raw image or audio bytes with
// @Description the rest in the query string. A recording without a typed question is transcribed
// @Description first. The request runs through search augmentation, the language
// @Description model, validation and speech synthesis. Pipeline failures are reported in
// @Description the result's "failure" field with a 200 status.
// @Tags        analyze
// @Accept      json
// @Accept      mpfd
// @Accept      image/jpeg
// @Accept      image/png
// @Accept      audio/wav
// @Accept      audio/mpeg
// @Accept      audio/ogg
// @Accept      audio/webm
// @Produce     json
// @Param       request      body   message.Request  false  "Analysis request (JSON)"
// @Param       question     query  string           false  "Question (raw uploads)"
// @Param       language     query  string           false  "Locale tag (raw uploads)"
// @Param       skip_search  query  bool             false  "Disable search augmentation (raw uploads)"
// @Success     200  {object}  message.Result  "Analysis result or sentinel error result"
// @Failure     400  {string}  string          "Invalid request body"
// @Failure     415  {string}  string          "Unsupported content type"
// @Router      /analyze [post]
func (t *Transport) handleAnalyze(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	req, status, err := decodeRequest(w, r)
	if err != nil {
		slog.Debug("rejecting http request", "status", status, "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	result := handler(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// decodeRequest reads a message.Request from any supported body format.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*message.Request, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("missing or invalid content type")
	}

	var req message.Request
	switch {
	case mediaType == "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err)
		}

	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
		}
		req.Question = r.FormValue("question")
		req.Language = r.FormValue("language")
		req.SkipSearch, _ = strconv.ParseBool(r.FormValue("skip_search"))
		if file, _, err := r.FormFile("image"); err == nil {
			defer file.Close()
			if req.Image, err = io.ReadAll(file); err != nil {
				return nil, http.StatusBadRequest, fmt.Errorf("reading image: %w", err)
			}
		}
		if file, header, err := r.FormFile("audio"); err == nil {
			defer file.Close()
			if req.Audio, err = io.ReadAll(file); err != nil {
				return nil, http.StatusBadRequest, fmt.Errorf("reading audio: %w", err)
			}
			req.AudioFormat = header.Header.Get("Content-Type")
			if req.AudioFormat == "" || req.AudioFormat == "application/octet-stream" {
				req.AudioFormat = "audio/wav"
			}
		}

	case strings.HasPrefix(mediaType, "image/"), strings.HasPrefix(mediaType, "audio/"):
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("reading body: %w", err)
		}
		if strings.HasPrefix(mediaType, "image/") {
			req.Image = body
		} else {
			req.Audio = body
			req.AudioFormat = mediaType
		}
		q := r.URL.Query()
		req.Question = q.Get("question")
		req.Language = q.Get("language")
		req.SkipSearch, _ = strconv.ParseBool(q.Get("skip_search"))

	default:
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", mediaType)
	}

	return &req, http.StatusOK, nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
