// Package http implements the HTTP transport for aidoctor.
//
// POST /consult accepts a multipart form with an optional "audio" part (WAV,
// or raw signed 16-bit little-endian PCM described by the "sample_rate" and
// "channels" fields) and an optional "image" part. The produced audio is
// served from GET /artifacts/{id}/{name}.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/aidoctor/internal/artifact"
	"github.com/nadzzz/aidoctor/internal/audio"
	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/message"
	"github.com/nadzzz/aidoctor/internal/transport"
)

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port      int
	maxUpload int64
	uploadDir string
	artifacts *artifact.Store
	limiter   *transport.Limiter
	server    *http.Server
}

// New creates an HTTP transport. Consultations wait on limiter for a slot.
// Uploaded images are staged in uploadDir ("" = os.TempDir()).
func New(cfg config.HTTPConfig, limiter *transport.Limiter, artifacts *artifact.Store, uploadDir string) *Transport {
	return &Transport{
		port:      cfg.Port,
		maxUpload: cfg.MaxUploadMB << 20,
		uploadDir: uploadDir,
		artifacts: artifacts,
		limiter:   limiter,
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (t *Transport) routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /consult", func(w http.ResponseWriter, r *http.Request) {
		t.handleConsult(w, r, handler)
	})
	mux.HandleFunc("GET /artifacts/{id}/{name}", t.handleArtifact)

	// Swagger UI for the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// ConsultResponse is the JSON body returned by POST /consult. Voice URLs are
// null when the audio was not produced.
type ConsultResponse struct {
	RequestID       string  `json:"request_id"`
	Transcript      string  `json:"transcript"`
	Language        string  `json:"language"`
	Response        string  `json:"response"`
	PatientVoiceURL *string `json:"patient_voice_url"`
	DoctorVoiceURL  *string `json:"doctor_voice_url"`
}

func newConsultResponse(b *message.ResultBundle) ConsultResponse {
	url := func(path string) *string {
		if path == "" {
			return nil
		}
		u := fmt.Sprintf("/artifacts/%s/%s", b.RequestID, filepath.Base(path))
		return &u
	}
	return ConsultResponse{
		RequestID:       b.RequestID,
		Transcript:      b.Transcript,
		Language:        b.Language,
		Response:        b.Response,
		PatientVoiceURL: url(b.PatientVoicePath),
		DoctorVoiceURL:  url(b.DoctorVoicePath),
	}
}

// handleConsult processes a POST /consult request.
//
// @Summary     Run a consultation
// @Description Transcribes the patient's speech, analyzes the image with the doctor prompt in the
// @Description detected language, and speaks the reply. Both parts are optional. Stage failures are
// @Description reported in the body with language "error".
// @Tags        consult
// @Accept      multipart/form-data
// @Produce     json
// @Param       audio        formData  file    false  "Patient speech: WAV, or raw s16le PCM"
// @Param       sample_rate  formData  int     false  "Sample rate of raw PCM (44100 when omitted)"
// @Param       channels     formData  int     false  "Channel count of raw PCM (default 1)"
// @Param       image        formData  file    false  "Medical image"
// @Success     200  {object}  ConsultResponse  "Consultation result"
// @Failure     400  {string}  string  "Malformed upload"
// @Failure     503  {string}  string  "Request cancelled while waiting for a slot"
// @Router      /consult [post]
func (t *Transport) handleConsult(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	if t.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, t.maxUpload)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	c := &message.Consultation{ID: uuid.NewString(), ReceivedAt: time.Now()}
	logger := slog.With("request_id", c.ID)

	in, err := readAudio(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.Audio = in

	imagePath, err := t.stageImage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if imagePath != "" {
		defer os.Remove(imagePath)
		c.ImagePath = imagePath
	}

	if err := t.limiter.Acquire(r.Context()); err != nil {
		http.Error(w, "request cancelled while queued", http.StatusServiceUnavailable)
		return
	}
	defer t.limiter.Release()

	logger.Debug("consultation accepted", "audio", c.HasAudio(), "image", c.HasImage())
	bundle := handler(r.Context(), c)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newConsultResponse(bundle))
}

// handleArtifact serves GET /artifacts/{id}/{name}.
//
// @Summary     Download produced audio
// @Tags        consult
// @Produce     audio/mpeg
// @Param       id    path  string  true  "Request ID"
// @Param       name  path  string  true  "File name (patient.mp3 or doctor.mp3)"
// @Success     200  {file}    file
// @Failure     404  {string}  string  "Unknown or expired artifact"
// @Router      /artifacts/{id}/{name} [get]
func (t *Transport) handleArtifact(w http.ResponseWriter, r *http.Request) {
	path, err := t.artifacts.Path(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// readAudio decodes the "audio" part. It returns nil when no part was sent.
func readAudio(r *http.Request) (audio.Input, error) {
	file, _, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading audio part: %w", err)
	}
	defer file.Close()

	rate, err := formInt(r, "sample_rate", 0)
	if err != nil {
		return nil, err
	}
	channels, err := formInt(r, "channels", 1)
	if err != nil {
		return nil, err
	}
	return audio.DecodeCapture(file, rate, channels)
}

// formInt parses an optional positive integer field.
func formInt(r *http.Request, field string, def int) (int, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", field, raw)
	}
	return v, nil
}

// stageImage copies the "image" part to a temporary file and returns its
// path, or "" when no image was sent.
func (t *Transport) stageImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading image part: %w", err)
	}
	defer file.Close()

	if header.Size == 0 {
		return "", nil
	}

	dst, err := os.CreateTemp(t.uploadDir, "image-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", fmt.Errorf("staging image: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("staging image: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("staging image: %w", err)
	}
	return dst.Name(), nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
