// Package assemblyai implements the Transcriber interface with the
// AssemblyAI speech-to-text API.
//
// Audio is uploaded and submitted with automatic language detection; the
// call then blocks in the SDK until the transcript completes or fails.
package assemblyai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/transcriber"
)

// Transcriber uses AssemblyAI for transcription.
type Transcriber struct {
	apiKey string
	client *aai.Client
}

// New creates an AssemblyAI transcriber. The key is held by this value only;
// nothing is stored in process-wide settings.
func New(cfg config.AssemblyAIConfig) *Transcriber {
	opts := []aai.ClientOption{aai.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, aai.WithBaseURL(cfg.BaseURL))
	}
	return &Transcriber{
		apiKey: cfg.APIKey,
		client: aai.NewClientWithOptions(opts...),
	}
}

// Transcribe uploads the audio file and waits for the transcript.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (transcriber.Result, error) {
	if t.apiKey == "" {
		return transcriber.Result{}, transcriber.ErrMissingAPIKey
	}

	f, err := os.Open(path)
	if err != nil {
		return transcriber.Result{}, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	params := &aai.TranscriptOptionalParams{
		LanguageDetection: aai.Bool(true),
	}

	submitted, err := t.client.Transcripts.SubmitFromReader(ctx, f, params)
	if err != nil {
		return transcriber.Result{}, fmt.Errorf("submitting transcript: %w", err)
	}
	id := aai.ToString(submitted.ID)
	slog.Info("assemblyai job submitted", "transcript_id", id)

	transcript, err := t.client.Transcripts.Wait(ctx, id)
	if err != nil {
		return transcriber.Result{}, fmt.Errorf("waiting for transcript %s: %w", id, err)
	}

	if transcript.Status != aai.TranscriptStatusCompleted {
		return transcriber.Result{}, &transcriber.ServiceError{Detail: aai.ToString(transcript.Error)}
	}

	lang := transcriber.NormalizeLanguage(string(transcript.LanguageCode))
	if lang == "" {
		lang = transcriber.DefaultLanguage
	}

	text := aai.ToString(transcript.Text)
	slog.Debug("assemblyai transcription complete", "transcript_id", id, "text_length", len(text), "language", lang)
	return transcriber.Result{Text: text, Language: lang}, nil
}
