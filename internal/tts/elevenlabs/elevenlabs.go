// Package elevenlabs implements the TTS Synthesizer with the ElevenLabs
// text-to-speech REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/tts"
)

const (
	// ModelMultilingual handles every supported language.
	ModelMultilingual = "eleven_multilingual_v2"

	// ModelTurbo is faster but English-only.
	ModelTurbo = "eleven_turbo_v2"

	// DefaultVoiceID is the premade "Aria" voice.
	DefaultVoiceID = "9BWtsMINqrJLrRacOk9x"

	// OutputFormat is MP3 at 22.05 kHz, 32 kbps.
	OutputFormat = "mp3_22050_32"
)

// ModelFor picks the synthesis model for a language.
func ModelFor(lang string) string {
	if lang != "en" {
		return ModelMultilingual
	}
	return ModelTurbo
}

// Synthesizer calls the ElevenLabs API.
type Synthesizer struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
}

// New creates an ElevenLabs synthesizer. A configured custom voice replaces
// the default voice.
func New(cfg config.ElevenLabsConfig) *Synthesizer {
	voice := cfg.VoiceID
	if voice == "" {
		voice = DefaultVoiceID
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.elevenlabs.io"
	}
	return &Synthesizer{
		apiKey:  cfg.APIKey,
		voiceID: voice,
		baseURL: base,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type speechRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize requests speech for text and writes the MP3 to opts.OutputPath.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (string, error) {
	if s.apiKey == "" {
		return "", errors.New("elevenlabs api key is not set")
	}
	if text == "" {
		return "", errors.New("empty text for synthesis")
	}

	model := ModelFor(opts.Language)
	body, err := json.Marshal(speechRequest{Text: text, ModelID: model})
	if err != nil {
		return "", fmt.Errorf("marshalling speech request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		s.baseURL, url.PathEscape(s.voiceID), url.QueryEscape(OutputFormat))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("elevenlabs failed (status %d): %s", resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading audio: %w", err)
	}
	if len(audio) == 0 {
		return "", errors.New("elevenlabs returned no audio")
	}

	if err := tts.WriteFile(opts.OutputPath, audio); err != nil {
		return "", err
	}

	slog.Info("elevenlabs audio saved", "path", opts.OutputPath, "voice", s.voiceID, "model", model, "bytes", len(audio))
	return opts.OutputPath, nil
}
