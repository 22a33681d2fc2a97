package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/tts"
)

func TestModelFor(t *testing.T) {
	tests := map[string]string{
		"en": ModelTurbo,
		"fr": ModelMultilingual,
		"ur": ModelMultilingual,
		"":   ModelMultilingual,
	}
	for lang, want := range tests {
		if got := ModelFor(lang); got != want {
			t.Errorf("ModelFor(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestSynthesize(t *testing.T) {
	tests := []struct {
		name      string
		voiceID   string
		lang      string
		wantVoice string
		wantModel string
	}{
		{name: "default voice english", lang: "en", wantVoice: DefaultVoiceID, wantModel: ModelTurbo},
		{name: "custom voice spanish", voiceID: "cloned-voice", lang: "es", wantVoice: "cloned-voice", wantModel: ModelMultilingual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if want := "/v1/text-to-speech/" + tt.wantVoice; r.URL.Path != want {
					t.Errorf("Expected path %q, got %q", want, r.URL.Path)
				}
				if got := r.URL.Query().Get("output_format"); got != OutputFormat {
					t.Errorf("Expected output format %q, got %q", OutputFormat, got)
				}
				if got := r.Header.Get("xi-api-key"); got != "xi-key" {
					t.Errorf("Expected api key header, got %q", got)
				}
				var body speechRequest
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("Decoding body failed: %v", err)
				}
				if body.ModelID != tt.wantModel {
					t.Errorf("Expected model %q, got %q", tt.wantModel, body.ModelID)
				}
				if body.Text != "Rest your knee." {
					t.Errorf("Unexpected text %q", body.Text)
				}
				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write([]byte("ID3-fake-mp3"))
			}))
			defer srv.Close()

			s := New(config.ElevenLabsConfig{APIKey: "xi-key", VoiceID: tt.voiceID, BaseURL: srv.URL, Timeout: 5 * time.Second})
			out := filepath.Join(t.TempDir(), "doctor.mp3")

			got, err := s.Synthesize(context.Background(), "Rest your knee.", tts.SynthesizeOpts{Language: tt.lang, OutputPath: out})
			if err != nil {
				t.Fatalf("Synthesize failed: %v", err)
			}
			if got != out {
				t.Errorf("Expected %q, got %q", out, got)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if string(data) != "ID3-fake-mp3" {
				t.Errorf("Unexpected file content %q", data)
			}
		})
	}
}

func TestSynthesizeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	s := New(config.ElevenLabsConfig{APIKey: "bad", BaseURL: srv.URL, Timeout: 5 * time.Second})
	out := filepath.Join(t.TempDir(), "doctor.mp3")
	if _, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en", OutputPath: out}); err == nil {
		t.Fatal("Expected error for unauthorized response")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("Expected no output file after failure, got %v", err)
	}
}

func TestSynthesizeWithoutKey(t *testing.T) {
	s := New(config.ElevenLabsConfig{})
	if _, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en"}); err == nil {
		t.Error("Expected error without api key")
	}
}
