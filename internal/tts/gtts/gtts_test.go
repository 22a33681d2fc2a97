package gtts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/tts"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "empty", text: "   ", limit: 10, want: nil},
		{name: "fits", text: "my knee hurts", limit: 20, want: []string{"my knee hurts"}},
		{name: "splits on words", text: "one two three four", limit: 9, want: []string{"one two", "three", "four"}},
		{name: "long word cut", text: "abcdefghij xy", limit: 4, want: []string{"abcd", "efgh", "ij", "xy"}},
		{name: "multibyte runes", text: "éééé éé", limit: 4, want: []string{"éééé", "éé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d chunks %q, got %d %q", len(tt.want), tt.want, len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Chunk %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestChunkRespectsLimit(t *testing.T) {
	text := strings.Repeat("With what I see, I think you have a mild skin irritation. ", 10)
	for _, c := range Chunk(text, maxChunkRunes) {
		if n := utf8.RuneCountInString(c); n > maxChunkRunes {
			t.Errorf("Chunk of %d runes exceeds limit: %q", n, c)
		}
	}
}

func TestSynthesizeConcatenatesChunks(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tl") != "fr" {
			t.Errorf("Expected language fr, got %q", q.Get("tl"))
		}
		mu.Lock()
		seen = append(seen, q.Get("idx"))
		mu.Unlock()
		_, _ = w.Write([]byte("[" + q.Get("idx") + "]"))
	}))
	defer srv.Close()

	s := New(config.GTTSConfig{Endpoint: srv.URL, Timeout: 5 * time.Second})
	out := filepath.Join(t.TempDir(), "doctor.mp3")
	text := strings.Repeat("Reposez votre genou et appliquez de la glace. ", 5)

	got, err := s.Synthesize(context.Background(), text, tts.SynthesizeOpts{Language: "fr", OutputPath: out})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if got != out {
		t.Errorf("Expected %q, got %q", out, got)
	}

	want := len(Chunk(text, maxChunkRunes))
	if len(seen) != want {
		t.Fatalf("Expected %d requests, got %d", want, len(seen))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var expected strings.Builder
	for i := 0; i < want; i++ {
		expected.WriteString("[" + string(rune('0'+i)) + "]")
	}
	if string(data) != expected.String() {
		t.Errorf("Expected concatenated audio %q, got %q", expected.String(), data)
	}
}

func TestSynthesizeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(config.GTTSConfig{Endpoint: srv.URL, Timeout: 5 * time.Second})
	out := filepath.Join(t.TempDir(), "doctor.mp3")
	if _, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "xx", OutputPath: out}); err == nil {
		t.Error("Expected error for rejected language")
	}
	if _, err := s.Synthesize(context.Background(), "", tts.SynthesizeOpts{Language: "en", OutputPath: out}); err == nil {
		t.Error("Expected error for empty text")
	}
}
