package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nadzzz/aidoctor/internal/audio"
	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/transcode"
	"github.com/nadzzz/aidoctor/internal/tts"
)

// fakeServer answers one synthesize request with samples, or with an error
// event when errText is set. The received voice name is sent on voices.
func fakeServer(t *testing.T, samples []int16, errText string) (string, <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	voices := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		evt, _, err := readEvent(bufio.NewReader(conn))
		if err != nil || evt.Type != "synthesize" {
			t.Errorf("Expected synthesize event, got %+v (%v)", evt, err)
			return
		}
		if v, ok := evt.Data["voice"].(map[string]any); ok {
			name, _ := v["name"].(string)
			voices <- name
		}

		if errText != "" {
			_ = writeEvent(conn, event{Type: "error", Data: map[string]any{"text": errText}}, nil)
			return
		}

		pcm := make([]byte, 2*len(samples))
		for i, s := range samples {
			binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
		}
		_ = writeEvent(conn, event{Type: "audio-start", Data: map[string]any{"rate": 16000, "width": 2, "channels": 1}}, nil)
		_ = writeEvent(conn, event{Type: "audio-chunk"}, pcm[:2])
		_ = writeEvent(conn, event{Type: "audio-chunk"}, pcm[2:])
		_ = writeEvent(conn, event{Type: "audio-stop"}, nil)
	}()

	return ln.Addr().String(), voices
}

func TestSynthesizeWritesWAV(t *testing.T) {
	samples := []int16{0, 1200, -1200, 32000, -32000}
	addr, voices := fakeServer(t, samples, "")

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr}, nil)
	out := filepath.Join(t.TempDir(), "doctor.mp3")

	got, err := s.Synthesize(context.Background(), "Bonjour", tts.SynthesizeOpts{Language: "fr", OutputPath: out})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if want := filepath.Join(filepath.Dir(out), "doctor.wav"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if v := <-voices; v != "fr_FR-siwis-medium" {
		t.Errorf("Expected french voice, got %q", v)
	}

	f, err := os.Open(got)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	decoded, err := audio.DecodeWAV(f)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.SampleRate != 16000 {
		t.Errorf("Expected rate 16000, got %d", decoded.SampleRate)
	}
	if len(decoded.Samples.Data) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded.Samples.Data))
	}
	for i, s := range samples {
		if decoded.Samples.Data[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, decoded.Samples.Data[i])
		}
	}
}

type recordingTranscoder struct {
	in, out string
}

func (r *recordingTranscoder) Transcode(_ context.Context, in, out string, _ transcode.Options) error {
	r.in, r.out = in, out
	return os.WriteFile(out, []byte("mp3"), 0o644)
}

func TestSynthesizeTranscodes(t *testing.T) {
	addr, _ := fakeServer(t, []int16{1, 2, 3}, "")
	tc := &recordingTranscoder{}

	s := New(config.PiperConfig{Endpoints: map[string]string{"es": addr}, Voices: map[string]string{"es": "es_MX-claude-high"}}, tc)
	out := filepath.Join(t.TempDir(), "doctor.mp3")

	got, err := s.Synthesize(context.Background(), "Hola", tts.SynthesizeOpts{Language: "es", OutputPath: out})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if got != out || tc.out != out {
		t.Errorf("Expected output %q, got %q (transcoded to %q)", out, got, tc.out)
	}
	if _, err := os.Stat(tc.in); !os.IsNotExist(err) {
		t.Errorf("Expected intermediate wav to be removed, got %v", err)
	}
}

func TestSynthesizeServerError(t *testing.T) {
	addr, _ := fakeServer(t, nil, "voice not found")
	s := New(config.PiperConfig{Endpoint: addr}, nil)

	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en", OutputPath: filepath.Join(t.TempDir(), "x.mp3")})
	if err == nil {
		t.Fatal("Expected error from piper error event")
	}
}

func TestSynthesizeNoEndpoint(t *testing.T) {
	s := New(config.PiperConfig{}, nil)
	if _, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en"}); err == nil {
		t.Error("Expected error without endpoint")
	}
	if _, err := s.Synthesize(context.Background(), "", tts.SynthesizeOpts{Language: "en"}); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestReadEventRejectsBadLengths(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "negative json", header: "-5 0\n"},
		{name: "negative payload", header: "2 -1\n{}\n"},
		{name: "huge json", header: "99999999999 0\n"},
		{name: "huge payload", header: "2 99999999999\n{}\n"},
		{name: "not a number", header: "x 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := readEvent(bufio.NewReader(strings.NewReader(tt.header))); err == nil {
				t.Error("Expected error for malformed header")
			}
		})
	}
}

func TestReadEventRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeEvent(&buf, event{Type: "audio-chunk"}, []byte{1, 2, 3}); err != nil {
		t.Fatalf("writeEvent failed: %v", err)
	}
	evt, payload, err := readEvent(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("readEvent failed: %v", err)
	}
	if evt.Type != "audio-chunk" || !bytes.Equal(payload, []byte{1, 2, 3}) {
		t.Errorf("Unexpected event %+v payload %v", evt, payload)
	}
}
