// Package piper implements the TTS Synthesizer using a Piper Wyoming protocol server.
//
// Piper is a fast, local neural text-to-speech system. The linuxserver/piper
// container exposes the Wyoming protocol on TCP port 10200. It serves as the
// offline fallback engine when the hosted voices are unavailable.
//
// Piper streams raw PCM. The samples are written as WAV and, when a
// transcoder is available, converted to the MP3 the caller asked for.
package piper

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nadzzz/aidoctor/internal/audio"
	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/transcode"
	"github.com/nadzzz/aidoctor/internal/tts"
)

// defaultVoices maps ISO-639-1 language codes to Piper voice model names.
var defaultVoices = map[string]string{
	"en": "en_US-lessac-medium",
	"fr": "fr_FR-siwis-medium",
	"es": "es_ES-mls_10246-low",
	"de": "de_DE-thorsten-medium",
	"it": "it_IT-riccardo-x_low",
	"pt": "pt_BR-faber-medium",
	"nl": "nl_NL-mls-medium",
	"pl": "pl_PL-darkman-medium",
	"ru": "ru_RU-ruslan-medium",
	"ar": "ar_JO-kareem-medium",
	"hi": "hi_IN-pratham-medium",
	"zh": "zh_CN-huayan-medium",
}

// Synthesizer implements tts.Synthesizer using the Wyoming protocol.
type Synthesizer struct {
	endpoint   string            // default host:port of the Piper Wyoming server
	endpoints  map[string]string // language -> host:port for per-language Piper instances
	voices     map[string]string // language -> voice name overrides
	transcoder transcode.Transcoder
}

// New creates a Piper synthesizer from config. tc converts the synthesized
// WAV to the requested output format; with a nil tc the WAV is kept as is.
func New(cfg config.PiperConfig, tc transcode.Transcoder) *Synthesizer {
	voices := make(map[string]string, len(defaultVoices)+len(cfg.Voices))
	for k, v := range defaultVoices {
		voices[k] = v
	}
	for k, v := range cfg.Voices {
		voices[k] = v
	}

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for lang, ep := range cfg.Endpoints {
		endpoints[lang] = cleanEndpoint(ep)
	}

	return &Synthesizer{
		endpoint:   cleanEndpoint(cfg.Endpoint),
		endpoints:  endpoints,
		voices:     voices,
		transcoder: tc,
	}
}

func cleanEndpoint(ep string) string {
	ep = strings.TrimPrefix(ep, "tcp://")
	return strings.TrimPrefix(ep, "http://")
}

// Synthesize sends text to the Piper server and writes the speech to
// opts.OutputPath. Without a transcoder the file is written next to it with
// a .wav extension and that path is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (string, error) {
	if text == "" {
		return "", fmt.Errorf("empty text for synthesis")
	}

	voice := s.voices[opts.Language]
	if voice == "" {
		voice = s.voices["en"]
	}
	endpoint := s.endpoints[opts.Language]
	if endpoint == "" {
		endpoint = s.endpoint
	}
	if endpoint == "" {
		return "", fmt.Errorf("no piper endpoint configured for language %q", opts.Language)
	}

	slog.Debug("piper synthesize", "text_length", len(text), "voice", voice, "language", opts.Language, "endpoint", endpoint)

	buf, rate, err := s.stream(ctx, endpoint, text, voice)
	if err != nil {
		return "", err
	}

	if s.transcoder == nil {
		out := strings.TrimSuffix(opts.OutputPath, filepath.Ext(opts.OutputPath)) + ".wav"
		if err := audio.WriteWAV(out, buf, rate); err != nil {
			return "", err
		}
		slog.Info("piper audio saved", "path", out, "voice", voice)
		return out, nil
	}

	wavPath := opts.OutputPath + ".piper.wav"
	defer os.Remove(wavPath)
	if err := audio.WriteWAV(wavPath, buf, rate); err != nil {
		return "", err
	}
	if err := s.transcoder.Transcode(ctx, wavPath, opts.OutputPath, nil); err != nil {
		return "", fmt.Errorf("converting piper audio: %w", err)
	}

	slog.Info("piper audio saved", "path", opts.OutputPath, "voice", voice)
	return opts.OutputPath, nil
}

// stream runs one synthesize exchange: audio-start, audio-chunk*, audio-stop.
func (s *Synthesizer) stream(ctx context.Context, endpoint, text, voice string) (audio.Buffer, int, error) {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return audio.Buffer{}, 0, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	req := event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": voice},
		},
	}
	if err := writeEvent(conn, req, nil); err != nil {
		return audio.Buffer{}, 0, fmt.Errorf("sending synthesize event: %w", err)
	}

	var (
		r          = bufio.NewReader(conn)
		pcm        []byte
		sampleRate = 22050
		channels   = 1
		width      = 2
	)

	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return audio.Buffer{}, 0, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			if v, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(v)
			}
			if v, ok := evt.Data["channels"].(float64); ok {
				channels = int(v)
			}
			if v, ok := evt.Data["width"].(float64); ok {
				width = int(v)
			}
			if width != 2 {
				return audio.Buffer{}, 0, fmt.Errorf("unsupported piper sample width %d", width)
			}

		case "audio-chunk":
			pcm = append(pcm, payload...)

		case "audio-stop":
			slog.Debug("piper audio-stop", "pcm_bytes", len(pcm), "rate", sampleRate, "channels", channels)
			if len(pcm) == 0 {
				return audio.Buffer{}, 0, fmt.Errorf("piper returned no audio")
			}
			if channels <= 0 {
				channels = 1
			}
			return audio.Interleaved(audio.DecodePCM(pcm, channels), channels), sampleRate, nil

		case "error":
			msg := "unknown error"
			if v, ok := evt.Data["text"].(string); ok {
				msg = v
			}
			return audio.Buffer{}, 0, fmt.Errorf("piper error: %s", msg)

		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}
