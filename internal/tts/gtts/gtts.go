// Package gtts implements the TTS Synthesizer with the Google Translate
// speech endpoint. It needs no credential, takes the language as a plain
// parameter, and is used as the fallback engine.
//
// The endpoint only accepts short inputs, so text is split into chunks of at
// most maxChunkRunes and the returned MP3 segments are concatenated.
package gtts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nadzzz/aidoctor/internal/config"
	"github.com/nadzzz/aidoctor/internal/tts"
)

const maxChunkRunes = 100

// Synthesizer calls the Google Translate speech endpoint.
type Synthesizer struct {
	endpoint string
	client   *http.Client
}

// New creates a gTTS-style synthesizer from config.
func New(cfg config.GTTSConfig) *Synthesizer {
	return &Synthesizer{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Synthesize fetches speech for every chunk of text and writes the joined MP3
// to opts.OutputPath.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (string, error) {
	chunks := Chunk(text, maxChunkRunes)
	if len(chunks) == 0 {
		return "", errors.New("empty text for synthesis")
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		if err := s.fetch(ctx, &audio, chunk, lang, i, len(chunks)); err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	if err := tts.WriteFile(opts.OutputPath, audio.Bytes()); err != nil {
		return "", err
	}

	slog.Info("gtts audio saved", "path", opts.OutputPath, "language", lang, "chunks", len(chunks), "bytes", audio.Len())
	return opts.OutputPath, nil
}

func (s *Synthesizer) fetch(ctx context.Context, w io.Writer, chunk, lang string, idx, total int) error {
	q := make(url.Values)
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", chunk)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gtts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gtts failed (status %d): %s", resp.StatusCode, respBody)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("reading audio: %w", err)
	}
	if n == 0 {
		return errors.New("gtts returned no audio")
	}
	return nil
}

// Chunk splits text on whitespace into pieces of at most limit runes. Words
// longer than limit are cut.
func Chunk(text string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > limit {
			flush()
			runes := []rune(word)
			chunks = append(chunks, string(runes[:limit]))
			word = string(runes[limit:])
		}

		wl := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+wl > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += wl
	}
	flush()

	return chunks
}
