// Package google implements the Translator interface with the public Google
// Translate endpoint used by browser extensions (client=gtx).
//
// The endpoint answers with nested JSON arrays:
//
//	[[["<translated>","<source>",null,null,10], ...], null, "<detected-source>", ...]
package google

import (
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
)

// Translator calls the Google Translate endpoint.
type Translator struct {
	endpoint string
	client   *http.Client
}

// New creates a Google translator from config.
func New(cfg config.TranslationConfig) *Translator {
	return &Translator{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Translate auto-detects the source language and translates text to target.
func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	if target == "" {
		return "", errors.New("empty target language")
	}

	q := make(url.Values)
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", target)
	q.Set("dt", "t")

	// The text goes in the body; the instructions exceed comfortable URL lengths.
	form := url.Values{"q": {text}}

	reqURL := t.endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("translation failed (status %d): %s", resp.StatusCode, respBody)
	}

	var payload []any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding translation: %w", err)
	}

	translated, err := joinSegments(payload)
	if err != nil {
		return "", err
	}

	slog.Debug("translation complete", "target", target, "text_length", len(translated))
	return translated, nil
}

// joinSegments concatenates the translated text of every sentence segment.
func joinSegments(payload []any) (string, error) {
	if len(payload) == 0 {
		return "", errors.New("empty translation response")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected translation response shape: %T", payload[0])
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}

	if sb.Len() == 0 {
		return "", errors.New("translation response contained no text")
	}
	return sb.String(), nil
}
