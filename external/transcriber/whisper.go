package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/transcriber"
)

type WhisperConfig struct {
	URL     string
	Timeout time.Duration
}

// WhisperTranscriber talks to the whisper HTTP service:
// POST {audioBase64, expectedLanguage?} -> {text, language?, confidence?, error?}.
type WhisperTranscriber struct {
	url    string
	client *http.Client
}

type whisperRequest struct {
	AudioBase64      string  `json:"audioBase64"`
	ExpectedLanguage *string `json:"expectedLanguage"`
}

type whisperResponse struct {
	Text       *string  `json:"text"`
	Language   string   `json:"language"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error"`
}

func NewWhisperTranscriber(cfg WhisperConfig) transcriber.Transcriber {
	return &WhisperTranscriber{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, chunk transcriber.Chunk) (transcriber.Result, error) {
	payload := whisperRequest{AudioBase64: base64.StdEncoding.EncodeToString(chunk.Audio)}
	if hint := strings.TrimSpace(chunk.LanguageHint); hint != "" {
		payload.ExpectedLanguage = &hint
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return transcriber.Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(b))
	if err != nil {
		return transcriber.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return transcriber.Result{}, transcriber.Unavailable(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return transcriber.Result{}, transcriber.Unavailable(fmt.Errorf("whisper returned status %d", resp.StatusCode))
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transcriber.Result{}, transcriber.Malformed(fmt.Errorf("decode whisper response: %w", err))
	}
	if out.Error != "" {
		return transcriber.Result{}, transcriber.Unavailable(errors.New(out.Error))
	}
	if out.Text == nil {
		return transcriber.Result{}, transcriber.Malformed(errors.New("whisper response has no text field"))
	}

	result := transcriber.Result{
		Text:     strings.TrimSpace(*out.Text),
		Language: out.Language,
	}
	if result.Language == "" {
		result.Language = transcriber.UnknownLanguage
	}
	if out.Confidence != nil {
		result.Confidence = transcriber.ClampConfidence(*out.Confidence)
	}
	return result, nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
