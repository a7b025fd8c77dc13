package transcriber

import (
	"context"
	"errors"
)

const UnknownLanguage = "unknown"

// Chunk is one bounded window of recorded audio.
type Chunk struct {
	Audio        []byte
	Encoding     string
	LanguageHint string
}

type Result struct {
	Text       string
	Language   string
	Confidence float64
}

type Transcriber interface {
	Transcribe(ctx context.Context, chunk Chunk) (Result, error)
}

var (
	ErrUnavailable = errors.New("transcription unavailable")
	ErrMalformed   = errors.New("transcription response malformed")
)

// Error keeps the root cause as its message so it can be relayed to the
// client verbatim, while still matching ErrUnavailable or ErrMalformed.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Unavailable(err error) error {
	return &Error{Kind: ErrUnavailable, Err: err}
}

func Malformed(err error) error {
	return &Error{Kind: ErrMalformed, Err: err}
}

// ClampConfidence maps a backend score into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
