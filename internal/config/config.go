package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	TranscriberBackendWhisper     = "whisper"
	TranscriberBackendCloudSpeech = "cloud_speech"

	TranslatorBackendGoogle = "google"
	TranslatorBackendEcho   = "echo"
)

type Config struct {
	Env string

	ListenAddr         string
	WebSocketPath      string
	TargetLanguages    []string
	TranscriberBackend string
	WhisperURL         string
	TranscribeTimeout  time.Duration
	TranslatorBackend  string
	TranslateTimeout   time.Duration

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	ServerURL            string
	CaptureCommand       string
	CaptureFile          string
	CaptureSampleRate    int
	CaptureChannels      int
	ChunkInterval        time.Duration
	FlushInterval        time.Duration
	MinChunkBytes        int
	LanguageHint         string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

func (c *Config) ValidateBackend() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	if !strings.HasPrefix(c.WebSocketPath, "/") {
		return fmt.Errorf("WEBSOCKET_PATH must start with '/', got %q", c.WebSocketPath)
	}
	if len(c.TargetLanguages) == 0 {
		return fmt.Errorf("TARGET_LANGUAGES must list at least one language")
	}
	for _, lang := range c.TargetLanguages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("TARGET_LANGUAGES contains an empty entry")
		}
	}
	if c.TranscribeTimeout <= 0 {
		return fmt.Errorf("TRANSCRIBE_TIMEOUT must be positive, got %s", c.TranscribeTimeout)
	}
	if c.TranslateTimeout <= 0 {
		return fmt.Errorf("TRANSLATE_TIMEOUT must be positive, got %s", c.TranslateTimeout)
	}

	switch c.TranscriberBackend {
	case TranscriberBackendWhisper:
		if c.WhisperURL == "" {
			return fmt.Errorf("WHISPER_URL is required when TRANSCRIBER_BACKEND=%s", TranscriberBackendWhisper)
		}
	case TranscriberBackendCloudSpeech:
		if err := c.requireGoogleCloud("TRANSCRIBER_BACKEND=" + TranscriberBackendCloudSpeech); err != nil {
			return err
		}
	default:
		return fmt.Errorf("TRANSCRIBER_BACKEND is invalid: %q", c.TranscriberBackend)
	}

	switch c.TranslatorBackend {
	case TranslatorBackendGoogle:
		if c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_CREDENTIALS_JSON is required when TRANSLATOR_BACKEND=%s", TranslatorBackendGoogle)
		}
	case TranslatorBackendEcho:
	default:
		return fmt.Errorf("TRANSLATOR_BACKEND is invalid: %q", c.TranslatorBackend)
	}
	return nil
}

func (c *Config) ValidateClient() error {
	if c.ServerURL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}
	if c.CaptureCommand == "" && c.CaptureFile == "" {
		return fmt.Errorf("one of CAPTURE_COMMAND or CAPTURE_FILE is required")
	}
	if c.CaptureSampleRate <= 0 {
		return fmt.Errorf("CAPTURE_SAMPLE_RATE must be positive, got %d", c.CaptureSampleRate)
	}
	if c.CaptureChannels <= 0 {
		return fmt.Errorf("CAPTURE_CHANNELS must be positive, got %d", c.CaptureChannels)
	}
	if c.ChunkInterval <= 0 {
		return fmt.Errorf("CHUNK_INTERVAL must be positive, got %s", c.ChunkInterval)
	}
	if c.FlushInterval <= 0 || c.FlushInterval > c.ChunkInterval {
		return fmt.Errorf("FLUSH_INTERVAL must be positive and not exceed CHUNK_INTERVAL, got %s", c.FlushInterval)
	}
	if c.MinChunkBytes < 0 {
		return fmt.Errorf("MIN_CHUNK_BYTES must not be negative, got %d", c.MinChunkBytes)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("RECONNECT_DELAY must be positive, got %s", c.ReconnectDelay)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("MAX_RECONNECT_ATTEMPTS must not be negative, got %d", c.MaxReconnectAttempts)
	}
	return nil
}

func (c *Config) requireGoogleCloud(reason string) error {
	for _, req := range c.googleCloudFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required when %s", req.name, reason)
		}
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) googleCloudFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "GOOGLE_CLOUD_SPEECH_LOCATION", value: c.GoogleCloudSpeechLocation},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
