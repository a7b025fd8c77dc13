package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	internalconfig "github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env string `env:"ENV" envDefault:"production"`

	ListenAddr         string        `env:"LISTEN_ADDR" envDefault:":8080"`
	WebSocketPath      string        `env:"WEBSOCKET_PATH" envDefault:"/"`
	TargetLanguages    []string      `env:"TARGET_LANGUAGES" envDefault:"en,fr,pa,hi" envSeparator:","`
	TranscriberBackend string        `env:"TRANSCRIBER_BACKEND" envDefault:"whisper"`
	WhisperURL         string        `env:"WHISPER_URL" envDefault:"http://whisper-service:5000/transcribe"`
	TranscribeTimeout  time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"30s"`
	TranslatorBackend  string        `env:"TRANSLATOR_BACKEND" envDefault:"google"`
	TranslateTimeout   time.Duration `env:"TRANSLATE_TIMEOUT" envDefault:"10s"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`

	ServerURL            string        `env:"SERVER_URL" envDefault:"ws://localhost:8080/"`
	CaptureCommand       string        `env:"CAPTURE_COMMAND"`
	CaptureFile          string        `env:"CAPTURE_FILE"`
	CaptureSampleRate    int           `env:"CAPTURE_SAMPLE_RATE" envDefault:"16000"`
	CaptureChannels      int           `env:"CAPTURE_CHANNELS" envDefault:"1"`
	ChunkInterval        time.Duration `env:"CHUNK_INTERVAL" envDefault:"1s"`
	FlushInterval        time.Duration `env:"FLUSH_INTERVAL" envDefault:"500ms"`
	MinChunkBytes        int           `env:"MIN_CHUNK_BYTES" envDefault:"1000"`
	LanguageHint         string        `env:"LANGUAGE_HINT"`
	ReconnectDelay       time.Duration `env:"RECONNECT_DELAY" envDefault:"2s"`
	MaxReconnectAttempts int           `env:"MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
}

// LoadBackend reads the relay server configuration.
func LoadBackend() (*internalconfig.Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateBackend(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient reads the capture client configuration.
func LoadClient() (*internalconfig.Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	return &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		WebSocketPath:              raw.WebSocketPath,
		TargetLanguages:            raw.TargetLanguages,
		TranscriberBackend:         raw.TranscriberBackend,
		WhisperURL:                 raw.WhisperURL,
		TranscribeTimeout:          raw.TranscribeTimeout,
		TranslatorBackend:          raw.TranslatorBackend,
		TranslateTimeout:           raw.TranslateTimeout,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		ServerURL:                  raw.ServerURL,
		CaptureCommand:             raw.CaptureCommand,
		CaptureFile:                raw.CaptureFile,
		CaptureSampleRate:          raw.CaptureSampleRate,
		CaptureChannels:            raw.CaptureChannels,
		ChunkInterval:              raw.ChunkInterval,
		FlushInterval:              raw.FlushInterval,
		MinChunkBytes:              raw.MinChunkBytes,
		LanguageHint:               raw.LanguageHint,
		ReconnectDelay:             raw.ReconnectDelay,
		MaxReconnectAttempts:       raw.MaxReconnectAttempts,
	}, nil
}
