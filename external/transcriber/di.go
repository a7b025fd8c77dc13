package transcriber

import (
	"context"
	"fmt"

	"github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/ankitluthra/GyanEcho/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranscriberBackend {
		case config.TranscriberBackendWhisper:
			return NewWhisperTranscriber(WhisperConfig{
				URL:     c.WhisperURL,
				Timeout: c.TranscribeTimeout,
			}), nil
		case config.TranscriberBackendCloudSpeech:
			t, err := NewCloudSpeechTranscriber(context.Background(), CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
				Timeout:         c.TranscribeTimeout,
			})
			if err != nil {
				return nil, err
			}
			return t, nil
		default:
			return nil, fmt.Errorf("unknown transcriber backend %q", c.TranscriberBackend)
		}
	})
}
