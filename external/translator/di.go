package translator

import (
	"context"
	"fmt"

	"github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/ankitluthra/GyanEcho/internal/translation"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (translation.Translator, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranslatorBackend {
		case config.TranslatorBackendGoogle:
			t, err := NewGoogleTranslator(context.Background(), c.GoogleCloudCredentialsJSON)
			if err != nil {
				return nil, err
			}
			return t, nil
		case config.TranslatorBackendEcho:
			return EchoTranslator{}, nil
		default:
			return nil, fmt.Errorf("unknown translator backend %q", c.TranslatorBackend)
		}
	})
}
