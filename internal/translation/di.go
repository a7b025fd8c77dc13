package translation

import (
	"github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*FanOut, error) {
		cfg := do.MustInvoke[*config.Config](i)
		t := do.MustInvoke[Translator](i)
		return NewFanOut(t, cfg.TargetLanguages, cfg.TranslateTimeout), nil
	})
}
