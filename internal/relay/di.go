package relay

import (
	"github.com/ankitluthra/GyanEcho/internal/transcriber"
	"github.com/ankitluthra/GyanEcho/internal/translation"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Orchestrator, error) {
		stt := do.MustInvoke[transcriber.Transcriber](i)
		fanOut := do.MustInvoke[*translation.FanOut](i)
		return NewOrchestrator(stt, fanOut), nil
	})
}
