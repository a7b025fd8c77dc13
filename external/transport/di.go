package transport

import (
	"github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/ankitluthra/GyanEcho/internal/relay"
	"github.com/ankitluthra/GyanEcho/internal/transport"
	"github.com/samber/do/v2"
)

func RegisterServerDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		c := do.MustInvoke[*config.Config](i)
		orchestrator := do.MustInvoke[*relay.Orchestrator](i)
		return NewServer(c.ListenAddr, c.WebSocketPath, orchestrator), nil
	})
}

func RegisterClientDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transport.Dialer, error) {
		return NewDialer(), nil
	})
}
