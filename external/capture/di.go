package capture

import (
	"github.com/ankitluthra/GyanEcho/internal/audio"
	"github.com/ankitluthra/GyanEcho/internal/capture"
	"github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (capture.Device, error) {
		c := do.MustInvoke[*config.Config](i)
		format := audio.PCM16(c.CaptureSampleRate, c.CaptureChannels)
		if c.CaptureFile != "" {
			d, err := NewReaderDevice(c.CaptureFile, format)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
		d, err := NewCommandDevice(c.CaptureCommand, format)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
