package capture

import (
	"context"
	"errors"
	"io"

	"github.com/ankitluthra/GyanEcho/internal/audio"
)

var ErrDeviceUnavailable = errors.New("capture device unavailable")

// DeviceError is a distinguished acquisition failure. Every DeviceError
// matches ErrDeviceUnavailable; none of them are retried.
type DeviceError struct {
	reason string
}

func (e *DeviceError) Error() string {
	return "capture device unavailable: " + e.reason
}

func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}

var (
	ErrPermissionDenied = &DeviceError{reason: "permission denied"}
	ErrDeviceNotFound   = &DeviceError{reason: "device not found"}
	ErrUnsupported      = &DeviceError{reason: "unsupported environment"}
)

// Device hands out one continuous capture handle per Open.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields raw PCM in Format. Close releases the underlying device and
// unblocks a pending Read.
type Stream interface {
	io.ReadCloser
	Format() audio.Format
}
