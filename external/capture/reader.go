package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/audio"
	"github.com/ankitluthra/GyanEcho/internal/capture"
)

const StdinPath = "-"

// ReaderDevice captures from a file or stdin holding raw PCM or a WAV
// container. A WAV header overrides the configured format. With Realtime
// set, reads are paced to the audio's byte rate.
type ReaderDevice struct {
	path     string
	format   audio.Format
	Realtime bool
}

func NewReaderDevice(path string, format audio.Format) (*ReaderDevice, error) {
	if path == "" {
		return nil, errors.New("capture file path is empty")
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &ReaderDevice{path: path, format: format, Realtime: path != StdinPath}, nil
}

func (d *ReaderDevice) Open(_ context.Context) (capture.Stream, error) {
	rc, err := d.open()
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(rc)
	format := d.format
	if h, err := br.Peek(audio.HeaderSize); err == nil {
		if f, _, err := audio.ParseWAVHeader(h); err == nil {
			if err := f.Validate(); err != nil {
				_ = rc.Close()
				return nil, fmt.Errorf("%w: %v", capture.ErrUnsupported, err)
			}
			format = f
			_, _ = br.Discard(audio.HeaderSize)
		}
	}
	return newReaderStream(br, rc, format, d.Realtime), nil
}

func (d *ReaderDevice) open() (io.ReadCloser, error) {
	if d.path == StdinPath {
		return os.Stdin, nil
	}
	f, err := os.Open(d.path)
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("open %s: %w", d.path, capture.ErrDeviceNotFound)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("open %s: %w", d.path, capture.ErrPermissionDenied)
	default:
		return nil, err
	}
}

type readerStream struct {
	r        io.Reader
	closer   io.Closer
	format   audio.Format
	realtime bool

	start     time.Time
	delivered int

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

func newReaderStream(r io.Reader, closer io.Closer, format audio.Format, realtime bool) *readerStream {
	return &readerStream{
		r:        r,
		closer:   closer,
		format:   format,
		realtime: realtime,
		closed:   make(chan struct{}),
	}
}

func (s *readerStream) Format() audio.Format {
	return s.format
}

func (s *readerStream) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, os.ErrClosed
	default:
	}
	if s.start.IsZero() {
		s.start = time.Now()
	}
	n, err := s.r.Read(p)
	s.delivered += n
	if s.realtime && n > 0 {
		due := s.start.Add(s.format.Duration(s.delivered))
		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-s.closed:
				timer.Stop()
			}
		}
	}
	return n, err
}

func (s *readerStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.closer.Close()
	})
	return s.closeErr
}
