package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/audio"
	"github.com/ankitluthra/GyanEcho/internal/protocol"
	"github.com/ankitluthra/GyanEcho/internal/transport"
)

var ErrLoopRunning = errors.New("capture loop already running")

const framesPerSecond = 50

// Sender is the slice of the transport session the loop needs.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	State() transport.State
	WhenOpen(fn func()) error
}

type LoopConfig struct {
	ChunkInterval time.Duration
	FlushInterval time.Duration
	MinChunkBytes int
	LanguageHint  string
}

// Loop records from one capture handle and emits one InboundMessage per
// chunk interval. On every interval boundary the active recorder is stopped
// and a replacement is started under the same lock the reader writes
// through, so each frame lands in exactly one recorder.
type Loop struct {
	cfg     LoopConfig
	device  Device
	sender  Sender
	onError func(error)

	mu       sync.Mutex
	running  bool
	pending  bool
	deferral uint64
	stream   Stream
	recorder *Recorder
	cancel   context.CancelFunc
	ended    chan struct{}
	workers  sync.WaitGroup
}

func NewLoop(cfg LoopConfig, device Device, sender Sender, onError func(error)) *Loop {
	if onError == nil {
		onError = func(error) {}
	}
	return &Loop{
		cfg:     cfg,
		device:  device,
		sender:  sender,
		onError: onError,
		ended:   make(chan struct{}),
	}
}

// Start acquires the device and begins recording. It refuses with
// transport.ErrNotConnected unless the sender is open or connecting; while
// connecting, recording begins once the connection opens and any device
// error is reported through the error callback.
func (l *Loop) Start(ctx context.Context) error {
	switch l.sender.State() {
	case transport.StateOpen:
		return l.begin(ctx)
	case transport.StateConnecting:
		slog.Info("transport connecting; capture starts once open")
		l.mu.Lock()
		l.deferral++
		id := l.deferral
		l.pending = true
		l.mu.Unlock()
		err := l.sender.WhenOpen(func() {
			go func() {
				if err := l.beginDeferred(ctx, id); err != nil {
					l.onError(err)
				}
			}()
		})
		if err != nil {
			l.cancelPending()
		}
		return err
	default:
		return fmt.Errorf("start capture: %w", transport.ErrNotConnected)
	}
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Ended is closed when the capture stream of the current run stops
// yielding audio.
func (l *Loop) Ended() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ended
}

func (l *Loop) begin(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.beginLocked(ctx)
}

// beginDeferred runs a start registered while connecting, unless Stop or a
// later Start has superseded it.
func (l *Loop) beginDeferred(ctx context.Context, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.pending || l.deferral != id {
		slog.Info("deferred capture start cancelled")
		return nil
	}
	l.pending = false
	return l.beginLocked(ctx)
}

func (l *Loop) cancelPending() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = false
	l.deferral++
}

func (l *Loop) beginLocked(ctx context.Context) error {
	if l.running {
		return ErrLoopRunning
	}

	stream, err := l.device.Open(ctx)
	if err != nil {
		return err
	}
	format := stream.Format()
	rec := NewRecorder(format)
	if err := rec.Start(); err != nil {
		_ = stream.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.running = true
	l.stream = stream
	l.recorder = rec
	l.cancel = cancel
	select {
	case <-l.ended:
		l.ended = make(chan struct{})
	default:
	}

	l.workers.Add(2)
	go l.pump(loopCtx, stream, format, l.ended)
	go l.tick(loopCtx, format)
	slog.Info("capture started",
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"chunk_interval", l.cfg.ChunkInterval.String(),
		"flush_interval", l.cfg.FlushInterval.String())
	return nil
}

// Stop cancels a deferred start and the interval timers, stops the active
// recorder (emitting its final chunk) and releases the capture handle. Each
// step runs regardless of the others' failures.
func (l *Loop) Stop() error {
	l.mu.Lock()
	l.pending = false
	l.deferral++
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	cancel, stream := l.cancel, l.stream
	l.mu.Unlock()

	cancel()
	var closeErr error
	if err := stream.Close(); err != nil {
		closeErr = fmt.Errorf("release capture device: %w", err)
	}
	l.workers.Wait()

	l.mu.Lock()
	blob := l.recorder.Stop()
	l.recorder = nil
	l.stream = nil
	l.mu.Unlock()

	sendErr := l.emit(context.Background(), blob)
	slog.Info("capture stopped")
	return errors.Join(closeErr, sendErr)
}

func (l *Loop) pump(ctx context.Context, stream Stream, format audio.Format, ended chan struct{}) {
	defer l.workers.Done()
	defer close(ended)

	size := format.ByteRate() / framesPerSecond
	if align := format.BlockAlign(); align > 0 && size%align != 0 {
		size += align - size%align
	}
	if size <= 0 {
		size = 4096
	}
	buf := make([]byte, size)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			l.mu.Lock()
			if l.recorder != nil {
				_, _ = l.recorder.Write(buf[:n])
			}
			l.mu.Unlock()
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				slog.Info("capture stream ended")
				return
			}
			slog.Error("capture stream failed", "error", err)
			l.onError(fmt.Errorf("read capture stream: %w", err))
			return
		}
	}
}

func (l *Loop) tick(ctx context.Context, format audio.Format) {
	defer l.workers.Done()

	flush := time.NewTicker(l.cfg.FlushInterval)
	defer flush.Stop()
	chunk := time.NewTicker(l.cfg.ChunkInterval)
	defer chunk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			l.mu.Lock()
			if l.recorder != nil {
				if n := l.recorder.Flush(); n > 0 {
					slog.Debug("audio part recorded", "bytes", n)
				}
			}
			l.mu.Unlock()
		case <-chunk.C:
			blob := l.rotate(format)
			if err := l.emit(ctx, blob); err != nil {
				l.onError(err)
			}
		}
	}
}

// rotate stops the active recorder and starts its replacement.
func (l *Loop) rotate(format audio.Format) Blob {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recorder == nil {
		return Blob{Format: format}
	}
	blob := l.recorder.Stop()
	next := NewRecorder(format)
	_ = next.Start()
	l.recorder = next
	return blob
}

func (l *Loop) emit(ctx context.Context, blob Blob) error {
	if blob.Empty() {
		return nil
	}
	if blob.Size() < l.cfg.MinChunkBytes {
		slog.Debug("skipping likely silence", "bytes", blob.Size(), "min_bytes", l.cfg.MinChunkBytes)
		return nil
	}
	payload, err := protocol.EncodeInbound(protocol.InboundMessage{
		AudioChunk:   base64.StdEncoding.EncodeToString(blob.Data),
		Encoding:     audio.EncodingWAV,
		LanguageHint: l.cfg.LanguageHint,
	})
	if err != nil {
		return err
	}
	slog.Debug("sending audio chunk", "bytes", blob.Size(), "parts", blob.Parts)
	if err := l.sender.Send(ctx, payload); err != nil {
		return fmt.Errorf("send audio chunk: %w", err)
	}
	return nil
}
