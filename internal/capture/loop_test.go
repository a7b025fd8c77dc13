package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/audio"
	"github.com/ankitluthra/GyanEcho/internal/protocol"
	"github.com/ankitluthra/GyanEcho/internal/transport"
)

type fakeStream struct {
	format   audio.Format
	mu       sync.Mutex
	frames   [][]byte
	drained  chan struct{}
	closed   chan struct{}
	once     sync.Once
	closeErr error
	closes   int
}

func newFakeStream(frames ...[]byte) *fakeStream {
	return &fakeStream{
		format:  audio.PCM16(16000, 1),
		frames:  frames,
		drained: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (s *fakeStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if len(s.frames) > 0 {
		f := s.frames[0]
		n := copy(p, f)
		if n < len(f) {
			s.frames[0] = f[n:]
		} else {
			s.frames = s.frames[1:]
		}
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()
	select {
	case <-s.drained:
	default:
		close(s.drained)
	}
	<-s.closed
	return 0, io.ErrClosedPipe
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closed) })
	return s.closeErr
}

func (s *fakeStream) Format() audio.Format { return s.format }

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// feedingStream produces frames on demand until closed.
type feedingStream struct {
	format audio.Format
	next   byte
	mu     sync.Mutex
	fed    []byte
	closed chan struct{}
	once   sync.Once
}

func (s *feedingStream) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.EOF
	case <-time.After(time.Millisecond):
	}
	frame := []byte{s.next, s.next + 1}
	s.next += 2
	s.mu.Lock()
	s.fed = append(s.fed, frame...)
	s.mu.Unlock()
	return copy(p, frame), nil
}

func (s *feedingStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *feedingStream) Format() audio.Format { return s.format }

type fakeDevice struct {
	stream Stream
	err    error
	mu     sync.Mutex
	opens  int
}

func (d *fakeDevice) Open(context.Context) (Stream, error) {
	d.mu.Lock()
	d.opens++
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

type fakeSender struct {
	mu       sync.Mutex
	state    transport.State
	payloads [][]byte
	sendErr  error
	whenOpen func()
}

func (s *fakeSender) Send(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *fakeSender) State() transport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSender) WhenOpen(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.whenOpen != nil {
		return transport.ErrNotConnected
	}
	s.whenOpen = fn
	return nil
}

func (s *fakeSender) sent(t *testing.T) []protocol.InboundMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.InboundMessage, 0, len(s.payloads))
	for _, p := range s.payloads {
		m, err := protocol.DecodeInbound(p)
		if err != nil {
			t.Fatalf("unexpected payload %s: %v", p, err)
		}
		out = append(out, m)
	}
	return out
}

func decodePCM(t *testing.T, m protocol.InboundMessage) []byte {
	t.Helper()
	wav, err := base64.StdEncoding.DecodeString(m.AudioChunk)
	if err != nil {
		t.Fatalf("unexpected base64 error: %v", err)
	}
	_, pcm, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("unexpected wav error: %v", err)
	}
	return pcm
}

func slowConfig() LoopConfig {
	return LoopConfig{ChunkInterval: time.Hour, FlushInterval: time.Hour, MinChunkBytes: 1000}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting")
	}
}

// A WAV blob is the PCM payload plus a 44 byte header.
func pcmForBlobSize(n int) []byte {
	return bytes.Repeat([]byte{7}, n-44)
}

func TestLoop_BelowThresholdSendsNothing(t *testing.T) {
	stream := newFakeStream(pcmForBlobSize(500))
	sender := &fakeSender{state: transport.StateOpen}
	l := NewLoop(slowConfig(), &fakeDevice{stream: stream}, sender, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	waitClosed(t, stream.drained)
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if got := sender.sent(t); len(got) != 0 {
		t.Fatalf("expected nothing sent, got %d messages", len(got))
	}
}

func TestLoop_AboveThresholdIsSent(t *testing.T) {
	pcm := pcmForBlobSize(1200)
	stream := newFakeStream(pcm)
	sender := &fakeSender{state: transport.StateOpen}
	cfg := slowConfig()
	cfg.LanguageHint = "fr"
	l := NewLoop(cfg, &fakeDevice{stream: stream}, sender, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	waitClosed(t, stream.drained)
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	got := sender.sent(t)
	if len(got) != 1 {
		t.Fatalf("unexpected message count: %d", len(got))
	}
	if got[0].Encoding != audio.EncodingWAV || got[0].LanguageHint != "fr" {
		t.Fatalf("unexpected message: %+v", got[0])
	}
	if !bytes.Equal(decodePCM(t, got[0]), pcm) {
		t.Fatalf("unexpected pcm payload")
	}
}

func TestLoop_StopReleasesDeviceOnErrors(t *testing.T) {
	stream := newFakeStream(pcmForBlobSize(1200))
	stream.closeErr = errors.New("device busy")
	sender := &fakeSender{state: transport.StateOpen}
	l := NewLoop(slowConfig(), &fakeDevice{stream: stream}, sender, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	waitClosed(t, stream.drained)
	sender.mu.Lock()
	sender.sendErr = transport.ErrNotConnected
	sender.mu.Unlock()

	err := l.Stop()
	if !errors.Is(err, transport.ErrNotConnected) || !errors.Is(err, stream.closeErr) {
		t.Fatalf("expected both failures to be reported, got %v", err)
	}
	if stream.closeCount() != 1 {
		t.Fatalf("unexpected close count: %d", stream.closeCount())
	}
	if l.Running() {
		t.Fatalf("loop should not be running")
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected second stop error: %v", err)
	}
}

func TestLoop_NoFramesLostAcrossRotation(t *testing.T) {
	stream := &feedingStream{format: audio.PCM16(16000, 1), closed: make(chan struct{})}
	sender := &fakeSender{state: transport.StateOpen}
	l := NewLoop(LoopConfig{
		ChunkInterval: 15 * time.Millisecond,
		FlushInterval: 5 * time.Millisecond,
	}, &fakeDevice{stream: stream}, sender, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	msgs := sender.sent(t)
	if len(msgs) < 2 {
		t.Fatalf("expected several chunks, got %d", len(msgs))
	}
	var got []byte
	for _, m := range msgs {
		got = append(got, decodePCM(t, m)...)
	}
	stream.mu.Lock()
	want := stream.fed
	stream.mu.Unlock()
	if !bytes.Equal(got, want) {
		t.Fatalf("frames lost or reordered: got %d bytes want %d", len(got), len(want))
	}
}

func TestLoop_StartRequiresConnection(t *testing.T) {
	device := &fakeDevice{stream: newFakeStream()}
	l := NewLoop(slowConfig(), device, &fakeSender{state: transport.StateClosed}, nil)

	if err := l.Start(context.Background()); !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("unexpected error: %v", err)
	}
	if device.openCount() != 0 {
		t.Fatalf("device should not be opened")
	}
}

func TestLoop_StartDeferredWhileConnecting(t *testing.T) {
	stream := newFakeStream()
	sender := &fakeSender{state: transport.StateConnecting}
	l := NewLoop(slowConfig(), &fakeDevice{stream: stream}, sender, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if l.Running() {
		t.Fatalf("loop should wait for the connection")
	}

	sender.mu.Lock()
	sender.state = transport.StateOpen
	fire := sender.whenOpen
	sender.mu.Unlock()
	fire()

	waitClosed(t, stream.drained)
	if !l.Running() {
		t.Fatalf("loop should be running once open")
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
}

func TestLoop_StopCancelsDeferredStart(t *testing.T) {
	stream := newFakeStream()
	device := &fakeDevice{stream: stream}
	sender := &fakeSender{state: transport.StateConnecting}
	l := NewLoop(slowConfig(), device, sender, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	sender.mu.Lock()
	sender.state = transport.StateOpen
	fire := sender.whenOpen
	sender.mu.Unlock()
	fire()

	time.Sleep(50 * time.Millisecond)
	if l.Running() {
		t.Fatalf("loop should not start after Stop")
	}
	if device.openCount() != 0 {
		t.Fatalf("device should not be opened after Stop, opens=%d", device.openCount())
	}
	if stream.closeCount() != 0 {
		t.Fatalf("unexpected stream close count: %d", stream.closeCount())
	}
}

func TestLoop_DeviceErrorSurfaces(t *testing.T) {
	device := &fakeDevice{err: fmt.Errorf("open microphone: %w", ErrPermissionDenied)}
	l := NewLoop(slowConfig(), device, &fakeSender{state: transport.StateOpen}, nil)

	err := l.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) || !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Running() {
		t.Fatalf("loop should not be running")
	}
}

func TestLoop_EndedOnEOF(t *testing.T) {
	stream := &feedingStream{format: audio.PCM16(16000, 1), closed: make(chan struct{})}
	_ = stream.Close()
	l := NewLoop(slowConfig(), &fakeDevice{stream: stream}, &fakeSender{state: transport.StateOpen}, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	waitClosed(t, l.Ended())
	if err := l.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
}
