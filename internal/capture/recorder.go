package capture

import (
	"errors"
	"sync"

	"github.com/ankitluthra/GyanEcho/internal/audio"
)

var (
	ErrRecorderNotRecording = errors.New("recorder is not recording")
	ErrRecorderStarted      = errors.New("recorder already started")
)

type recorderState int

const (
	recorderInactive recorderState = iota
	recorderRecording
	recorderStopped
)

// Blob is the WAV-framed output of one recorder.
type Blob struct {
	Data     []byte
	Format   audio.Format
	PCMBytes int
	Parts    int
}

func (b Blob) Size() int {
	return len(b.Data)
}

func (b Blob) Empty() bool {
	return b.PCMBytes == 0
}

// Recorder buffers frames written between Start and Stop. Flush commits the
// frames written since the previous flush as one part; Stop commits the
// remainder and returns every part as a single Blob.
type Recorder struct {
	mu      sync.Mutex
	format  audio.Format
	state   recorderState
	pending []byte
	parts   [][]byte
}

func NewRecorder(format audio.Format) *Recorder {
	return &Recorder{format: format}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recorderInactive {
		return ErrRecorderStarted
	}
	r.state = recorderRecording
	return nil
}

func (r *Recorder) recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == recorderRecording
}

func (r *Recorder) Write(frame []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recorderRecording {
		return 0, ErrRecorderNotRecording
	}
	r.pending = append(r.pending, frame...)
	return len(frame), nil
}

// Flush reports the number of bytes committed.
func (r *Recorder) Flush() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() int {
	n := len(r.pending)
	if n == 0 {
		return 0
	}
	r.parts = append(r.parts, r.pending)
	r.pending = nil
	return n
}

// Stop ends recording. Only the first call returns the recorded Blob.
func (r *Recorder) Stop() Blob {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recorderRecording {
		r.state = recorderStopped
		return Blob{Format: r.format}
	}
	r.flushLocked()
	r.state = recorderStopped

	size := 0
	for _, p := range r.parts {
		size += len(p)
	}
	pcm := make([]byte, 0, size)
	for _, p := range r.parts {
		pcm = append(pcm, p...)
	}
	blob := Blob{Format: r.format, PCMBytes: len(pcm), Parts: len(r.parts)}
	if len(pcm) > 0 {
		blob.Data = audio.EncodeWAV(r.format, pcm)
	}
	r.parts = nil
	return blob
}
