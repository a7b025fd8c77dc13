package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/ankitluthra/GyanEcho/internal/audio"
	"github.com/ankitluthra/GyanEcho/internal/capture"
)

// CommandDevice captures raw PCM from the stdout of an external recorder
// such as `arecord -q -f S16_LE -r 16000 -c 1 -t raw`.
type CommandDevice struct {
	name   string
	args   []string
	format audio.Format
}

func NewCommandDevice(commandLine string, format audio.Format) (*CommandDevice, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("capture command is empty")
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &CommandDevice{name: fields[0], args: fields[1:], format: format}, nil
}

func (d *CommandDevice) Open(_ context.Context) (capture.Stream, error) {
	// The process outlives the Open call, so it is not bound to ctx.
	cmd := exec.Command(d.name, d.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, classifyStartError(d.name, err)
	}

	s := &commandStream{cmd: cmd, stdout: stdout, format: d.format}
	s.wg.Add(1)
	go s.drainStderr(stderr)
	slog.Info("capture command started", "command", d.name, "pid", cmd.Process.Pid)
	return s, nil
}

func classifyStartError(name string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("start %s: %w: %v", name, capture.ErrUnsupported, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("start %s: %w: %v", name, capture.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("start %s: %w", name, err)
	}
}

type commandStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	format audio.Format
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastLine string

	waitOnce sync.Once
	waitErr  error
	killed   bool
}

func (s *commandStream) Format() audio.Format {
	return s.format
}

// Read returns the recorder's output. When the recorder fails on its own,
// the error reports what it last wrote to stderr.
func (s *commandStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if !errors.Is(err, io.EOF) {
		return n, err
	}
	s.wg.Wait()
	var exitErr *exec.ExitError
	if werr := s.wait(); errors.As(werr, &exitErr) && !s.wasKilled() {
		if line := s.lastStderr(); line != "" {
			return n, deviceErrorFromStderr(line)
		}
		return n, fmt.Errorf("capture command failed: %w", werr)
	}
	return n, io.EOF
}

// wait reaps the process once; it must only run after stdout is drained or
// the process is killed.
func (s *commandStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

func (s *commandStream) wasKilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

func (s *commandStream) drainStderr(r io.Reader) {
	defer s.wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		slog.Debug("capture command stderr", "line", line)
		s.mu.Lock()
		s.lastLine = line
		s.mu.Unlock()
	}
}

func (s *commandStream) lastStderr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLine
}

// Close kills the recorder and reaps it. It is safe to call more than once.
func (s *commandStream) Close() error {
	s.mu.Lock()
	s.killed = true
	s.mu.Unlock()
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill capture command: %w", err)
	}
	var exitErr *exec.ExitError
	if err := s.wait(); err != nil && !errors.As(err, &exitErr) {
		return err
	}
	return nil
}

// deviceErrorFromStderr maps the usual recorder complaints onto device
// errors.
func deviceErrorFromStderr(line string) error {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "permission denied"):
		return fmt.Errorf("%w: %s", capture.ErrPermissionDenied, line)
	case strings.Contains(lower, "no such file"), strings.Contains(lower, "no such device"),
		strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", capture.ErrDeviceNotFound, line)
	default:
		return fmt.Errorf("capture command exited: %s", line)
	}
}
