package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/audio"
	"github.com/ankitluthra/GyanEcho/internal/protocol"
	"github.com/ankitluthra/GyanEcho/internal/transcriber"
	"github.com/ankitluthra/GyanEcho/internal/translation"
	"github.com/ankitluthra/GyanEcho/internal/transport"
	"github.com/google/uuid"
)

type State int32

const (
	StateIdle State = iota
	StateAwaitingTranscription
	StateAwaitingTranslation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingTranscription:
		return "awaiting_transcription"
	case StateAwaitingTranslation:
		return "awaiting_translation"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Orchestrator turns inbound audio messages into outbound results. It keeps
// no state between messages; everything per connection lives in connection.
type Orchestrator struct {
	transcriber transcriber.Transcriber
	fanOut      *translation.FanOut
}

func NewOrchestrator(stt transcriber.Transcriber, fanOut *translation.FanOut) *Orchestrator {
	return &Orchestrator{transcriber: stt, fanOut: fanOut}
}

type connection struct {
	id          string
	conn        transport.Conn
	connectedAt time.Time
	state       atomic.Int32
	received    int
	emitted     int
}

func newConnection(conn transport.Conn) *connection {
	return &connection{
		id:          uuid.NewString(),
		conn:        conn,
		connectedAt: time.Now(),
	}
}

func (c *connection) setState(s State) {
	c.state.Store(int32(s))
}

func (c *connection) State() State {
	return State(c.state.Load())
}

// Serve processes messages from conn one at a time until the connection
// closes or ctx is done. Processing failures never close the connection.
func (o *Orchestrator) Serve(ctx context.Context, conn transport.Conn) {
	c := newConnection(conn)
	slog.Info("client connected", "connection_id", c.id)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close(transport.CloseGoingAway, "server shutting down")
	})
	defer stop()

	// In-flight work is not cancelled when the connection goes away; its
	// result is discarded on send.
	workCtx := context.WithoutCancel(ctx)
	for {
		data, err := conn.ReadMessage(ctx)
		if err != nil {
			code, _ := transport.CloseCode(err)
			slog.Info("client disconnected",
				"connection_id", c.id,
				"code", code,
				"received", c.received,
				"emitted", c.emitted,
				"duration", time.Since(c.connectedAt).String())
			return
		}
		c.received++

		out, ok := o.handle(workCtx, c, data)
		if !ok {
			continue
		}
		b, err := protocol.EncodeOutbound(out)
		if err != nil {
			slog.Error("failed to encode outbound message", "connection_id", c.id, "error", err)
			continue
		}
		if err := conn.WriteMessage(ctx, b); err != nil {
			slog.Warn("discarding result; send failed", "connection_id", c.id, "error", err)
			continue
		}
		c.emitted++
	}
}

// Handle processes one raw inbound message outside of any connection.
func (o *Orchestrator) Handle(ctx context.Context, raw []byte) (protocol.OutboundMessage, bool) {
	return o.handle(ctx, &connection{id: "detached"}, raw)
}

func (o *Orchestrator) handle(ctx context.Context, c *connection, raw []byte) (out protocol.OutboundMessage, emit bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("message handling panicked", "connection_id", c.id, "panic", r)
			out, emit = protocol.ErrorMessage(fmt.Sprint(r)), true
		}
		c.setState(StateIdle)
	}()

	msg, err := protocol.DecodeInbound(raw)
	if err != nil {
		slog.Warn("invalid inbound message", "connection_id", c.id, "error", err)
		return protocol.ErrorMessage(err.Error()), true
	}
	if !msg.HasAudio() {
		slog.Debug("ignoring message without audio", "connection_id", c.id)
		return protocol.OutboundMessage{}, false
	}
	payload, err := base64.StdEncoding.DecodeString(msg.Audio())
	if err != nil {
		slog.Warn("invalid audio encoding", "connection_id", c.id, "error", err)
		return protocol.ErrorMessage(err.Error()), true
	}

	attrs := append([]any{"connection_id", c.id}, describeAudio(msg.Encoding, payload)...)
	slog.Debug("received audio; transcribing", attrs...)
	c.setState(StateAwaitingTranscription)
	res, err := o.transcriber.Transcribe(ctx, transcriber.Chunk{
		Audio:        payload,
		Encoding:     msg.Encoding,
		LanguageHint: msg.Hint(),
	})
	if err != nil {
		slog.Error("transcription failed",
			"connection_id", c.id,
			"error", err,
			"unavailable", errors.Is(err, transcriber.ErrUnavailable),
			"malformed", errors.Is(err, transcriber.ErrMalformed))
		return protocol.ErrorMessage(err.Error()), true
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		slog.Debug("empty transcription; skipping", "connection_id", c.id, "language", res.Language)
		return protocol.OutboundMessage{}, false
	}
	slog.Info("transcription received", "connection_id", c.id, "language", res.Language, "confidence", res.Confidence, "chars", len(text))

	c.setState(StateAwaitingTranslation)
	outcomes := o.fanOut.TranslateOutcomes(ctx, text)
	translations := make(map[string]string, len(outcomes))
	failed := 0
	for _, oc := range outcomes {
		translations[oc.Language] = oc.Text
		if oc.Failed() {
			failed++
		}
	}
	slog.Info("translations ready", "connection_id", c.id, "languages", len(outcomes), "failed", failed)
	return protocol.ResultMessage(text, translations), true
}

// describeAudio returns log attributes for a payload. WAV payloads are
// forwarded as received even when their header does not parse.
func describeAudio(encoding string, payload []byte) []any {
	attrs := []any{"bytes", len(payload), "encoding", encoding}
	if encoding != audio.EncodingWAV {
		return attrs
	}
	f, pcm, err := audio.DecodeWAV(payload)
	if err != nil {
		return append(attrs, "wav_error", err.Error())
	}
	return append(attrs,
		"sample_rate", f.SampleRate,
		"channels", f.Channels,
		"duration", f.Duration(len(pcm)).String())
}
