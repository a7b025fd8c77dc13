package transcript

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/protocol"
)

// Entry is one outbound message as received, errors included.
type Entry struct {
	Message    protocol.OutboundMessage
	ReceivedAt time.Time
}

type Snapshot struct {
	Original     string
	Translations map[string]string
}

// Text returns the running string for lang, or the original text when lang
// is empty.
func (s Snapshot) Text(lang string) string {
	if lang == "" {
		return s.Original
	}
	return s.Translations[lang]
}

// Assembler accumulates the continuous transcript of one client session.
// Results append; errors only reach the raw history.
type Assembler struct {
	mu        sync.Mutex
	languages []string
	original  string
	running   map[string]string
	history   []Entry
	now       func() time.Time
}

func NewAssembler(languages []string) *Assembler {
	a := &Assembler{
		languages: slices.Clone(languages),
		now:       time.Now,
	}
	a.running = a.emptyRunning()
	return a
}

func (a *Assembler) emptyRunning() map[string]string {
	m := make(map[string]string, len(a.languages))
	for _, lang := range a.languages {
		m[lang] = ""
	}
	return m
}

func (a *Assembler) Apply(msg protocol.OutboundMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, Entry{Message: msg, ReceivedAt: a.now()})
	if msg.IsError() {
		return
	}
	a.original = appendText(a.original, msg.Original)
	for lang, text := range msg.Translations {
		a.running[lang] = appendText(a.running[lang], text)
	}
}

// ApplyRaw decodes and applies one wire message.
func (a *Assembler) ApplyRaw(data []byte) (protocol.OutboundMessage, error) {
	msg, err := protocol.DecodeOutbound(data)
	if err != nil {
		return protocol.OutboundMessage{}, err
	}
	a.Apply(msg)
	return msg, nil
}

// Clear empties every running string and the history in one step.
func (a *Assembler) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.original = ""
	a.running = a.emptyRunning()
	a.history = nil
}

func (a *Assembler) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{Original: a.original, Translations: maps.Clone(a.running)}
}

func (a *Assembler) History() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.history)
}

// Languages lists the configured languages followed by any others seen in
// results, sorted.
func (a *Assembler) Languages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := slices.Clone(a.languages)
	var extra []string
	for lang := range a.running {
		if !slices.Contains(a.languages, lang) {
			extra = append(extra, lang)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

func appendText(running, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return running
	}
	if running == "" {
		return text
	}
	return running + " " + text
}
