package transcript

import (
	"testing"

	"github.com/ankitluthra/GyanEcho/internal/protocol"
)

var languages = []string{"en", "fr", "pa", "hi"}

func result(original string, translations map[string]string) protocol.OutboundMessage {
	return protocol.ResultMessage(original, translations)
}

func TestAssembler_AppendsInOrder(t *testing.T) {
	a := NewAssembler(languages)
	a.Apply(result("bonjour", map[string]string{"en": "hello", "fr": "bonjour"}))
	a.Apply(result("merci", map[string]string{"en": "thanks", "fr": "merci"}))

	s := a.Snapshot()
	if s.Original != "bonjour merci" {
		t.Fatalf("unexpected original: %q", s.Original)
	}
	if s.Text("en") != "hello thanks" || s.Text("fr") != "bonjour merci" {
		t.Fatalf("unexpected translations: %v", s.Translations)
	}
	if s.Text("pa") != "" || s.Text("hi") != "" {
		t.Fatalf("missing languages should stay empty: %v", s.Translations)
	}
	if s.Text("") != s.Original {
		t.Fatalf("empty language should return the original")
	}
}

func TestAssembler_ErrorsOnlyReachHistory(t *testing.T) {
	a := NewAssembler(languages)
	a.Apply(result("one", map[string]string{"en": "one"}))
	a.Apply(protocol.ErrorMessage("ECONNREFUSED"))
	a.Apply(result("two", map[string]string{"en": "two"}))

	if got := a.Snapshot().Original; got != "one two" {
		t.Fatalf("unexpected original: %q", got)
	}
	h := a.History()
	if len(h) != 3 || !h[1].Message.IsError() || h[1].Message.Error != "ECONNREFUSED" {
		t.Fatalf("unexpected history: %+v", h)
	}
}

func TestAssembler_ClearIsIdempotent(t *testing.T) {
	a := NewAssembler(languages)
	a.Apply(result("bonjour", map[string]string{"en": "hello"}))

	a.Clear()
	first := a.Snapshot()
	a.Clear()
	second := a.Snapshot()

	for _, s := range []Snapshot{first, second} {
		if s.Original != "" || len(s.Translations) != len(languages) {
			t.Fatalf("unexpected snapshot after clear: %+v", s)
		}
		for lang, text := range s.Translations {
			if text != "" {
				t.Fatalf("unexpected %s text after clear: %q", lang, text)
			}
		}
	}
	if len(a.History()) != 0 {
		t.Fatalf("history should be empty after clear")
	}
}

func TestAssembler_SnapshotIsACopy(t *testing.T) {
	a := NewAssembler(languages)
	a.Apply(result("a", map[string]string{"en": "a"}))
	s := a.Snapshot()
	s.Translations["en"] = "mutated"

	if got := a.Snapshot().Text("en"); got != "a" {
		t.Fatalf("snapshot mutation leaked: %q", got)
	}
}

func TestAssembler_ApplyRaw(t *testing.T) {
	a := NewAssembler(languages)
	msg, err := a.ApplyRaw([]byte(`{"original":"hola","translations":{"en":"hello","es":"hola"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Original != "hola" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if got := a.Languages(); len(got) != 5 || got[4] != "es" {
		t.Fatalf("unexpected languages: %v", got)
	}
	if _, err := a.ApplyRaw([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if len(a.History()) != 1 {
		t.Fatalf("undecodable messages should not reach history")
	}
}
