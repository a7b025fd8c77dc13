package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/ankitluthra/GyanEcho/internal/protocol"
)

func TestRender(t *testing.T) {
	a := NewAssembler([]string{"en", "fr"})
	a.Apply(protocol.ResultMessage("bonjour", map[string]string{"en": "hello", "fr": "bonjour"}))

	body := Render(a.Snapshot(), []string{"en", "fr"})

	want := strings.Join([]string{
		"original : bonjour",
		"en       : hello",
		"fr       : bonjour",
	}, "\n")
	if body != want {
		t.Fatalf("unexpected render:\n%s", body)
	}
}

func TestFormatHistory(t *testing.T) {
	startedAt := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Message: protocol.ResultMessage("hello", map[string]string{}), ReceivedAt: startedAt.Add(15 * time.Second)},
		{Message: protocol.ErrorMessage("ECONNREFUSED"), ReceivedAt: startedAt.Add(75 * time.Second)},
		{Message: protocol.ResultMessage("early", map[string]string{}), ReceivedAt: startedAt.Add(-time.Second)},
	}

	body := FormatHistory(entries, startedAt)

	if !strings.Contains(body, "00:00:15 hello") {
		t.Fatalf("first entry not found in body: %s", body)
	}
	if !strings.Contains(body, "00:01:15 error: ECONNREFUSED") {
		t.Fatalf("error entry not found in body: %s", body)
	}
	if !strings.Contains(body, "00:00:00 early") {
		t.Fatalf("negative offsets should clamp to zero: %s", body)
	}
}

func TestFormatElapsedHMS(t *testing.T) {
	if got := formatElapsedHMS(3*time.Hour + 4*time.Minute + 5*time.Second); got != "03:04:05" {
		t.Fatalf("unexpected format: %s", got)
	}
}
