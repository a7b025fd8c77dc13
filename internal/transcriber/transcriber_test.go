package transcriber

import (
	"errors"
	"testing"
)

func TestError_KeepsRootCauseMessage(t *testing.T) {
	cause := errors.New("ECONNREFUSED")
	err := Unavailable(cause)

	if err.Error() != "ECONNREFUSED" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatal("expected error to match ErrUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected error to match its cause")
	}
	if errors.Is(err, ErrMalformed) {
		t.Fatal("did not expect error to match ErrMalformed")
	}
}

func TestMalformed_WithoutCause(t *testing.T) {
	err := Malformed(nil)
	if err.Error() != ErrMalformed.Error() {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, ErrMalformed) {
		t.Fatal("expected error to match ErrMalformed")
	}
}

func TestClampConfidence(t *testing.T) {
	cases := map[float64]float64{-0.4: 0, 0.9: 0.9, 1.7: 1}
	for in, want := range cases {
		if got := ClampConfidence(in); got != want {
			t.Fatalf("ClampConfidence(%v) = %v, want %v", in, got, want)
		}
	}
}
