package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestEncodeWAV_Header(t *testing.T) {
	f := PCM16(16000, 1)
	pcm := make([]byte, 3200)

	wav := EncodeWAV(f, pcm)

	if len(wav) != HeaderSize+len(pcm) {
		t.Fatalf("unexpected length: %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("unexpected header markers: %q", wav[:44])
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Fatalf("unexpected RIFF size: %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 32000 {
		t.Fatalf("unexpected byte rate: %d", got)
	}
}

func TestEncodeWAV_DropsPartialFrame(t *testing.T) {
	wav := EncodeWAV(PCM16(8000, 2), make([]byte, 10))
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != 8 {
		t.Fatalf("unexpected data length: %d", got)
	}
}

func TestDecodeWAV(t *testing.T) {
	f := PCM16(48000, 2)
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	gotFormat, gotPCM, err := DecodeWAV(EncodeWAV(f, pcm))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFormat != f {
		t.Fatalf("unexpected format: %+v", gotFormat)
	}
	if string(gotPCM) != string(pcm) {
		t.Fatalf("unexpected pcm: %v", gotPCM)
	}

	if _, _, err := DecodeWAV([]byte("hello")); err == nil {
		t.Fatalf("expected error for non-WAV input")
	}
}

func TestFormat(t *testing.T) {
	f := PCM16(16000, 1)
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.Duration(32000); got != time.Second {
		t.Fatalf("unexpected duration: %s", got)
	}
	if err := (Format{SampleRate: 16000, Channels: 1, BitsPerSample: 12}).Validate(); err == nil {
		t.Fatalf("expected error for odd bit depth")
	}
}
