package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	EncodingWAV = "wav"
	HeaderSize  = 44
)

// Format describes interleaved little-endian PCM.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

func PCM16(sampleRate, channels int) Format {
	return Format{SampleRate: sampleRate, Channels: channels, BitsPerSample: 16}
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", f.Channels)
	}
	if f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("bits per sample must be a positive multiple of 8, got %d", f.BitsPerSample)
	}
	return nil
}

func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Duration reports how long n bytes of PCM play for.
func (f Format) Duration(n int) time.Duration {
	rate := f.ByteRate()
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// EncodeWAV wraps pcm in a canonical RIFF/WAVE container. A trailing
// partial sample frame is dropped.
func EncodeWAV(f Format, pcm []byte) []byte {
	if align := f.BlockAlign(); align > 0 {
		pcm = pcm[:len(pcm)-len(pcm)%align]
	}
	dataLen := uint32(len(pcm))

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36)+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.ByteRate()))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BlockAlign()))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}

// ParseWAVHeader reads the format and data length from a canonical 44 byte
// WAV header.
func ParseWAVHeader(h []byte) (Format, int, error) {
	if len(h) < HeaderSize || string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" {
		return Format{}, 0, fmt.Errorf("not a WAV blob")
	}
	if string(h[12:16]) != "fmt " || string(h[36:40]) != "data" {
		return Format{}, 0, fmt.Errorf("unsupported WAV layout")
	}
	f := Format{
		Channels:      int(binary.LittleEndian.Uint16(h[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(h[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(h[34:36])),
	}
	return f, int(binary.LittleEndian.Uint32(h[40:44])), nil
}

// DecodeWAV returns the format and PCM payload of a canonical WAV blob.
func DecodeWAV(b []byte) (Format, []byte, error) {
	f, n, err := ParseWAVHeader(b)
	if err != nil {
		return Format{}, nil, err
	}
	if n > len(b)-HeaderSize {
		return Format{}, nil, fmt.Errorf("WAV data chunk truncated: want %d bytes, have %d", n, len(b)-HeaderSize)
	}
	return f, b[HeaderSize : HeaderSize+n], nil
}
