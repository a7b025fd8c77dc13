package protocol

import (
	"encoding/json"
	"errors"
)

// InboundMessage is sent by the capture client for every recorded chunk.
// AudioBase64 and ExpectedLanguage are the legacy field names and are only
// consulted when the current ones are empty.
type InboundMessage struct {
	AudioChunk       string `json:"audioChunk,omitempty"`
	Encoding         string `json:"encoding,omitempty"`
	LanguageHint     string `json:"languageHint,omitempty"`
	AudioBase64      string `json:"audioBase64,omitempty"`
	ExpectedLanguage string `json:"expectedLanguage,omitempty"`
}

func (m InboundMessage) Audio() string {
	if m.AudioChunk != "" {
		return m.AudioChunk
	}
	return m.AudioBase64
}

func (m InboundMessage) Hint() string {
	if m.LanguageHint != "" {
		return m.LanguageHint
	}
	return m.ExpectedLanguage
}

func (m InboundMessage) HasAudio() bool {
	return m.Audio() != ""
}

// OutboundMessage is either a result or an error, never both.
type OutboundMessage struct {
	Original     string
	Translations map[string]string
	Error        string
}

func ResultMessage(original string, translations map[string]string) OutboundMessage {
	if translations == nil {
		translations = map[string]string{}
	}
	return OutboundMessage{Original: original, Translations: translations}
}

func ErrorMessage(msg string) OutboundMessage {
	return OutboundMessage{Error: msg}
}

func (m OutboundMessage) IsError() bool {
	return m.Translations == nil
}

type resultShape struct {
	Original     string            `json:"original"`
	Translations map[string]string `json:"translations"`
}

type errorShape struct {
	Error string `json:"error"`
}

var ErrAmbiguousMessage = errors.New("outbound message carries both a result and an error")

func (m OutboundMessage) MarshalJSON() ([]byte, error) {
	if m.Translations != nil && m.Error != "" {
		return nil, ErrAmbiguousMessage
	}
	if m.Translations == nil {
		return json.Marshal(errorShape{Error: m.Error})
	}
	return json.Marshal(resultShape{Original: m.Original, Translations: m.Translations})
}

func (m *OutboundMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Original     *string           `json:"original"`
		Translations map[string]string `json:"translations"`
		Error        *string           `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = OutboundMessage{}
	if raw.Error != nil {
		if raw.Original != nil || raw.Translations != nil {
			return ErrAmbiguousMessage
		}
		m.Error = *raw.Error
		return nil
	}
	if raw.Original != nil {
		m.Original = *raw.Original
	}
	m.Translations = raw.Translations
	if m.Translations == nil {
		m.Translations = map[string]string{}
	}
	return nil
}

func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, err
	}
	return msg, nil
}

func EncodeInbound(msg InboundMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func DecodeOutbound(data []byte) (OutboundMessage, error) {
	var msg OutboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return OutboundMessage{}, err
	}
	return msg, nil
}

func EncodeOutbound(msg OutboundMessage) ([]byte, error) {
	return json.Marshal(msg)
}
