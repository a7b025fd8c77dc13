package translator

import "context"

// EchoTranslator returns the source text unchanged. It lets the relay run
// without translation credentials.
type EchoTranslator struct{}

func (EchoTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
