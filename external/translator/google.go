package translator

import (
	"context"
	"errors"
	"fmt"
	"html"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

type textTranslator interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// GoogleTranslator uses the Cloud Translation basic (v2) API.
type GoogleTranslator struct {
	client textTranslator
}

func NewGoogleTranslator(ctx context.Context, credentialsJSON string) (*GoogleTranslator, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-translation"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	client, err := translate.NewClient(ctx, option.WithAuthCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create translate client: %w", err)
	}
	return &GoogleTranslator{client: client}, nil
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	tag, err := language.Parse(targetLanguage)
	if err != nil {
		return "", fmt.Errorf("invalid target language %q: %w", targetLanguage, err)
	}
	out, err := g.client.Translate(ctx, []string{text}, tag, &translate.Options{Format: translate.Text})
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("translate returned no translations")
	}
	return html.UnescapeString(out[0].Text), nil
}

func (g *GoogleTranslator) Shutdown() error {
	return g.client.Close()
}
