package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Translator translates text into one target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Set maps a language code to translated text. A Set produced by FanOut
// always holds every configured language.
type Set map[string]string

// Outcome is the tagged per-language result behind a Set.
type Outcome struct {
	Language string
	Text     string
	Err      error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// FallbackText is substituted when a language fails.
func FallbackText(language, text string) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(language), text)
}

type FanOut struct {
	translator Translator
	languages  []string
	timeout    time.Duration
}

func NewFanOut(t Translator, languages []string, timeout time.Duration) *FanOut {
	seen := make(map[string]struct{}, len(languages))
	langs := make([]string, 0, len(languages))
	for _, lang := range languages {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		langs = append(langs, lang)
	}
	return &FanOut{translator: t, languages: langs, timeout: timeout}
}

func (f *FanOut) Languages() []string {
	out := make([]string, len(f.languages))
	copy(out, f.languages)
	return out
}

// TranslateOutcomes requests every language concurrently and waits for all
// of them to settle. Failed outcomes already carry the fallback text.
func (f *FanOut) TranslateOutcomes(ctx context.Context, text string) []Outcome {
	outcomes := make([]Outcome, len(f.languages))
	var g errgroup.Group
	for i, lang := range f.languages {
		g.Go(func() error {
			outcomes[i] = f.translateOne(ctx, text, lang)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (f *FanOut) Translate(ctx context.Context, text string) Set {
	outcomes := f.TranslateOutcomes(ctx, text)
	set := make(Set, len(outcomes))
	for _, o := range outcomes {
		set[o.Language] = o.Text
	}
	return set
}

func (f *FanOut) translateOne(ctx context.Context, text, lang string) (out Outcome) {
	out.Language = lang
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("translator panicked: %v", r)
		}
		if out.Err != nil {
			slog.Warn("translation failed; using fallback", "language", lang, "error", out.Err)
			out.Text = FallbackText(lang, text)
		}
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	translated, err := f.translator.Translate(ctx, text, lang)
	if err != nil {
		out.Err = err
		return out
	}
	out.Text = translated
	return out
}
