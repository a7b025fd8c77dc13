package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/ankitluthra/GyanEcho/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	autoDetectLanguage    = "auto"
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
	Timeout         time.Duration
}

// recognizer is the subset of the speech client used for one-shot requests.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	Close() error
}

type speechClientAdapter struct {
	client *speech.Client
}

func (a *speechClientAdapter) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return a.client.Recognize(ctx, req)
}

func (a *speechClientAdapter) Close() error {
	return a.client.Close()
}

// CloudSpeechTranscriber sends each chunk as a batch Recognize call and lets
// the service detect the container format.
type CloudSpeechTranscriber struct {
	client     recognizer
	recognizer string
	model      string
	timeout    time.Duration
}

func NewCloudSpeechTranscriber(ctx context.Context, cfg CloudSpeechConfig) (*CloudSpeechTranscriber, error) {
	location := strings.TrimSpace(cfg.Location)
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("cloud speech client initialized", "location", location, "model", cfg.Model)
	t := newCloudSpeechTranscriber(&speechClientAdapter{client: client}, cfg.ProjectID, location, cfg.Model)
	t.timeout = cfg.Timeout
	return t, nil
}

func newCloudSpeechTranscriber(client recognizer, projectID, location, model string) *CloudSpeechTranscriber {
	return &CloudSpeechTranscriber{
		client:     client,
		recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", projectID, location),
		model:      strings.TrimSpace(model),
	}
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, chunk transcriber.Chunk) (transcriber.Result, error) {
	language := strings.TrimSpace(chunk.LanguageHint)
	if language == "" {
		language = autoDetectLanguage
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: t.recognizer,
		Config: &speechpb.RecognitionConfig{
			Model:         t.model,
			LanguageCodes: []string{language},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: chunk.Audio},
	})
	if err != nil {
		if st, ok := status.FromError(err); ok {
			slog.Warn("cloud speech recognize failed", "code", st.Code().String(), "error", st.Message())
			if isMalformedCode(st.Code()) {
				return transcriber.Result{}, transcriber.Malformed(errors.New(st.Message()))
			}
			return transcriber.Result{}, transcriber.Unavailable(errors.New(st.Message()))
		}
		return transcriber.Result{}, transcriber.Unavailable(err)
	}
	if resp == nil {
		return transcriber.Result{}, transcriber.Malformed(errors.New("cloud speech returned an empty response"))
	}
	return collectRecognizeResults(resp), nil
}

// isMalformedCode reports statuses caused by the payload rather than the
// service being reachable.
func isMalformedCode(code codes.Code) bool {
	switch code {
	case codes.InvalidArgument, codes.DataLoss, codes.OutOfRange:
		return true
	default:
		return false
	}
}

func collectRecognizeResults(resp *speechpb.RecognizeResponse) transcriber.Result {
	res := transcriber.Result{Language: transcriber.UnknownLanguage}
	parts := make([]string, 0, len(resp.GetResults()))
	confidenceSet := false
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]
		if text := strings.TrimSpace(alt.GetTranscript()); text != "" {
			parts = append(parts, text)
		}
		if !confidenceSet {
			res.Confidence = transcriber.ClampConfidence(float64(alt.GetConfidence()))
			confidenceSet = true
		}
		if res.Language == transcriber.UnknownLanguage && r.GetLanguageCode() != "" {
			res.Language = baseLanguage(r.GetLanguageCode())
		}
	}
	res.Text = strings.Join(parts, " ")
	return res
}

// baseLanguage turns "fr-FR" into "fr".
func baseLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexByte(code, '-'); i > 0 {
		return code[:i]
	}
	return code
}

func (t *CloudSpeechTranscriber) Shutdown() error {
	return t.client.Close()
}
