package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultGCPVoice    = "en-US-Neural2-C"
	DefaultGCPLanguage = "en-US"
)

// GCPClient is the subset of the Cloud Text-to-Speech client used here
type GCPClient interface {
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error)
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GCPProvider implements the Provider interface for Google Cloud Text-to-Speech
type GCPProvider struct {
	client   GCPClient
	voice    string
	language string
}

// GCPProviderOption is a functional option for configuring GCPProvider
type GCPProviderOption func(*GCPProvider)

// WithGCPVoice sets the default voice
func WithGCPVoice(voice string) GCPProviderOption {
	return func(p *GCPProvider) {
		if voice != "" {
			p.voice = voice
		}
	}
}

// WithGCPLanguage sets the default language code
func WithGCPLanguage(language string) GCPProviderOption {
	return func(p *GCPProvider) {
		if language != "" {
			p.language = language
		}
	}
}

// NewGCPProvider creates a new Google Cloud TTS provider.
// Authentication uses Application Default Credentials.
func NewGCPProvider(ctx context.Context, opts ...GCPProviderOption) (*GCPProvider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP TTS client: %w", err)
	}
	return NewGCPProviderWithClient(client, opts...), nil
}

// NewGCPProviderWithClient creates a GCP provider with a custom client (for testing)
func NewGCPProviderWithClient(client GCPClient, opts ...GCPProviderOption) *GCPProvider {
	p := &GCPProvider{
		client:   client,
		voice:    DefaultGCPVoice,
		language: DefaultGCPLanguage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *GCPProvider) Name() string {
	return "gcp"
}

// ListVoices returns voices for the configured language
func (p *GCPProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: p.language})
	if err != nil {
		return nil, fmt.Errorf("failed to list GCP voices: %w", err)
	}

	var voices []Voice
	for _, v := range resp.Voices {
		gender := "unknown"
		switch v.SsmlGender {
		case texttospeechpb.SsmlVoiceGender_MALE:
			gender = "male"
		case texttospeechpb.SsmlVoiceGender_FEMALE:
			gender = "female"
		case texttospeechpb.SsmlVoiceGender_NEUTRAL:
			gender = "neutral"
		}
		voices = append(voices, Voice{
			ID:          v.Name,
			Name:        v.Name,
			Language:    strings.Join(v.LanguageCodes, ", "),
			Gender:      gender,
			Description: fmt.Sprintf("%s voice", detectEngineType(v.Name)),
		})
	}

	log.Debug().Int("count", len(voices)).Msg("Listed GCP TTS voices")
	return voices, nil
}

// detectEngineType determines the engine type from voice name
func detectEngineType(voiceName string) string {
	name := strings.ToLower(voiceName)
	switch {
	case strings.Contains(name, "wavenet"):
		return "WaveNet"
	case strings.Contains(name, "neural2"):
		return "Neural2"
	case strings.Contains(name, "studio"):
		return "Studio"
	case strings.Contains(name, "news"):
		return "News"
	default:
		return "Standard"
	}
}

// languageFromVoice extracts the language code from a voice name (en-US-Neural2-C -> en-US)
func languageFromVoice(voice string) string {
	parts := strings.Split(voice, "-")
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return ""
}

// Synthesize generates audio from text using Google Cloud TTS
func (p *GCPProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := p.voice
	if options.Voice != "" {
		voice = options.Voice
	}
	lang := options.Language
	if lang == "" {
		lang = languageFromVoice(voice)
	}
	if lang == "" {
		lang = p.language
	}

	encoding := texttospeechpb.AudioEncoding_MP3
	switch strings.ToLower(options.Format) {
	case FormatOgg:
		encoding = texttospeechpb.AudioEncoding_OGG_OPUS
	case FormatWAV:
		encoding = texttospeechpb.AudioEncoding_LINEAR16
	}

	log.Debug().
		Str("voice", voice).
		Str("language", lang).
		Str("encoding", encoding.String()).
		Msg("Making GCP TTS synthesis request")

	resp, err := p.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: encoding,
			SpeakingRate:  clampSpeed(options.Speed),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	log.Debug().Int("audio_bytes", len(resp.AudioContent)).Msg("GCP TTS synthesis successful")
	return io.NopCloser(bytes.NewReader(resp.AudioContent)), nil
}

// Close closes the GCP client
func (p *GCPProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
