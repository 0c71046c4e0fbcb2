package provider

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultPollyVoice = "Joanna"

// PollyClient interface defines the methods we need from the Polly client
type PollyClient interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyProvider implements the Provider interface for Amazon Polly
type PollyProvider struct {
	client       PollyClient
	languageCode string
}

// NewPollyProvider creates a new Amazon Polly TTS provider using the default AWS credential chain
func NewPollyProvider(ctx context.Context, region string) (*PollyProvider, error) {
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewPollyProviderWithClient(polly.NewFromConfig(cfg), "en-US"), nil
}

// NewPollyProviderWithClient creates a Polly provider with a custom client (for testing)
func NewPollyProviderWithClient(client PollyClient, languageCode string) *PollyProvider {
	return &PollyProvider{client: client, languageCode: languageCode}
}

// Name returns the provider name
func (p *PollyProvider) Name() string {
	return "polly"
}

// ListVoices returns Polly voices for the configured language, or all voices if none is set
func (p *PollyProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	input := &polly.DescribeVoicesInput{}
	if p.languageCode != "" {
		input.LanguageCode = types.LanguageCode(p.languageCode)
	}

	result, err := p.client.DescribeVoices(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list Polly voices: %w", err)
	}

	voices := make([]Voice, 0, len(result.Voices))
	for _, v := range result.Voices {
		voice := Voice{
			ID:       string(v.Id),
			Name:     aws.ToString(v.Name),
			Language: string(v.LanguageCode),
			Description: fmt.Sprintf("%s voice, %s engine supported",
				cases.Title(language.English).String(string(v.Gender)),
				formatSupportedEngines(v.SupportedEngines)),
		}
		switch v.Gender {
		case types.GenderFemale:
			voice.Gender = "female"
		case types.GenderMale:
			voice.Gender = "male"
		}
		voices = append(voices, voice)
	}

	return voices, nil
}

// Synthesize generates audio from text using Amazon Polly
func (p *PollyProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := options.Voice
	if voiceID == "" {
		voiceID = DefaultPollyVoice
	}

	var outputFormat types.OutputFormat
	switch strings.ToLower(options.Format) {
	case "", FormatMP3:
		outputFormat = types.OutputFormatMp3
	case FormatOgg:
		outputFormat = types.OutputFormatOggVorbis
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", options.Format)
	}

	engine := types.EngineNeural
	switch strings.ToLower(options.Engine) {
	case "", "neural":
	case "standard":
		engine = types.EngineStandard
	case "long-form":
		engine = types.EngineLongForm
	case "generative":
		engine = types.EngineGenerative
	default:
		log.Warn().Str("engine", options.Engine).Msg("Unknown engine, using neural")
	}

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(voiceID),
		OutputFormat: outputFormat,
		Engine:       engine,
		TextType:     types.TextTypeText,
	}

	log.Debug().
		Str("voice_id", voiceID).
		Str("output_format", string(outputFormat)).
		Str("engine", string(engine)).
		Msg("Making Polly synthesis request")

	result, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	return result.AudioStream, nil
}

// formatSupportedEngines formats the list of supported engines for display
func formatSupportedEngines(engines []types.Engine) string {
	if len(engines) == 0 {
		return "unknown"
	}
	names := make([]string, len(engines))
	for i, engine := range engines {
		names[i] = string(engine)
	}
	return strings.Join(names, ", ")
}
