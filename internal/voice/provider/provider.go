package provider

import (
	"context"
	"io"
)

// Provider defines the interface for TTS providers used to narrate evaluations
type Provider interface {
	// Name returns the provider name
	Name() string

	// ListVoices returns available voices for this provider
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize generates audio from text and returns an audio stream
	Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error)
}

// Voice represents a voice option
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// SynthesizeOptions contains options for text synthesis
type SynthesizeOptions struct {
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed,omitempty"`  // 0.25-4.0
	Format   string  `json:"format,omitempty"` // mp3, ogg, wav
	Language string  `json:"language,omitempty"`
	Model    string  `json:"model,omitempty"`
	Engine   string  `json:"engine,omitempty"` // polly only
}

// Supported audio formats
const (
	FormatMP3 = "mp3"
	FormatOgg = "ogg"
	FormatWAV = "wav"
)

// ContentType returns the MIME type of an audio format
func ContentType(format string) string {
	switch format {
	case FormatOgg:
		return "audio/ogg"
	case FormatWAV:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

// Extension returns the file extension of an audio format
func Extension(format string) string {
	switch format {
	case FormatOgg:
		return ".ogg"
	case FormatWAV:
		return ".wav"
	default:
		return ".mp3"
	}
}
