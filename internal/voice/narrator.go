package voice

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/daikw/protoeval/internal/voice/provider"
	"github.com/rs/zerolog/log"
)

// ReadingMode limits how much of a result is read aloud
type ReadingMode string

const (
	ReadFull      ReadingMode = "full_text"
	ReadFirstLine ReadingMode = "first_line"
	ReadCharLimit ReadingMode = "char_limit"
)

// DefaultMaxChars bounds char_limit narration
const DefaultMaxChars = 1500

// Settings configures a Narrator
type Settings struct {
	Mode     ReadingMode
	MaxChars int
	Options  provider.SynthesizeOptions
}

// Narrator reads evaluation results aloud in the persona's voice
type Narrator struct {
	provider provider.Provider
	settings Settings
}

// NewNarrator creates a narrator over a TTS provider
func NewNarrator(p provider.Provider, settings Settings) *Narrator {
	if settings.Mode == "" {
		settings.Mode = ReadCharLimit
	}
	if settings.MaxChars <= 0 {
		settings.MaxChars = DefaultMaxChars
	}
	if settings.Options.Format == "" {
		settings.Options.Format = provider.FormatMP3
	}
	return &Narrator{provider: p, settings: settings}
}

// Provider returns the underlying TTS provider name
func (n *Narrator) Provider() string {
	return n.provider.Name()
}

// ContentType returns the MIME type of produced audio
func (n *Narrator) ContentType() string {
	return provider.ContentType(n.settings.Options.Format)
}

var markdownNoise = regexp.MustCompile("[*_#`>]+")

// Script turns result text into what is actually spoken
func (n *Narrator) Script(text string) string {
	text = markdownNoise.ReplaceAllString(text, "")

	switch n.settings.Mode {
	case ReadFirstLine:
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[:idx]
		}
	case ReadCharLimit:
		text = strings.ReplaceAll(text, "\n", " ")
		runes := []rune(text)
		if len(runes) > n.settings.MaxChars {
			text = string(runes[:n.settings.MaxChars])
		}
	case ReadFull:
		text = strings.ReplaceAll(text, "\n", " ")
	}

	text = strings.Join(strings.Fields(text), " ")

	log.Debug().
		Str("mode", string(n.settings.Mode)).
		Int("length", len(text)).
		Msg("Processed narration text")
	return text
}

// Narrate synthesizes a result. A persona voice overrides the configured default.
func (n *Narrator) Narrate(ctx context.Context, result evaluation.Result, p persona.Profile) (io.ReadCloser, error) {
	script := n.Script(result.Text)
	if script == "" {
		return nil, fmt.Errorf("nothing to narrate for %s", result.PersonaName)
	}

	opts := n.settings.Options
	if p.Voice != "" {
		opts.Voice = p.Voice
	}

	log.Info().
		Str("provider", n.provider.Name()).
		Str("persona", result.PersonaName).
		Str("voice", opts.Voice).
		Msg("Narrating evaluation")

	stream, err := n.provider.Synthesize(ctx, script, opts)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	return stream, nil
}

// WriteFile narrates a result into dir and returns the written path
func (n *Narrator) WriteFile(ctx context.Context, dir string, index int, result evaluation.Result, p persona.Profile) (string, error) {
	stream, err := n.Narrate(ctx, result, p)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("%02d-%s%s", index+1, fileSlug(result.PersonaName), provider.Extension(n.settings.Options.Format))
	path := filepath.Join(dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, stream); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}
	return path, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

func fileSlug(name string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "persona"
	}
	return s
}
