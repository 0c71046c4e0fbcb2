package evaluation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/model"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

// Default completion limits
const (
	DefaultSingleMaxTokens     = 1000
	DefaultComparisonMaxTokens = 1200
)

// Options tunes a Service
type Options struct {
	SingleMaxTokens     int
	ComparisonMaxTokens int
	// Concurrency bounds parallel persona calls in RunBatch. Values below 2
	// run the batch sequentially.
	Concurrency int
}

// Service turns one persona plus one or two images into a Result.
// It holds no per-call state and may be shared.
type Service struct {
	completer model.Completer
	opts      Options
	policy    *bluemonday.Policy
	now       func() time.Time
}

// NewService creates a new evaluation service
func NewService(completer model.Completer, opts Options) *Service {
	if opts.SingleMaxTokens <= 0 {
		opts.SingleMaxTokens = DefaultSingleMaxTokens
	}
	if opts.ComparisonMaxTokens <= 0 {
		opts.ComparisonMaxTokens = DefaultComparisonMaxTokens
	}
	return &Service{
		completer: completer,
		opts:      opts,
		policy:    bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// EvaluateSingle critiques one screen. Remote failures are returned as a
// Result carrying the error message.
func (s *Service) EvaluateSingle(ctx context.Context, img *imagesource.CapturedImage, p persona.Profile) Result {
	return s.run(ctx, ModeSingle, p, SinglePrompt(p), []*imagesource.CapturedImage{img}, s.opts.SingleMaxTokens)
}

// EvaluateComparison compares variant A against variant B. Images are sent A then B.
func (s *Service) EvaluateComparison(ctx context.Context, a, b *imagesource.CapturedImage, p persona.Profile) Result {
	return s.run(ctx, ModeComparison, p, ComparisonPrompt(p), []*imagesource.CapturedImage{a, b}, s.opts.ComparisonMaxTokens)
}

// Evaluate dispatches on mode. images must hold mode.ImageCount() entries.
func (s *Service) Evaluate(ctx context.Context, mode Mode, images []*imagesource.CapturedImage, p persona.Profile) Result {
	switch mode {
	case ModeSingle:
		if len(images) != 1 {
			return s.failure(mode, p, fmt.Errorf("single mode needs 1 image, got %d", len(images)))
		}
		return s.EvaluateSingle(ctx, images[0], p)
	case ModeComparison:
		if len(images) != 2 {
			return s.failure(mode, p, fmt.Errorf("comparison mode needs 2 images, got %d", len(images)))
		}
		return s.EvaluateComparison(ctx, images[0], images[1], p)
	default:
		return s.failure(mode, p, fmt.Errorf("unknown mode %q", mode))
	}
}

func (s *Service) run(ctx context.Context, mode Mode, p persona.Profile, prompt string, images []*imagesource.CapturedImage, maxTokens int) Result {
	if s.completer == nil {
		return s.failure(mode, p, errors.New("no model provider configured"))
	}

	started := s.now()
	text, err := s.completer.Complete(ctx, prompt, images, maxTokens)
	if err != nil {
		log.Debug().Err(err).Str("persona", p.Name).Str("mode", string(mode)).Msg("Evaluation failed")
		return s.failure(mode, p, err)
	}

	text = strings.TrimSpace(text)
	if !s.readable(text) {
		return s.failure(mode, p, &model.RemoteCallError{
			Provider: s.completer.Name(),
			Kind:     model.KindMalformed,
			Err:      errors.New("response contained no readable text"),
		})
	}

	log.Debug().
		Str("persona", p.Name).
		Str("mode", string(mode)).
		Dur("elapsed", s.now().Sub(started)).
		Msg("Evaluation completed")

	return Result{
		PersonaName: p.Name,
		Text:        text,
		ProducedAt:  s.now(),
		Mode:        mode,
	}
}

// readable reports whether model output has any text outside of markup.
// The output itself is stored verbatim; critiques routinely name elements
// such as <button> and renderers escape it on display.
func (s *Service) readable(text string) bool {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text))) != ""
}

func (s *Service) failure(mode Mode, p persona.Profile, err error) Result {
	return Result{
		PersonaName: p.Name,
		Text:        FailureMessage(mode, err),
		ProducedAt:  s.now(),
		Mode:        mode,
		Failed:      true,
	}
}

// FailureMessage renders err as text a user can act on
func FailureMessage(mode Mode, err error) string {
	what := "Evaluation"
	if mode == ModeComparison {
		what = "Comparison"
	}

	var rce *model.RemoteCallError
	if errors.As(err, &rce) {
		switch rce.Kind {
		case model.KindAuth:
			return fmt.Sprintf("%s failed: the API key was rejected (%v)", what, err)
		case model.KindTimeout:
			return fmt.Sprintf("%s failed: the model did not answer in time (%v)", what, err)
		case model.KindMalformed:
			return fmt.Sprintf("%s failed: the model returned an unusable response (%v)", what, err)
		}
	}
	return fmt.Sprintf("%s failed: %v", what, err)
}
