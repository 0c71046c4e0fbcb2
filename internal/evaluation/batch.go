package evaluation

import (
	"context"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RunBatch evaluates every persona against the same images and returns one
// Result per persona in the order given. Individual failures never stop the batch.
func (s *Service) RunBatch(ctx context.Context, mode Mode, images []*imagesource.CapturedImage, personas []persona.Profile) []Result {
	results := make([]Result, len(personas))

	log.Debug().
		Str("mode", string(mode)).
		Int("personas", len(personas)).
		Int("concurrency", s.opts.Concurrency).
		Msg("Running evaluation batch")

	if s.opts.Concurrency < 2 {
		for i, p := range personas {
			results[i] = s.Evaluate(ctx, mode, images, p)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, p := range personas {
		g.Go(func() error {
			results[i] = s.Evaluate(ctx, mode, images, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
