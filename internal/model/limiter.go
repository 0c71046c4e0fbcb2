package model

import (
	"context"

	"github.com/daikw/protoeval/internal/imagesource"
	"golang.org/x/time/rate"
)

// PacedCompleter waits on a shared limiter before each request
type PacedCompleter struct {
	next    Completer
	limiter *rate.Limiter
}

// Paced wraps c so that every Complete call waits for a limiter token
func Paced(c Completer, limiter *rate.Limiter) *PacedCompleter {
	return &PacedCompleter{next: c, limiter: limiter}
}

// Name returns the wrapped provider name
func (p *PacedCompleter) Name() string {
	return p.next.Name()
}

// Complete waits for a token and then delegates
func (p *PacedCompleter) Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", &RemoteCallError{Provider: p.Name(), Kind: KindTimeout, Err: err}
	}
	return p.next.Complete(ctx, prompt, images, maxTokens)
}
