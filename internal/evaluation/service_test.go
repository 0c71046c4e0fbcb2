package evaluation

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/model"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	prompt    string
	images    []*imagesource.CapturedImage
	maxTokens int
}

// fakeCompleter answers from a callback and records every call
type fakeCompleter struct {
	mu      sync.Mutex
	calls   []call
	respond func(prompt string) (string, error)
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{prompt: prompt, images: images, maxTokens: maxTokens})
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func captured(t *testing.T, w, h int) *imagesource.CapturedImage {
	t.Helper()
	img, err := imagesource.Capture(imagesource.Decoded{Image: image.NewRGBA(image.Rect(0, 0, w, h))}, imagesource.OriginFileUpload)
	require.NoError(t, err)
	return img
}

func profile(t *testing.T, name string) persona.Profile {
	t.Helper()
	p, err := persona.DefaultCatalog().Lookup(name)
	require.NoError(t, err)
	return p
}

func TestEvaluateSingle(t *testing.T) {
	fake := &fakeCompleter{respond: func(string) (string, error) {
		return "1. Overall impression: 8/10\n<b>Clean</b> layout & it's fast", nil
	}}
	svc := NewService(fake, Options{})
	img := captured(t, 10, 10)

	before := time.Now()
	res := svc.EvaluateSingle(context.Background(), img, profile(t, persona.Developer))

	assert.Equal(t, persona.Developer, res.PersonaName)
	assert.Equal(t, ModeSingle, res.Mode)
	assert.False(t, res.Failed)
	assert.Equal(t, "1. Overall impression: 8/10\nClean layout & it's fast", res.Text)
	assert.False(t, res.ProducedAt.Before(before))

	require.Equal(t, 1, fake.callCount())
	c := fake.calls[0]
	assert.Equal(t, DefaultSingleMaxTokens, c.maxTokens)
	require.Len(t, c.images, 1)
	assert.Same(t, img, c.images[0])
	assert.Contains(t, c.prompt, "'Developer' persona")
	assert.Contains(t, c.prompt, "Overall impression (score from 1 to 10)")
	assert.Contains(t, c.prompt, "5. The element this persona would care about most")
}

func TestEvaluateComparison(t *testing.T) {
	fake := &fakeCompleter{respond: func(string) (string, error) { return "Preferred variant: B", nil }}
	svc := NewService(fake, Options{ComparisonMaxTokens: 900})
	a, b := captured(t, 10, 10), captured(t, 20, 10)

	res := svc.EvaluateComparison(context.Background(), a, b, profile(t, persona.Marketer))

	assert.Equal(t, ModeComparison, res.Mode)
	assert.Equal(t, "Preferred variant: B", res.Text)
	require.Equal(t, 1, fake.callCount())
	c := fake.calls[0]
	assert.Equal(t, 900, c.maxTokens)
	require.Len(t, c.images, 2)
	assert.Same(t, a, c.images[0])
	assert.Same(t, b, c.images[1])
	assert.Contains(t, c.prompt, "6. Final recommendation")
}

func TestEvaluateNeverRaises(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		text     string
		contains string
	}{
		{
			name:     "auth",
			err:      &model.RemoteCallError{Provider: "fake", Kind: model.KindAuth, Status: 401, Err: errors.New("bad key")},
			contains: "API key was rejected",
		},
		{
			name:     "timeout",
			err:      &model.RemoteCallError{Provider: "fake", Kind: model.KindTimeout, Err: context.DeadlineExceeded},
			contains: "did not answer in time",
		},
		{
			name:     "plain error",
			err:      errors.New("socket closed"),
			contains: "Evaluation failed: socket closed",
		},
		{
			name:     "markup only",
			text:     "<div></div>",
			contains: "unusable response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{respond: func(string) (string, error) { return tt.text, tt.err }}
			svc := NewService(fake, Options{})

			res := svc.EvaluateSingle(context.Background(), captured(t, 2, 2), profile(t, persona.Planner))
			assert.True(t, res.Failed)
			assert.NotEmpty(t, res.Text)
			assert.Contains(t, res.Text, tt.contains)
			assert.False(t, res.ProducedAt.IsZero())
			assert.Equal(t, 1, fake.callCount())
		})
	}
}

func TestEvaluateKeepsElementNames(t *testing.T) {
	answer := "  The <button> label is vague.\nThe <input type=\"email\"> field lacks a hint & an example.\n"
	fake := &fakeCompleter{respond: func(string) (string, error) { return answer, nil }}
	svc := NewService(fake, Options{})

	res := svc.EvaluateSingle(context.Background(), captured(t, 2, 2), profile(t, persona.Designer))
	require.False(t, res.Failed)
	assert.Equal(t, strings.TrimSpace(answer), res.Text)
	assert.Contains(t, res.Text, "<button>")
	assert.Contains(t, res.Text, `<input type="email">`)
	assert.Contains(t, res.Text, "hint & an example")
}

func TestEvaluateWrongImageCount(t *testing.T) {
	fake := &fakeCompleter{respond: func(string) (string, error) { return "ok", nil }}
	svc := NewService(fake, Options{})

	res := svc.Evaluate(context.Background(), ModeComparison, []*imagesource.CapturedImage{captured(t, 2, 2)}, profile(t, persona.Designer))
	assert.True(t, res.Failed)
	assert.Contains(t, res.Text, "Comparison failed")
	assert.Equal(t, 0, fake.callCount())

	res = NewService(nil, Options{}).EvaluateSingle(context.Background(), captured(t, 2, 2), profile(t, persona.Designer))
	assert.True(t, res.Failed)
	assert.Contains(t, res.Text, "no model provider configured")
}

func TestRunBatch(t *testing.T) {
	catalog := persona.DefaultCatalog()
	personas, err := catalog.Resolve([]string{persona.Marketer, persona.Developer, persona.NoviceUser, persona.Planner})
	require.NoError(t, err)

	respond := func(prompt string) (string, error) {
		if strings.Contains(prompt, "'Developer' persona") {
			return "", &model.RemoteCallError{Provider: "fake", Kind: model.KindAuth, Status: 401, Err: errors.New("invalid api key")}
		}
		return "fine", nil
	}

	for _, concurrency := range []int{0, 3} {
		fake := &fakeCompleter{respond: respond}
		svc := NewService(fake, Options{Concurrency: concurrency})

		results := svc.RunBatch(context.Background(), ModeSingle, []*imagesource.CapturedImage{captured(t, 4, 4)}, personas)

		require.Len(t, results, 4)
		assert.Equal(t, 4, fake.callCount())
		for i, p := range personas {
			assert.Equal(t, p.Name, results[i].PersonaName)
		}
		assert.True(t, results[1].Failed)
		assert.Contains(t, results[1].Text, "API key was rejected")
		assert.False(t, results[0].Failed)
		assert.False(t, results[2].Failed)
		assert.False(t, results[3].Failed)
	}
}

func TestRunBatchSequentialOrder(t *testing.T) {
	var order []string
	fake := &fakeCompleter{}
	fake.respond = func(prompt string) (string, error) {
		for _, name := range []string{persona.Designer, persona.NoviceUser} {
			if strings.Contains(prompt, "'"+name+"' persona") {
				order = append(order, name)
			}
		}
		return "ok", nil
	}
	svc := NewService(fake, Options{})

	personas := []persona.Profile{profile(t, persona.NoviceUser), profile(t, persona.Designer)}
	svc.RunBatch(context.Background(), ModeSingle, []*imagesource.CapturedImage{captured(t, 2, 2)}, personas)

	assert.Equal(t, []string{persona.NoviceUser, persona.Designer}, order)
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("comparison")
	assert.True(t, ok)
	assert.Equal(t, ModeComparison, m)
	assert.Equal(t, 2, m.ImageCount())

	m, ok = ParseMode("single")
	assert.True(t, ok)
	assert.Equal(t, 1, m.ImageCount())

	_, ok = ParseMode("triple")
	assert.False(t, ok)
}
