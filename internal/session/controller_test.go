package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/daikw/protoeval/internal/capture"
	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/model"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	fail    string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.fail != "" && strings.Contains(prompt, "'"+f.fail+"' persona") {
		return "", &model.RemoteCallError{Provider: "fake", Kind: model.KindAuth, Status: 401, Err: errors.New("invalid api key")}
	}
	return "feedback", nil
}

func newTestController(t *testing.T, completer *fakeCompleter) (*Controller, *int) {
	t.Helper()
	built := 0
	factory := func(ctx context.Context, credential string) (Evaluator, error) {
		built++
		assert.Equal(t, "sk-test", credential)
		return evaluation.NewService(completer, evaluation.Options{}), nil
	}
	return NewController(persona.DefaultCatalog(), factory), &built
}

func TestNewControllerDefaults(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})

	assert.Equal(t, evaluation.ModeSingle, c.Mode())
	assert.Equal(t, MethodFile, c.Method())
	assert.Equal(t, []string{persona.Developer, persona.NoviceUser}, c.SelectedPersonas())
	assert.False(t, c.HasCredential())
	assert.False(t, c.SlotsReady())
	assert.False(t, c.CanEvaluate())
}

func TestSingleModeTwoPersonas(t *testing.T) {
	completer := &fakeCompleter{}
	c, built := newTestController(t, completer)
	c.SetCredential("sk-test")
	require.NoError(t, c.SelectPersonas([]string{persona.Designer, persona.Developer}))

	r, err := c.Upload(SlotSingle, pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.True(t, r.SlotReady)
	assert.True(t, r.SlotsReady)
	assert.True(t, r.CanEvaluate)
	assert.Equal(t, "delivered", r.Phase)

	results, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, persona.Designer, results[0].PersonaName)
	assert.Equal(t, persona.Developer, results[1].PersonaName)
	assert.Equal(t, 1, *built)
	assert.Len(t, completer.prompts, 2)
	assert.Equal(t, results, c.Results())
}

func TestComparisonWithEmptyB(t *testing.T) {
	c, built := newTestController(t, &fakeCompleter{})
	c.SetCredential("sk-test")
	c.SetMode(evaluation.ModeComparison)

	r, err := c.Upload(SlotA, pngBytes(t, 10, 10))
	require.NoError(t, err)
	assert.True(t, r.SlotReady)
	assert.False(t, r.SlotsReady)
	assert.False(t, r.CanEvaluate)

	// the single slot does not count in comparison mode
	_, err = c.Upload(SlotSingle, pngBytes(t, 10, 10))
	require.NoError(t, err)
	assert.False(t, c.CanEvaluate())

	_, err = c.Evaluate(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 0, *built)
	assert.Empty(t, c.Results())

	r, err = c.Upload(SlotB, pngBytes(t, 10, 10))
	require.NoError(t, err)
	assert.True(t, r.CanEvaluate)

	results, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, evaluation.ModeComparison, results[0].Mode)
}

func TestAuthErrorDoesNotStopBatch(t *testing.T) {
	completer := &fakeCompleter{fail: persona.Developer}
	c, _ := newTestController(t, completer)
	c.SetCredential("sk-test")
	require.NoError(t, c.SelectPersonas([]string{persona.Developer, persona.Planner, persona.Marketer}))
	_, err := c.Upload(SlotSingle, pngBytes(t, 8, 8))
	require.NoError(t, err)

	results, err := c.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Failed)
	assert.Contains(t, results[0].Text, "API key was rejected")
	assert.False(t, results[0].ProducedAt.IsZero())
	assert.False(t, results[1].Failed)
	assert.False(t, results[2].Failed)
	assert.Len(t, completer.prompts, 3)
}

func TestCanEvaluateRequirements(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})
	_, err := c.Upload(SlotSingle, pngBytes(t, 8, 8))
	require.NoError(t, err)

	assert.True(t, c.SlotsReady())
	assert.False(t, c.CanEvaluate(), "credential missing")

	c.SetCredential("sk-test")
	assert.True(t, c.CanEvaluate())

	require.NoError(t, c.SelectPersonas(nil))
	assert.False(t, c.CanEvaluate(), "no personas selected")
	_, err = c.Evaluate(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCaptureStoresBeforeReadiness(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})
	c.SetCredential("sk-test")
	c.SetMethod(MethodPaste)

	data := base64.StdEncoding.EncodeToString(pngBytes(t, 30, 12))
	r, err := c.Capture(SlotSingle, capture.Payload{Data: "data:image/png;base64," + data, Gesture: capture.GesturePaste})
	require.NoError(t, err)

	assert.True(t, r.SlotReady)
	assert.True(t, r.CanEvaluate)
	img := c.Image(SlotSingle)
	require.NotNil(t, img)
	assert.Equal(t, imagesource.OriginPaste, img.Origin)
	assert.Equal(t, 30, img.Width)
	assert.True(t, c.CanEvaluate(), "readiness must not flip back after the response")
}

func TestCaptureFailureClearsReadiness(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})
	c.SetCredential("sk-test")

	_, err := c.Upload(SlotSingle, pngBytes(t, 5, 5))
	require.NoError(t, err)
	require.True(t, c.CanEvaluate())
	before := c.Image(SlotSingle)

	r, err := c.Capture(SlotSingle, capture.Payload{Data: "%%%not-base64", Gesture: capture.GestureDrop})
	assert.ErrorIs(t, err, capture.ErrDecode)
	assert.Equal(t, "error", r.Phase)
	assert.False(t, r.SlotReady)
	assert.False(t, r.SlotsReady)
	assert.False(t, r.CanEvaluate)
	assert.Same(t, before, c.Image(SlotSingle), "previous image stays for display")
	assert.False(t, c.View().CanEvaluate)

	view := c.View()
	assert.Error(t, view.Slots[SlotSingle].Err)

	// next gesture recovers
	data := base64.StdEncoding.EncodeToString(pngBytes(t, 6, 6))
	r, err = c.Capture(SlotSingle, capture.Payload{Data: data})
	require.NoError(t, err)
	assert.Equal(t, "delivered", r.Phase)
	assert.True(t, r.SlotReady)
	assert.True(t, r.CanEvaluate)
	assert.Equal(t, 6, c.Image(SlotSingle).Width)
}

func TestClearAfterFailureResetsSlot(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})

	_, err := c.Upload(SlotSingle, pngBytes(t, 5, 5))
	require.NoError(t, err)
	_, err = c.Upload(SlotSingle, []byte("not an image"))
	require.Error(t, err)

	r, err := c.Clear(SlotSingle)
	require.NoError(t, err)
	assert.Equal(t, "empty", r.Phase)
	assert.False(t, r.SlotReady)
	assert.NoError(t, c.View().Slots[SlotSingle].Err)
}

// truncatedPNG keeps the signature and IHDR chunk, so the header parses
// while the pixel data is missing.
func truncatedPNG(t *testing.T) []byte {
	t.Helper()
	return pngBytes(t, 40, 20)[:40]
}

func TestTruncatedImageNeverBecomesReady(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		c, _ := newTestController(t, &fakeCompleter{})
		c.SetCredential("sk-test")

		r, err := c.Upload(SlotSingle, truncatedPNG(t))
		assert.ErrorIs(t, err, imagesource.ErrInvalidInputKind)
		assert.Equal(t, "error", r.Phase)
		assert.False(t, r.SlotReady)
		assert.False(t, r.CanEvaluate)
		assert.Nil(t, c.Image(SlotSingle))
	})

	t.Run("paste", func(t *testing.T) {
		c, _ := newTestController(t, &fakeCompleter{})
		c.SetCredential("sk-test")
		c.SetMethod(MethodPaste)

		data := "data:image/png;base64," + base64.StdEncoding.EncodeToString(truncatedPNG(t))
		r, err := c.Capture(SlotSingle, capture.Payload{Data: data, Gesture: capture.GesturePaste})
		assert.ErrorIs(t, err, capture.ErrDecode)
		assert.Equal(t, "error", r.Phase)
		assert.False(t, r.SlotReady)
		assert.False(t, r.CanEvaluate)
		assert.Nil(t, c.Image(SlotSingle))
	})
}

func TestUploadRejectsNonImage(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})

	r, err := c.Upload(SlotA, []byte("plain text, not an image"))
	assert.ErrorIs(t, err, imagesource.ErrInvalidInputKind)
	assert.False(t, r.SlotReady)
	assert.Nil(t, c.Image(SlotA))
}

func TestClear(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})
	_, err := c.Upload(SlotSingle, pngBytes(t, 5, 5))
	require.NoError(t, err)

	r, err := c.Clear(SlotSingle)
	require.NoError(t, err)
	assert.False(t, r.SlotReady)
	assert.Equal(t, "empty", r.Phase)
	assert.Nil(t, c.Image(SlotSingle))
}

func TestUnknownSlot(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})

	_, err := c.Upload(Slot("C"), pngBytes(t, 5, 5))
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = c.Capture(Slot("C"), capture.Payload{})
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = c.Clear(Slot("C"))
	assert.ErrorIs(t, err, ErrUnknownSlot)

	_, err = ParseSlot("C")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	s, err := ParseSlot("A")
	require.NoError(t, err)
	assert.Equal(t, SlotA, s)
}

func TestSelectPersonas(t *testing.T) {
	c, _ := newTestController(t, &fakeCompleter{})

	err := c.SelectPersonas([]string{persona.Marketer, "Ghost"})
	assert.ErrorIs(t, err, persona.ErrKeyNotFound)
	assert.Equal(t, []string{persona.Developer, persona.NoviceUser}, c.SelectedPersonas())

	require.NoError(t, c.SelectPersonas([]string{persona.Marketer, persona.Planner, persona.Marketer}))
	assert.Equal(t, []string{persona.Marketer, persona.Planner}, c.SelectedPersonas())
}

func TestEvaluatorFactoryError(t *testing.T) {
	c := NewController(persona.DefaultCatalog(), func(ctx context.Context, credential string) (Evaluator, error) {
		return nil, errors.New("unknown provider")
	})
	c.SetCredential("sk-test")
	_, err := c.Upload(SlotSingle, pngBytes(t, 5, 5))
	require.NoError(t, err)

	_, err = c.Evaluate(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
	assert.True(t, c.CanEvaluate(), "a failed batch releases the session")
}

func TestUploadMethod(t *testing.T) {
	for _, m := range []UploadMethod{MethodFile, MethodPaste} {
		parsed, err := ParseUploadMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
		assert.NotEmpty(t, parsed.Label())
	}
	_, err := ParseUploadMethod("camera")
	assert.Error(t, err)
}
