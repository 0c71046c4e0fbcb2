package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) RunBatch(ctx context.Context, mode evaluation.Mode, images []*imagesource.CapturedImage, personas []persona.Profile) []evaluation.Result {
	args := m.Called(ctx, mode, images, personas)
	return args.Get(0).([]evaluation.Result)
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "evaluate_prototype"
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, c mcp.Content) string {
	t.Helper()
	tc, ok := c.(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", c)
	return tc.Text
}

func profileNames(profiles []persona.Profile) []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

func results(mode evaluation.Mode, names ...string) []evaluation.Result {
	out := make([]evaluation.Result, len(names))
	for i, n := range names {
		out[i] = evaluation.Result{PersonaName: n, Text: "feedback from " + n, ProducedAt: time.Now(), Mode: mode}
	}
	return out
}

func TestListPersonas(t *testing.T) {
	s := New(persona.DefaultCatalog(), &MockEvaluator{}, "test")

	res, err := s.handleListPersonas(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	var listed []personaInfo
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res.Content[0])), &listed))
	require.Len(t, listed, 5)
	assert.Equal(t, persona.Developer, listed[0].Name)
	assert.True(t, listed[0].Default)
	assert.False(t, listed[1].Default)
	assert.NotEmpty(t, listed[0].Description)
}

func TestEvaluateSingleDefaultsToDefaultSelection(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "screen.png")

	ev := &MockEvaluator{}
	ev.On("RunBatch", mock.Anything, evaluation.ModeSingle,
		mock.MatchedBy(func(imgs []*imagesource.CapturedImage) bool { return len(imgs) == 1 }),
		mock.MatchedBy(func(p []persona.Profile) bool {
			return assert.ObjectsAreEqual([]string{persona.Developer, persona.NoviceUser}, profileNames(p))
		}),
	).Return(results(evaluation.ModeSingle, persona.Developer, persona.NoviceUser))

	s := New(persona.DefaultCatalog(), ev, "test")
	res, err := s.handleEvaluate(context.Background(), callRequest(map[string]any{"image_path": path}))
	require.NoError(t, err)

	assert.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	assert.Contains(t, textOf(t, res.Content[0]), "## Developer")
	assert.Contains(t, textOf(t, res.Content[1]), "feedback from Novice User")
	ev.AssertExpectations(t)
}

func TestEvaluateComparisonWithPersonas(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png")
	b := writePNG(t, dir, "b.png")

	ev := &MockEvaluator{}
	ev.On("RunBatch", mock.Anything, evaluation.ModeComparison,
		mock.MatchedBy(func(imgs []*imagesource.CapturedImage) bool { return len(imgs) == 2 }),
		mock.MatchedBy(func(p []persona.Profile) bool {
			return assert.ObjectsAreEqual([]string{persona.Marketer, persona.Planner}, profileNames(p))
		}),
	).Return(results(evaluation.ModeComparison, persona.Marketer, persona.Planner))

	s := New(persona.DefaultCatalog(), ev, "test")
	res, err := s.handleEvaluate(context.Background(), callRequest(map[string]any{
		"image_path":   a,
		"image_b_path": b,
		"personas":     []any{persona.Marketer, persona.Planner},
	}))
	require.NoError(t, err)

	require.Len(t, res.Content, 2)
	assert.Contains(t, textOf(t, res.Content[0]), "## Marketer")
	ev.AssertExpectations(t)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "ok.png")
	notImage := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0644))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing image_path", map[string]any{}, "image_path"},
		{"missing file", map[string]any{"image_path": filepath.Join(dir, "nope.png")}, "failed to read image"},
		{"not an image", map[string]any{"image_path": notImage}, "failed to load image"},
		{"unknown persona", map[string]any{"image_path": good, "personas": []any{"Astronaut"}}, "Astronaut"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &MockEvaluator{}
			s := New(persona.DefaultCatalog(), ev, "test")

			res, err := s.handleEvaluate(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			require.NotEmpty(t, res.Content)
			assert.Contains(t, textOf(t, res.Content[0]), tt.want)
			ev.AssertNotCalled(t, "RunBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestEvaluateAllFailedIsError(t *testing.T) {
	path := writePNG(t, t.TempDir(), "screen.png")

	failed := results(evaluation.ModeSingle, persona.Developer)
	failed[0].Failed = true
	failed[0].Text = "Evaluation failed: the API key was rejected"

	ev := &MockEvaluator{}
	ev.On("RunBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(failed)

	s := New(persona.DefaultCatalog(), ev, "test")
	res, err := s.handleEvaluate(context.Background(), callRequest(map[string]any{
		"image_path": path,
		"personas":   []any{persona.Developer},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res.Content[0]), "API key was rejected")
}

func TestMCPServerBuilds(t *testing.T) {
	s := New(persona.DefaultCatalog(), &MockEvaluator{}, "test")
	assert.NotNil(t, s.MCPServer())
}
