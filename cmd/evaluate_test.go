package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrintResults(t *testing.T) {
	color.NoColor = true

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printResults(&buf, []evaluation.Result{
		{PersonaName: "Developer", Text: "Looks fine", ProducedAt: at},
		{PersonaName: "Planner", Text: "Evaluation failed: timeout", ProducedAt: at, Failed: true},
	})

	want := "## Developer  2024-05-01 09:00:00\n\nLooks fine\n" +
		"\n## Planner  2024-05-01 09:00:00\n\nEvaluation failed: timeout\n"
	assert.Equal(t, want, buf.String())
}

func TestAllFailed(t *testing.T) {
	assert.False(t, allFailed(nil))
	assert.False(t, allFailed([]evaluation.Result{{Failed: true}, {}}))
	assert.True(t, allFailed([]evaluation.Result{{Failed: true}, {Failed: true}}))
}
