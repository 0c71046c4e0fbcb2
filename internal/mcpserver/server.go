// Package mcpserver exposes persona evaluation as MCP tools
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daikw/protoeval/internal/evaluation"
	"github.com/daikw/protoeval/internal/imagesource"
	"github.com/daikw/protoeval/internal/persona"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// Evaluator runs a batch of persona evaluations
type Evaluator interface {
	RunBatch(ctx context.Context, mode evaluation.Mode, images []*imagesource.CapturedImage, personas []persona.Profile) []evaluation.Result
}

// Server holds the tool handlers
type Server struct {
	catalog   *persona.Catalog
	evaluator Evaluator
	version   string
}

// New creates the tool handlers over a catalog and an evaluator
func New(catalog *persona.Catalog, evaluator Evaluator, version string) *Server {
	return &Server{catalog: catalog, evaluator: evaluator, version: version}
}

// MCPServer builds an MCP server with every tool registered
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("protoeval", s.version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool("list_personas",
		mcp.WithDescription("List the persona profiles available for prototype evaluation"),
	), s.handleListPersonas)

	srv.AddTool(mcp.NewTool("evaluate_prototype",
		mcp.WithDescription("Critique a prototype screenshot from each persona's point of view. "+
			"Pass image_b_path to compare two variants instead."),
		mcp.WithString("image_path",
			mcp.Required(),
			mcp.Description("Path to the prototype screenshot (variant A in comparison)"),
		),
		mcp.WithString("image_b_path",
			mcp.Description("Path to variant B; switches to A/B comparison"),
		),
		mcp.WithArray("personas",
			mcp.Description("Persona names to evaluate with, in order. Defaults to the catalog's default selection."),
			mcp.WithStringItems(),
		),
	), s.handleEvaluate)

	return srv
}

// ServeStdio serves the tools over stdin/stdout until the client disconnects
func (s *Server) ServeStdio() error {
	log.Info().Msg("Starting MCP server on stdio")
	return server.ServeStdio(s.MCPServer())
}

type personaInfo struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Characteristics string `json:"characteristics"`
	Default         bool   `json:"default"`
}

func (s *Server) handleListPersonas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defaults := make(map[string]bool)
	for _, name := range s.catalog.DefaultSelection() {
		defaults[name] = true
	}

	profiles := s.catalog.Profiles()
	out := make([]personaInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, personaInfo{
			Name:            p.Name,
			Description:     p.Description,
			Characteristics: p.Characteristics,
			Default:         defaults[p.Name],
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode personas: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathA, err := request.RequireString("image_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pathB := request.GetString("image_b_path", "")

	mode := evaluation.ModeSingle
	paths := []string{pathA}
	if pathB != "" {
		mode = evaluation.ModeComparison
		paths = append(paths, pathB)
	}

	images := make([]*imagesource.CapturedImage, 0, len(paths))
	for _, p := range paths {
		img, err := imagesource.LoadFile(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		images = append(images, img)
	}

	names := request.GetStringSlice("personas", nil)
	if len(names) == 0 {
		names = s.catalog.DefaultSelection()
	}
	profiles, err := s.catalog.Resolve(names)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log.Debug().Str("mode", string(mode)).Strs("personas", names).Msg("Evaluating prototype over MCP")
	results := s.evaluator.RunBatch(ctx, mode, images, profiles)

	failed := 0
	contents := make([]mcp.Content, 0, len(results))
	for _, r := range results {
		if r.Failed {
			failed++
		}
		contents = append(contents, mcp.NewTextContent(formatResult(r)))
	}

	return &mcp.CallToolResult{
		Content: contents,
		IsError: len(results) > 0 && failed == len(results),
	}, nil
}

func formatResult(r evaluation.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", r.PersonaName, r.Timestamp())
	b.WriteString(r.Text)
	return b.String()
}
