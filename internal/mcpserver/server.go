// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes genresync tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/genresync/internal/genre"
	"github.com/starford/genresync/internal/syncservice"
	"github.com/starford/genresync/internal/vaultpath"
)

const formatURI = "genresync://genre-note-format"

// Server wraps the MCP server with genresync tools.
type Server struct {
	mcp *server.MCPServer
	svc *syncservice.Service
}

// New creates a new MCP server with all genresync tools registered.
func New(svc *syncservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"genresync",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("update_genre_pages",
		mcp.WithDescription("Create a genre note for every genre declared by an artist note "+
			"that has no genre note yet. Existing genre notes are never modified. "+
			"Returns the run report as JSON."),
	), s.updateGenrePages)

	s.mcp.AddTool(mcp.NewTool("list_genres",
		mcp.WithDescription("List the genres found by the last run with their artist counts."),
	), s.listGenres)

	s.mcp.AddTool(mcp.NewTool("genre_artists",
		mcp.WithDescription("List the artist notes declaring a genre."),
		mcp.WithString("genre", mcp.Required(), mcp.Description("Genre name (case-insensitive)")),
	), s.genreArtists)

	s.mcp.AddTool(mcp.NewTool("preview_genre_note",
		mcp.WithDescription("Show the path and content genresync would write for a genre, without writing it."),
		mcp.WithString("genre", mcp.Required(), mcp.Description("Genre name (case-insensitive)")),
	), s.previewGenreNote)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the configured artist and genre folders."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("set_settings",
		mcp.WithDescription("Change the artist and/or genre folder. Omitted fields are kept."),
		mcp.WithString("artist_folder", mcp.Description("Vault folder holding artist notes")),
		mcp.WithString("genre_folder", mcp.Description("Vault folder where genre notes are created")),
	), s.setSettings)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Genre Note Format",
			mcp.WithResourceDescription("Format of the genre notes genresync generates."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) updateGenrePages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.UpdateGenrePages(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if report.Skipped {
		return mcp.NewToolResultError("artist and genre folders must be set first (use set_settings)"), nil
	}
	return jsonResult(report), nil
}

func (s *Server) listGenres(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	genres, err := s.svc.Genres(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(genres) == 0 {
		return mcp.NewToolResultText("no genres indexed; run update_genre_pages first"), nil
	}
	return jsonResult(genres), nil
}

func (s *Server) genreArtists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := req.RequireString("genre")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	artists, err := s.svc.ArtistsFor(ctx, g)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(artists) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no artists for genre %q", genre.Normalize(g))), nil
	}
	return mcp.NewToolResultText(strings.Join(artists, "\n")), nil
}

func (s *Server) previewGenreNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("genre")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g := genre.Normalize(raw)
	if g == "" {
		return mcp.NewToolResultError("genre is empty"), nil
	}
	cur, err := s.svc.Settings(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !cur.Configured() {
		return mcp.NewToolResultError("artist and genre folders must be set first (use set_settings)"), nil
	}
	c := genre.Generate(g, vaultpath.Normalize(cur.ArtistFolder), vaultpath.Normalize(cur.GenreFolder))
	return mcp.NewToolResultText(c.Path + "\n\n" + c.Text), nil
}

func (s *Server) getSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cur, err := s.svc.Settings(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cur), nil
}

func (s *Server) setSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var patch syncservice.SettingsPatch
	if v, err := req.RequireString("artist_folder"); err == nil {
		patch.ArtistFolder = &v
	}
	if v, err := req.RequireString("genre_folder"); err == nil {
		patch.GenreFolder = &v
	}
	if patch.Empty() {
		return mcp.NewToolResultError("artist_folder or genre_folder is required"), nil
	}
	cur, err := s.svc.UpdateSettings(ctx, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cur), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     GenreNoteFormat,
		},
	}, nil
}
