// Package mcp exposes workout data to assistants over the Model Context
// Protocol.
package mcp

import (
	"log/slog"

	"github.com/claude/wlog/internal/routine"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, decoder *routine.Decoder, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("wlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("wlog workout server. Read the exercise catalogue, saved routines and their planned sets. decode_routine normalises a stored routine payload in any historical format."),
	)

	if decoder == nil {
		decoder = routine.NewDecoder(log)
	}
	h := &handlers{ds: ds, decoder: decoder, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetExerciseOptions, Handler: h.getExerciseOptions},
		server.ServerTool{Tool: toolListRoutines, Handler: h.listRoutines},
		server.ServerTool{Tool: toolSearchDatabases, Handler: h.searchDatabases},
		server.ServerTool{Tool: toolDecodeRoutine, Handler: h.decodeRoutine},
	)

	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds      DataSource
	decoder *routine.Decoder
	log     *slog.Logger
}

var resExerciseCatalog = mcp.NewResource(
	"wlog://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All exercises grouped by target body part"),
	mcp.WithMIMEType("application/json"),
)
