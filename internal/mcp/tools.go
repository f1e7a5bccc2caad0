package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/claude/wlog/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List exercises in the catalogue with their type (Strength, Cardio) and target body part."),
	mcp.WithString("type", mcp.Description("Only return exercises of this type (case-insensitive)")),
	mcp.WithString("target", mcp.Description("Only return exercises for this target (case-insensitive)")),
)

var toolGetExerciseOptions = mcp.NewTool("get_exercise_options",
	mcp.WithDescription("List the allowed exercise types and target body parts."),
)

var toolListRoutines = mcp.NewTool("list_routines",
	mcp.WithDescription("List saved routines with their exercises and planned sets (weight, reps, time, distance)."),
	mcp.WithString("name", mcp.Description("Filter by routine name (partial match)")),
)

var toolSearchDatabases = mcp.NewTool("search_databases",
	mcp.WithDescription("List the data sources shared with the integration, most recently edited first."),
)

var toolDecodeRoutine = mcp.NewTool("decode_routine",
	mcp.WithDescription("Decode a stored routine payload in any historical format and return the canonical items, the detected format and how many elements were migrated or passed through unchanged."),
	mcp.WithString("data", mcp.Required(), mcp.Description("Raw routine payload as stored in the Data column")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	typ := req.GetString("type", "")
	target := req.GetString("target", "")
	out := make([]models.Exercise, 0, len(exercises))
	for _, ex := range exercises {
		if typ != "" && !strings.EqualFold(ex.Type, typ) {
			continue
		}
		if target != "" && !strings.EqualFold(ex.Target, target) {
			continue
		}
		out = append(out, ex)
	}
	return jsonResult(out)
}

func (h *handlers) getExerciseOptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, err := h.ds.ExerciseOptions(ctx)
	if err != nil {
		h.log.Error("mcp get_exercise_options", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(opts)
}

func (h *handlers) listRoutines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routines, err := h.ds.ListRoutines(ctx)
	if err != nil {
		h.log.Error("mcp list_routines", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	name := strings.ToLower(req.GetString("name", ""))
	out := make([]models.Routine, 0, len(routines))
	for _, r := range routines {
		if name != "" && !strings.Contains(strings.ToLower(r.Label), name) {
			continue
		}
		out = append(out, r)
	}
	return jsonResult(out)
}

func (h *handlers) searchDatabases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dbs, err := h.ds.SearchDatabases(ctx)
	if err != nil {
		h.log.Error("mcp search_databases", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(dbs)
}

type decodeResult struct {
	Format   string               `json:"format"`
	Migrated int                  `json:"migrated"`
	Opaque   int                  `json:"opaque"`
	Items    []models.RoutineItem `json:"items"`
}

func (h *handlers) decodeRoutine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError("data parameter is required"), nil
	}
	res := h.decoder.Decode(data)
	return jsonResult(decodeResult{
		Format:   res.Format.String(),
		Migrated: res.Migrated,
		Opaque:   res.Opaque,
		Items:    res.Items,
	})
}

// --- Resource handlers ---

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}

	byTarget := map[string][]string{}
	for _, ex := range exercises {
		byTarget[ex.Target] = append(byTarget[ex.Target], ex.Name)
	}
	for _, names := range byTarget {
		sort.Strings(names)
	}

	data, err := json.Marshal(byTarget)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
