package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/researchrender/researchrender/pkg/generate"
	"github.com/researchrender/researchrender/pkg/pipeline"
)

type processArgs struct {
	Text      string `json:"text"`
	Filename  string `json:"filename"`
	StepsOnly bool   `json:"steps_only"`
}

type stepsArgs struct {
	Steps string `json:"steps"`
}

type hashArgs struct {
	ContentHash string `json:"content_hash"`
}

type limitArgs struct {
	Limit int `json:"limit"`
}

type serviceArgs struct {
	Service string `json:"service"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"researchrender_process_paper":    handleProcessPaper,
	"researchrender_generate_code":    handleGenerateCode,
	"researchrender_get_paper":        handleGetPaper,
	"researchrender_list_papers":      handleListPapers,
	"researchrender_cache_stats":      handleCacheStats,
	"researchrender_generation_stats": handleGenerationStats,
	"researchrender_budget":           handleBudget,
}

func object(required []string, props map[string]any) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "researchrender_process_paper",
		Description: "Generate implementation steps and code for the text of a research paper. Previously processed papers are answered from storage.",
		InputSchema: object([]string{"text"}, map[string]any{
			"text":       prop("string", "Full text of the paper"),
			"filename":   prop("string", "Original file name, stored with the record (optional)"),
			"steps_only": prop("boolean", "Stop after generating steps (optional)"),
		}),
	},
	{
		Name:        "researchrender_generate_code",
		Description: "Generate code from an existing list of implementation steps.",
		InputSchema: object([]string{"steps"}, map[string]any{
			"steps": prop("string", "Implementation steps"),
		}),
	},
	{
		Name:        "researchrender_get_paper",
		Description: "Show the stored record for a paper by its content hash.",
		InputSchema: object([]string{"content_hash"}, map[string]any{
			"content_hash": prop("string", "SHA-256 hex digest of the paper text"),
		}),
	},
	{
		Name:        "researchrender_list_papers",
		Description: "List processed papers, newest first.",
		InputSchema: object(nil, map[string]any{
			"limit": prop("integer", "Maximum number of papers (optional, default 20)"),
		}),
	},
	{
		Name:        "researchrender_cache_stats",
		Description: "Show generation cache statistics (entries per stage, hits, misses).",
		InputSchema: object(nil, map[string]any{}),
	},
	{
		Name:        "researchrender_generation_stats",
		Description: "Show outbound generation calls grouped by service, stage and outcome.",
		InputSchema: object(nil, map[string]any{}),
	},
	{
		Name:        "researchrender_budget",
		Description: "Show call budget usage vs limits, optionally for one service.",
		InputSchema: object(nil, map[string]any{
			"service": prop("string", "steps or code (optional)"),
		}),
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func handleProcessPaper(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Pipeline == nil {
		return textResult("Paper processing is not configured.")
	}
	var args processArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.Text == "" {
		return errorResult("text is required")
	}

	opts := pipeline.DefaultOptions()
	opts.Filename = args.Filename
	opts.GenerateCode = !args.StepsOnly
	res, err := s.deps.Pipeline.Process(ctx, args.Text, opts)
	if err != nil {
		return errorResult(stageMessage(err))
	}
	return textResult(formatResult(res))
}

func handleGenerateCode(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Pipeline == nil {
		return textResult("Code generation is not configured.")
	}
	var args stepsArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.Steps == "" {
		return errorResult("steps is required")
	}
	res, err := s.deps.Pipeline.Process(ctx, args.Steps, pipeline.Options{GenerateCode: true})
	if err != nil {
		return errorResult(stageMessage(err))
	}
	return textResult(*res.Code)
}

func handleGetPaper(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Records == nil {
		return textResult("Paper records are not configured.")
	}
	var args hashArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.ContentHash == "" {
		return errorResult("content_hash is required")
	}
	rec, err := s.deps.Records.Get(ctx, args.ContentHash)
	if err != nil {
		return errorResult("Error fetching paper: " + err.Error())
	}
	if rec == nil {
		return textResult("No paper found for this hash.")
	}
	return textResult(formatRecord(rec))
}

func handleListPapers(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Records == nil {
		return textResult("Paper records are not configured.")
	}
	args := limitArgs{Limit: 20}
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	recs, err := s.deps.Records.List(ctx, args.Limit)
	if err != nil {
		return errorResult("Error listing papers: " + err.Error())
	}
	return textResult(formatRecords(recs))
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.deps.Cache.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleGenerationStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Events == nil {
		return textResult("Generation tracking is not configured.")
	}
	rows, err := s.deps.Events.Summary(ctx)
	if err != nil {
		return errorResult("Error fetching generation stats: " + err.Error())
	}
	return textResult(formatEventSummary(rows))
}

func handleBudget(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.deps.Budget == nil {
		return textResult("Budget enforcement is not configured.")
	}
	var args serviceArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	statuses, err := s.deps.Budget.Status(ctx, args.Service)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(statuses))
}

func stageMessage(err error) string {
	var se *generate.StageError
	if errors.As(err, &se) {
		return "Failed to generate " + string(se.Stage) + ": " + se.Err.Error()
	}
	return "Error: " + err.Error()
}
