// Package mcp exposes the pipeline and its bookkeeping as Model Context
// Protocol tools over stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/researchrender/researchrender/pkg/cache"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
	"github.com/researchrender/researchrender/pkg/papers"
	"github.com/researchrender/researchrender/pkg/pipeline"
)

// Processor runs the generation pipeline.
type Processor interface {
	Process(ctx context.Context, content string, opts pipeline.Options) (*models.ProcessResult, error)
}

// EventSummarizer aggregates recorded generation calls.
type EventSummarizer interface {
	Summary(ctx context.Context) ([]models.EventSummary, error)
}

// BudgetReporter reports call budget usage.
type BudgetReporter interface {
	Status(ctx context.Context, service string) ([]models.BudgetStatus, error)
}

// Deps are the collaborators tools call into. Any of them may be nil, in
// which case the tools that need it report that it is not configured.
type Deps struct {
	Pipeline Processor
	Records  papers.Store
	Cache    cache.Statter
	Events   EventSummarizer
	Budget   BudgetReporter
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	deps    Deps
	version string
}

// New creates a new MCP Server.
func New(deps Deps, version string) *Server {
	return &Server{deps: deps, version: version}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Paper text arrives inline, so lines can be large.
	scanner.Buffer(make([]byte, 0, 1024*1024), 32*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(ctx, w, rpcError(nil, CodeParseError, "parse error"))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(ctx, w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return result(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: "researchrender", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "ping":
		return result(req.ID, map[string]any{})
	case "tools/list":
		return result(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		if len(req.ID) == 0 {
			return nil
		}
		return rpcError(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcError(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return result(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}
	logger.Debug(ctx, "mcp tool call", "tool", params.Name)
	return result(req.ID, handler(ctx, s, params.Arguments))
}

func (s *Server) writeResponse(ctx context.Context, w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Error(ctx, "mcp: marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		logger.Error(ctx, "mcp: write response", "error", err)
	}
}
