package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolSpec names one registered operation and the description advertised to
// MCP clients. internal/tools.Dispatcher already validates and decodes each
// operation's own typed input on dispatch, so the transport only needs a
// generic object in/out shape here rather than duplicating 18 schemas.
type toolSpec struct {
	name        string
	description string
}

var toolSpecs = []toolSpec{
	{"orient_session", "Summarize repository state, active initiative, and recent work at session start"},
	{"search", "Search ingested memory for relevant notes, insights, and code context"},
	{"ingest", "Ingest a repository path into the vector store, chunked and embedded"},
	{"get_ingest_status", "Report progress of a previously started ingest task"},
	{"save_note", "Save a free-form note to memory"},
	{"save_insight", "Save a validated insight to memory"},
	{"save_session_summary", "Save a summary of the current session"},
	{"set_tech_stack", "Record the technology stack detected or declared for a repository"},
	{"create_initiative", "Create a new initiative to track a unit of work"},
	{"focus_initiative", "Mark an initiative as the active focus"},
	{"list_initiatives", "List known initiatives, optionally filtered by status"},
	{"complete_initiative", "Mark an initiative as complete"},
	{"summarize_initiative", "Generate a summary of an initiative's recorded work"},
	{"validate_insight", "Validate or reject a previously saved insight"},
	{"configure", "Read or update runtime configuration"},
	{"recall_recent_work", "Recall recently recorded work across initiatives"},
	{"get_version", "Report the running server's version and build metadata"},
	{"capture_session", "Queue a session transcript for background capture and distillation"},
}

// registerTools binds every internal/tools.Dispatcher operation to the MCP
// server, one mcp.AddTool registration per operation. Each handler marshals
// its generic args back to JSON, dispatches through the typed operation
// registry, and unwraps the resulting envelope into the result the SDK
// expects: the dispatcher stays the single source of truth for decoding and
// error classification, this layer only adapts its envelope to the wire
// protocol.
func (s *Server) registerTools() {
	for _, spec := range toolSpecs {
		spec := spec
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        spec.name,
			Description: spec.description,
		}, func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, map[string]any, error) {
			return s.invoke(ctx, spec.name, args)
		})
	}
}

// invoke dispatches name through the operation registry and converts its
// envelope into the MCP result shape, recording duration/error metrics the
// same way for every tool.
func (s *Server) invoke(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, map[string]any, error) {
	s.metrics.IncrementActive(ctx, name)
	defer s.metrics.DecrementActive(ctx, name)

	start := time.Now()

	raw, err := json.Marshal(args)
	if err != nil {
		s.metrics.RecordInvocation(ctx, name, time.Since(start), "invalid_argument")
		return errorResult(err.Error()), nil, nil
	}

	env := s.dispatcher.Dispatch(ctx, name, raw)

	s.metrics.RecordInvocation(ctx, name, time.Since(start), env.Kind)

	if env.Status != "ok" {
		return errorResult(env.Error), nil, nil
	}

	var out map[string]any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			return errorResult("malformed result: " + err.Error()), nil, nil
		}
	}

	return &mcp.CallToolResult{}, out, nil
}

// errorResult builds an MCP tool result that reports failure to the client
// without surfacing a transport-level Go error, so a bad argument or a
// not-found lookup shows up as a normal tool response (IsError: true)
// rather than tearing down the MCP session.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}
