// Package tools implements the typed operation dispatcher named in spec §6
// and design note "Tool registry -> typed dispatcher": each operation is
// {name, handler}, dispatch decodes the request into a typed input struct,
// calls the handler, and wraps the result (or error) in a
// internal/toolenvelope.Envelope. This package is the transport-agnostic
// core the spec prescribes; binding it to HTTP or MCP (request routing,
// JSON schema advertisement) is left to the caller, as §1 scopes the
// transport itself out.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/capture"
	"github.com/devmemory/navigator/internal/ingest"
	"github.com/devmemory/navigator/internal/initiative"
	"github.com/devmemory/navigator/internal/memory"
	"github.com/devmemory/navigator/internal/migrate"
	"github.com/devmemory/navigator/internal/orient"
	"github.com/devmemory/navigator/internal/runtimeconfig"
	"github.com/devmemory/navigator/internal/search"
	"github.com/devmemory/navigator/internal/store"
	"github.com/devmemory/navigator/internal/toolenvelope"
)

// Handler decodes its own input from raw and returns a JSON-encodable
// result or an error (classified into a Kind by toolenvelope.Classify).
type Handler func(ctx context.Context, raw json.RawMessage) (any, error)

// Dispatcher is the named-operation registry (spec §6 table; design note
// "Tool registry -> typed dispatcher"). Construction wires every handler
// against the composition root's services — there is no lazy/global lookup
// (design note "Lazy singletons -> explicit composition").
type Dispatcher struct {
	handlers map[string]Handler
	logger   *zap.Logger
}

// Deps bundles every service a handler might need. Passed once to New, not
// threaded through each call.
type Deps struct {
	Store       *store.Instrumented
	Search      *search.Engine
	Ingest      *ingest.Pipeline
	Tasks       *ingest.TaskTable
	Memory      *memory.Service
	Initiatives *initiative.Service
	Orient      *orient.Service
	Migrations  *migrate.Runner
	Capture     *capture.Queue
	CaptureWorker *capture.Worker
	RuntimeCfg  *runtimeconfig.Store
	Logger      *zap.Logger
}

// New builds a Dispatcher with every spec §6 operation registered.
func New(d Deps) *Dispatcher {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	disp := &Dispatcher{handlers: map[string]Handler{}, logger: logger}

	disp.register("orient_session", orientSessionHandler(d))
	disp.register("search", searchHandler(d))
	disp.register("ingest", ingestHandler(d))
	disp.register("get_ingest_status", getIngestStatusHandler(d))
	disp.register("save_note", saveNoteHandler(d))
	disp.register("save_insight", saveInsightHandler(d))
	disp.register("save_session_summary", saveSessionSummaryHandler(d))
	disp.register("set_tech_stack", setTechStackHandler(d))
	disp.register("set_initiative", setInitiativeHandler(d))
	disp.register("create_initiative", createInitiativeHandler(d))
	disp.register("focus_initiative", focusInitiativeHandler(d))
	disp.register("list_initiatives", listInitiativesHandler(d))
	disp.register("complete_initiative", completeInitiativeHandler(d))
	disp.register("summarize_initiative", summarizeInitiativeHandler(d))
	disp.register("validate_insight", validateInsightHandler(d))
	disp.register("configure", configureHandler(d))
	disp.register("recall_recent_work", recallRecentWorkHandler(d))
	disp.register("get_version", getVersionHandler(d))
	disp.register("capture_session", captureSessionHandler(d))

	return disp
}

func (disp *Dispatcher) register(name string, h Handler) {
	disp.handlers[name] = h
}

// Names lists every registered operation, for transports that advertise a
// tool list.
func (disp *Dispatcher) Names() []string {
	out := make([]string, 0, len(disp.handlers))
	for name := range disp.handlers {
		out = append(out, name)
	}
	return out
}

// Dispatch validates the operation name against the registry, invokes its
// handler, and always returns an Envelope — never an error — so transports
// never need to re-derive the uniform shape (spec §7: "no exception types
// are exposed across the interface boundary").
func (disp *Dispatcher) Dispatch(ctx context.Context, name string, raw json.RawMessage) toolenvelope.Envelope {
	h, ok := disp.handlers[name]
	if !ok {
		return toolenvelope.Err(toolenvelope.New(toolenvelope.InvalidArgument,
			fmt.Sprintf("unknown operation %q", name), nil))
	}
	result, err := h(ctx, raw)
	if err != nil {
		return toolenvelope.Err(err)
	}
	env, err := toolenvelope.Ok(result)
	if err != nil {
		return toolenvelope.Err(err)
	}
	return env
}

func decode[T any](raw json.RawMessage, out *T) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return toolenvelope.New(toolenvelope.InvalidArgument, "invalid input: "+err.Error(), err)
	}
	return nil
}
