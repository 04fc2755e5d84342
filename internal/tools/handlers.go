package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devmemory/navigator/internal/capture"
	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/ingest"
	"github.com/devmemory/navigator/internal/initiative"
	"github.com/devmemory/navigator/internal/memory"
	"github.com/devmemory/navigator/internal/orient"
	"github.com/devmemory/navigator/internal/runtimeconfig"
	"github.com/devmemory/navigator/internal/search"
	"github.com/devmemory/navigator/internal/toolenvelope"
)

// -- orient_session -----------------------------------------------------

type orientSessionInput struct {
	ProjectPath string `json:"project_path"`
}

func orientSessionHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in orientSessionInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		if in.ProjectPath == "" {
			return nil, toolenvelope.New(toolenvelope.InvalidArgument, "project_path is required", nil)
		}
		return d.Orient.OrientSession(ctx, in.ProjectPath)
	}
}

// -- search ---------------------------------------------------------------

type searchInput struct {
	Query            string   `json:"query"`
	Repository       string   `json:"repository"`
	Branch           string   `json:"branch"`
	MinScore         *float64 `json:"min_score"`
	Initiative       string   `json:"initiative"`
	IncludeCompleted bool     `json:"include_completed"`
	Types            []string `json:"types"`
	Preset           string   `json:"preset"`
}

func searchHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in searchInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		if in.Query == "" {
			return nil, toolenvelope.New(toolenvelope.InvalidArgument, "query is required", search.ErrEmptyQuery)
		}
		cfg := d.RuntimeCfg.Get()
		types := make([]document.Type, len(in.Types))
		for i, t := range in.Types {
			types[i] = document.Type(t)
		}
		params := search.Params{
			Query: in.Query, Repository: in.Repository, Branch: in.Branch,
			MinScore: in.MinScore, Types: types, Preset: search.Preset(in.Preset),
			Initiative: in.Initiative, IncludeCompleted: in.IncludeCompleted,
			TopKRetrieve: cfg.TopKRetrieve, TopKRerank: cfg.TopKRerank,
			RecencyHalfLife: cfg.RecencyHalfLifeDays,
		}
		resp, err := d.Search.Search(ctx, params)
		if err != nil {
			return nil, classifySearchErr(err)
		}
		return resp, nil
	}
}

func classifySearchErr(err error) error {
	if err == search.ErrEmptyQuery {
		return toolenvelope.New(toolenvelope.InvalidArgument, err.Error(), err)
	}
	return err
}

// -- ingest / get_ingest_status -------------------------------------------

type ingestInput struct {
	Path            string   `json:"path"`
	Repository      string   `json:"repository"`
	ForceFull       bool     `json:"force_full"`
	IncludePatterns []string `json:"include_patterns"`
	UseIgnoreFiles  bool     `json:"use_ignore_files"`
}

func ingestHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in ingestInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		if in.Path == "" {
			return nil, toolenvelope.New(toolenvelope.InvalidArgument, "path is required", nil)
		}
		opts := ingest.Options{
			Path: in.Path, Repository: in.Repository, ForceFull: in.ForceFull,
			IncludePatterns: in.IncludePatterns, UseIgnoreFiles: in.UseIgnoreFiles,
		}
		// A precise pending-file count requires walking twice; IngestAsync
		// accepts an approximate count, and 0 always runs synchronously,
		// which is the conservative (correct, just not always async) choice
		// when the caller hasn't pre-walked the tree.
		stats, taskID, err := d.Ingest.IngestAsync(ctx, opts, d.Tasks, 0)
		if err != nil {
			return nil, err
		}
		if taskID != "" {
			return map[string]any{"task_id": taskID}, nil
		}
		return stats, nil
	}
}

type getIngestStatusInput struct {
	TaskID string `json:"task_id"`
}

func getIngestStatusHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in getIngestStatusInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		task, ok := d.Tasks.Get(in.TaskID)
		if !ok {
			return nil, toolenvelope.New(toolenvelope.NotFound, fmt.Sprintf("unknown task %q", in.TaskID), nil)
		}
		return task, nil
	}
}

// -- save_note / save_insight / save_session_summary ----------------------

type saveNoteInput struct {
	Repository string   `json:"repository"`
	Branch     string   `json:"branch"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Initiative string   `json:"initiative"`
}

func saveNoteHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in saveNoteInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Memory.SaveNote(ctx, memory.SaveNoteInput{
			Repository: in.Repository, Branch: in.Branch, Content: in.Content,
			Tags: in.Tags, Initiative: in.Initiative,
		})
	}
}

type saveInsightInput struct {
	Repository string   `json:"repository"`
	Branch     string   `json:"branch"`
	Root       string   `json:"root"`
	Content    string   `json:"content"`
	Files      []string `json:"files"`
	Initiative string   `json:"initiative"`
}

func saveInsightHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in saveInsightInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Memory.SaveInsight(ctx, memory.SaveInsightInput{
			Repository: in.Repository, Branch: in.Branch, Root: in.Root,
			Content: in.Content, Files: in.Files, Initiative: in.Initiative,
		})
	}
}

type saveSessionSummaryInput struct {
	Repository string   `json:"repository"`
	Branch     string   `json:"branch"`
	Content    string   `json:"content"`
	Files      []string `json:"files"`
	SessionID  string   `json:"session_id"`
	Initiative string   `json:"initiative"`
}

func saveSessionSummaryHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in saveSessionSummaryInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Memory.SaveSessionSummary(ctx, memory.SaveSessionSummaryInput{
			Repository: in.Repository, Branch: in.Branch, Content: in.Content,
			Files: in.Files, SessionID: in.SessionID, Initiative: in.Initiative,
		})
	}
}

// -- set_tech_stack ---------------------------------------------------------

type setTechStackInput struct {
	Repository  string   `json:"repository"`
	Branch      string   `json:"branch"`
	Languages   []string `json:"languages"`
	Frameworks  []string `json:"frameworks"`
	Tooling     []string `json:"tooling"`
	Description string   `json:"description"`
}

func setTechStackHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in setTechStackInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		id, err := d.Memory.SetTechStack(ctx, memory.SetTechStackInput{
			Repository: in.Repository, Branch: in.Branch, Languages: in.Languages,
			Frameworks: in.Frameworks, Tooling: in.Tooling, Description: in.Description,
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil
	}
}

// -- initiative operations -------------------------------------------------

// setInitiativeInput is set_initiative's typed input: a legacy find-or-create
// + focus call (spec §6 table) superseded by create_initiative +
// focus_initiative, kept for compatibility with existing callers.
type setInitiativeInput struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

func setInitiativeHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in setInitiativeInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Initiatives.Set(ctx, initiative.SetInput{
			Repository: in.Repository, Branch: in.Branch, Name: in.Name, Status: in.Status,
		})
	}
}

type createInitiativeInput struct {
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Name       string `json:"name"`
	Goal       string `json:"goal"`
	Focus      bool   `json:"focus"`
}

func createInitiativeHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in createInitiativeInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Initiatives.Create(ctx, initiative.CreateInput{
			Repository: in.Repository, Branch: in.Branch, Name: in.Name, Goal: in.Goal, Focus: in.Focus,
		})
	}
}

type focusInitiativeInput struct {
	Repository string `json:"repository"`
	ID         string `json:"id"`
}

func focusInitiativeHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in focusInitiativeInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		if err := d.Initiatives.Focus(ctx, in.Repository, in.ID); err != nil {
			return nil, err
		}
		return map[string]string{"focused": in.ID}, nil
	}
}

type listInitiativesInput struct {
	Repository       string `json:"repository"`
	IncludeCompleted bool   `json:"include_completed"`
}

func listInitiativesHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in listInitiativesInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Initiatives.List(ctx, in.Repository, in.IncludeCompleted)
	}
}

type completeInitiativeInput struct {
	Repository string `json:"repository"`
	ID         string `json:"id"`
	Summary    string `json:"summary"`
}

func completeInitiativeHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in completeInitiativeInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Initiatives.Complete(ctx, initiative.CompleteInput{
			Repository: in.Repository, ID: in.ID, Summary: in.Summary,
		})
	}
}

type summarizeInitiativeInput struct {
	ID string `json:"id"`
}

func summarizeInitiativeHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in summarizeInitiativeInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		summary, err := d.Initiatives.Summarize(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"summary": summary}, nil
	}
}

// -- validate_insight -------------------------------------------------------

type validateInsightInput struct {
	InsightID          string                    `json:"insight_id"`
	Result             document.ValidationResult `json:"result"`
	Notes              string                    `json:"notes"`
	Deprecate          bool                      `json:"deprecate"`
	ReplacementContent string                    `json:"replacement"`
	ReplacementFiles   []string                  `json:"replacement_files"`
	Root               string                    `json:"root"`
	Commit             string                    `json:"commit"`
}

func validateInsightHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in validateInsightInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		return d.Memory.ValidateInsight(ctx, memory.ValidateInsightInput{
			InsightID: in.InsightID, Result: in.Result, Notes: in.Notes,
			Deprecate: in.Deprecate, ReplacementContent: in.ReplacementContent,
			ReplacementFiles: in.ReplacementFiles, Root: in.Root, Commit: in.Commit,
		})
	}
}

// -- configure ----------------------------------------------------------

func configureHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var patch runtimeconfig.Patch
		if err := decode(raw, &patch); err != nil {
			return nil, err
		}
		cfg, changed, err := d.RuntimeCfg.Apply(patch)
		if err != nil {
			return nil, toolenvelope.New(toolenvelope.InvalidArgument, err.Error(), err)
		}
		return map[string]any{"config": cfg, "changed": changed}, nil
	}
}

// -- recall_recent_work ------------------------------------------------

type recallRecentWorkInput struct {
	Repository  string `json:"repository"`
	Days        int    `json:"days"`
	Limit       int    `json:"limit"`
	IncludeCode bool   `json:"include_code"`
}

func recallRecentWorkHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in recallRecentWorkInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		if in.Repository == "" {
			return nil, toolenvelope.New(toolenvelope.InvalidArgument, "repository is required", nil)
		}
		return d.Orient.Recall(ctx, orient.RecallInput{
			Repository: in.Repository, Days: in.Days, Limit: in.Limit, IncludeCode: in.IncludeCode,
		})
	}
}

// -- capture_session ---------------------------------------------------

type captureSessionInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Repository     string `json:"repository"`
}

// captureSessionHandler is the hook-facing entry point into the
// session-capture queue (spec §4.8): score significance, enqueue if
// significant and not a duplicate, then either return immediately (`async`,
// the default) or block until the worker processes this job (`sync`).
func captureSessionHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in captureSessionInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		if in.SessionID == "" || in.TranscriptPath == "" {
			return nil, toolenvelope.New(toolenvelope.InvalidArgument, "session_id and transcript_path are required", nil)
		}

		cfg := d.RuntimeCfg.Get()
		if !cfg.Autocapture.Enabled {
			return map[string]any{"enqueued": false, "reason": "autocapture disabled"}, nil
		}

		transcript, err := capture.ParseTranscript(in.TranscriptPath)
		if err != nil {
			return nil, toolenvelope.New(toolenvelope.Unavailable, "reading transcript: "+err.Error(), err)
		}
		th := capture.Thresholds{
			MinTokens: cfg.Autocapture.MinTokens, MinToolCalls: cfg.Autocapture.MinToolCalls,
			MinFileEdits: cfg.Autocapture.MinFileEdits,
		}
		if !capture.Significant(transcript, th) {
			return map[string]any{"enqueued": false, "reason": "below significance threshold"}, nil
		}

		job, enqueued, err := d.Capture.Enqueue(in.SessionID, in.TranscriptPath, in.Repository)
		if err != nil {
			return nil, err
		}
		if !enqueued {
			return map[string]any{"enqueued": false, "reason": "duplicate session fingerprint"}, nil
		}

		if cfg.Autocapture.Async {
			return map[string]any{"enqueued": true, "mode": "async", "fingerprint": job.Fingerprint}, nil
		}

		processed, err := d.CaptureWorker.ProcessSync(ctx, time.Duration(cfg.Autocapture.SyncTimeout)*time.Second)
		if err != nil {
			return nil, toolenvelope.New(toolenvelope.Unavailable, "sync capture failed: "+err.Error(), err)
		}
		return map[string]any{"enqueued": true, "mode": "sync", "processed": processed, "fingerprint": job.Fingerprint}, nil
	}
}

// -- get_version ------------------------------------------------------

type getVersionInput struct {
	ExpectedCommit string `json:"expected_commit"`
}

// BuildInfo is populated at link time by the composition root (cmd/navigatord).
var BuildInfo = struct {
	Version string
	Commit  string
}{Version: "dev", Commit: "unknown"}

func getVersionHandler(d Deps) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in getVersionInput
		if err := decode(raw, &in); err != nil {
			return nil, err
		}
		schemaVersion, err := d.Migrations.CurrentVersion()
		if err != nil {
			return nil, err
		}
		needsRebuild := in.ExpectedCommit != "" && in.ExpectedCommit != BuildInfo.Commit
		return map[string]any{
			"version":        BuildInfo.Version,
			"commit":         BuildInfo.Commit,
			"schema_version": schemaVersion,
			"needs_rebuild":  needsRebuild,
		}, nil
	}
}
