// Package extract implements the pluggable per-language metadata extractor
// registry (spec §4.5 step 4, §9 "language extractors → capability
// registry"): exports, imports, entry-point detection, and data-contract
// shapes. Registration is explicit at startup; languages without a
// registered extractor degrade to navigation-only (file_metadata and
// dependency documents still get written, just without exports/contracts).
package extract

import "github.com/devmemory/navigator/internal/document"

// Result is everything a LanguageExtractor can contribute for one file.
type Result struct {
	Exports      []string
	Imports      []string
	IsEntryPoint bool
	EntryPoint   *document.EntryPoint
	DataContracts []document.DataContract
}

// LanguageExtractor is the capability a registered language implements.
// Grounded on the teacher's extraction.DecisionExtractor/Summarizer
// capability-registry pattern (internal/extraction/types.go): a narrow
// interface registered explicitly per language, rather than dispatched by
// a switch on file extension scattered through the ingestion pipeline.
type LanguageExtractor interface {
	// Language is the identifier this extractor registers under (matches
	// file_metadata.language).
	Language() string
	// Extract analyzes a single file's content and path.
	Extract(path, content string) (Result, error)
}

// Registry maps a detected language to its extractor.
type Registry struct {
	extractors map[string]LanguageExtractor
}

// NewRegistry returns an empty registry; callers Register each supported
// language explicitly at startup.
func NewRegistry() *Registry {
	return &Registry{extractors: map[string]LanguageExtractor{}}
}

// Register adds e under e.Language().
func (r *Registry) Register(e LanguageExtractor) {
	r.extractors[e.Language()] = e
}

// For returns the extractor registered for language, and whether one exists.
func (r *Registry) For(language string) (LanguageExtractor, bool) {
	e, ok := r.extractors[language]
	return e, ok
}

// Default returns a registry with the Go AST extractor and the regex-based
// heuristic extractor wired for the languages the heuristic table covers.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&GoExtractor{})
	for _, lang := range []string{"python", "javascript", "typescript"} {
		r.Register(NewHeuristicExtractor(lang))
	}
	return r
}
