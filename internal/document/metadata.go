package document

import "time"

// Metadata is the discriminated payload attached to a Document. Exactly one
// of the type-specific fields is populated, matching Common.Type.
type Metadata struct {
	FileMetadata *FileMetadata `json:"file_metadata,omitempty"`
	Dependency   *Dependency   `json:"dependency,omitempty"`
	Skeleton     *Skeleton     `json:"skeleton,omitempty"`

	EntryPoint   *EntryPoint   `json:"entry_point,omitempty"`
	DataContract *DataContract `json:"data_contract,omitempty"`
	Idiom        *Idiom        `json:"idiom,omitempty"`

	Note           *Note           `json:"note,omitempty"`
	SessionSummary *SessionSummary `json:"session_summary,omitempty"`
	Insight        *Insight        `json:"insight,omitempty"`
	TechStack      *TechStack      `json:"tech_stack,omitempty"`
	Initiative     *Initiative     `json:"initiative,omitempty"`
}

// FileMetadata describes a single indexed source file.
type FileMetadata struct {
	FilePath    string   `json:"file_path"`
	Language    string   `json:"language"`
	Description string   `json:"description,omitempty"`
	Exports     []string `json:"exports,omitempty"` // capped at 20
	IsEntryPoint bool    `json:"is_entry_point"`
	IsBarrel    bool     `json:"is_barrel"`
	IsTest      bool     `json:"is_test"`
	IsConfig    bool     `json:"is_config"`
	FileHash    string   `json:"file_hash"`
}

// Dependency describes a file's position in the import graph.
type Dependency struct {
	FilePath   string     `json:"file_path"`
	Imports    []string   `json:"imports,omitempty"`
	ImportedBy []string   `json:"imported_by,omitempty"`
	ImportCount int       `json:"import_count"`
	ImportedByCount int   `json:"imported_by_count"`
	ImpactTier ImpactTier `json:"impact_tier"`
}

// Skeleton is the singleton directory-tree summary per (repo, branch).
type Skeleton struct {
	Tree       string `json:"tree"`
	TotalFiles int    `json:"total_files"`
	TotalDirs  int    `json:"total_dirs"`
	TotalLines int    `json:"total_lines"`
}

// Trigger is a structured entry-point invocation description.
type Trigger struct {
	Method string `json:"method,omitempty"` // HTTP method, for api_route
	Route  string `json:"route,omitempty"`
	Event  string `json:"event,omitempty"`
}

// EntryPoint describes a program/request entry.
type EntryPoint struct {
	FilePath  string    `json:"file_path"`
	EntryType EntryType `json:"entry_type"`
	Triggers  []Trigger `json:"triggers,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

// Field is a named, typed member of a data contract.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DataContract describes a named type/schema.
type DataContract struct {
	FilePath        string   `json:"file_path"`
	Name            string   `json:"name"`
	ContractType    string   `json:"contract_type"`
	Fields          []Field  `json:"fields,omitempty"` // capped at 20
	ValidationRules []string `json:"validation_rules,omitempty"`
}

// Idiom is a gold-standard pattern with related files.
type Idiom struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	RelatedFiles  []string `json:"related_files,omitempty"`
}

// Note is a free-form decision/doc memory document.
type Note struct {
	Tags           []string `json:"tags,omitempty"`
	InitiativeID   string   `json:"initiative_id,omitempty"`
	InitiativeName string   `json:"initiative_name,omitempty"`
}

// SessionSummary is an end-of-session narrative.
type SessionSummary struct {
	Files          []string `json:"files,omitempty"`
	InitiativeID   string   `json:"initiative_id,omitempty"`
	InitiativeName string   `json:"initiative_name,omitempty"`
	SessionID      string   `json:"session_id,omitempty"`
}

// Insight is an analysis anchored to a set of files, tracked for staleness.
type Insight struct {
	Files                []string         `json:"files"` // non-empty, enforced at save
	FileHashes           map[string]string `json:"file_hashes,omitempty"`
	LastValidationResult ValidationResult  `json:"last_validation_result,omitempty"`
	ValidationNotes      string            `json:"validation_notes,omitempty"`
	ValidatedCommit      string            `json:"validated_commit,omitempty"`
	VerifiedAt           time.Time         `json:"verified_at,omitempty"`
	DeprecatedAt         time.Time         `json:"deprecated_at,omitempty"`
	DeprecationReason     string           `json:"deprecation_reason,omitempty"`
	SupersededBy          string           `json:"superseded_by,omitempty"`
	InitiativeID          string           `json:"initiative_id,omitempty"`
	InitiativeName        string           `json:"initiative_name,omitempty"`
}

// TechStack is the singleton repository-context document per repo.
type TechStack struct {
	Languages    []string `json:"languages,omitempty"`
	Frameworks   []string `json:"frameworks,omitempty"`
	Tooling      []string `json:"tooling,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// Initiative is a multi-session workstream that tags memory documents.
type Initiative struct {
	Name              string    `json:"name"`
	Goal              string    `json:"goal,omitempty"`
	Focused           bool      `json:"focused"`
	CompletedAt       time.Time `json:"completed_at,omitempty"`
	CompletionSummary string    `json:"completion_summary,omitempty"`
}
