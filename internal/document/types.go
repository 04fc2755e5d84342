// Package document defines the document taxonomy stored in the vector
// collection: the eleven typed documents, their category membership, and
// the tables that drive branch filtering, type scoring, and recency
// boosting during search.
package document

import "time"

// Type is the closed set of document kinds the collection can hold.
type Type string

const (
	TypeFileMetadata   Type = "file_metadata"
	TypeDependency     Type = "dependency"
	TypeSkeleton       Type = "skeleton"
	TypeEntryPoint     Type = "entry_point"
	TypeDataContract   Type = "data_contract"
	TypeIdiom          Type = "idiom"
	TypeNote           Type = "note"
	TypeSessionSummary Type = "session_summary"
	TypeInsight        Type = "insight"
	TypeTechStack      Type = "tech_stack"
	TypeInitiative     Type = "initiative"
)

// AllTypes lists every known document type.
var AllTypes = []Type{
	TypeFileMetadata, TypeDependency, TypeSkeleton,
	TypeEntryPoint, TypeDataContract, TypeIdiom,
	TypeNote, TypeSessionSummary, TypeInsight, TypeTechStack, TypeInitiative,
}

// Valid reports whether t is one of the eleven known types.
func (t Type) Valid() bool {
	_, ok := categoryOf[t]
	return ok
}

// Category groups document types into the three conceptual tiers.
type Category string

const (
	CategoryNavigation Category = "navigation"
	CategoryUsage      Category = "usage"
	CategoryMemory     Category = "memory"
)

var categoryOf = map[Type]Category{
	TypeFileMetadata: CategoryNavigation,
	TypeDependency:   CategoryNavigation,
	TypeSkeleton:     CategoryNavigation,

	TypeEntryPoint:   CategoryUsage,
	TypeDataContract: CategoryUsage,
	TypeIdiom:        CategoryUsage,

	TypeNote:          CategoryMemory,
	TypeSessionSummary: CategoryMemory,
	TypeInsight:        CategoryMemory,
	TypeTechStack:      CategoryMemory,
	TypeInitiative:     CategoryMemory,
}

// Category returns the category of t, or "" if t is not a known type.
func (t Type) Category() Category {
	return categoryOf[t]
}

// branchFiltered is the set of types whose documents only apply to the
// branch they were ingested under (spec §4.3 step 2).
var branchFiltered = map[Type]bool{
	TypeSkeleton:     true,
	TypeFileMetadata: true,
	TypeDataContract: true,
	TypeEntryPoint:   true,
	TypeDependency:   true,
}

// IsBranchFiltered reports whether documents of type t are scoped to a branch.
func IsBranchFiltered(t Type) bool {
	return branchFiltered[t]
}

// TypeMultipliers are the score multipliers applied at the type-shaping step
// of the hybrid retrieval pipeline (spec §4.3 step 6): "code can be grepped,
// understanding cannot."
var TypeMultipliers = map[Type]float64{
	TypeInsight:        2.0,
	TypeNote:           1.5,
	TypeSessionSummary: 1.5,
	TypeEntryPoint:     1.4,
	TypeFileMetadata:   1.3,
	TypeDataContract:   1.3,
	TypeIdiom:          1.3,
	TypeTechStack:      1.2,
	TypeDependency:     1.0,
	TypeSkeleton:       1.0,
	TypeInitiative:     1.0,
}

// recencyEligible is the set of types the recency boost applies to
// (spec §4.3 step 7).
var recencyEligible = map[Type]bool{
	TypeNote:           true,
	TypeSessionSummary: true,
}

// IsRecencyEligible reports whether documents of type t receive the recency boost.
func IsRecencyEligible(t Type) bool {
	return recencyEligible[t]
}

// Status is the document lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
)

// UnknownBranch is the sentinel written when a branch cannot be detected.
const UnknownBranch = "unknown"

// ImpactTier classifies a file's blast radius from its import-graph fan-in.
type ImpactTier string

const (
	ImpactHigh   ImpactTier = "high"   // imported_by > 5
	ImpactMedium ImpactTier = "medium" // imported_by 2-5
	ImpactLow    ImpactTier = "low"    // imported_by 0-1
)

// ImpactTierFor classifies importedByCount per spec §3.
func ImpactTierFor(importedByCount int) ImpactTier {
	switch {
	case importedByCount > 5:
		return ImpactHigh
	case importedByCount >= 2:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// EntryType enumerates recognized entry-point kinds.
type EntryType string

const (
	EntryMain         EntryType = "main"
	EntryAPIRoute     EntryType = "api_route"
	EntryCLI          EntryType = "cli"
	EntryEventHandler EntryType = "event_handler"
)

// ValidationResult is the outcome of validating an insight against its
// anchored files (spec §4.7).
type ValidationResult string

const (
	ValidationStillValid     ValidationResult = "still_valid"
	ValidationPartiallyValid ValidationResult = "partially_valid"
	ValidationNoLongerValid  ValidationResult = "no_longer_valid"
)

// Common holds the metadata fields every document carries.
type Common struct {
	Type       Type      `json:"type"`
	Repository string    `json:"repository"`
	Branch     string    `json:"branch"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Document is a single stored unit: identity, body text, and typed metadata.
// The store is a single flat collection; typing and scoping live entirely in
// Metadata, never in separate collections.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Common   Common   `json:"common"`
	Metadata Metadata `json:"metadata"`
}
