package document

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument is wrapped by every validation failure returned from
// Validate, so callers can classify it with errors.Is without parsing strings.
var ErrInvalidDocument = errors.New("invalid document")

// Validate enforces the taxonomy invariants from spec §3 that apply to any
// single document in isolation (cross-document invariants like "at most one
// skeleton per repo/branch" are enforced by the store layer that has visibility
// across documents).
func Validate(d Document) error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDocument)
	}
	if !d.Common.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDocument, d.Common.Type)
	}
	if d.Common.Status == "" {
		d.Common.Status = StatusActive
	}
	if d.Common.Status != StatusActive && d.Common.Status != StatusDeprecated {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidDocument, d.Common.Status)
	}
	if d.Common.Branch == "" {
		return fmt.Errorf("%w: branch is required", ErrInvalidDocument)
	}

	switch d.Common.Type {
	case TypeInsight:
		if d.Metadata.Insight == nil || len(d.Metadata.Insight.Files) == 0 {
			return fmt.Errorf("%w: insight requires a non-empty files list", ErrInvalidDocument)
		}
		if len(d.Metadata.Insight.FileHashes) > len(d.Metadata.Insight.Files) {
			return fmt.Errorf("%w: insight has more file_hashes than files", ErrInvalidDocument)
		}
		if d.Metadata.Insight.Status() == StatusDeprecated && d.Metadata.Insight.SupersededBy != "" {
			// Referential integrity (replacement exists) is checked by the
			// memory package at write time, where the store is reachable.
		}
	case TypeFileMetadata:
		if d.Metadata.FileMetadata == nil {
			return fmt.Errorf("%w: file_metadata requires metadata", ErrInvalidDocument)
		}
		if len(d.Metadata.FileMetadata.Exports) > 20 {
			d.Metadata.FileMetadata.Exports = d.Metadata.FileMetadata.Exports[:20]
		}
	case TypeDataContract:
		if d.Metadata.DataContract != nil && len(d.Metadata.DataContract.Fields) > 20 {
			d.Metadata.DataContract.Fields = d.Metadata.DataContract.Fields[:20]
		}
	}
	return nil
}

// Status returns the insight's effective lifecycle status, inferred from its
// deprecation fields since Insight itself has no Status field (that lives on
// Common).
func (i *Insight) Status() Status {
	if !i.DeprecatedAt.IsZero() {
		return StatusDeprecated
	}
	return StatusActive
}
