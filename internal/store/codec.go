package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/devmemory/navigator/internal/document"
)

// chromem-go stores metadata as flat map[string]string. We keep the full
// typed document round-trippable under "doc_json" and duplicate the handful
// of fields that Where predicates and native chromem filtering need directly
// as flat keys, so simple equality filters can be pushed down to the backend
// without a JSON decode per candidate.
const (
	metaKeyDocJSON       = "doc_json"
	metaKeyType          = "type"
	metaKeyRepository    = "repository"
	metaKeyBranch        = "branch"
	metaKeyStatus        = "status"
	metaKeyFilePath      = "file_path"
	metaKeyInitiativeID  = "initiative_id"
	metaKeyCreatedAtUnix = "created_at_unix"
)

// Flatten converts a document.Document into a text + flat string-metadata
// representation. Shared by every Store backend (chromem-go's native
// metadata map, internal/qstore's Qdrant payload) so there is exactly one
// place that knows how a document.Document maps onto flat storage.
func Flatten(d document.Document) (text string, meta map[string]string, err error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return "", nil, fmt.Errorf("encoding document %s: %w", d.ID, err)
	}

	meta = map[string]string{
		metaKeyDocJSON:       string(payload),
		metaKeyType:          string(d.Common.Type),
		metaKeyRepository:    d.Common.Repository,
		metaKeyBranch:        d.Common.Branch,
		metaKeyStatus:        string(d.Common.Status),
		metaKeyCreatedAtUnix: fmt.Sprintf("%d", d.Common.CreatedAt.Unix()),
	}

	switch d.Common.Type {
	case document.TypeFileMetadata:
		if fm := d.Metadata.FileMetadata; fm != nil {
			meta[metaKeyFilePath] = fm.FilePath
		}
	case document.TypeDependency:
		if dep := d.Metadata.Dependency; dep != nil {
			meta[metaKeyFilePath] = dep.FilePath
		}
	case document.TypeEntryPoint:
		if ep := d.Metadata.EntryPoint; ep != nil {
			meta[metaKeyFilePath] = ep.FilePath
		}
	case document.TypeDataContract:
		if dc := d.Metadata.DataContract; dc != nil {
			meta[metaKeyFilePath] = dc.FilePath
		}
	case document.TypeNote:
		if n := d.Metadata.Note; n != nil {
			meta[metaKeyInitiativeID] = n.InitiativeID
		}
	case document.TypeSessionSummary:
		if ss := d.Metadata.SessionSummary; ss != nil {
			meta[metaKeyInitiativeID] = ss.InitiativeID
		}
	case document.TypeInsight:
		if ins := d.Metadata.Insight; ins != nil {
			meta[metaKeyInitiativeID] = ins.InitiativeID
		}
	}

	return d.Text, meta, nil
}

// Unflatten reconstructs the typed document from a backend's flat metadata
// map. It prefers the full doc_json payload, falling back to synthesizing a
// bare document from flat fields if doc_json is missing (legacy/partial
// data).
func Unflatten(id, content string, meta map[string]string) (document.Document, error) {
	if raw, ok := meta[metaKeyDocJSON]; ok && raw != "" {
		var d document.Document
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return document.Document{}, fmt.Errorf("decoding document %s: %w", id, err)
		}
		return d, nil
	}

	createdAt := time.Now()
	return document.Document{
		ID:   id,
		Text: content,
		Common: document.Common{
			Type:       document.Type(meta[metaKeyType]),
			Repository: meta[metaKeyRepository],
			Branch:     meta[metaKeyBranch],
			Status:     document.Status(meta[metaKeyStatus]),
			CreatedAt:  createdAt,
		},
	}, nil
}
