package document

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// NewID builds a deterministic "<type>:<hash>" ID from a type and a seed
// string (typically a file path, or path+chunk-index for chunk documents).
// Two calls with the same type and seed always produce the same ID, which is
// what makes re-ingestion an upsert rather than a duplicate insert.
func NewID(t Type, seed string) string {
	return fmt.Sprintf("%s:%s", t, shortHash(seed))
}

// SkeletonID returns the singleton skeleton ID for (repo, branch).
func SkeletonID(repo, branch string) string {
	return fmt.Sprintf("%s:%s:skeleton", repo, branch)
}

// TechStackID returns the singleton tech_stack ID for a repo.
func TechStackID(repo string) string {
	return fmt.Sprintf("%s:tech_stack", repo)
}

// ChunkID returns the deterministic ID for a content chunk.
func ChunkID(repo, path string, index int) string {
	return fmt.Sprintf("%s:%s:%d", repo, path, index)
}

// ExtractID pulls the "id" field out of a JSON-encoded Document without
// decoding the rest of it, for backends (internal/qstore) whose native point
// ID can't hold the document ID directly and so need it back out of the
// stored payload cheaply.
func ExtractID(rawJSON string) string {
	var partial struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &partial); err != nil {
		return ""
	}
	return partial.ID
}

func shortHash(seed string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	full := fmt.Sprintf("%016x", h.Sum64())
	return full[:12]
}
