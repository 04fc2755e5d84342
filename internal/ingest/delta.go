package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ChangeKind classifies one delta entry.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// Change is one file's delta against the last recorded ingestion state.
type Change struct {
	Kind    ChangeKind
	Path    string // new path (renamed: the destination)
	OldPath string // renamed only
}

// state is the per-(repo,branch) ingestion bookkeeping persisted to disk,
// used by both the git-unavailable content-hash strategy and to remember
// the last indexed commit when git is available.
type state struct {
	LastCommit string            `json:"last_commit,omitempty"`
	FileHashes map[string]string `json:"file_hashes,omitempty"`
}

// StatePath returns the state file path for (repo, branch) under dataDir.
func StatePath(dataDir, repo, branch string) string {
	return filepath.Join(dataDir, "ingest-state", fmt.Sprintf("%s_%s.json", repo, branch))
}

func loadState(path string) (*state, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &state{FileHashes: map[string]string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.FileHashes == nil {
		s.FileHashes = map[string]string{}
	}
	return &s, nil
}

// saveState persists state atomically (write-temp + rename), matching the
// migration runner's schema_version.json discipline (spec §4.9).
func saveState(path string, s *state) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// DetectBranch resolves the current git branch for path, or
// document.UnknownBranch if it can't be determined. Grounded on the
// teacher's detectGitBranch (internal/repository/service.go and
// pkg/checkpoint/branch.go).
func DetectBranch(path string) string {
	repo, err := openRepo(path)
	if err != nil {
		return "unknown"
	}
	head, err := repo.Head()
	if err != nil {
		return "unknown"
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	if head.Type() == plumbing.HashReference {
		h := head.Hash().String()
		if len(h) > 8 {
			h = h[:8]
		}
		return h
	}
	return "unknown"
}

func openRepo(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	for parent := filepath.Dir(path); parent != "/" && parent != "."; parent = filepath.Dir(parent) {
		if repo, err = git.PlainOpen(parent); err == nil {
			return repo, nil
		}
	}
	return nil, err
}

// gitNameStatus diffs lastCommit..HEAD and returns a Change per path,
// classifying renames via go-git's tree-diff rename detection.
func gitNameStatus(repo *git.Repository, lastCommit string) ([]Change, error) {
	headRef, err := repo.Head()
	if err != nil {
		return nil, err
	}
	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, err
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}

	var baseTree *object.Tree
	if lastCommit != "" {
		baseCommit, err := repo.CommitObject(plumbing.NewHash(lastCommit))
		if err == nil {
			baseTree, _ = baseCommit.Tree()
		}
	}

	var patch *object.Patch
	if baseTree != nil {
		patch, err = baseTree.Patch(headTree)
	} else {
		patch, err = (&object.Tree{}).Patch(headTree)
	}
	if err != nil {
		return nil, err
	}

	var changes []Change
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		switch {
		case from == nil && to != nil:
			changes = append(changes, Change{Kind: ChangeAdded, Path: to.Path()})
		case from != nil && to == nil:
			changes = append(changes, Change{Kind: ChangeDeleted, Path: from.Path()})
		case from != nil && to != nil && from.Path() != to.Path():
			changes = append(changes, Change{Kind: ChangeRenamed, Path: to.Path(), OldPath: from.Path()})
		case from != nil && to != nil:
			changes = append(changes, Change{Kind: ChangeModified, Path: to.Path()})
		}
	}
	return changes, nil
}

// gitUntracked lists untracked working-tree files as additions, so files
// created but not yet committed are still indexed.
func gitUntracked(repo *git.Repository) ([]Change, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	var changes []Change
	for path, s := range status {
		if s.Worktree == git.Untracked {
			changes = append(changes, Change{Kind: ChangeAdded, Path: path})
		}
	}
	return changes, nil
}

// computeDelta implements the three-tier strategy of spec §4.5 step 2: git
// name-status when available, content-hash state otherwise, full walk as
// the last resort. forceFull overrides all of it.
func computeDelta(root string, walked []WalkedFile, st *state, forceFull bool) ([]Change, string, error) {
	if forceFull {
		return fullChanges(walked), "", nil
	}

	if repo, err := openRepo(root); err == nil {
		if head, err := repo.Head(); err == nil {
			commit := head.Hash().String()
			named, err := gitNameStatus(repo, st.LastCommit)
			if err == nil {
				untracked, _ := gitUntracked(repo)
				return append(named, untracked...), commit, nil
			}
		}
	}

	if len(st.FileHashes) > 0 {
		return hashDelta(walked, st), "", nil
	}

	return fullChanges(walked), "", nil
}

func fullChanges(walked []WalkedFile) []Change {
	changes := make([]Change, len(walked))
	for i, w := range walked {
		changes[i] = Change{Kind: ChangeAdded, Path: w.RelPath}
	}
	return changes
}

func hashDelta(walked []WalkedFile, st *state) []Change {
	seen := make(map[string]bool, len(walked))
	var changes []Change
	for _, w := range walked {
		seen[w.RelPath] = true
		hash, err := ContentHash(w.AbsPath)
		if err != nil {
			continue
		}
		if prev, ok := st.FileHashes[w.RelPath]; !ok {
			changes = append(changes, Change{Kind: ChangeAdded, Path: w.RelPath})
		} else if prev != hash {
			changes = append(changes, Change{Kind: ChangeModified, Path: w.RelPath})
		}
	}
	for path := range st.FileHashes {
		if !seen[path] {
			changes = append(changes, Change{Kind: ChangeDeleted, Path: path})
		}
	}
	return changes
}
