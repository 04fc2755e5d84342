package ingest

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultSkipDirs is the hard-coded default ignore set (spec §4.5 step 3):
// VCS directories, dependency caches, and build outputs. Adapted verbatim
// from the teacher's internal/repository.defaultSkipDirs.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true,
}

// defaultBinaryExts are skipped unconditionally during the walk.
var defaultBinaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true,
	".dll": true, ".so": true, ".dylib": true, ".bin": true, ".woff": true,
	".woff2": true, ".ttf": true, ".eot": true, ".mp4": true, ".mp3": true,
}

// ignoreFileNames are read from the project root, in addition to the global
// file at ~/.config/navigator/ignore, when use_ignore_files is set.
var ignoreFileNames = []string{".navignore", ".gitignore"}

// IgnoreRules is a gitignore-style matcher built from the hard-coded
// default set plus any user ignore files and include patterns. Adapted from
// the teacher's internal/ignore.Parser (line-by-line gitignore reading),
// generalized from a "return patterns, caller globs them" helper into a
// self-contained Match predicate the walker calls per path.
type IgnoreRules struct {
	excludeGlobs    []string
	includeGlobs    []string
	useIgnoreFiles  bool
}

// NewIgnoreRules builds the rule set for one ingestion run.
func NewIgnoreRules(root string, includePatterns []string, useIgnoreFiles bool) *IgnoreRules {
	r := &IgnoreRules{includeGlobs: includePatterns, useIgnoreFiles: useIgnoreFiles}
	if useIgnoreFiles {
		r.excludeGlobs = append(r.excludeGlobs, readGlobalIgnore()...)
		r.excludeGlobs = append(r.excludeGlobs, readProjectIgnore(root)...)
	}
	return r
}

func readGlobalIgnore() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return readIgnoreFile(filepath.Join(home, ".config", "navigator", "ignore"))
}

func readProjectIgnore(root string) []string {
	var out []string
	for _, name := range ignoreFileNames {
		out = append(out, readIgnoreFile(filepath.Join(root, name))...)
	}
	return out
}

func readIgnoreFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, toGlobPattern(line))
	}
	return patterns
}

func toGlobPattern(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "/")
	if strings.HasSuffix(pattern, "/") {
		pattern += "**"
	}
	if !strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "*") {
		pattern = "**/" + pattern
	}
	if !strings.HasSuffix(pattern, "/**") && !strings.HasSuffix(pattern, "/*") && !strings.Contains(pattern, ".") {
		pattern += "/**"
	}
	return pattern
}

// SkipDir reports whether a directory named name (not a full path) should
// never be descended into.
func (r *IgnoreRules) SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." || defaultSkipDirs[name]
}

// Excluded reports whether relPath matches a hard-coded binary extension or
// a user exclude pattern.
func (r *IgnoreRules) Excluded(relPath string) bool {
	if defaultBinaryExts[strings.ToLower(filepath.Ext(relPath))] {
		return true
	}
	base := filepath.Base(relPath)
	for _, pattern := range r.excludeGlobs {
		if globMatch(pattern, relPath) || globMatch(pattern, base) {
			return true
		}
	}
	return false
}

// Included reports whether relPath satisfies the include_patterns filter.
// OR semantics: matching any one pattern is enough. No patterns means
// everything not otherwise excluded is included.
func (r *IgnoreRules) Included(relPath string) bool {
	if len(r.includeGlobs) == 0 {
		return true
	}
	base := filepath.Base(relPath)
	for _, pattern := range r.includeGlobs {
		if globMatch(pattern, relPath) || globMatch(pattern, base) {
			return true
		}
	}
	return false
}

// globMatch matches a "**"-aware glob against a path, falling back to
// filepath.Match for simple (non-doublestar) patterns.
func globMatch(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		prefix := strings.TrimSuffix(strings.TrimSuffix(pattern, "**"), "/")
		prefix = strings.TrimPrefix(prefix, "**/")
		return prefix == "" || strings.Contains(path, prefix)
	}
	matched, _ := filepath.Match(pattern, path)
	return matched
}
