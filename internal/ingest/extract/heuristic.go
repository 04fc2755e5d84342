package extract

import (
	"regexp"
	"strings"

	"github.com/devmemory/navigator/internal/document"
)

// pattern is a single named regex rule, matching the teacher's
// extraction.Pattern table-driven style (internal/extraction/heuristic.go,
// DefaultPatterns) rather than an ad hoc if-chain.
type pattern struct {
	name  string
	regex *regexp.Regexp
}

// HeuristicExtractor extracts exports/imports/entry-points with per-language
// regex tables, grounded on the teacher's HeuristicExtractor
// (internal/extraction/heuristic.go): compiled pattern list, matched in
// order, first-match-wins per construct. Used for languages without a full
// AST parser in the pack.
type HeuristicExtractor struct {
	language     string
	exportRules  []pattern
	importRules  []pattern
	entryRules   []pattern
}

// NewHeuristicExtractor builds the rule table for one of "python",
// "javascript", or "typescript".
func NewHeuristicExtractor(language string) *HeuristicExtractor {
	switch language {
	case "python":
		return &HeuristicExtractor{
			language: language,
			exportRules: []pattern{
				{"def", regexp.MustCompile(`(?m)^def\s+([A-Za-z_]\w*)\s*\(`)},
				{"class", regexp.MustCompile(`(?m)^class\s+([A-Za-z_]\w*)`)},
			},
			importRules: []pattern{
				{"import", regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)},
				{"from", regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import`)},
			},
			entryRules: []pattern{
				{"main", regexp.MustCompile(`if\s+__name__\s*==\s*['"]__main__['"]`)},
			},
		}
	default: // javascript / typescript
		return &HeuristicExtractor{
			language: language,
			exportRules: []pattern{
				{"named", regexp.MustCompile(`(?m)^export\s+(?:async\s+)?function\s+([A-Za-z_$]\w*)`)},
				{"class", regexp.MustCompile(`(?m)^export\s+class\s+([A-Za-z_$]\w*)`)},
				{"const", regexp.MustCompile(`(?m)^export\s+const\s+([A-Za-z_$]\w*)`)},
				{"default", regexp.MustCompile(`(?m)^export\s+default\s+(?:function\s+)?([A-Za-z_$]\w*)?`)},
			},
			importRules: []pattern{
				{"import", regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+['"]([^'"]+)['"]`)},
				{"require", regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)},
			},
			entryRules: []pattern{
				{"handler", regexp.MustCompile(`(?m)^export\s+(?:const|function)\s+handler\b`)},
				{"route", regexp.MustCompile(`\.(get|post|put|delete|patch)\(\s*['"]([^'"]+)['"]`)},
			},
		}
	}
}

func (h *HeuristicExtractor) Language() string { return h.language }

func (h *HeuristicExtractor) Extract(path, content string) (Result, error) {
	var res Result

	for _, p := range h.exportRules {
		for _, m := range p.regex.FindAllStringSubmatch(content, -1) {
			if len(m) > 1 && m[1] != "" {
				res.Exports = append(res.Exports, m[1])
			}
			if len(res.Exports) >= 20 {
				break
			}
		}
	}

	seen := map[string]bool{}
	for _, p := range h.importRules {
		for _, m := range p.regex.FindAllStringSubmatch(content, -1) {
			if len(m) > 1 && !seen[m[1]] {
				seen[m[1]] = true
				res.Imports = append(res.Imports, m[1])
			}
		}
	}

	for _, p := range h.entryRules {
		if m := p.regex.FindStringSubmatch(content); m != nil {
			res.IsEntryPoint = true
			ep := &document.EntryPoint{FilePath: path}
			switch {
			case p.name == "main":
				ep.EntryType = document.EntryMain
			case p.name == "route" && len(m) > 2:
				ep.EntryType = document.EntryAPIRoute
				ep.Triggers = []document.Trigger{{Method: strings.ToUpper(m[1]), Route: m[2]}}
			default:
				ep.EntryType = document.EntryEventHandler
			}
			res.EntryPoint = ep
			break
		}
	}
	return res, nil
}

var _ LanguageExtractor = (*HeuristicExtractor)(nil)
