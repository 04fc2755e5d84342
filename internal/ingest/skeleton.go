package ingest

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SkeletonMaxDepth bounds the rendered tree's depth (spec §4.6).
const SkeletonMaxDepth = 6

// Skeleton is the rendered directory tree plus its summary counts.
type Skeleton struct {
	Tree       string
	TotalFiles int
	TotalDirs  int
	TotalLines int
}

type treeNode struct {
	name     string
	isDir    bool
	absPath  string
	children []*treeNode
}

// BuildSkeleton renders an ASCII directory tree of root using the same
// ignore filters as the walker (spec §4.6), bounded to SkeletonMaxDepth.
func BuildSkeleton(root string, rules *IgnoreRules) (Skeleton, error) {
	files, err := Walk(root, rules)
	if err != nil {
		return Skeleton{}, err
	}

	rootNode := &treeNode{name: filepath.Base(root), isDir: true}
	dirSet := map[string]*treeNode{"": rootNode}
	totalLines := 0

	for _, f := range files {
		dir := filepath.Dir(f.RelPath)
		if dir == "." {
			dir = ""
		}
		parent := ensureDir(dirSet, rootNode, dir)
		parent.children = append(parent.children, &treeNode{name: filepath.Base(f.RelPath), absPath: f.AbsPath})
		totalLines += countLines(f.AbsPath)
	}

	var sb strings.Builder
	sb.WriteString(rootNode.name + "/\n")
	renderChildren(&sb, rootNode, "", 1)

	return Skeleton{
		Tree:       sb.String(),
		TotalFiles: len(files),
		TotalDirs:  len(dirSet) - 1,
		TotalLines: totalLines,
	}, nil
}

func ensureDir(dirSet map[string]*treeNode, root *treeNode, dir string) *treeNode {
	if n, ok := dirSet[dir]; ok {
		return n
	}
	parentPath := filepath.Dir(dir)
	if parentPath == "." {
		parentPath = ""
	}
	parent := ensureDir(dirSet, root, parentPath)
	node := &treeNode{name: filepath.Base(dir), isDir: true}
	parent.children = append(parent.children, node)
	dirSet[dir] = node
	return node
}

func renderChildren(sb *strings.Builder, node *treeNode, prefix string, depth int) {
	if depth > SkeletonMaxDepth {
		return
	}
	children := append([]*treeNode{}, node.children...)
	sort.Slice(children, func(i, j int) bool {
		if children[i].isDir != children[j].isDir {
			return children[i].isDir
		}
		return children[i].name < children[j].name
	})
	for i, c := range children {
		last := i == len(children)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		name := c.name
		if c.isDir {
			name += "/"
		}
		sb.WriteString(prefix + connector + name + "\n")
		if c.isDir {
			renderChildren(sb, c, childPrefix, depth+1)
		}
	}
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
	}
	return n
}
