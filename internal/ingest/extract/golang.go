package extract

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/devmemory/navigator/internal/document"
)

// GoExtractor extracts exports, imports, and entry points from Go source
// using the standard library parser. go/parser+go/ast is stdlib, not a
// third-party dependency — justified in DESIGN.md: no example repo in the
// pack carries a multi-language or Go-specific AST library, and go/ast is
// the only correct way to parse Go syntax (a regex-based heuristic, used
// for the other languages here, would misparse strings/comments containing
// "func"/"type").
type GoExtractor struct{}

func (GoExtractor) Language() string { return "go" }

func (GoExtractor) Extract(path, content string) (Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, imp := range file.Imports {
		res.Imports = append(res.Imports, strings.Trim(imp.Path.Value, `"`))
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && ast.IsExported(d.Name.Name) {
				res.Exports = append(res.Exports, d.Name.Name)
			}
			if d.Name.Name == "main" && file.Name.Name == "main" {
				res.IsEntryPoint = true
				res.EntryPoint = &document.EntryPoint{
					FilePath:  path,
					EntryType: document.EntryMain,
					Summary:   "package main entry point",
				}
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if ast.IsExported(s.Name.Name) {
						res.Exports = append(res.Exports, s.Name.Name)
						if st, ok := s.Type.(*ast.StructType); ok {
							res.DataContracts = append(res.DataContracts, structContract(path, s.Name.Name, st))
						}
					}
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if ast.IsExported(name.Name) {
							res.Exports = append(res.Exports, name.Name)
						}
					}
				}
			}
		}
		if len(res.Exports) >= 20 {
			break
		}
	}
	return res, nil
}

func structContract(path, name string, st *ast.StructType) document.DataContract {
	var fields []document.Field
	if st.Fields != nil {
		for _, f := range st.Fields.List {
			typeName := exprString(f.Type)
			if len(f.Names) == 0 {
				fields = append(fields, document.Field{Name: typeName, Type: typeName})
				continue
			}
			for _, n := range f.Names {
				if len(fields) >= 20 {
					break
				}
				fields = append(fields, document.Field{Name: n.Name, Type: typeName})
			}
		}
	}
	return document.DataContract{
		FilePath:     path,
		Name:         name,
		ContractType: "struct",
		Fields:       fields,
	}
}

func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	default:
		return "unknown"
	}
}

var _ LanguageExtractor = GoExtractor{}
