// Package processors holds the post-processors kiln applies to rendered
// files.
package processors

import (
	"fmt"
	"go/format"
	"path"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/cpcf/kiln/postprocess"
)

// GoImports fixes imports and formats rendered .go files. Templates that
// emit Go code can use loose whitespace and leave imports unsorted.
type GoImports struct {
	TabWidth  int
	TabIndent bool
	// AllErrors reports every syntax error instead of the first.
	AllErrors bool
}

func NewGoImports() *GoImports {
	return &GoImports{
		TabWidth:  8,
		TabIndent: true,
	}
}

func (g *GoImports) ProcessContent(filePath string, content []byte) ([]byte, error) {
	if !isGoFile(filePath) {
		return content, nil
	}

	options := &imports.Options{
		AllErrors: g.AllErrors,
		Comments:  true,
		TabIndent: g.TabIndent,
		TabWidth:  g.TabWidth,
	}

	formatted, err := imports.Process(filePath, content, options)
	if err != nil {
		// goimports needs a resolvable file; gofmt only needs valid syntax.
		formatted, fmtErr := format.Source(content)
		if fmtErr != nil {
			return nil, fmt.Errorf("format %s: goimports: %w; gofmt: %w", filePath, err, fmtErr)
		}
		return formatted, nil
	}

	return formatted, nil
}

func isGoFile(filePath string) bool {
	return strings.EqualFold(path.Ext(filePath), ".go")
}

// Default returns the chain applied to every bake unless the caller
// supplies its own. Only .go files are changed.
func Default() *postprocess.Chain {
	return postprocess.NewChain(NewGoImports())
}
