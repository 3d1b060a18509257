package engine

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/cpcf/kiln/tree"
	"github.com/cpcf/kiln/vars"
)

type OpKind int

const (
	OpMkdir OpKind = iota
	OpWrite
)

func (k OpKind) String() string {
	if k == OpMkdir {
		return "mkdir"
	}
	return "write"
}

// Operation is one step of a plan. Path is slash separated and relative to
// the project directory.
type Operation struct {
	Kind     OpKind
	Path     string
	Source   string
	Content  []byte
	Mode     fs.FileMode
	Verbatim bool
}

// Plan is a fully rendered template: the project directory name and the
// operations that create its contents, parents before children.
type Plan struct {
	Root       string
	Operations []Operation
}

// Files returns the paths of the files the plan writes.
func (p *Plan) Files() []string {
	var files []string
	for _, op := range p.Operations {
		if op.Kind == OpWrite {
			files = append(files, op.Path)
		}
	}
	return files
}

const binarySniffLen = 8 << 10

// IsBinary reports whether content has a NUL byte in its first 8 KiB.
func IsBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

// Plan renders root against vctx without touching the file system.
// Disabled nodes and nodes whose name renders empty are left out with
// their subtrees.
func (e *Engine) Plan(root *tree.Node, vctx vars.Context) (*Plan, error) {
	name, err := e.renderName(root, vctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &RenderError{Path: root.Name, Err: fmt.Errorf("project directory name renders empty")}
	}

	p := &planner{engine: e, vctx: vctx, seen: make(map[string]string)}
	for _, child := range root.Children {
		if err := p.visit(child, ""); err != nil {
			return nil, err
		}
	}
	return &Plan{Root: name, Operations: p.ops}, nil
}

type planner struct {
	engine *Engine
	vctx   vars.Context
	ops    []Operation
	seen   map[string]string
}

func (p *planner) visit(n *tree.Node, parent string) error {
	if n.EnabledWhen != nil {
		enabled, err := n.EnabledWhen.Eval(p.vctx)
		if err != nil {
			return &RenderError{Path: n.Path, Err: err}
		}
		if !enabled {
			p.engine.logger.Debug().Str("path", n.Path).Stringer("when", n.EnabledWhen).Msg("disabled, skipping")
			return nil
		}
	}

	name, err := p.engine.renderName(n, p.vctx)
	if err != nil {
		return err
	}
	if name == "" {
		p.engine.logger.Debug().Str("path", n.Path).Msg("name renders empty, skipping")
		return nil
	}

	out := path.Join(parent, name)
	if prev, ok := p.seen[out]; ok {
		return &RenderError{Path: n.Path, Err: fmt.Errorf("renders to %s, already produced by %s", out, prev)}
	}
	p.seen[out] = n.Path

	if n.IsDir() {
		p.ops = append(p.ops, Operation{Kind: OpMkdir, Path: out, Source: n.Path, Mode: 0o755})
		for _, child := range n.Children {
			if err := p.visit(child, out); err != nil {
				return err
			}
		}
		return nil
	}

	op := Operation{Kind: OpWrite, Path: out, Source: n.Path, Mode: 0o644}
	if n.Mode&0o111 != 0 {
		op.Mode = 0o755
	}

	if n.Verbatim || IsBinary(n.Content) {
		op.Verbatim = true
		op.Content = n.Content
	} else {
		rendered, err := p.engine.renderer.Render(string(n.Content), p.vctx)
		if err != nil {
			return &RenderError{Path: n.Path, Err: err}
		}
		content, err := p.engine.postprocessors.Process(out, []byte(rendered))
		if err != nil {
			return &RenderError{Path: n.Path, Err: err}
		}
		op.Content = content
	}
	p.ops = append(p.ops, op)
	return nil
}

// renderName renders a node name, which must yield a single path segment
// or nothing.
func (e *Engine) renderName(n *tree.Node, vctx vars.Context) (string, error) {
	name, err := e.renderer.Render(n.Name, vctx)
	if err != nil {
		return "", &RenderError{Path: nodePath(n), Err: err}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", &RenderError{Path: nodePath(n), Err: fmt.Errorf("name renders to %q, which is not a single path segment", name)}
	}
	return name, nil
}

func nodePath(n *tree.Node) string {
	if n.Path == "." {
		return n.Name
	}
	return n.Path
}
