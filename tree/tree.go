// Package tree models a template directory as an immutable hierarchy of
// directory and file nodes whose names and contents are templates.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

type Kind int

const (
	Dir Kind = iota
	File
)

func (k Kind) String() string {
	if k == Dir {
		return "dir"
	}
	return "file"
}

// Node is a directory or file in a template tree. Path is the slash
// separated, unrendered path relative to the tree root; the root's Path is
// ".".
type Node struct {
	Name        string
	Kind        Kind
	Path        string
	Mode        fs.FileMode
	Content     []byte
	Children    []*Node
	EnabledWhen *Predicate
	// Verbatim files are copied without rendering their content.
	Verbatim bool
}

func (n *Node) IsDir() bool {
	return n.Kind == Dir
}

// Options control how a tree is loaded.
type Options struct {
	// When maps node paths to predicates that must hold for the node to be
	// generated.
	When map[string]string
	// CopyWithoutRender lists path.Match patterns of files whose content is
	// copied as-is. Patterns without a slash also match base names.
	CopyWithoutRender []string
}

var (
	ErrNoTemplateDir        = errors.New("no template directory: expected a top-level directory whose name contains {{")
	ErrAmbiguousTemplateDir = errors.New("more than one top-level template directory")
)

// FindTemplateDir returns the name of the single top-level directory of fsys
// whose name is a template.
func FindTemplateDir(fsys fs.FS) (string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", err
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() && strings.Contains(e.Name(), "{{") {
			found = append(found, e.Name())
		}
	}
	switch len(found) {
	case 0:
		return "", ErrNoTemplateDir
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousTemplateDir, strings.Join(found, ", "))
	}
}

// Load reads the tree rooted at root. Children are sorted by name so that
// walking the tree is deterministic.
func Load(fsys fs.FS, root string, opts Options) (*Node, error) {
	for _, pattern := range opts.CopyWithoutRender {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("copy_without_render pattern %q: %w", pattern, err)
		}
	}

	info, err := fs.Stat(fsys, root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template root %s is not a directory", root)
	}

	l := &loader{fsys: fsys, opts: opts, used: make(map[string]bool)}
	node := &Node{Name: path.Base(root), Kind: Dir, Path: ".", Mode: info.Mode().Perm()}
	if err := l.loadChildren(node, root); err != nil {
		return nil, err
	}

	var unused []string
	for p := range opts.When {
		if !l.used[p] {
			unused = append(unused, p)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return nil, fmt.Errorf("when: no template node at %s", strings.Join(unused, ", "))
	}
	return node, nil
}

type loader struct {
	fsys fs.FS
	opts Options
	used map[string]bool
}

func (l *loader) loadChildren(parent *Node, dir string) error {
	entries, err := fs.ReadDir(l.fsys, dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		rel := e.Name()
		if parent.Path != "." {
			rel = parent.Path + "/" + e.Name()
		}
		full := path.Join(dir, e.Name())

		info, err := e.Info()
		if err != nil {
			return err
		}
		child := &Node{Name: e.Name(), Path: rel, Mode: info.Mode().Perm()}

		if expr, ok := l.opts.When[rel]; ok {
			pred, err := ParsePredicate(expr)
			if err != nil {
				return fmt.Errorf("when %s: %w", rel, err)
			}
			child.EnabledWhen = pred
			l.used[rel] = true
		}

		switch {
		case e.IsDir():
			child.Kind = Dir
			if err := l.loadChildren(child, full); err != nil {
				return err
			}
		case e.Type().IsRegular():
			child.Kind = File
			content, err := fs.ReadFile(l.fsys, full)
			if err != nil {
				return err
			}
			child.Content = content
			child.Verbatim = l.verbatim(rel)
		default:
			return fmt.Errorf("unsupported file type at %s", rel)
		}
		parent.Children = append(parent.Children, child)
	}
	return nil
}

func (l *loader) verbatim(rel string) bool {
	for _, pattern := range l.opts.CopyWithoutRender {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, path.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}

// Walk visits n and its descendants depth first in child order. Returning
// fs.SkipDir from fn for a directory skips its children.
func Walk(n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		if errors.Is(err, fs.SkipDir) && n.IsDir() {
			return nil
		}
		return err
	}
	for _, c := range n.Children {
		if err := Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of directories and files below n.
func (n *Node) Count() (dirs, files int) {
	_ = Walk(n, func(c *Node) error {
		if c == n {
			return nil
		}
		if c.IsDir() {
			dirs++
		} else {
			files++
		}
		return nil
	})
	return dirs, files
}
