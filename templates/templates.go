// Package templates holds the templates compiled into the kiln binary.
//
// Each subdirectory is a complete template source: a kiln.yaml schema, one
// top-level template directory and an optional hooks/ directory.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// Builtin holds every embedded template. all: keeps dotfiles such as
// .gitignore and .gitkeep.
//
//go:embed all:datascience
var Builtin embed.FS

// DataScience is the name of the data science project template.
const DataScience = "datascience"

// Names lists the embedded templates.
func Names() []string {
	entries, err := fs.ReadDir(Builtin, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Lookup returns the file system of the named template.
func Lookup(name string) (fs.FS, bool) {
	if !fs.ValidPath(name) || name == "." {
		return nil, false
	}
	info, err := fs.Stat(Builtin, name)
	if err != nil || !info.IsDir() {
		return nil, false
	}
	sub, err := fs.Sub(Builtin, name)
	if err != nil {
		return nil, false
	}
	return sub, true
}

// MustLookup is Lookup for names known to exist.
func MustLookup(name string) fs.FS {
	fsys, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("templates: no built-in template %q", name))
	}
	return fsys
}
