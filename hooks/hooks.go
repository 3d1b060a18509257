// Package hooks runs a template's pre- and post-generation scripts.
package hooks

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/cpcf/kiln/render"
	"github.com/cpcf/kiln/vars"
)

// Dir is where hook scripts live inside a template source.
const Dir = "hooks"

type Stage string

const (
	PreGen  Stage = "pre_gen_project"
	PostGen Stage = "post_gen_project"
)

// Stages lists the hook stages in the order they run.
var Stages = []Stage{PreGen, PostGen}

// Script is a hook as found in the template. Its source is a template
// rendered against the bake context before it runs.
type Script struct {
	Stage  Stage
	Name   string
	Source []byte
}

// Render returns a copy of s with its source rendered against ctx.
func (s *Script) Render(r *render.Renderer, ctx vars.Context) (*Script, error) {
	if s == nil {
		return nil, nil
	}
	out, err := r.Render(string(s.Source), ctx)
	if err != nil {
		return nil, err
	}
	return &Script{Stage: s.Stage, Name: s.Name, Source: []byte(out)}, nil
}

// Set holds at most one script per stage.
type Set struct {
	Pre  *Script
	Post *Script
}

func (s Set) For(stage Stage) *Script {
	switch stage {
	case PreGen:
		return s.Pre
	case PostGen:
		return s.Post
	}
	return nil
}

func (s Set) Empty() bool {
	return s.Pre == nil && s.Post == nil
}

// Discover reads hooks/pre_gen_project* and hooks/post_gen_project* from
// fsys. A missing hooks directory yields an empty set. Editor backups
// ending in ~ are ignored; two scripts for one stage are an error.
func Discover(fsys fs.FS) (Set, error) {
	var set Set
	entries, err := fs.ReadDir(fsys, Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return set, nil
		}
		return set, fmt.Errorf("read %s: %w", Dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, "~") {
			continue
		}
		stage, ok := stageOf(name)
		if !ok {
			continue
		}
		if prev := set.For(stage); prev != nil {
			return Set{}, fmt.Errorf("%s: both %s and %s define %s", Dir, prev.Name, name, stage)
		}

		data, err := fs.ReadFile(fsys, path.Join(Dir, name))
		if err != nil {
			return Set{}, err
		}
		script := &Script{Stage: stage, Name: name, Source: data}
		if stage == PreGen {
			set.Pre = script
		} else {
			set.Post = script
		}
	}
	return set, nil
}

func stageOf(name string) (Stage, bool) {
	base := strings.TrimSuffix(name, path.Ext(name))
	for _, s := range Stages {
		if base == string(s) {
			return s, true
		}
	}
	return "", false
}
