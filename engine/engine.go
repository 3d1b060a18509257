// Package engine bakes templates: it resolves a context, renders the
// template tree into a plan, writes the plan to disk and runs hooks.
package engine

import (
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/cpcf/kiln/config"
	"github.com/cpcf/kiln/hooks"
	"github.com/cpcf/kiln/postprocess"
	"github.com/cpcf/kiln/processors"
	"github.com/cpcf/kiln/render"
	"github.com/cpcf/kiln/state"
	"github.com/cpcf/kiln/tree"
	"github.com/cpcf/kiln/write"
)

// FailurePolicy decides what happens to files already written when a bake
// fails.
type FailurePolicy int

const (
	// KeepPartial leaves whatever was written in place.
	KeepPartial FailurePolicy = iota
	// Rollback removes every file and directory the bake created.
	Rollback
)

func (p FailurePolicy) String() string {
	switch p {
	case KeepPartial:
		return "keep-partial"
	case Rollback:
		return "rollback"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

type Engine struct {
	logger         zerolog.Logger
	renderer       *render.Renderer
	postprocessors *postprocess.Chain
	writer         write.Writer
	hookRunner     *hooks.Runner
	replay         *state.ReplayStore
	policy         FailurePolicy
	overwrite      bool
	skipIfExists   bool
	runHooks       bool
}

func New(opts ...Option) *Engine {
	e := &Engine{
		logger:         zerolog.Nop(),
		renderer:       render.New(),
		postprocessors: processors.Default(),
		writer:         write.NewFileWriter(),
		policy:         KeepPartial,
		runHooks:       true,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.hookRunner == nil {
		e.hookRunner = hooks.NewRunner(hooks.WithLogger(e.logger))
	}

	return e
}

// AddPostProcessor appends a processor to the engine's chain.
func (e *Engine) AddPostProcessor(processor postprocess.Processor) {
	if e.postprocessors == nil {
		e.postprocessors = postprocess.NewChain()
	}
	e.postprocessors.Add(processor)
}

// Template is a loaded template source.
type Template struct {
	Name   string
	Config *config.Template
	Tree   *tree.Node
	Hooks  hooks.Set
}

// LoadTemplate reads the schema, the template tree and the hooks from
// fsys. name identifies the template in results and replays.
func LoadTemplate(fsys fs.FS, name string) (*Template, error) {
	cfg, _, err := config.LoadTemplate(fsys)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}

	root, err := tree.FindTemplateDir(fsys)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}

	node, err := tree.Load(fsys, root, cfg.TreeOptions())
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}

	set, err := hooks.Discover(fsys)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}

	return &Template{Name: name, Config: cfg, Tree: node, Hooks: set}, nil
}
