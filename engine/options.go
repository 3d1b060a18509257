package engine

import (
	"github.com/rs/zerolog"

	"github.com/cpcf/kiln/hooks"
	"github.com/cpcf/kiln/postprocess"
	"github.com/cpcf/kiln/render"
	"github.com/cpcf/kiln/state"
	"github.com/cpcf/kiln/write"
)

type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithRenderer(r *render.Renderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithOverwrite allows baking into a non-empty destination and replacing
// the files found there.
func WithOverwrite(overwrite bool) Option {
	return func(e *Engine) {
		e.overwrite = overwrite
	}
}

// WithSkipIfExists allows baking into a non-empty destination but leaves
// existing files untouched.
func WithSkipIfExists(skip bool) Option {
	return func(e *Engine) {
		e.skipIfExists = skip
	}
}

func WithFailurePolicy(policy FailurePolicy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithHooks enables or disables running the template's hooks.
func WithHooks(enabled bool) Option {
	return func(e *Engine) {
		e.runHooks = enabled
	}
}

func WithHookRunner(runner *hooks.Runner) Option {
	return func(e *Engine) {
		e.hookRunner = runner
	}
}

// WithPostProcessors replaces the default post-processing chain. A nil
// chain disables post-processing.
func WithPostProcessors(chain *postprocess.Chain) Option {
	return func(e *Engine) {
		e.postprocessors = chain
	}
}

func WithWriter(w write.Writer) Option {
	return func(e *Engine) {
		e.writer = w
	}
}

// WithReplay saves the context of every successful bake to store.
func WithReplay(store *state.ReplayStore) Option {
	return func(e *Engine) {
		e.replay = store
	}
}
