package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cpcf/kiln/hooks"
	"github.com/cpcf/kiln/state"
	"github.com/cpcf/kiln/tree"
	"github.com/cpcf/kiln/vars"
	"github.com/cpcf/kiln/write"
)

// Request describes one bake.
type Request struct {
	Template *Template
	// Overrides replace schema defaults; unknown names are an error.
	Overrides map[string]any
	// UserDefaults replace schema defaults for names the schema declares.
	UserDefaults map[string]any
	// OutputDir is the parent of the generated project directory. Empty
	// means the working directory.
	OutputDir string
}

// Result records the outcome of a bake. It is returned for failed bakes
// too, with Err set to the first error.
type Result struct {
	ID          string
	Template    string
	Destination string
	Context     vars.Context
	Success     bool
	Err         error
	// Files lists written files relative to Destination, in write order.
	Files []string
	// Skipped lists existing files left alone under skip-if-exists.
	Skipped []string
	// Unchanged lists existing files that already held the rendered
	// content under overwrite.
	Unchanged []string
	// Hooks lists the hooks that ran, including a failed one, whose
	// ExitCode is non-zero.
	Hooks      []*hooks.Result
	RolledBack bool
	Duration   time.Duration
}

// ExitCode maps the result to a process exit status.
func (r *Result) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// bake is a request that has been resolved and planned but not applied.
type bake struct {
	result  *Result
	vctx    vars.Context
	plan    *Plan
	pre     *hooks.Script
	post    *hooks.Script
	started time.Time
}

// prepare does everything that can fail without touching the file system:
// resolving the context, rendering the tree and the hooks, and checking
// the destination.
func (e *Engine) prepare(req Request) (*bake, error) {
	b := &bake{
		started: time.Now(),
		result:  &Result{ID: uuid.NewString()},
	}
	if req.Template == nil {
		return b, errors.New("no template")
	}
	b.result.Template = req.Template.Name

	var schema *vars.Schema
	if req.Template.Config != nil {
		schema = req.Template.Config.Variables
	}
	vctx, err := vars.ResolveLayered(schema, req.UserDefaults, req.Overrides)
	if err != nil {
		return b, err
	}
	b.vctx = vctx
	b.result.Context = vctx

	plan, err := e.Plan(req.Template.Tree, vctx)
	if err != nil {
		return b, err
	}
	b.plan = plan

	dest, err := filepath.Abs(filepath.Join(req.OutputDir, plan.Root))
	if err != nil {
		return b, err
	}
	b.result.Destination = dest

	if e.runHooks {
		if b.pre, err = req.Template.Hooks.Pre.Render(e.renderer, vctx); err != nil {
			return b, &RenderError{Path: hooks.Dir + "/" + req.Template.Hooks.Pre.Name, Err: err}
		}
		if b.post, err = req.Template.Hooks.Post.Render(e.renderer, vctx); err != nil {
			return b, &RenderError{Path: hooks.Dir + "/" + req.Template.Hooks.Post.Name, Err: err}
		}
	}

	if err := e.checkDestination(dest); err != nil {
		return b, err
	}
	return b, nil
}

func (e *Engine) checkDestination(dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return &DestinationExistsError{Path: dest}
	}
	if e.overwrite || e.skipIfExists {
		return nil
	}
	empty, err := isEmptyDir(dest)
	if err != nil {
		return err
	}
	if !empty {
		return &DestinationExistsError{Path: dest}
	}
	return nil
}

func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.ReadDir(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// Bake resolves the request's context, renders the template and writes it
// below the output directory, running the pre- and post-generation hooks
// around the write. The returned Result is never nil.
func (e *Engine) Bake(ctx context.Context, req Request) (*Result, error) {
	b, err := e.prepare(req)
	if err != nil {
		return e.finish(b, nil, err)
	}
	return e.execute(ctx, b)
}

// Materialize writes root rendered against vctx below outputDir without
// running hooks.
func (e *Engine) Materialize(ctx context.Context, root *tree.Node, vctx vars.Context, outputDir string) (*Result, error) {
	b := &bake{
		started: time.Now(),
		vctx:    vctx,
		result:  &Result{ID: uuid.NewString(), Context: vctx},
	}

	plan, err := e.Plan(root, vctx)
	if err != nil {
		return e.finish(b, nil, err)
	}
	b.plan = plan

	dest, err := filepath.Abs(filepath.Join(outputDir, plan.Root))
	if err != nil {
		return e.finish(b, nil, err)
	}
	b.result.Destination = dest
	if err := e.checkDestination(dest); err != nil {
		return e.finish(b, nil, err)
	}
	return e.execute(ctx, b)
}

// Materialize writes root rendered against vctx below outputDir with a
// default engine.
func Materialize(root *tree.Node, vctx vars.Context, outputDir string) (*Result, error) {
	return New().Materialize(context.Background(), root, vctx, outputDir)
}

func (e *Engine) execute(ctx context.Context, b *bake) (*Result, error) {
	tracker := state.NewTracker()
	dest := b.result.Destination
	logger := e.logger.With().Str("bake", b.result.ID).Str("destination", dest).Logger()

	if err := tracker.MkdirAll(dest, 0o755); err != nil {
		return e.finish(b, tracker, &GenerationError{Path: dest, Message: "create destination", Err: err})
	}

	if err := e.runHook(ctx, b, b.pre, dest); err != nil {
		return e.finish(b, tracker, err)
	}

	options := write.Options{Overwrite: e.overwrite, SkipExisting: e.skipIfExists, Atomic: e.overwrite}
	for _, op := range b.plan.Operations {
		if err := ctx.Err(); err != nil {
			return e.finish(b, tracker, err)
		}
		target := filepath.Join(dest, filepath.FromSlash(op.Path))

		if op.Kind == OpMkdir {
			if err := tracker.MkdirAll(target, op.Mode); err != nil {
				return e.finish(b, tracker, &GenerationError{Path: op.Path, Message: "create directory", Err: err})
			}
			continue
		}

		options.Mode = op.Mode
		outcome, err := e.writer.Write(target, op.Content, options)
		switch {
		case errors.Is(err, write.ErrSkipped):
			b.result.Skipped = append(b.result.Skipped, op.Path)
			continue
		case err != nil:
			return e.finish(b, tracker, &GenerationError{Path: op.Path, Message: "write file", Err: err})
		case outcome == write.Unchanged:
			b.result.Unchanged = append(b.result.Unchanged, op.Path)
			continue
		}
		if outcome == write.Created {
			tracker.RecordFile(target)
		}
		b.result.Files = append(b.result.Files, op.Path)
	}

	if err := e.runHook(ctx, b, b.post, dest); err != nil {
		return e.finish(b, tracker, err)
	}

	res, err := e.finish(b, tracker, nil)
	if e.replay != nil && res.Template != "" {
		if err := e.replay.Save(res.Template, res.ID, b.vctx); err != nil {
			logger.Warn().Err(err).Msg("failed to save replay")
		}
	}
	return res, err
}

func (e *Engine) runHook(ctx context.Context, b *bake, script *hooks.Script, dir string) error {
	if script == nil {
		return nil
	}
	res, err := e.hookRunner.Run(ctx, script, dir)
	if err != nil {
		var failure *hooks.HookFailure
		if errors.As(err, &failure) {
			b.result.Hooks = append(b.result.Hooks, failure.Result())
		}
		return err
	}
	b.result.Hooks = append(b.result.Hooks, res)
	return nil
}

// finish records err on the result and applies the failure policy.
func (e *Engine) finish(b *bake, tracker *state.Tracker, err error) (*Result, error) {
	res := b.result
	res.Duration = time.Since(b.started)
	logger := e.logger.With().Str("bake", res.ID).Str("template", res.Template).Logger()

	if err == nil {
		res.Success = true
		logger.Info().
			Str("destination", res.Destination).
			Int("files", len(res.Files)).
			Dur("took", res.Duration).
			Msg("bake complete")
		return res, nil
	}

	res.Err = err
	if tracker != nil && e.policy == Rollback {
		if rbErr := tracker.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("rollback incomplete")
			res.Err = fmt.Errorf("%w (rollback incomplete: %v)", err, rbErr)
		} else {
			res.RolledBack = true
			res.Files = nil
		}
	}
	logger.Error().Err(err).Bool("rolled_back", res.RolledBack).Msg("bake failed")
	return res, res.Err
}
