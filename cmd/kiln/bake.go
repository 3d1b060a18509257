package main

import (
	"context"
	"io"
	"maps"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"github.com/cpcf/kiln/config"
	"github.com/cpcf/kiln/engine"
	"github.com/cpcf/kiln/hooks"
	"github.com/cpcf/kiln/logging"
	"github.com/cpcf/kiln/render"
	"github.com/cpcf/kiln/source"
	"github.com/cpcf/kiln/state"
	"github.com/cpcf/kiln/vars"
	"github.com/cpcf/kiln/write"
)

type bakeOptions struct {
	configFile   string
	outputDir    string
	checkout     string
	directory    string
	overwrite    bool
	skipIfExists bool
	rollback     bool
	replay       bool
	noHooks      bool
	hookTimeout  time.Duration
}

var bakeFlags bakeOptions

var bakeCmd = &cobra.Command{
	Use:   "bake <template> [key=value...]",
	Short: "Generate a project from a template",
	Long: `Generate a project from a built-in template, a local directory or a git
repository. Variables not given as key=value take their defaults.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBake,
}

func init() {
	f := bakeCmd.Flags()
	f.StringVarP(&bakeFlags.outputDir, "output-dir", "o", ".", "Directory the project is created in")
	f.StringVar(&bakeFlags.checkout, "checkout", "", "Branch or tag to use for git templates")
	f.StringVar(&bakeFlags.directory, "directory", "", "Template directory inside the source")
	f.BoolVar(&bakeFlags.overwrite, "overwrite", false, "Replace files in an existing project directory")
	f.BoolVar(&bakeFlags.skipIfExists, "skip-if-exists", false, "Keep files that already exist in the project directory")
	f.BoolVar(&bakeFlags.rollback, "rollback", false, "Remove everything created if the bake fails")
	f.BoolVar(&bakeFlags.replay, "replay", false, "Reuse the variables of the last bake of this template")
	f.BoolVar(&bakeFlags.noHooks, "no-hooks", false, "Do not run pre and post generation hooks")
	f.DurationVar(&bakeFlags.hookTimeout, "hook-timeout", hooks.DefaultTimeout, "Maximum run time of each hook")
}

func runBake(cmd *cobra.Command, args []string) error {
	opts := bakeFlags
	opts.configFile = rootFlags.configFile
	_, err := bakeProject(cmd.Context(), opts, args[0], args[1:], cmd.OutOrStdout())
	return err
}

// templateFuncs is the function map kiln bakes and checks templates with.
func templateFuncs() template.FuncMap {
	return render.ExtendedFuncMap()
}

// bakeProject is the testable core of the bake command. It resolves ref,
// bakes it with the assignments in args and prints a summary to out.
func bakeProject(ctx context.Context, opts bakeOptions, ref string, args []string, out io.Writer) (*engine.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.GetLogger("bake")
	done := logging.LogOperationStart(logger.With().Str("template", ref).Logger(), "bake")
	defer done()

	user, err := config.LoadUser(opts.configFile)
	if err != nil {
		return nil, err
	}
	overrides, err := vars.ParseAssignments(args)
	if err != nil {
		return nil, err
	}

	src, err := source.Resolve(ctx, ref, source.Options{
		CacheDir:      user.CacheDir,
		Checkout:      opts.checkout,
		Directory:     opts.directory,
		Abbreviations: user.Abbreviations,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	tmpl, err := engine.LoadTemplate(src.FS, src.Name)
	if err != nil {
		return nil, err
	}

	store := state.NewReplayStore(user.ReplayDir)
	if opts.replay {
		replay, err := store.Load(src.Name)
		if err != nil {
			return nil, err
		}
		merged := replay.Vars().Values()
		maps.Copy(merged, overrides)
		overrides = merged
	}

	policy := engine.KeepPartial
	if opts.rollback {
		policy = engine.Rollback
	}
	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithRenderer(render.New(render.WithFuncs(templateFuncs()))),
		engine.WithWriter(write.NewLoggingWriter(nil, logger)),
		engine.WithOverwrite(opts.overwrite),
		engine.WithSkipIfExists(opts.skipIfExists),
		engine.WithFailurePolicy(policy),
		engine.WithHooks(!opts.noHooks),
		engine.WithHookRunner(hooks.NewRunner(
			hooks.WithTimeout(opts.hookTimeout),
			hooks.WithLogger(logger),
		)),
		engine.WithReplay(store),
	)

	res, err := eng.Bake(ctx, engine.Request{
		Template:     tmpl,
		Overrides:    overrides,
		UserDefaults: user.DefaultContext,
		OutputDir:    opts.outputDir,
	})
	printSummary(out, res)
	return res, err
}
