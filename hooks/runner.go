package hooks

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTimeout = 5 * time.Minute

// Result is the outcome of a hook that ran to completion with status zero.
type Result struct {
	Stage    Stage
	Script   string
	ExitCode int
	Output   string
	Duration time.Duration
}

// HookFailure reports a hook that exited non-zero, timed out or could not
// be started. Output holds whatever the script printed.
type HookFailure struct {
	Hook     string
	Stage    Stage
	ExitCode int
	Output   string
	Duration time.Duration
	Err      error
}

// Result describes the failed run in the form successful runs are
// reported in.
func (e *HookFailure) Result() *Result {
	return &Result{
		Stage:    e.Stage,
		Script:   e.Hook,
		ExitCode: e.ExitCode,
		Output:   e.Output,
		Duration: e.Duration,
	}
}

func (e *HookFailure) Error() string {
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		return fmt.Sprintf("hook %s timed out", e.Hook)
	case e.ExitCode > 0:
		return fmt.Sprintf("hook %s exited with status %d", e.Hook, e.ExitCode)
	default:
		return fmt.Sprintf("hook %s failed: %v", e.Hook, e.Err)
	}
}

func (e *HookFailure) Unwrap() error {
	return e.Err
}

type Runner struct {
	timeout time.Duration
	shell   string
	env     []string
	logger  zerolog.Logger
}

type Option func(*Runner)

// WithTimeout bounds each hook's run time. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithShell sets the interpreter for scripts without a shebang line.
func WithShell(shell string) Option {
	return func(r *Runner) {
		r.shell = shell
	}
}

// WithEnv adds KEY=VALUE pairs to the hook environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		timeout: DefaultTimeout,
		shell:   "/bin/sh",
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRunner = NewRunner()

// Run executes script with the default runner.
func Run(ctx context.Context, script *Script, dir string) (*Result, error) {
	return defaultRunner.Run(ctx, script, dir)
}

// Run executes script with dir as its working directory. A nil script is a
// successful no-op. The script is written to a temporary file and passed to
// the interpreter named by its shebang line, or to the runner's shell.
func (r *Runner) Run(ctx context.Context, script *Script, dir string) (*Result, error) {
	if script == nil {
		return &Result{}, nil
	}

	logger := r.logger.With().Str("hook", script.Name).Str("stage", string(script.Stage)).Logger()

	tmp, err := writeTemp(script)
	if err != nil {
		return nil, &HookFailure{Hook: script.Name, Stage: script.Stage, ExitCode: -1, Err: err}
	}
	defer os.Remove(tmp)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	argv := r.command(script, tmp)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"KILN_HOOK_STAGE="+string(script.Stage),
		"KILN_PROJECT_DIR="+dir,
	)
	cmd.Env = append(cmd.Env, r.env...)
	cmd.WaitDelay = time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Debug().Strs("argv", argv).Str("dir", dir).Msg("running hook")
	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)
	logOutput(logger, output.Bytes())

	if runErr != nil {
		failure := &HookFailure{
			Hook:     script.Name,
			Stage:    script.Stage,
			ExitCode: -1,
			Output:   output.String(),
			Duration: duration,
			Err:      runErr,
		}
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			failure.Err = ctx.Err()
		case errors.As(runErr, &exitErr):
			failure.ExitCode = exitErr.ExitCode()
		}
		logger.Debug().Err(failure).Dur("took", duration).Msg("hook failed")
		return nil, failure
	}

	logger.Debug().Dur("took", duration).Msg("hook finished")
	return &Result{
		Stage:    script.Stage,
		Script:   script.Name,
		Output:   output.String(),
		Duration: duration,
	}, nil
}

func (r *Runner) command(script *Script, file string) []string {
	if argv, ok := shebang(script.Source); ok {
		return append(argv, file)
	}
	if path.Ext(script.Name) == ".py" {
		return []string{"python3", file}
	}
	return []string{r.shell, file}
}

// shebang splits a "#!interpreter [arg]" first line. Only one argument is
// passed on, as the kernel does.
func shebang(src []byte) ([]string, bool) {
	if !bytes.HasPrefix(src, []byte("#!")) {
		return nil, false
	}
	line, _, _ := bytes.Cut(src[2:], []byte("\n"))
	interp, arg, _ := strings.Cut(strings.TrimSpace(string(line)), " ")
	if interp == "" {
		return nil, false
	}
	argv := []string{interp}
	if arg = strings.TrimSpace(arg); arg != "" {
		argv = append(argv, arg)
	}
	return argv, true
}

func writeTemp(script *Script) (string, error) {
	f, err := os.CreateTemp("", "kiln-"+string(script.Stage)+"-*"+path.Ext(script.Name))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(script.Source); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func logOutput(logger zerolog.Logger, output []byte) {
	if logger.GetLevel() > zerolog.DebugLevel || zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		logger.Debug().Msg(scanner.Text())
	}
}
