package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpcf/kiln/kilntest"
	"github.com/cpcf/kiln/render"
	"github.com/cpcf/kiln/vars"
)

func script(stage Stage, src string) *Script {
	return &Script{Stage: stage, Name: string(stage) + ".sh", Source: []byte(src)}
}

func TestRunNilScript(t *testing.T) {
	res, err := Run(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, res.ExitCode)
}

func TestRunInProjectDir(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), script(PostGen, "pwd\necho \"$KILN_HOOK_STAGE\"\ntouch marker\n"), dir)
	require.NoError(t, err)

	real, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, res.Output, real)
	assert.Contains(t, res.Output, "post_gen_project")
	assert.Equal(t, PostGen, res.Stage)

	_, err = os.Stat(filepath.Join(dir, "marker"))
	assert.NoError(t, err)
}

func TestRunNonZeroExit(t *testing.T) {
	_, err := Run(context.Background(), script(PostGen, "echo broken >&2\nexit 3\n"), t.TempDir())

	var failure *HookFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 3, failure.ExitCode)
	assert.Equal(t, "post_gen_project.sh", failure.Hook)
	assert.Contains(t, failure.Output, "broken")
	assert.Contains(t, err.Error(), "status 3")
}

func TestRunShebang(t *testing.T) {
	res, err := Run(context.Background(), script(PreGen, "#!/bin/sh -e\necho from-shebang\n"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-shebang\n", res.Output)
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(WithTimeout(100 * time.Millisecond))
	_, err := r.Run(context.Background(), script(PostGen, "sleep 5\n"), t.TempDir())

	var failure *HookFailure
	require.ErrorAs(t, err, &failure)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunMissingInterpreter(t *testing.T) {
	_, err := Run(context.Background(), script(PostGen, "#!/nonexistent/interp\n"), t.TempDir())
	var failure *HookFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, -1, failure.ExitCode)
}

func TestRunnerEnvAndLogging(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(
		WithEnv("GREETING=hello"),
		WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)),
	)
	res, err := r.Run(context.Background(), script(PostGen, "echo $GREETING\n"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Output)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestShebang(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"#!/bin/bash\n", []string{"/bin/bash"}},
		{"#!/usr/bin/env python3\nprint()", []string{"/usr/bin/env", "python3"}},
		{"#! /bin/sh -eu \n", []string{"/bin/sh", "-eu"}},
	}
	for _, tt := range tests {
		got, ok := shebang([]byte(tt.src))
		require.True(t, ok, tt.src)
		assert.Equal(t, tt.want, got)
	}

	_, ok := shebang([]byte("echo hi\n"))
	assert.False(t, ok)
	_, ok = shebang([]byte("#!\n"))
	assert.False(t, ok)
}

func TestDiscover(t *testing.T) {
	set, err := Discover(kilntest.NewMemoryFSFrom(map[string]string{
		"hooks/pre_gen_project.py":   "print('pre')",
		"hooks/post_gen_project.sh":  "echo post",
		"hooks/post_gen_project.sh~": "stale",
		"hooks/helpers.sh":           "",
	}))
	require.NoError(t, err)
	require.NotNil(t, set.Pre)
	require.NotNil(t, set.Post)
	assert.Equal(t, "pre_gen_project.py", set.Pre.Name)
	assert.Equal(t, PostGen, set.For(PostGen).Stage)
	assert.Equal(t, "echo post", string(set.Post.Source))
}

func TestDiscoverEmptyAndDuplicate(t *testing.T) {
	set, err := Discover(kilntest.NewMemoryFSFrom(map[string]string{"kiln.yaml": ""}))
	require.NoError(t, err)
	assert.True(t, set.Empty())

	_, err = Discover(kilntest.NewMemoryFSFrom(map[string]string{
		"hooks/post_gen_project.sh": "",
		"hooks/post_gen_project.py": "",
	}))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "post_gen_project"))
}

func TestScriptRender(t *testing.T) {
	s := script(PostGen, "{{ if .init_git }}git init{{ end }}")
	ctx := vars.NewContext(map[string]any{"init_git": true})

	out, err := s.Render(render.New(), ctx)
	require.NoError(t, err)
	assert.Equal(t, "git init", string(out.Source))
	assert.Equal(t, "{{ if .init_git }}git init{{ end }}", string(s.Source))

	_, err = s.Render(render.New(), vars.NewContext(nil))
	var undefined *render.UndefinedVariableError
	require.ErrorAs(t, err, &undefined)

	var none *Script
	out, err = none.Render(render.New(), ctx)
	require.NoError(t, err)
	assert.Nil(t, out)
}
