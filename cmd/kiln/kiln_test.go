package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpcf/kiln/kilntest"
	"github.com/cpcf/kiln/source"
	"github.com/cpcf/kiln/state"
)

// testConfig writes a user config that keeps replays and clones inside a
// temporary directory and returns its path.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "replay_dir: " + filepath.Join(dir, "replay") + "\n" +
		"cache_dir: " + filepath.Join(dir, "cache") + "\n" +
		"default_context:\n  author_name: Ada Lovelace\n  unrelated: ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBakeProject_Defaults(t *testing.T) {
	out := t.TempDir()
	var buf bytes.Buffer

	res, err := bakeProject(context.Background(), bakeOptions{configFile: testConfig(t), outputDir: out}, "datascience", nil, &buf)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode())

	dest := filepath.Join(out, "data_science_project")
	assert.Equal(t, dest, res.Destination)
	assert.Equal(t, kilntest.DataScienceTopLevel, kilntest.TopLevel(t, dest))
	assert.Contains(t, kilntest.ReadFile(t, dest, "README.md"), "Ada Lovelace")

	summary := buf.String()
	assert.Contains(t, summary, "✓ baked datascience")
	assert.Contains(t, summary, "hook post_gen_project.sh")
}

func TestBakeProject_Replay(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer

	first := t.TempDir()
	_, err := bakeProject(context.Background(), bakeOptions{configFile: cfg, outputDir: first},
		"datascience", []string{"project_name=Ocean Currents", "use_docker=no"}, &buf)
	require.NoError(t, err)

	second := t.TempDir()
	res, err := bakeProject(context.Background(), bakeOptions{configFile: cfg, outputDir: second, replay: true},
		"datascience", []string{"python_version=3.10"}, &buf)
	require.NoError(t, err)

	dest := filepath.Join(second, "ocean_currents")
	assert.Equal(t, dest, res.Destination)
	assert.NoFileExists(t, filepath.Join(dest, "Dockerfile"))
	assert.Contains(t, kilntest.ReadFile(t, dest, "Makefile"), "python3.10")
}

func TestBakeProject_ReplayMissing(t *testing.T) {
	_, err := bakeProject(context.Background(), bakeOptions{configFile: testConfig(t), outputDir: t.TempDir(), replay: true},
		"datascience", nil, &bytes.Buffer{})
	require.ErrorIs(t, err, state.ErrNoReplay)
}

func TestBakeProject_InvalidInput(t *testing.T) {
	out := t.TempDir()
	var buf bytes.Buffer

	res, err := bakeProject(context.Background(), bakeOptions{configFile: testConfig(t), outputDir: out}, "datascience", []string{"nonsense"}, &buf)
	require.Error(t, err)
	assert.Nil(t, res)

	res, err = bakeProject(context.Background(), bakeOptions{configFile: testConfig(t), outputDir: out}, "datascience", []string{"colour=blue"}, &buf)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ExitCode())
	assert.Contains(t, buf.String(), "✗ bake failed")
	assert.Empty(t, kilntest.TopLevel(t, out))
}

func TestBakeProject_ExistingDestination(t *testing.T) {
	cfg := testConfig(t)
	out := t.TempDir()
	kilntest.WriteTree(t, out, map[string]string{"data_science_project/README.md": "mine"})

	_, err := bakeProject(context.Background(), bakeOptions{configFile: cfg, outputDir: out}, "datascience", nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, "mine", kilntest.ReadFile(t, filepath.Join(out, "data_science_project"), "README.md"))

	res, err := bakeProject(context.Background(), bakeOptions{configFile: cfg, outputDir: out, skipIfExists: true}, "datascience", nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, res.Skipped, "README.md")
	assert.Equal(t, "mine", kilntest.ReadFile(t, filepath.Join(out, "data_science_project"), "README.md"))

	_, err = bakeProject(context.Background(), bakeOptions{configFile: cfg, outputDir: out, overwrite: true}, "datascience", nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, kilntest.ReadFile(t, filepath.Join(out, "data_science_project"), "README.md"), "# Data Science Project")
}

func localTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	kilntest.WriteTree(t, dir, map[string]string{
		"templates/svc/kiln.yaml":                 "variables:\n  name: svc\n",
		"templates/svc/{{.name}}/main.txt":        "service {{ .name }}\n",
		"templates/svc/hooks/post_gen_project.sh": "#!/bin/sh\nexit 3\n",
	})
	return dir
}

func TestBakeProject_HookFailureRollsBack(t *testing.T) {
	out := t.TempDir()
	var buf bytes.Buffer

	res, err := bakeProject(context.Background(), bakeOptions{
		configFile: testConfig(t),
		outputDir:  out,
		directory:  "templates/svc",
		rollback:   true,
	}, localTemplate(t), []string{"name=billing"}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with status 3")
	assert.True(t, res.RolledBack)
	assert.NoDirExists(t, filepath.Join(out, "billing"))
	assert.Contains(t, buf.String(), "created files were removed")
}

func TestBakeProject_NoHooks(t *testing.T) {
	out := t.TempDir()
	res, err := bakeProject(context.Background(), bakeOptions{
		configFile: testConfig(t),
		outputDir:  out,
		directory:  "templates/svc",
		noHooks:    true,
	}, localTemplate(t), nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "svc", res.Template)
	assert.Equal(t, "service svc\n", kilntest.ReadFile(t, out, "svc/main.txt"))
}

func TestListVariables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listVariables(context.Background(), testConfig(t), "datascience", source.Options{}, &buf))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "project_name")
	assert.Contains(t, out, "3.12 | 3.11 | 3.10")
	assert.Regexp(t, `use_docker\s+bool\s+true`, out)
}

func TestListTemplates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listTemplates(&buf))
	assert.Regexp(t, `datascience\s+8\s+post_gen_project.sh`, buf.String())
}

func TestRootCommandRunsList(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"list"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "datascience")
}

func TestRenderTable(t *testing.T) {
	got := renderTable(newStyles(&bytes.Buffer{}), [][]string{
		{"A", "B"},
		{"long value", "x"},
	})
	assert.Equal(t, "A           B\nlong value  x\n", got)
}

func TestCheckTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, checkTemplate(context.Background(), testConfig(t), "datascience", source.Options{}, &buf))
	assert.Equal(t, "datascience: valid\n", buf.String())

	dir := t.TempDir()
	kilntest.WriteTree(t, dir, map[string]string{
		"kiln.yaml":       "variables:\n  name: x\n  spare: y\n",
		"{{.name}}/a.txt": "{{ .nme }}",
	})
	buf.Reset()
	err := checkTemplate(context.Background(), testConfig(t), dir, source.Options{}, &buf)
	require.ErrorIs(t, err, errTemplateInvalid)
	assert.Contains(t, buf.String(), `✗ error: a.txt: "nme" is not declared (did you mean "name"?)`)
	assert.Contains(t, buf.String(), `! warning: variables.spare: "spare" is never used`)
	assert.Contains(t, buf.String(), "1 error(s), 1 warning(s)")
}

func TestCheckThenBakeWithDateFunctions(t *testing.T) {
	dir := t.TempDir()
	kilntest.WriteTree(t, dir, map[string]string{
		"kiln.yaml":         "variables:\n  name: stamp\n",
		"{{.name}}/LICENSE": "(c) {{ year }} {{ .name }}\n",
	})
	cfg := testConfig(t)

	var buf bytes.Buffer
	require.NoError(t, checkTemplate(context.Background(), cfg, dir, source.Options{}, &buf))
	assert.Contains(t, buf.String(), ": valid")

	out := t.TempDir()
	_, err := bakeProject(context.Background(), bakeOptions{configFile: cfg, outputDir: out}, dir, nil, &bytes.Buffer{})
	require.NoError(t, err)
	want := "(c) " + strconv.Itoa(time.Now().Year()) + " stamp\n"
	assert.Equal(t, want, kilntest.ReadFile(t, out, "stamp/LICENSE"))

	buf.Reset()
	res, err := bakeProject(context.Background(), bakeOptions{configFile: cfg, outputDir: out, overwrite: true}, dir, nil, &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"LICENSE"}, res.Unchanged)
	assert.Contains(t, buf.String(), "0 files written, 0 skipped, 1 unchanged")
}
