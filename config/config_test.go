package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpcf/kiln/kilntest"
	"github.com/cpcf/kiln/vars"
)

type validated struct {
	Name string `yaml:"name"`
}

func (v *validated) Validate() error {
	if v.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: kiln\n"), 0o644))

	var v validated
	require.NoError(t, LoadYAML(path, &v))
	assert.Equal(t, "kiln", v.Name)

	err := LoadYAML(filepath.Join(dir, "missing.yaml"), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadYAMLFromStringValidates(t *testing.T) {
	var v validated
	err := LoadYAMLFromString("name: \"\"\n", &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	err = LoadYAMLFromString("name: [unterminated", &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadTemplateStructured(t *testing.T) {
	fsys := kilntest.NewMemoryFSFrom(map[string]string{
		"kiln.yaml": `
variables:
  project_name: Demo
  license: [MIT, BSD]
  use_docker: true
when:
  Dockerfile: use_docker
copy_without_render:
  - "*.png"
`,
	})

	tmpl, name, err := LoadTemplate(fsys)
	require.NoError(t, err)
	assert.Equal(t, "kiln.yaml", name)
	assert.Equal(t, []string{"project_name", "license", "use_docker"}, tmpl.Variables.Names())
	assert.Equal(t, map[string]string{"Dockerfile": "use_docker"}, tmpl.When)
	assert.Equal(t, []string{"*.png"}, tmpl.CopyWithoutRender)

	opts := tmpl.TreeOptions()
	assert.Equal(t, tmpl.When, opts.When)
}

func TestLoadTemplateFlatJSON(t *testing.T) {
	fsys := kilntest.NewMemoryFSFrom(map[string]string{
		"cookiecutter.json": `{
  "project_name": "Demo",
  "open_source_license": ["MIT", "BSD-3-Clause"],
  "use_docker": false,
  "_copy_without_render": ["*.ipynb"],
  "_when": {"Dockerfile": "use_docker"},
  "_extensions": ["ignored"]
}`,
	})

	tmpl, name, err := LoadTemplate(fsys)
	require.NoError(t, err)
	assert.Equal(t, "cookiecutter.json", name)
	assert.Equal(t, []string{"project_name", "open_source_license", "use_docker"}, tmpl.Variables.Names())
	v, _ := tmpl.Variables.Lookup("open_source_license")
	assert.Equal(t, vars.Choice, v.Kind)
	assert.Equal(t, []string{"*.ipynb"}, tmpl.CopyWithoutRender)
	assert.Equal(t, "use_docker", tmpl.When["Dockerfile"])
}

func TestLoadTemplateMissing(t *testing.T) {
	_, _, err := LoadTemplate(kilntest.NewMemoryFSFrom(map[string]string{"README.md": ""}))
	assert.ErrorIs(t, err, ErrNoTemplateConfig)
}

func TestLoadTemplateRejectsBadWhen(t *testing.T) {
	fsys := kilntest.NewMemoryFSFrom(map[string]string{
		"kiln.yaml": "variables: {}\nwhen:\n  ../escape: flag\n",
	})
	_, _, err := LoadTemplate(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean relative path")
}

func TestLoadUserDefaults(t *testing.T) {
	u, err := LoadUser(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err, "explicit path must exist")
	assert.Nil(t, u)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	u, err = LoadUser("")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/{0}.git", u.Abbreviations["gh"])
	assert.NotEmpty(t, u.ReplayDir)
	assert.NotEmpty(t, u.CacheDir)
}

func TestLoadUserFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_context:
  author_name: Ada
  use_docker: false
replay_dir: /tmp/replay-from-file
abbreviations:
  co: https://code.example.com/{0}.git
`), 0o644))
	t.Setenv("KILN_CACHE_DIR", "/tmp/cache-from-env")

	u, err := LoadUser(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.DefaultContext["author_name"])
	assert.Equal(t, false, u.DefaultContext["use_docker"])
	assert.Equal(t, "/tmp/replay-from-file", u.ReplayDir)
	assert.Equal(t, "/tmp/cache-from-env", u.CacheDir)
	assert.Equal(t, "https://code.example.com/{0}.git", u.Abbreviations["co"])
	assert.Equal(t, "https://github.com/{0}.git", u.Abbreviations["gh"])
}
