package templates

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{DataScience}, Names())
}

func TestLookup(t *testing.T) {
	fsys, ok := Lookup(DataScience)
	require.True(t, ok)

	for _, name := range []string{
		"kiln.yaml",
		"hooks/post_gen_project.sh",
		"{{.project_slug}}/.gitignore",
		"{{.project_slug}}/data/raw/.gitkeep",
		"{{.project_slug}}/src/__init__.py",
	} {
		_, err := fs.Stat(fsys, name)
		assert.NoError(t, err, name)
	}

	for _, name := range []string{"missing", "", ".", "../datascience"} {
		_, ok := Lookup(name)
		assert.False(t, ok, name)
	}
}

func TestMustLookupPanics(t *testing.T) {
	assert.Panics(t, func() { MustLookup("nope") })
	assert.NotPanics(t, func() { MustLookup(DataScience) })
}
