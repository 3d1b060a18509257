package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cpcf/kiln/render"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	var s Schema
	err := yaml.Unmarshal([]byte(`
project_name: Project Name
project_slug: "{{ .project_name | snake }}"
python_version: ["3.12", "3.11"]
use_docker: true
retries: 3
`), &s)
	require.NoError(t, err)
	return &s
}

func TestSchemaUnmarshalKeepsOrderAndKinds(t *testing.T) {
	s := testSchema(t)

	assert.Equal(t, []string{"project_name", "project_slug", "python_version", "use_docker", "retries"}, s.Names())

	v, ok := s.Lookup("python_version")
	require.True(t, ok)
	assert.Equal(t, Choice, v.Kind)
	assert.Equal(t, "3.12", v.Default)

	v, _ = s.Lookup("use_docker")
	assert.Equal(t, Bool, v.Kind)
	assert.Equal(t, true, v.Default)

	v, _ = s.Lookup("retries")
	assert.Equal(t, String, v.Kind)
	assert.Equal(t, "3", v.Default)
}

func TestSchemaRejectsDuplicates(t *testing.T) {
	_, err := NewSchema(
		Variable{Name: "a", Kind: String, Default: "x"},
		Variable{Name: "a", Kind: String, Default: "y"},
	)
	require.Error(t, err)

	_, err = NewSchema(Variable{Name: "c", Kind: Choice})
	require.Error(t, err)
}

func TestResolveDefaults(t *testing.T) {
	ctx, err := Resolve(testSchema(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "Project Name", ctx.String("project_name"))
	assert.Equal(t, "project_name", ctx.String("project_slug"))
	assert.Equal(t, "3.12", ctx.String("python_version"))
	docker, ok := ctx.Bool("use_docker")
	assert.True(t, ok)
	assert.True(t, docker)
	assert.Equal(t, []string{"project_name", "project_slug", "python_version", "use_docker", "retries"}, ctx.Keys())
}

func TestResolveOverridesWinAndFeedComputedDefaults(t *testing.T) {
	ctx, err := Resolve(testSchema(t), map[string]any{
		"project_name":   "Ocean Currents",
		"python_version": "3.11",
		"use_docker":     "no",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ocean Currents", ctx.String("project_name"))
	assert.Equal(t, "ocean_currents", ctx.String("project_slug"))
	assert.Equal(t, "3.11", ctx.String("python_version"))
	docker, _ := ctx.Bool("use_docker")
	assert.False(t, docker)
}

func TestResolveOverrideOfComputedDefaultIsLiteral(t *testing.T) {
	ctx, err := Resolve(testSchema(t), map[string]any{"project_slug": "{{ .x }}"})
	require.NoError(t, err)
	assert.Equal(t, "{{ .x }}", ctx.String("project_slug"))
}

func TestResolveUnknownOverride(t *testing.T) {
	_, err := Resolve(testSchema(t), map[string]any{"projct_name": "typo"})

	var unknown *UnknownVariableError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "projct_name", unknown.Name)
	assert.Contains(t, unknown.Known, "project_name")
}

func TestResolveInvalidValues(t *testing.T) {
	tests := map[string]map[string]any{
		"bad choice": {"python_version": "2.7"},
		"bad bool":   {"use_docker": "maybe"},
		"bool type":  {"use_docker": 12},
	}
	for name, overrides := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(testSchema(t), overrides)
			var invalid *InvalidValueError
			require.ErrorAs(t, err, &invalid)
		})
	}
}

func TestResolveLayeredUserDefaults(t *testing.T) {
	ctx, err := ResolveLayered(testSchema(t),
		map[string]any{"project_name": "From Config", "unrelated": "ignored"},
		map[string]any{"use_docker": false},
	)
	require.NoError(t, err)
	assert.Equal(t, "From Config", ctx.String("project_name"))
	assert.Equal(t, "from_config", ctx.String("project_slug"))
	_, present := ctx.Get("unrelated")
	assert.False(t, present)
}

func TestResolveComputedDefaultReferencingLaterVariable(t *testing.T) {
	s := MustSchema(
		Variable{Name: "slug", Kind: String, Default: "{{ .name }}"},
		Variable{Name: "name", Kind: String, Default: "n"},
	)
	_, err := Resolve(s, nil)

	var undef *render.UndefinedVariableError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, "name", undef.Name)
}

func TestContextIsImmutable(t *testing.T) {
	ctx, err := Resolve(testSchema(t), nil)
	require.NoError(t, err)

	values := ctx.Values()
	values["project_name"] = "mutated"
	assert.Equal(t, "Project Name", ctx.String("project_name"))

	keys := ctx.Keys()
	keys[0] = "mutated"
	assert.Equal(t, "project_name", ctx.Keys()[0])
}

func TestParseAssignments(t *testing.T) {
	got, err := ParseAssignments([]string{"a=1", "b=x=y", "a=2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "2", "b": "x=y"}, got)

	_, err = ParseAssignments([]string{"novalue"})
	require.Error(t, err)
	_, err = ParseAssignments([]string{"=v"})
	require.Error(t, err)
}

func TestEqual(t *testing.T) {
	a, _ := Resolve(testSchema(t), nil)
	b, _ := Resolve(testSchema(t), nil)
	c, _ := Resolve(testSchema(t), map[string]any{"use_docker": false})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}
