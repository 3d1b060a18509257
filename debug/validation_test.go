package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpcf/kiln/engine"
	"github.com/cpcf/kiln/kilntest"
	"github.com/cpcf/kiln/render"
	"github.com/cpcf/kiln/templates"
)

func TestValidateBuiltinTemplates(t *testing.T) {
	for _, name := range templates.Names() {
		tmpl, err := engine.LoadTemplate(templates.MustLookup(name), name)
		require.NoError(t, err)

		result := NewTemplateValidator(nil).Validate(tmpl)
		assert.Empty(t, result.Errors, name)
		assert.Empty(t, result.Warnings, name)
		assert.Equal(t, "valid", result.Summary())
	}
}

func TestValidateReportsProblems(t *testing.T) {
	fsys := kilntest.NewMemoryFSFrom(map[string]string{
		"kiln.yaml": `variables:
  name: demo
  slug: "{{ .name | kebab }}-{{ .later }}"
  later: x
  unused: y
  flag: true
when:
  extra.txt: flg
`,
		"{{.slug}}/README.md":       "{{ .name }} {{ .nmae }}",
		"{{.slug}}/broken.txt":      "line one\n{{ if .flag }}",
		"{{.slug}}/extra.txt":       "x",
		"hooks/post_gen_project.sh": "echo {{ .missing_var }}",
	})
	tmpl, err := engine.LoadTemplate(fsys, "demo")
	require.NoError(t, err)

	result := NewTemplateValidator(nil).Validate(tmpl)
	require.True(t, result.HasErrors())

	byType := map[string]ValidationError{}
	for _, e := range result.Errors {
		byType[e.Type] = e
	}
	require.Len(t, result.Errors, 5)

	assert.Equal(t, "variables.slug", byType[ForwardReference].File)
	assert.Contains(t, byType[ForwardReference].Message, `"later"`)

	undefined := []string{}
	for _, e := range result.Errors {
		if e.Type == UndefinedVariable {
			undefined = append(undefined, e.File)
		}
	}
	assert.ElementsMatch(t, []string{"README.md", "hooks/post_gen_project.sh"}, undefined)

	syntax := byType[SyntaxError]
	assert.Equal(t, "broken.txt", syntax.File)
	assert.Equal(t, 2, syntax.Line)
	assert.Equal(t, "check for a missing {{ end }}", syntax.Suggestion)

	pred := byType[UnknownPredicate]
	assert.Equal(t, "extra.txt", pred.File)
	assert.Equal(t, `did you mean "flag"?`, pred.Suggestion)

	var unused []string
	for _, w := range result.Warnings {
		assert.Equal(t, UnusedVariable, w.Type)
		unused = append(unused, w.File)
	}
	assert.ElementsMatch(t, []string{"variables.unused", "variables.flag"}, unused)
	assert.Equal(t, "5 error(s), 2 warning(s)", result.Summary())
}

func TestValidateSuggestsNames(t *testing.T) {
	fsys := kilntest.NewMemoryFSFrom(map[string]string{
		"kiln.yaml":           "variables:\n  project_name: x\n",
		"{{.project_name}}/a": "{{ .project_nmae }}",
	})
	tmpl, err := engine.LoadTemplate(fsys, "t")
	require.NoError(t, err)

	result := NewTemplateValidator(nil).Validate(tmpl)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, `error: a: "project_nmae" is not declared (did you mean "project_name"?)`, result.Errors[0].String())
}

func TestValidateCustomFuncs(t *testing.T) {
	fsys := kilntest.NewMemoryFSFrom(map[string]string{
		"kiln.yaml":   "variables:\n  name: x\n",
		"{{.name}}/a": "{{ .name | shout }}",
	})
	tmpl, err := engine.LoadTemplate(fsys, "t")
	require.NoError(t, err)

	result := NewTemplateValidator(nil).Validate(tmpl)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, SyntaxError, result.Errors[0].Type)
	assert.Equal(t, "check the function name", result.Errors[0].Suggestion)

	result = NewTemplateValidator(map[string]any{"shout": func(s string) string { return s }}).Validate(tmpl)
	assert.False(t, result.HasErrors())
}

func TestValidateUsesGivenFuncMap(t *testing.T) {
	fsys := kilntest.NewMemoryFSFrom(map[string]string{
		"kiln.yaml":   "variables:\n  name: x\n",
		"{{.name}}/a": "(c) {{ year }} {{ .name }}",
	})
	tmpl, err := engine.LoadTemplate(fsys, "t")
	require.NoError(t, err)

	result := NewTemplateValidator(nil).Validate(tmpl)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, SyntaxError, result.Errors[0].Type)

	result = NewTemplateValidator(render.ExtendedFuncMap()).Validate(tmpl)
	assert.False(t, result.HasErrors())
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("abc", "abc"))
	assert.Equal(t, 1, editDistance("abc", "abd"))
	assert.Equal(t, 2, editDistance("nmae", "name"))
	assert.Equal(t, 3, editDistance("", "abc"))
}
