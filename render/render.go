// Package render substitutes context variables into template strings.
//
// Templates use text/template syntax. Variables are top-level fields of the
// data map, so a placeholder reads {{ .project_name }} and an optional block
// reads {{ if .use_docker }}...{{ end }}. Every variable a template mentions
// must exist in the context, including inside branches that are not taken.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// Context supplies template data.
type Context interface {
	Values() map[string]any
}

// Renderer renders template strings. It is safe for concurrent use.
type Renderer struct {
	funcs template.FuncMap
	cache *Cache
}

type Option func(*Renderer)

// WithFuncs adds functions to the renderer's function map, replacing any
// default of the same name.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Renderer) {
		for name, fn := range funcs {
			r.funcs[name] = fn
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{funcs: DefaultFuncMap()}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = NewCache(r.funcs)
	return r
}

var std = New()

// Render renders text with the default renderer.
func Render(text string, ctx Context) (string, error) {
	return std.Render(text, ctx)
}

// Render substitutes ctx into text. The result depends only on text and
// ctx unless the template calls a non-deterministic function such as uuid.
func (r *Renderer) Render(text string, ctx Context) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := r.cache.Get(text)
	if err != nil {
		return "", err
	}

	data := ctx.Values()
	if data == nil {
		data = map[string]any{}
	}
	for _, name := range References(tmpl) {
		if _, ok := data[name]; !ok {
			return "", &UndefinedVariableError{Name: name}
		}
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", execError(err)
	}
	return buf.String(), nil
}

// Check parses text and reports the first variable it references that ctx
// lacks, without executing it.
func (r *Renderer) Check(text string, ctx Context) error {
	if !strings.Contains(text, "{{") {
		return nil
	}
	tmpl, err := r.cache.Get(text)
	if err != nil {
		return err
	}
	data := ctx.Values()
	for _, name := range References(tmpl) {
		if _, ok := data[name]; !ok {
			return &UndefinedVariableError{Name: name}
		}
	}
	return nil
}

var missingKey = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

func execError(err error) error {
	if m := missingKey.FindStringSubmatch(err.Error()); m != nil {
		return &UndefinedVariableError{Name: m[1]}
	}
	var execErr template.ExecError
	if errors.As(err, &execErr) {
		return &ExecError{Err: execErr.Err}
	}
	return &ExecError{Err: err}
}

// UndefinedVariableError is returned when a template references a variable
// that is not in the context.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// SyntaxError is returned when a template cannot be parsed.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// ExecError is returned when a parsed template fails while executing, for
// example when a function returns an error.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("template execution: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
