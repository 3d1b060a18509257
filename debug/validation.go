// Package debug checks a template for mistakes that would otherwise only
// show up when a particular combination of variables is baked.
package debug

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cpcf/kiln/engine"
	"github.com/cpcf/kiln/hooks"
	"github.com/cpcf/kiln/render"
	"github.com/cpcf/kiln/tree"
	"github.com/cpcf/kiln/vars"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Issue kinds.
const (
	SyntaxError       = "syntax_error"
	UndefinedVariable = "undefined_variable"
	ForwardReference  = "forward_reference"
	UnknownPredicate  = "unknown_predicate_variable"
	UnusedVariable    = "unused_variable"
)

type ValidationError struct {
	Severity Severity
	Type     string
	Message  string
	// File is the template path the issue was found in: a tree path,
	// hooks/<name> or variables.<name> for schema defaults.
	File       string
	Line       int
	Suggestion string
}

func (e ValidationError) String() string {
	loc := e.File
	if e.Line > 0 {
		loc += ":" + strconv.Itoa(e.Line)
	}
	s := fmt.Sprintf("%s: %s: %s", e.Severity, loc, e.Message)
	if e.Suggestion != "" {
		s += " (" + e.Suggestion + ")"
	}
	return s
}

type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

func (vr *ValidationResult) add(e ValidationError) {
	if e.Severity == Error {
		vr.Errors = append(vr.Errors, e)
	} else {
		vr.Warnings = append(vr.Warnings, e)
	}
}

func (vr ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

func (vr ValidationResult) Summary() string {
	if len(vr.Errors) == 0 && len(vr.Warnings) == 0 {
		return "valid"
	}
	var parts []string
	if len(vr.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", len(vr.Errors)))
	}
	if len(vr.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", len(vr.Warnings)))
	}
	return strings.Join(parts, ", ")
}

// TemplateValidator parses every templated string of a template with a
// fixed function map.
type TemplateValidator struct {
	cache *render.Cache
}

// NewTemplateValidator validates against render.DefaultFuncMap plus extra.
// extra should hold the functions the baking renderer was given through
// render.WithFuncs, or templates that bake would be rejected.
func NewTemplateValidator(extra map[string]any) *TemplateValidator {
	funcs := render.DefaultFuncMap()
	for name, fn := range extra {
		funcs[name] = fn
	}
	return &TemplateValidator{cache: render.NewCache(funcs)}
}

// Validate reports syntax errors and references to undeclared variables in
// file names, file contents, hooks, schema defaults and when predicates.
// Variables nothing refers to are reported as warnings.
func (tv *TemplateValidator) Validate(tmpl *engine.Template) ValidationResult {
	var result ValidationResult
	var schema *vars.Schema
	if tmpl.Config != nil {
		schema = tmpl.Config.Variables
	}
	used := make(map[string]bool)

	check := func(file, text string, declared func(string) bool, kind, reason string) {
		refs, err := tv.references(text)
		if err != nil {
			result.add(syntaxIssue(file, err))
			return
		}
		for _, name := range refs {
			used[name] = true
			if !declared(name) {
				result.add(ValidationError{
					Severity:   Error,
					Type:       kind,
					Message:    fmt.Sprintf("%q %s", name, reason),
					File:       file,
					Suggestion: suggestName(name, schema.Names()),
				})
			}
		}
	}
	inSchema := func(name string) bool {
		_, ok := schema.Lookup(name)
		return ok
	}

	// Defaults are rendered in declaration order, so each may only refer
	// to the variables before it.
	for i, v := range schema.Variables() {
		if v.Kind != vars.String {
			continue
		}
		earlier := schema.Names()[:i]
		check("variables."+v.Name, fmt.Sprint(v.Default), func(name string) bool {
			return slices.Contains(earlier, name)
		}, ForwardReference, "is not declared before this variable")
	}

	_ = tree.Walk(tmpl.Tree, func(n *tree.Node) error {
		file := n.Path
		if file == "." {
			file = n.Name
		}
		if n.EnabledWhen != nil {
			used[n.EnabledWhen.Var] = true
			if !inSchema(n.EnabledWhen.Var) {
				result.add(ValidationError{
					Severity:   Error,
					Type:       UnknownPredicate,
					Message:    fmt.Sprintf("when %q names an undeclared variable", n.EnabledWhen),
					File:       file,
					Suggestion: suggestName(n.EnabledWhen.Var, schema.Names()),
				})
			}
		}
		check(file, n.Name, inSchema, UndefinedVariable, "is not declared")
		if !n.IsDir() && !n.Verbatim && !engine.IsBinary(n.Content) {
			check(file, string(n.Content), inSchema, UndefinedVariable, "is not declared")
		}
		return nil
	})

	for _, stage := range hooks.Stages {
		if script := tmpl.Hooks.For(stage); script != nil {
			check(path.Join(hooks.Dir, script.Name), string(script.Source), inSchema, UndefinedVariable, "is not declared")
		}
	}

	for _, v := range schema.Variables() {
		if !used[v.Name] {
			result.add(ValidationError{
				Severity: Warning,
				Type:     UnusedVariable,
				Message:  fmt.Sprintf("%q is never used", v.Name),
				File:     "variables." + v.Name,
			})
		}
	}
	return result
}

func (tv *TemplateValidator) references(text string) ([]string, error) {
	if !strings.Contains(text, "{{") {
		return nil, nil
	}
	parsed, err := tv.cache.Get(text)
	if err != nil {
		return nil, err
	}
	return render.References(parsed), nil
}

var lineNumber = regexp.MustCompile(`:(\d+):`)

func syntaxIssue(file string, err error) ValidationError {
	msg := err.Error()
	var syntaxErr *render.SyntaxError
	if errors.As(err, &syntaxErr) {
		msg = syntaxErr.Err.Error()
	}
	line := 0
	if m := lineNumber.FindStringSubmatch(msg); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return ValidationError{
		Severity:   Error,
		Type:       SyntaxError,
		Message:    msg,
		File:       file,
		Line:       line,
		Suggestion: suggestSyntaxFix(msg),
	}
}

func suggestSyntaxFix(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "function") && strings.Contains(msg, "not defined"):
		return "check the function name"
	case strings.Contains(msg, "unexpected eof"), strings.Contains(msg, "missing end"):
		return "check for a missing {{ end }}"
	case strings.Contains(msg, "unterminated"), strings.Contains(msg, "unclosed"):
		return "check for missing closing quotes or braces"
	case strings.Contains(msg, "unexpected"):
		return "check the syntax near the reported line"
	}
	return ""
}

// suggestName returns a hint naming the declared variable closest to name,
// if any is within two edits.
func suggestName(name string, declared []string) string {
	best, bestDist := "", 3
	for _, d := range declared {
		if dist := editDistance(name, d); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf("did you mean %q?", best)
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
