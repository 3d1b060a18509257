package render

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
)

// DefaultFuncMap holds deterministic helpers. Arguments are ordered so the
// piped value comes last: {{ .name | replace " " "_" }}.
func DefaultFuncMap() template.FuncMap {
	funcs := template.FuncMap{
		"snake":          strcase.ToSnake,
		"screamingSnake": strcase.ToScreamingSnake,
		"kebab":          strcase.ToKebab,
		"camel":          strcase.ToCamel,
		"lowerCamel":     strcase.ToLowerCamel,
		"lower":          strings.ToLower,
		"upper":          strings.ToUpper,
		"title":          title,
		"trim":           strings.TrimSpace,
		"replace":        replace,
		"trimPrefix":     trimPrefix,
		"trimSuffix":     trimSuffix,
		"contains":       contains,
		"default":        defaultValue,
		"quote":          quote,
		"join":           strings.Join,
	}
	maps.Copy(funcs, textFuncMap())
	return funcs
}

// ExtendedFuncMap adds helpers whose output changes between calls. A
// renderer built with these is no longer a pure function of its inputs.
func ExtendedFuncMap() template.FuncMap {
	funcs := DefaultFuncMap()
	maps.Copy(funcs, template.FuncMap{
		"now":  time.Now,
		"year": func() int { return time.Now().Year() },
		"uuid": uuid.NewString,
	})
	return funcs
}

func title(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if upper {
			b.WriteRune(unicode.ToTitle(r))
		} else {
			b.WriteRune(r)
		}
		upper = unicode.IsSpace(r) || r == '-' || r == '_'
	}
	return b.String()
}

func replace(old, repl, s string) string {
	return strings.ReplaceAll(s, old, repl)
}

func trimPrefix(prefix, s string) string {
	return strings.TrimPrefix(s, prefix)
}

func trimSuffix(suffix, s string) string {
	return strings.TrimSuffix(s, suffix)
}

func contains(substr, s string) bool {
	return strings.Contains(s, substr)
}

func defaultValue(def any, given any) any {
	if given == nil {
		return def
	}
	v := reflect.ValueOf(given)
	if v.IsZero() {
		return def
	}
	return given
}

func quote(v any) string {
	return fmt.Sprintf("%q", fmt.Sprint(v))
}
