package vars

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/cpcf/kiln/render"
)

// Resolve merges overrides into the schema defaults. Every override key must
// be declared by the schema.
func Resolve(defaults *Schema, overrides map[string]any) (Context, error) {
	return ResolveLayered(defaults, nil, overrides)
}

// ResolveLayered resolves with three layers: schema defaults, then user
// defaults, then overrides. User defaults come from global configuration and
// apply to many templates, so entries the schema does not declare are
// ignored. Overrides are strict.
//
// String defaults containing template actions are rendered in schema order
// against the variables resolved before them. Override values are taken
// literally.
func ResolveLayered(schema *Schema, userDefaults, overrides map[string]any) (Context, error) {
	for _, name := range sortedKeys(overrides) {
		if _, ok := schema.Lookup(name); !ok {
			return Context{}, &UnknownVariableError{Name: name, Known: schema.Names()}
		}
	}

	var ctx Context
	for _, v := range schema.Variables() {
		if raw, ok := overrides[v.Name]; ok {
			val, err := v.Coerce(raw)
			if err != nil {
				return Context{}, err
			}
			ctx.set(v.Name, val)
			continue
		}
		if raw, ok := userDefaults[v.Name]; ok {
			val, err := v.Coerce(raw)
			if err != nil {
				return Context{}, fmt.Errorf("default_context: %w", err)
			}
			ctx.set(v.Name, val)
			continue
		}

		val := v.Default
		if s, ok := val.(string); ok && v.Kind == String && strings.Contains(s, "{{") {
			rendered, err := render.Render(s, ctx)
			if err != nil {
				return Context{}, fmt.Errorf("default of %q: %w", v.Name, err)
			}
			val = rendered
		}
		ctx.set(v.Name, val)
	}
	return ctx, nil
}

// ParseAssignments turns key=value arguments into an override map. Later
// assignments to the same key win.
func ParseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", arg)
		}
		out[key] = value
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two contexts hold the same variables in the same
// order.
func Equal(a, b Context) bool {
	if !slices.Equal(a.order, b.order) {
		return false
	}
	for _, k := range a.order {
		if fmt.Sprint(a.values[k]) != fmt.Sprint(b.values[k]) {
			return false
		}
	}
	return true
}
