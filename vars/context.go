package vars

import (
	"fmt"
	"maps"
)

// Context is the resolved set of variables used for one bake. It is built
// once by Resolve and never changes afterwards.
type Context struct {
	values map[string]any
	order  []string
}

// NewContext builds a context directly from values, bypassing any schema.
// Keys listed in order come first; the rest follow sorted by name.
func NewContext(values map[string]any, order ...string) Context {
	c := Context{values: make(map[string]any, len(values))}
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if v, ok := values[k]; ok && !seen[k] {
			c.set(k, v)
			seen[k] = true
		}
	}
	for _, k := range sortedKeys(values) {
		if !seen[k] {
			c.set(k, values[k])
		}
	}
	return c
}

func (c *Context) set(name string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	if _, exists := c.values[name]; !exists {
		c.order = append(c.order, name)
	}
	c.values[name] = value
}

// Get returns the raw value of a variable.
func (c Context) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// String returns the string form of a variable, or "" if it is absent.
func (c Context) String(name string) string {
	v, ok := c.values[name]
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// Bool reports the value of a boolean variable. The second result is false
// when the variable is absent or not a bool.
func (c Context) Bool(name string) (bool, bool) {
	b, ok := c.values[name].(bool)
	return b, ok
}

// Keys returns variable names in resolution order.
func (c Context) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Values returns a copy of the variables, suitable as template data.
func (c Context) Values() map[string]any {
	return maps.Clone(c.values)
}

func (c Context) Len() int {
	return len(c.order)
}
