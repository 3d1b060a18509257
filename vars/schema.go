// Package vars resolves the variables a template is baked with.
//
// A Schema declares every variable a template understands together with its
// default value. Resolve merges caller overrides into the schema defaults and
// produces an immutable Context that the renderer consumes.
package vars

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the type of value a variable holds.
type Kind int

const (
	String Kind = iota
	Bool
	Choice
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "bool"
	case Choice:
		return "choice"
	default:
		return "unknown"
	}
}

// Variable is a single schema entry. Default is a string for String and
// Choice variables and a bool for Bool variables. The default of a Choice is
// always its first choice.
type Variable struct {
	Name    string
	Kind    Kind
	Default any
	Choices []string
}

// Coerce converts a raw override value to the variable's kind.
func (v Variable) Coerce(raw any) (any, error) {
	switch v.Kind {
	case Bool:
		switch val := raw.(type) {
		case bool:
			return val, nil
		case string:
			b, ok := ParseBool(val)
			if !ok {
				return nil, &InvalidValueError{Name: v.Name, Value: raw, Reason: "expected a boolean"}
			}
			return b, nil
		default:
			return nil, &InvalidValueError{Name: v.Name, Value: raw, Reason: "expected a boolean"}
		}
	case Choice:
		s := fmt.Sprint(raw)
		for _, c := range v.Choices {
			if c == s {
				return s, nil
			}
		}
		return nil, &InvalidValueError{
			Name:   v.Name,
			Value:  raw,
			Reason: fmt.Sprintf("must be one of [%s]", strings.Join(v.Choices, ", ")),
		}
	default:
		return fmt.Sprint(raw), nil
	}
}

// ParseBool reads the yes/no spellings accepted for bool variables, such as
// "y", "no", "on" and "0". The second result is false for anything else.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "on", "1":
		return true, true
	case "false", "no", "n", "off", "0":
		return false, true
	}
	return false, false
}

// Schema is an ordered set of variables. Order matters: string defaults may
// reference variables declared before them.
type Schema struct {
	vars  []Variable
	index map[string]int
}

// NewSchema builds a schema, rejecting duplicate or empty names and choice
// variables without choices.
func NewSchema(vars ...Variable) (*Schema, error) {
	s := &Schema{index: make(map[string]int, len(vars))}
	for _, v := range vars {
		if err := s.add(v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSchema is NewSchema for static declarations; it panics on error.
func MustSchema(vars ...Variable) *Schema {
	s, err := NewSchema(vars...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) add(v Variable) error {
	if v.Name == "" {
		return fmt.Errorf("variable name must not be empty")
	}
	if _, dup := s.index[v.Name]; dup {
		return fmt.Errorf("variable %q declared twice", v.Name)
	}
	switch v.Kind {
	case Choice:
		if len(v.Choices) == 0 {
			return fmt.Errorf("choice variable %q has no choices", v.Name)
		}
		v.Default = v.Choices[0]
	case Bool:
		if _, ok := v.Default.(bool); !ok {
			return fmt.Errorf("bool variable %q has non-bool default %v", v.Name, v.Default)
		}
	default:
		v.Default = fmt.Sprint(v.Default)
	}
	s.index[v.Name] = len(s.vars)
	s.vars = append(s.vars, v)
	return nil
}

// Variables returns the variables in declaration order.
func (s *Schema) Variables() []Variable {
	if s == nil {
		return nil
	}
	out := make([]Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

// Lookup returns the named variable.
func (s *Schema) Lookup(name string) (Variable, bool) {
	if s == nil {
		return Variable{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Variable{}, false
	}
	return s.vars[i], true
}

// Names returns variable names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.Name
	}
	return names
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vars)
}

// UnmarshalYAML reads a mapping of variable name to default value, keeping
// the document order. Scalars become strings, YAML booleans become bools
// and sequences of scalars become choices.
func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: variables must be a mapping", node.Line)
	}
	*s = Schema{index: make(map[string]int, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		v, err := variableFromNode(key.Value, val)
		if err != nil {
			return err
		}
		if err := s.add(v); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	return nil
}

func variableFromNode(name string, node *yaml.Node) (Variable, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!bool" {
			b, err := strconv.ParseBool(node.Value)
			if err != nil {
				return Variable{}, fmt.Errorf("line %d: %q: %w", node.Line, name, err)
			}
			return Variable{Name: name, Kind: Bool, Default: b}, nil
		}
		if node.Tag == "!!null" {
			return Variable{Name: name, Kind: String, Default: ""}, nil
		}
		return Variable{Name: name, Kind: String, Default: node.Value}, nil
	case yaml.SequenceNode:
		choices := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return Variable{}, fmt.Errorf("line %d: choices of %q must be scalars", item.Line, name)
			}
			choices = append(choices, item.Value)
		}
		return Variable{Name: name, Kind: Choice, Choices: choices}, nil
	default:
		return Variable{}, fmt.Errorf("line %d: unsupported value for %q", node.Line, name)
	}
}
