package tree

import (
	"fmt"
	"strings"

	"github.com/cpcf/kiln/vars"
)

// Predicate decides whether a node is generated. Supported forms:
//
//	flag        bool variable is true, or string variable is non-empty
//	            and not a no spelling such as "n" or "false"
//	!flag       the negation
//	name=value  variable's string form equals value
//	name!=value the negation
type Predicate struct {
	Var    string
	Value  string
	Negate bool

	compare bool
	raw     string
}

func ParsePredicate(s string) (*Predicate, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, fmt.Errorf("empty predicate")
	}
	p := &Predicate{raw: raw}

	if name, value, ok := strings.Cut(raw, "!="); ok {
		p.Var, p.Value, p.Negate, p.compare = strings.TrimSpace(name), strings.TrimSpace(value), true, true
	} else if name, value, ok := strings.Cut(raw, "="); ok {
		p.Var, p.Value, p.compare = strings.TrimSpace(name), strings.TrimSpace(value), true
	} else if name, ok := strings.CutPrefix(raw, "!"); ok {
		p.Var, p.Negate = strings.TrimSpace(name), true
	} else {
		p.Var = raw
	}

	if p.Var == "" {
		return nil, fmt.Errorf("predicate %q names no variable", raw)
	}
	return p, nil
}

// Eval evaluates the predicate against ctx. A predicate naming a variable
// the context lacks is an error.
func (p *Predicate) Eval(ctx vars.Context) (bool, error) {
	v, ok := ctx.Get(p.Var)
	if !ok {
		return false, &vars.UnknownVariableError{Name: p.Var, Known: ctx.Keys()}
	}

	var result bool
	switch {
	case p.compare:
		result = fmt.Sprint(v) == p.Value
	default:
		switch val := v.(type) {
		case bool:
			result = val
		case string:
			if b, ok := vars.ParseBool(val); ok {
				result = b
			} else {
				result = val != ""
			}
		default:
			result = v != nil
		}
	}

	if p.Negate {
		return !result, nil
	}
	return result, nil
}

func (p *Predicate) String() string {
	return p.raw
}
