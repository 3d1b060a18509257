package vars

import (
	"fmt"
	"strings"
)

// UnknownVariableError is returned when an override names a variable the
// schema does not declare.
type UnknownVariableError struct {
	Name  string
	Known []string
}

func (e *UnknownVariableError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown variable %q", e.Name)
	}
	return fmt.Sprintf("unknown variable %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

// InvalidValueError is returned when an override cannot be converted to the
// kind its variable declares.
type InvalidValueError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v for variable %q: %s", e.Value, e.Name, e.Reason)
}
