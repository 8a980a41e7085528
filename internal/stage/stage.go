// Package stage holds the errors and range checks shared by the chained
// completion components.
package stage

import (
	"errors"
	"fmt"
	"math"
)

const (
	CodeDependency = "STAGE_DEPENDENCY"
	CodeValidation = "SCHEMA_VALIDATION"
)

// Coder is implemented by errors that carry a stable machine-readable code.
type Coder interface {
	Code() string
}

// CodeOf returns the code of the first error in err's chain that has one,
// or "" if none does.
func CodeOf(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// DependencyError is returned when a stage is invoked without the upstream
// result it consumes. It is raised before any completion call is made.
type DependencyError struct {
	Stage    string
	Requires string
	Reason   string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s requires %s: %s", e.Stage, e.Requires, e.Reason)
}

func (e *DependencyError) Code() string { return CodeDependency }

// ValidationError reports a value outside its domain after parsing. When a
// value can be clamped the chain continues and the error is only logged.
type ValidationError struct {
	Stage  string
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s (%v): %s", e.Stage, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Code() string { return CodeValidation }

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp01 limits v to [0,1]. The bool is false when v had to change.
func Clamp01(v float64) (float64, bool) {
	return ClampRange(v, 0, 1)
}

// ClampRange limits v to [lo,hi]. NaN becomes lo.
func ClampRange(v, lo, hi float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return lo, false
	case v < lo:
		return lo, false
	case v > hi:
		return hi, false
	}
	return v, true
}

// ClampMin limits v to [lo,+Inf).
func ClampMin(v, lo float64) (float64, bool) {
	return ClampRange(v, lo, math.Inf(1))
}

// Clamper clamps a series of fields for one stage and collects what it had
// to change.
type Clamper struct {
	Stage    string
	Adjusted []*ValidationError
}

// Unit clamps *v to [0,1].
func (c *Clamper) Unit(field string, v *float64) {
	c.Range(field, v, 0, 1)
}

// Range clamps *v to [lo,hi].
func (c *Clamper) Range(field string, v *float64, lo, hi float64) {
	clamped, ok := ClampRange(*v, lo, hi)
	if !ok {
		c.Adjusted = append(c.Adjusted, &ValidationError{
			Stage:  c.Stage,
			Field:  field,
			Value:  *v,
			Reason: fmt.Sprintf("outside [%g,%g], clamped to %g", lo, hi, clamped),
		})
		*v = clamped
	}
}

// Min clamps *v to [lo,+Inf).
func (c *Clamper) Min(field string, v *float64, lo float64) {
	c.Range(field, v, lo, math.Inf(1))
}
