package classify

import (
	"fmt"
	"strings"
)

// Op is a predicate comparison
type Op string

const (
	OpEq           Op = "eq"
	OpNe           Op = "ne"
	OpContains     Op = "contains"
	OpContainsFold Op = "contains_fold"
	OpPrefix       Op = "prefix"
	OpSuffix       Op = "suffix"
	OpIntBetween   Op = "int_between"
	OpAbsent       Op = "absent"
	OpEmpty        Op = "empty"
)

// Predicate tests one attribute. Comparisons use the rendered form of the
// attribute, so an absent value compares as NotAvailable.
type Predicate struct {
	Field Field  `yaml:"field"`
	Op    Op     `yaml:"op"`
	Value string `yaml:"value,omitempty"`
	Min   int    `yaml:"min,omitempty"`
	Max   int    `yaml:"max,omitempty"`
}

// Eval applies the predicate to a
func (p Predicate) Eval(a Attributes) bool {
	attr := a.Get(p.Field)
	s := attr.String()
	switch p.Op {
	case OpEq:
		return s == p.Value
	case OpNe:
		return s != p.Value
	case OpContains:
		return strings.Contains(s, p.Value)
	case OpContainsFold:
		return strings.Contains(strings.ToLower(s), strings.ToLower(p.Value))
	case OpPrefix:
		return strings.HasPrefix(s, p.Value)
	case OpSuffix:
		return strings.HasSuffix(s, p.Value)
	case OpIntBetween:
		i, ok := attr.Int()
		return ok && p.Min <= i && i <= p.Max
	case OpAbsent:
		return !attr.IsSome()
	case OpEmpty:
		v, ok := attr.Get()
		return ok && v == ""
	}
	return false
}

func (p Predicate) String() string {
	switch p.Op {
	case OpIntBetween:
		return fmt.Sprintf("%s %s [%d,%d]", p.Field, p.Op, p.Min, p.Max)
	case OpAbsent, OpEmpty:
		return fmt.Sprintf("%s %s", p.Field, p.Op)
	}
	return fmt.Sprintf("%s %s %q", p.Field, p.Op, p.Value)
}

// Validate checks the field name and operator
func (p Predicate) Validate() error {
	if !p.Field.Valid() {
		return fmt.Errorf("unknown field %q", p.Field)
	}
	switch p.Op {
	case OpEq, OpNe, OpContains, OpContainsFold, OpPrefix, OpSuffix, OpAbsent, OpEmpty:
		return nil
	case OpIntBetween:
		if p.Min > p.Max {
			return fmt.Errorf("%s: min %d above max %d", p.Field, p.Min, p.Max)
		}
		return nil
	}
	return fmt.Errorf("%s: unknown op %q", p.Field, p.Op)
}

// Eq matches an exact value
func Eq(f Field, v string) Predicate { return Predicate{Field: f, Op: OpEq, Value: v} }

// Ne matches anything but v
func Ne(f Field, v string) Predicate { return Predicate{Field: f, Op: OpNe, Value: v} }

// Contains matches a substring
func Contains(f Field, v string) Predicate { return Predicate{Field: f, Op: OpContains, Value: v} }

// ContainsFold matches a substring ignoring case
func ContainsFold(f Field, v string) Predicate {
	return Predicate{Field: f, Op: OpContainsFold, Value: v}
}

// Prefix matches a leading substring
func Prefix(f Field, v string) Predicate { return Predicate{Field: f, Op: OpPrefix, Value: v} }

// Suffix matches a trailing substring
func Suffix(f Field, v string) Predicate { return Predicate{Field: f, Op: OpSuffix, Value: v} }

// Between matches a present integer in [lo, hi]
func Between(f Field, lo, hi int) Predicate {
	return Predicate{Field: f, Op: OpIntBetween, Min: lo, Max: hi}
}

// Rule is a named conjunction of predicates
type Rule struct {
	Name string      `yaml:"name"`
	All  []Predicate `yaml:"all"`
}

// Matches reports whether every predicate holds
func (r Rule) Matches(a Attributes) bool {
	for _, p := range r.All {
		if !p.Eval(a) {
			return false
		}
	}
	return true
}

// Validate checks the name and every predicate
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule without a name")
	}
	for _, p := range r.All {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}
	return nil
}
