package model

import "slices"

type SpecOperator string

const (
	SpecOpEq        SpecOperator = "eq"
	SpecOpNotEq     SpecOperator = "neq"
	SpecOpIn        SpecOperator = "in"
	SpecOpGt        SpecOperator = "gt"
	SpecOpGte       SpecOperator = "gte"
	SpecOpLt        SpecOperator = "lt"
	SpecOpLte       SpecOperator = "lte"
	SpecOpBetween   SpecOperator = "between"
	SpecOpLike      SpecOperator = "like"
	SpecOpGeoWithin SpecOperator = "geo_within"
	SpecOpMust      SpecOperator = "must"
	SpecOpShould    SpecOperator = "should"
	SpecOpMustNot   SpecOperator = "must_not"
)

// Specification is a tree of predicates. Leaves carry (field, operator, value),
// composites carry children. Every method returns a new tree.
type Specification interface {
	Must(other Specification) Specification
	Should(other Specification) Specification
	MustNot() Specification
	IsComposite() bool
	Children() []Specification
	Operator() SpecOperator
	Field() string
	Value() any
}

type predicate struct {
	op    SpecOperator
	field string
	value any
}

func newPredicate(op SpecOperator, field string, value any) Specification {
	return predicate{op: op, field: field, value: value}
}

func Eq(field string, value any) Specification    { return newPredicate(SpecOpEq, field, value) }
func NotEq(field string, value any) Specification { return newPredicate(SpecOpNotEq, field, value) }
func Gt(field string, value any) Specification    { return newPredicate(SpecOpGt, field, value) }
func Gte(field string, value any) Specification   { return newPredicate(SpecOpGte, field, value) }
func Lt(field string, value any) Specification    { return newPredicate(SpecOpLt, field, value) }
func Lte(field string, value any) Specification   { return newPredicate(SpecOpLte, field, value) }

func In(field string, values ...any) Specification {
	return newPredicate(SpecOpIn, field, slices.Clone(values))
}

func Between(field string, start, end any) Specification {
	return newPredicate(SpecOpBetween, field, []any{start, end})
}

// Like matches a case-insensitive substring.
func Like(field, pattern string) Specification {
	return newPredicate(SpecOpLike, field, pattern)
}

// GeoWithin matches documents whose point lies inside the spherical cap.
func GeoWithin(field string, circle GeoCircle) Specification {
	return newPredicate(SpecOpGeoWithin, field, circle)
}

func (p predicate) Must(other Specification) Specification   { return Must(p, other) }
func (p predicate) Should(other Specification) Specification { return Should(p, other) }
func (p predicate) MustNot() Specification                   { return MustNot(p) }
func (p predicate) IsComposite() bool                        { return false }
func (p predicate) Children() []Specification                { return nil }
func (p predicate) Operator() SpecOperator                   { return p.op }
func (p predicate) Field() string                            { return p.field }
func (p predicate) Value() any                               { return p.value }

type composite struct {
	op    SpecOperator
	specs []Specification
}

func Must(specs ...Specification) Specification {
	return composite{op: SpecOpMust, specs: slices.Clone(specs)}
}

func Should(specs ...Specification) Specification {
	return composite{op: SpecOpShould, specs: slices.Clone(specs)}
}

func MustNot(spec Specification) Specification {
	return composite{op: SpecOpMustNot, specs: []Specification{spec}}
}

func (c composite) Must(other Specification) Specification {
	if c.op == SpecOpMust {
		return Must(append(slices.Clone(c.specs), other)...)
	}

	return Must(c, other)
}

func (c composite) Should(other Specification) Specification {
	if c.op == SpecOpShould {
		return Should(append(slices.Clone(c.specs), other)...)
	}

	return Should(c, other)
}

func (c composite) MustNot() Specification {
	if c.op == SpecOpMustNot {
		return c.specs[0]
	}

	return MustNot(c)
}

func (c composite) IsComposite() bool         { return true }
func (c composite) Children() []Specification { return slices.Clone(c.specs) }
func (c composite) Operator() SpecOperator    { return c.op }
func (c composite) Field() string             { return "" }
func (c composite) Value() any                { return nil }
