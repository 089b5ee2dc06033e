package model

import "slices"

type SortDirection int

const (
	SortAsc  SortDirection = 1
	SortDesc SortDirection = -1

	// VersionField is the internal revision counter stored on every document.
	VersionField = "__v"
)

type (
	SortField struct {
		Field     string
		Direction SortDirection
	}

	// Projection is either an inclusion list or an exclusion list, never both.
	Projection struct {
		Include []string
		Exclude []string
	}

	// Criteria is the immutable query descriptor threaded through the query
	// feature stages. Every method returns a modified copy.
	Criteria struct {
		specs      []Specification
		sorting    []SortField
		projection Projection
		page       int
		limit      int
	}
)

func NewCriteria() Criteria {
	return Criteria{}
}

func (c Criteria) Where(spec Specification) Criteria {
	if spec == nil {
		return c
	}

	c.specs = append(slices.Clone(c.specs), spec)

	return c
}

// OrderBy replaces the sort directives. A leading "-" marks a descending field.
func (c Criteria) OrderBy(fields ...string) Criteria {
	c.sorting = make([]SortField, 0, len(fields))

	for _, field := range fields {
		if field == "" {
			continue
		}

		direction := SortAsc
		if field[0] == '-' {
			direction = SortDesc
			field = field[1:]
		}

		c.sorting = append(c.sorting, SortField{Field: field, Direction: direction})
	}

	return c
}

func (c Criteria) Select(fields ...string) Criteria {
	c.projection = Projection{Include: slices.Clone(fields)}

	return c
}

func (c Criteria) Exclude(fields ...string) Criteria {
	c.projection = Projection{Exclude: slices.Clone(fields)}

	return c
}

func (c Criteria) Paginate(page, limit int) Criteria {
	c.page = page
	c.limit = limit

	return c
}

// Spec folds every predicate into one conjunctive tree.
func (c Criteria) Spec() Specification {
	switch len(c.specs) {
	case 0:
		return nil
	case 1:
		return c.specs[0]
	default:
		return Must(c.specs...)
	}
}

func (c Criteria) Sorting() []SortField   { return slices.Clone(c.sorting) }
func (c Criteria) Projection() Projection { return c.projection }
func (c Criteria) Page() int              { return c.page }
func (c Criteria) Limit() int             { return c.limit }
func (c Criteria) HasSpec() bool          { return len(c.specs) > 0 }
func (c Criteria) HasSorting() bool       { return len(c.sorting) > 0 }
func (c Criteria) HasPagination() bool    { return c.page > 0 && c.limit > 0 }

func (c Criteria) Skip() int {
	if !c.HasPagination() {
		return 0
	}

	return (c.page - 1) * c.limit
}
