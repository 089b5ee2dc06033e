package model

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	QueryKeyPage   = "page"
	QueryKeySort   = "sort"
	QueryKeyLimit  = "limit"
	QueryKeyFields = "fields"

	DefaultSort     = "-createdAt"
	DefaultPage     = 1
	DefaultLimit    = 15
	DefaultMaxLimit = 100
)

var (
	controlKeys = []string{QueryKeyPage, QueryKeySort, QueryKeyLimit, QueryKeyFields}

	filterKeyPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)(?:\[([A-Za-z]+)])?$`)

	comparisonOperators = map[string]func(field string, value any) Specification{
		"gte": Gte,
		"gt":  Gt,
		"lte": Lte,
		"lt":  Lt,
	}
)

// QuerySpec is the untrusted query string of a list request.
type QuerySpec map[string][]string

func NewQuerySpec(values url.Values) QuerySpec {
	spec := make(QuerySpec, len(values))
	for key, vals := range values {
		spec[key] = slices.Clone(vals)
	}

	return spec
}

// With returns a copy of q where key holds exactly value.
func (q QuerySpec) With(key, value string) QuerySpec {
	clone := maps.Clone(q)
	if clone == nil {
		clone = QuerySpec{}
	}

	clone[key] = []string{value}

	return clone
}

func (q QuerySpec) last(key string) (string, bool) {
	values := q[key]
	if len(values) == 0 {
		return "", false
	}

	return values[len(values)-1], true
}

// QueryFeatures turns a QuerySpec into Criteria with four stages applied in
// a fixed order: filter, sort, project, paginate. Stages never mutate their
// input Criteria.
type QueryFeatures struct {
	schema   Schema
	maxLimit int
}

func NewQueryFeatures(schema Schema, maxLimit int) QueryFeatures {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}

	return QueryFeatures{schema: schema, maxLimit: maxLimit}
}

// Apply runs every stage and reports all validation problems at once.
func (f QueryFeatures) Apply(criteria Criteria, query QuerySpec) (Criteria, error) {
	errs := NewValidationErrors()

	stages := []func(Criteria, QuerySpec) (Criteria, error){f.Filter, f.Sort, f.Project, f.Paginate}
	for _, stage := range stages {
		next, err := stage(criteria, query)
		if err != nil {
			var stageErrs *ValidationErrors
			if !errors.As(err, &stageErrs) {
				return criteria, err
			}

			errs.Merge(stageErrs)

			continue
		}

		criteria = next
	}

	if errs.HasErrors() {
		return criteria, errs
	}

	return criteria, nil
}

// Filter parses every non control key into a tagged predicate.
// "price=500" is an equality, "difficulty=easy&difficulty=medium" a membership
// and "price[gte]=100" a comparison.
func (f QueryFeatures) Filter(criteria Criteria, query QuerySpec) (Criteria, error) {
	errs := NewValidationErrors()

	for _, key := range slices.Sorted(maps.Keys(query)) {
		if slices.Contains(controlKeys, key) {
			continue
		}

		spec, err := f.parsePredicate(key, query[key])
		if err != nil {
			errs.Add(key, err.Error(), "invalid_filter")

			continue
		}

		criteria = criteria.Where(spec)
	}

	return criteria, errs.OrNil()
}

func (f QueryFeatures) parsePredicate(key string, raw []string) (Specification, error) {
	match := filterKeyPattern.FindStringSubmatch(key)
	if match == nil {
		return nil, fmt.Errorf("malformed filter %q", key)
	}

	field, operator := match[1], match[2]
	if !f.schema.Has(field) {
		return nil, fmt.Errorf("unknown field %q", field)
	}

	values := make([]any, 0, len(raw))
	for _, r := range raw {
		value, err := f.schema.Coerce(field, r)
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("missing value for %q", key)
	}

	if operator == "" {
		if len(values) == 1 {
			return Eq(field, values[0]), nil
		}

		return In(field, values...), nil
	}

	newSpec, ok := comparisonOperators[operator]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %q on %q", operator, field)
	}

	specs := make([]Specification, 0, len(values))
	for _, value := range values {
		specs = append(specs, newSpec(field, value))
	}

	if len(specs) == 1 {
		return specs[0], nil
	}

	return Must(specs...), nil
}

func (f QueryFeatures) Sort(criteria Criteria, query QuerySpec) (Criteria, error) {
	raw, ok := query.last(QueryKeySort)
	if !ok || strings.TrimSpace(raw) == "" {
		return criteria.OrderBy(DefaultSort), nil
	}

	fields := splitList(raw)

	errs := NewValidationErrors()
	for _, field := range fields {
		if !f.schema.Has(strings.TrimPrefix(field, "-")) {
			errs.Add(QueryKeySort, fmt.Sprintf("cannot sort by unknown field %q", field), "invalid_sort")
		}
	}

	if errs.HasErrors() {
		return criteria, errs
	}

	return criteria.OrderBy(fields...), nil
}

// Project selects the returned fields, hiding the version field by default.
func (f QueryFeatures) Project(criteria Criteria, query QuerySpec) (Criteria, error) {
	raw, ok := query.last(QueryKeyFields)
	if !ok || strings.TrimSpace(raw) == "" {
		return criteria.Exclude(VersionField), nil
	}

	fields := splitList(raw)

	errs := NewValidationErrors()
	for _, field := range fields {
		if !f.schema.Has(field) {
			errs.Add(QueryKeyFields, fmt.Sprintf("cannot select unknown field %q", field), "invalid_fields")
		}
	}

	if errs.HasErrors() {
		return criteria, errs
	}

	return criteria.Select(fields...), nil
}

func (f QueryFeatures) Paginate(criteria Criteria, query QuerySpec) (Criteria, error) {
	errs := NewValidationErrors()

	page := parsePositive(query, QueryKeyPage, DefaultPage, errs)
	limit := parsePositive(query, QueryKeyLimit, DefaultLimit, errs)

	if limit > f.maxLimit {
		errs.Add(QueryKeyLimit, fmt.Sprintf("limit must not exceed %d", f.maxLimit), "out_of_range")
	}

	// skip = (page-1)*limit must fit in an int.
	if page-1 > math.MaxInt/limit {
		errs.Add(QueryKeyPage, fmt.Sprintf("page must not exceed %d for limit %d", math.MaxInt/limit+1, limit), "out_of_range")
	}

	if errs.HasErrors() {
		return criteria, errs
	}

	return criteria.Paginate(page, limit), nil
}

func parsePositive(query QuerySpec, key string, fallback int, errs *ValidationErrors) int {
	raw, ok := query.last(key)
	if !ok || raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		errs.Add(key, fmt.Sprintf("%s must be a positive integer, got %q", key, raw), "invalid_number")

		return fallback
	}

	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")

	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, part)
		}
	}

	return fields
}
