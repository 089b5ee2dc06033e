package repos

import (
	"regexp"
	"slices"

	"github.com/architeacher/natours/internal/domain/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var comparisonOperators = map[model.SpecOperator]string{
	model.SpecOpNotEq: "$ne",
	model.SpecOpIn:    "$in",
	model.SpecOpGt:    "$gt",
	model.SpecOpGte:   "$gte",
	model.SpecOpLt:    "$lt",
	model.SpecOpLte:   "$lte",
}

// CriteriaTranslator renders model.Criteria as MongoDB filters and pipeline stages.
type CriteriaTranslator struct{}

func NewCriteriaTranslator() CriteriaTranslator {
	return CriteriaTranslator{}
}

// Pipeline returns the $match, $sort, $skip, $limit and $project stages for
// criteria. scope is AND-ed into the match and hidden fields are excluded
// unless the criteria already selects an explicit field list.
func (t CriteriaTranslator) Pipeline(criteria model.Criteria, scope bson.D, hidden ...string) mongo.Pipeline {
	pipeline := mongo.Pipeline{}

	if match := t.Match(criteria.Spec(), scope); len(match) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}

	if criteria.HasSorting() {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: t.Sort(criteria.Sorting())}})
	}

	if criteria.HasPagination() {
		if skip := criteria.Skip(); skip > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(skip)}})
		}

		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(criteria.Limit())}})
	}

	if projection := t.Projection(criteria.Projection(), hidden...); len(projection) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: projection}})
	}

	return pipeline
}

// Match combines a specification with the scope into one filter document.
func (t CriteriaTranslator) Match(spec model.Specification, scope bson.D) bson.D {
	switch {
	case spec == nil:
		return scope
	case len(scope) == 0:
		return t.Filter(spec)
	default:
		return bson.D{{Key: "$and", Value: bson.A{scope, t.Filter(spec)}}}
	}
}

func (t CriteriaTranslator) Filter(spec model.Specification) bson.D {
	if spec == nil {
		return bson.D{}
	}

	switch op := spec.Operator(); op {
	case model.SpecOpEq:
		return bson.D{{Key: spec.Field(), Value: spec.Value()}}

	case model.SpecOpNotEq, model.SpecOpIn, model.SpecOpGt, model.SpecOpGte, model.SpecOpLt, model.SpecOpLte:
		return bson.D{{Key: spec.Field(), Value: bson.D{{Key: comparisonOperators[op], Value: spec.Value()}}}}

	case model.SpecOpBetween:
		values, _ := spec.Value().([]any)
		if len(values) != 2 {
			return bson.D{}
		}

		return bson.D{{Key: spec.Field(), Value: bson.D{
			{Key: "$gte", Value: values[0]},
			{Key: "$lte", Value: values[1]},
		}}}

	case model.SpecOpLike:
		pattern, _ := spec.Value().(string)

		return bson.D{{Key: spec.Field(), Value: primitive.Regex{Pattern: regexp.QuoteMeta(pattern), Options: "i"}}}

	case model.SpecOpGeoWithin:
		circle, _ := spec.Value().(model.GeoCircle)

		return bson.D{{Key: spec.Field(), Value: bson.D{{Key: "$geoWithin", Value: bson.D{
			{Key: "$centerSphere", Value: bson.A{bson.A{circle.Center.Lng(), circle.Center.Lat()}, circle.Radius}},
		}}}}}

	case model.SpecOpMust:
		return bson.D{{Key: "$and", Value: t.children(spec)}}

	case model.SpecOpShould:
		return bson.D{{Key: "$or", Value: t.children(spec)}}

	case model.SpecOpMustNot:
		return bson.D{{Key: "$nor", Value: t.children(spec)}}
	}

	return bson.D{}
}

func (t CriteriaTranslator) Sort(sorting []model.SortField) bson.D {
	sort := make(bson.D, 0, len(sorting))
	for _, s := range sorting {
		sort = append(sort, bson.E{Key: s.Field, Value: int(s.Direction)})
	}

	return sort
}

// Projection never mixes inclusion and exclusion, which MongoDB rejects.
func (t CriteriaTranslator) Projection(projection model.Projection, hidden ...string) bson.D {
	if len(projection.Include) > 0 {
		doc := make(bson.D, 0, len(projection.Include))
		for _, field := range projection.Include {
			doc = append(doc, bson.E{Key: field, Value: 1})
		}

		return doc
	}

	doc := make(bson.D, 0, len(projection.Exclude)+len(hidden))
	for _, field := range slices.Concat(projection.Exclude, hidden) {
		doc = append(doc, bson.E{Key: field, Value: 0})
	}

	return doc
}

func (t CriteriaTranslator) children(spec model.Specification) bson.A {
	children := spec.Children()

	clauses := make(bson.A, 0, len(children))
	for _, child := range children {
		clauses = append(clauses, t.Filter(child))
	}

	return clauses
}
