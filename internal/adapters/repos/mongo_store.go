package repos

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/pkg/circuitbreaker"
	"github.com/architeacher/natours/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	idField = "_id"

	lookupRef = "ref"
)

var duplicateValuePattern = regexp.MustCompile(`"((?:\\.|[^"\\])*)"`)

type (
	// relation embeds documents of another collection through $lookup.
	relation struct {
		from         string
		localField   string
		foreignField string
		as           string
		// localIsArray matches foreignField against every element of localField.
		localIsArray bool
		// single unwraps the lookup array into one embedded document.
		single  bool
		scope   bson.D
		project bson.D
		nested  []relation
	}

	collectionSpec struct {
		name string
		// scope is AND-ed into every read, update and delete.
		scope  bson.D
		hidden []string
		// relations are keyed by populate name.
		relations map[string]relation
		// defaults are populated on every read.
		defaults []string
	}

	// collectionStore implements the generic repository operations for one collection.
	collectionStore[T any, P model.Document[T]] struct {
		collection *mongo.Collection
		spec       collectionSpec
		translator CriteriaTranslator
		breaker    *circuitbreaker.CircuitBreaker
		logger     logger.Logger
	}
)

func newCollectionStore[T any, P model.Document[T]](
	db *mongo.Database,
	spec collectionSpec,
	breaker *circuitbreaker.CircuitBreaker,
	log logger.Logger,
) *collectionStore[T, P] {
	return &collectionStore[T, P]{
		collection: db.Collection(spec.name),
		spec:       spec,
		translator: NewCriteriaTranslator(),
		breaker:    breaker,
		logger:     log.Component("repo." + spec.name),
	}
}

func (s *collectionStore[T, P]) Save(ctx context.Context, entity P) error {
	doc, err := s.document(entity, s.relationFields()...)
	if err != nil {
		return err
	}

	return guardRun(s.breaker, func() error {
		_, err := s.collection.InsertOne(ctx, doc)

		return storeError(err)
	})
}

func (s *collectionStore[T, P]) FetchByID(ctx context.Context, id model.ID, populate ...string) (P, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: s.translator.Match(model.Eq(idField, id), s.spec.scope)}},
		{{Key: "$limit", Value: int64(1)}},
	}

	if projection := s.translator.Projection(model.Projection{}, s.hiddenFields()...); len(projection) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: projection}})
	}

	results, err := s.aggregate(ctx, append(pipeline, s.lookups(populate...)...))
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, model.ErrNotFound
	}

	return results[0], nil
}

func (s *collectionStore[T, P]) Find(ctx context.Context, criteria model.Criteria) ([]P, error) {
	pipeline := s.translator.Pipeline(criteria, s.spec.scope, s.hiddenFields()...)

	return s.aggregate(ctx, append(pipeline, s.lookups()...))
}

// Replace sets every stored field of entity and bumps its version.
// Hidden fields left empty on entity keep their stored value.
func (s *collectionStore[T, P]) Replace(ctx context.Context, entity P) error {
	doc, err := s.document(entity, append(s.relationFields(), idField, model.VersionField)...)
	if err != nil {
		return err
	}

	update := bson.D{
		{Key: "$set", Value: doc},
		{Key: "$inc", Value: bson.D{{Key: model.VersionField, Value: 1}}},
	}

	return s.update(ctx, s.byID(entity.EntityID()), update)
}

func (s *collectionStore[T, P]) Delete(ctx context.Context, id model.ID) (P, error) {
	opts := options.FindOneAndDelete()
	if projection := s.translator.Projection(model.Projection{}, s.hiddenFields()...); len(projection) > 0 {
		opts.SetProjection(projection)
	}

	return guard(s.breaker, func() (P, error) {
		var deleted T

		err := s.collection.FindOneAndDelete(ctx, s.byID(id), opts).Decode(&deleted)
		if err != nil {
			return nil, storeError(err)
		}

		return P(&deleted), nil
	})
}

// update returns model.ErrNotFound when filter matches nothing.
func (s *collectionStore[T, P]) update(ctx context.Context, filter, update bson.D) error {
	return guardRun(s.breaker, func() error {
		result, err := s.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return storeError(err)
		}

		if result.MatchedCount == 0 {
			return model.ErrNotFound
		}

		return nil
	})
}

func (s *collectionStore[T, P]) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]P, error) {
	s.logger.Debug().Interface("pipeline", pipeline).Msg("aggregate")

	return guard(s.breaker, func() ([]P, error) {
		var rows []T
		if err := aggregateInto(ctx, s.collection, pipeline, &rows); err != nil {
			return nil, err
		}

		results := make([]P, 0, len(rows))
		for i := range rows {
			results = append(results, P(&rows[i]))
		}

		return results, nil
	})
}

func (s *collectionStore[T, P]) byID(id model.ID) bson.D {
	return s.translator.Match(model.Eq(idField, id), s.spec.scope)
}

// lookups returns the $lookup stages of the default relations plus populate.
func (s *collectionStore[T, P]) lookups(populate ...string) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	seen := make(map[string]bool, len(populate)+len(s.spec.defaults))

	for _, name := range append(slices.Clone(s.spec.defaults), populate...) {
		rel, ok := s.spec.relations[name]
		if !ok || seen[name] {
			continue
		}

		seen[name] = true
		pipeline = append(pipeline, rel.stages()...)
	}

	return pipeline
}

func (s *collectionStore[T, P]) hiddenFields() []string {
	return append([]string{model.VersionField}, s.spec.hidden...)
}

func (s *collectionStore[T, P]) relationFields() []string {
	fields := make([]string, 0, len(s.spec.relations))
	for _, rel := range s.spec.relations {
		fields = append(fields, rel.as)
	}

	return fields
}

// document encodes entity and drops the given top level keys.
func (s *collectionStore[T, P]) document(entity P, drop ...string) (bson.D, error) {
	raw, err := bson.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encoding %s document: %w", s.spec.name, err)
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s document: %w", s.spec.name, err)
	}

	return slices.DeleteFunc(doc, func(e bson.E) bool {
		return slices.Contains(drop, e.Key)
	}), nil
}

func (r relation) stages() mongo.Pipeline {
	ref := "$$" + lookupRef

	match := bson.D{{Key: "$eq", Value: bson.A{"$" + r.foreignField, ref}}}
	if r.localIsArray {
		match = bson.D{{Key: "$in", Value: bson.A{
			"$" + r.foreignField,
			bson.D{{Key: "$ifNull", Value: bson.A{ref, bson.A{}}}},
		}}}
	}

	inner := mongo.Pipeline{{{Key: "$match", Value: bson.D{{Key: "$expr", Value: match}}}}}

	if len(r.scope) > 0 {
		inner = append(inner, bson.D{{Key: "$match", Value: r.scope}})
	}

	for _, nested := range r.nested {
		inner = append(inner, nested.stages()...)
	}

	if len(r.project) > 0 {
		inner = append(inner, bson.D{{Key: "$project", Value: r.project}})
	}

	stages := mongo.Pipeline{{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: r.from},
		{Key: "let", Value: bson.D{{Key: lookupRef, Value: "$" + r.localField}}},
		{Key: "pipeline", Value: inner},
		{Key: "as", Value: r.as},
	}}}}

	if r.single {
		stages = append(stages, bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + r.as},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}})
	}

	return stages
}

func aggregateInto(ctx context.Context, collection *mongo.Collection, pipeline mongo.Pipeline, results any) error {
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return storeError(err)
	}

	if err := cursor.All(ctx, results); err != nil {
		return storeError(err)
	}

	return nil
}

// storeError maps driver errors onto the model sentinels.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return &model.DuplicateKeyError{Value: duplicateValue(err), Cause: err}
	default:
		return fmt.Errorf("%w: %w", model.ErrStoreFailure, err)
	}
}

// duplicateValue extracts the offending value from an E11000 message.
func duplicateValue(err error) string {
	match := duplicateValuePattern.FindStringSubmatch(err.Error())
	if len(match) < 2 {
		return ""
	}

	return match[1]
}

// IsStoreSuccess tells the breaker which errors are domain outcomes rather than store failures.
func IsStoreSuccess(err error) bool {
	return err == nil || !errors.Is(err, model.ErrStoreFailure)
}

func guard[R any](breaker *circuitbreaker.CircuitBreaker, fn func() (R, error)) (R, error) {
	result, err := circuitbreaker.Execute(breaker, fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return result, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}

	return result, err
}

func guardRun(breaker *circuitbreaker.CircuitBreaker, fn func() error) error {
	_, err := guard(breaker, func() (struct{}, error) {
		return struct{}{}, fn()
	})

	return err
}
