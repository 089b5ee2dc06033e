package services

import (
	"context"
	"time"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
)

type (
	// saveHook is implemented by entities that rewrite fields right before a write.
	saveHook interface {
		BeforeSave(now time.Time) error
	}

	// ResourceService is the generic CRUD factory every resource service builds on.
	ResourceService[E model.Entity] struct {
		repo     ports.Repository[E]
		features model.QueryFeatures
		now      func() time.Time
	}
)

func NewResourceService[E model.Entity](repo ports.Repository[E], schema model.Schema, maxLimit int) *ResourceService[E] {
	return &ResourceService[E]{
		repo:     repo,
		features: model.NewQueryFeatures(schema, maxLimit),
		now:      time.Now,
	}
}

// CreateOne stores a new document. Client-supplied id and creation time are discarded.
func (s *ResourceService[E]) CreateOne(ctx context.Context, entity E) (E, error) {
	entity.ResetIdentity()

	if err := s.prepare(entity); err != nil {
		return entity, err
	}

	if err := s.repo.Save(ctx, entity); err != nil {
		return entity, err
	}

	return entity, nil
}

func (s *ResourceService[E]) GetOne(ctx context.Context, id model.ID, populate ...string) (E, error) {
	return s.repo.FetchByID(ctx, id, populate...)
}

// GetAll runs the query through filter, sort, project and paginate, with scope AND-ed in.
func (s *ResourceService[E]) GetAll(ctx context.Context, query model.QuerySpec, scope model.Specification) ([]E, error) {
	criteria, err := s.features.Apply(model.NewCriteria().Where(scope), query)
	if err != nil {
		return nil, err
	}

	return s.repo.Find(ctx, criteria)
}

// UpdateOne merges patch onto the stored document and validates the result as a whole.
func (s *ResourceService[E]) UpdateOne(ctx context.Context, id model.ID, patch model.Patch) (E, error) {
	entity, err := s.repo.FetchByID(ctx, id)
	if err != nil {
		return entity, err
	}

	if err := patch.Apply(entity); err != nil {
		return entity, err
	}

	if entity.EntityID() != id {
		errs := model.NewValidationErrors()
		errs.Add("id", "The id of a document cannot be changed", "immutable")

		return entity, errs
	}

	if err := s.prepare(entity); err != nil {
		return entity, err
	}

	if err := s.repo.Replace(ctx, entity); err != nil {
		return entity, err
	}

	return entity, nil
}

func (s *ResourceService[E]) DeleteOne(ctx context.Context, id model.ID) error {
	_, err := s.delete(ctx, id)

	return err
}

func (s *ResourceService[E]) delete(ctx context.Context, id model.ID) (E, error) {
	return s.repo.Delete(ctx, id)
}

func (s *ResourceService[E]) prepare(entity E) error {
	now := s.now()

	if err := entity.Prepare(now); err != nil {
		return err
	}

	if err := entity.Validate(); err != nil {
		return err
	}

	if hook, ok := any(entity).(saveHook); ok {
		return hook.BeforeSave(now)
	}

	return nil
}
