package services

import (
	"context"
	"sync"
	"time"

	"github.com/architeacher/natours/internal/domain/model"
)

// memoryRepo keeps entities in a map and records the last criteria it was asked for.
type memoryRepo[E model.Entity] struct {
	mu       sync.Mutex
	items    map[model.ID]E
	criteria model.Criteria
	saveErr  error
}

func newMemoryRepo[E model.Entity](seed ...E) *memoryRepo[E] {
	repo := &memoryRepo[E]{items: make(map[model.ID]E)}
	for _, entity := range seed {
		repo.items[entity.EntityID()] = entity
	}

	return repo
}

func (r *memoryRepo[E]) Save(_ context.Context, entity E) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}

	r.items[entity.EntityID()] = entity

	return nil
}

func (r *memoryRepo[E]) FetchByID(_ context.Context, id model.ID, _ ...string) (E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.items[id]
	if !ok {
		return entity, model.ErrNotFound
	}

	return entity, nil
}

func (r *memoryRepo[E]) Find(_ context.Context, criteria model.Criteria) ([]E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.criteria = criteria

	found := make([]E, 0, len(r.items))
	for _, entity := range r.items {
		found = append(found, entity)
	}

	return found, nil
}

func (r *memoryRepo[E]) Replace(_ context.Context, entity E) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[entity.EntityID()]; !ok {
		return model.ErrNotFound
	}

	r.items[entity.EntityID()] = entity

	return nil
}

func (r *memoryRepo[E]) Delete(_ context.Context, id model.ID) (E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.items[id]
	if !ok {
		return entity, model.ErrNotFound
	}

	delete(r.items, id)

	return entity, nil
}

type fakeTourRepo struct {
	*memoryRepo[*model.Tour]

	statsMinRating float64
	planYear       int
	multiplier     float64
	ratings        map[model.ID]model.RatingSummary
}

func newFakeTourRepo(seed ...*model.Tour) *fakeTourRepo {
	return &fakeTourRepo{
		memoryRepo: newMemoryRepo(seed...),
		ratings:    make(map[model.ID]model.RatingSummary),
	}
}

func (r *fakeTourRepo) Stats(_ context.Context, minRating float64) ([]model.TourStats, error) {
	r.statsMinRating = minRating

	return []model.TourStats{{Difficulty: "easy", ToursCount: 1}}, nil
}

func (r *fakeTourRepo) MonthlyPlan(_ context.Context, year int) ([]model.MonthlyPlan, error) {
	r.planYear = year

	return []model.MonthlyPlan{{Month: 7, TourCount: 2}}, nil
}

func (r *fakeTourRepo) Distances(_ context.Context, _ model.Point, multiplier float64) ([]model.TourDistance, error) {
	r.multiplier = multiplier

	return nil, nil
}

func (r *fakeTourRepo) SetRatings(_ context.Context, id model.ID, summary model.RatingSummary) error {
	r.ratings[id] = summary

	return nil
}

type fakeReviewRepo struct {
	*memoryRepo[*model.Review]
}

// RatingSummary averages the stored reviews of the tour.
func (r *fakeReviewRepo) RatingSummary(_ context.Context, tourID model.ID) (model.RatingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		summary model.RatingSummary
		total   float64
	)

	for _, review := range r.items {
		if review.Tour != tourID {
			continue
		}

		summary.Quantity++
		total += review.Rating
	}

	if summary.Quantity > 0 {
		summary.Average = total / float64(summary.Quantity)
	}

	return summary, nil
}

type fakeUserRepo struct {
	*memoryRepo[*model.User]

	deactivated []model.ID
}

func (r *fakeUserRepo) SetActive(_ context.Context, id model.ID, active bool) error {
	if !active {
		r.deactivated = append(r.deactivated, id)
	}

	return nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++

	return nil
}

type stubVerifier struct {
	claims model.Claims
	err    error
}

func (s stubVerifier) Verify(string) (model.Claims, error) {
	return s.claims, s.err
}

var fixedNow = time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC)

func sampleTour() *model.Tour {
	return &model.Tour{
		Base:          model.Base{ID: model.NewID()},
		Name:          "The Sea Explorer",
		Duration:      7,
		MaxGroupSize:  15,
		Difficulty:    model.DifficultyMedium,
		RatingAverage: 4.8,
		Price:         497,
		Summary:       "Exploring the jaw-dropping US east coast by foot and by boat",
		ImageCover:    "tour-2-cover.jpg",
	}
}

func sampleUser() *model.User {
	return &model.User{
		Base:     model.Base{ID: model.NewID(), CreatedAt: fixedNow},
		Name:     "Laura Wilson",
		Email:    "laura@example.io",
		Role:     model.RoleUser,
		IsActive: true,
	}
}
