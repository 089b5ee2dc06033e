package http_test

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/architeacher/natours/internal/domain/model"
)

type (
	// fakeResources keeps documents in insertion order and records the last list request.
	fakeResources[E model.Entity] struct {
		mu        sync.Mutex
		items     map[model.ID]E
		order     []model.ID
		lastQuery model.QuerySpec
		lastScope model.Specification
		populate  []string
	}

	fakeToursService struct {
		*fakeResources[*model.Tour]
	}

	fakeUsersService struct {
		*fakeResources[*model.User]

		deactivated []model.ID
	}

	fakeReviewsService struct {
		*fakeResources[*model.Review]
	}

	fakeBookingsService struct {
		*fakeResources[*model.Booking]

		tours *fakeToursService
	}

	tokenAuthenticator map[string]*model.User
)

func newFakeResources[E model.Entity]() *fakeResources[E] {
	return &fakeResources[E]{items: make(map[model.ID]E)}
}

func (f *fakeResources[E]) add(entity E) E {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[entity.EntityID()] = entity
	f.order = append(f.order, entity.EntityID())

	return entity
}

func (f *fakeResources[E]) CreateOne(_ context.Context, entity E) (E, error) {
	var zero E

	if err := entity.Prepare(time.Now()); err != nil {
		return zero, err
	}

	if err := entity.Validate(); err != nil {
		return zero, err
	}

	return f.add(entity), nil
}

func (f *fakeResources[E]) GetOne(_ context.Context, id model.ID, populate ...string) (E, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.populate = populate

	entity, ok := f.items[id]
	if !ok {
		var zero E

		return zero, model.ErrNotFound
	}

	return entity, nil
}

func (f *fakeResources[E]) GetAll(_ context.Context, query model.QuerySpec, scope model.Specification) ([]E, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastQuery = query
	f.lastScope = scope

	entities := make([]E, 0, len(f.order))
	for _, id := range f.order {
		entities = append(entities, f.items[id])
	}

	return entities, nil
}

func (f *fakeResources[E]) UpdateOne(ctx context.Context, id model.ID, patch model.Patch) (E, error) {
	entity, err := f.GetOne(ctx, id)
	if err != nil {
		return entity, err
	}

	if err := patch.Apply(entity); err != nil {
		var zero E

		return zero, err
	}

	return entity, nil
}

func (f *fakeResources[E]) DeleteOne(_ context.Context, id model.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.items[id]; !ok {
		return model.ErrNotFound
	}

	delete(f.items, id)
	f.order = slices.DeleteFunc(f.order, func(existing model.ID) bool { return existing == id })

	return nil
}

func (f *fakeResources[E]) lastList() (model.QuerySpec, model.Specification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lastQuery, f.lastScope
}

func (f *fakeToursService) Stats(context.Context) ([]model.TourStats, error) {
	return []model.TourStats{{Difficulty: "EASY", ToursCount: 4, RatingAvg: 4.9, AveragePrice: 1272}}, nil
}

func (f *fakeToursService) MonthlyPlan(_ context.Context, year int) ([]model.MonthlyPlan, error) {
	if year < 1000 || year > 9999 {
		return nil, model.NewAppError(http.StatusBadRequest, "Please provide a valid four digit year.")
	}

	return []model.MonthlyPlan{{Month: 7, TourCount: 2, Tours: []string{"The Sea Explorer", "The Park Camper"}}}, nil
}

func (f *fakeToursService) ToursWithin(ctx context.Context, _ model.GeoCircle) ([]*model.Tour, error) {
	return f.GetAll(ctx, nil, nil)
}

func (f *fakeToursService) Distances(context.Context, model.Point, model.DistanceUnit) ([]model.TourDistance, error) {
	return []model.TourDistance{{ID: "t-1", Name: "The Forest Hiker", Distance: 12.4}}, nil
}

func (f *fakeUsersService) UpdateMe(_ context.Context, user *model.User, patch model.Patch) (*model.User, error) {
	if strings.Contains(string(patch), "password") {
		return nil, model.NewAppError(http.StatusBadRequest, "This route is not for password updates.")
	}

	updated := *user
	if err := patch.Apply(&updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

func (f *fakeUsersService) DeactivateMe(_ context.Context, user *model.User) error {
	f.deactivated = append(f.deactivated, user.ID)

	return nil
}

func (f *fakeBookingsService) BookTour(ctx context.Context, tourID model.ID, user *model.User) (*model.Booking, error) {
	tour, err := f.tours.GetOne(ctx, tourID)
	if err != nil {
		return nil, err
	}

	return f.CreateOne(ctx, model.NewBooking(tour, user))
}

func (a tokenAuthenticator) Authenticate(_ context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.WrapAppError(model.ErrNotAuthenticated, http.StatusUnauthorized,
			"You are not logged in! Please log in to get access.")
	}

	user, ok := a[token]
	if !ok {
		return nil, model.ErrInvalidToken
	}

	return user, nil
}
