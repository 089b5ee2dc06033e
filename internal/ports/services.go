package ports

import (
	"context"

	"github.com/architeacher/natours/internal/domain/model"
)

type (
	// ResourceService exposes the generic CRUD operations of one resource.
	ResourceService[T model.Entity] interface {
		CreateOne(ctx context.Context, entity T) (T, error)
		GetOne(ctx context.Context, id model.ID, populate ...string) (T, error)
		GetAll(ctx context.Context, query model.QuerySpec, scope model.Specification) ([]T, error)
		UpdateOne(ctx context.Context, id model.ID, patch model.Patch) (T, error)
		DeleteOne(ctx context.Context, id model.ID) error
	}

	ToursService interface {
		ResourceService[*model.Tour]

		Stats(ctx context.Context) ([]model.TourStats, error)
		MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error)
		ToursWithin(ctx context.Context, circle model.GeoCircle) ([]*model.Tour, error)
		Distances(ctx context.Context, origin model.Point, unit model.DistanceUnit) ([]model.TourDistance, error)
	}

	UsersService interface {
		ResourceService[*model.User]

		// UpdateMe changes the profile fields of the signed in user.
		UpdateMe(ctx context.Context, user *model.User, patch model.Patch) (*model.User, error)
		DeactivateMe(ctx context.Context, user *model.User) error
	}

	ReviewsService interface {
		ResourceService[*model.Review]
	}

	BookingsService interface {
		ResourceService[*model.Booking]

		BookTour(ctx context.Context, tourID model.ID, user *model.User) (*model.Booking, error)
	}

	// Authenticator resolves an access token into the active user it belongs to.
	Authenticator interface {
		Authenticate(ctx context.Context, token string) (*model.User, error)
	}

	TokenVerifier interface {
		Verify(token string) (model.Claims, error)
	}
)
