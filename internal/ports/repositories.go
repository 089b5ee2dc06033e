package ports

import (
	"context"

	"github.com/architeacher/natours/internal/domain/model"
)

type (
	Saver[T model.Entity] interface {
		// Save inserts a new document.
		Save(ctx context.Context, entity T) error
	}

	Fetcher[T model.Entity] interface {
		// FetchByID returns model.ErrNotFound when no visible document has the id.
		// populate names the relations to embed, such as "guides".
		FetchByID(ctx context.Context, id model.ID, populate ...string) (T, error)
	}

	Finder[T model.Entity] interface {
		Find(ctx context.Context, criteria model.Criteria) ([]T, error)
	}

	Replacer[T model.Entity] interface {
		// Replace overwrites the stored fields of an existing document.
		Replace(ctx context.Context, entity T) error
	}

	Deleter[T model.Entity] interface {
		// Delete removes the document and returns it as it was stored.
		Delete(ctx context.Context, id model.ID) (T, error)
	}

	// Repository is the accessor the generic CRUD services work against.
	Repository[T model.Entity] interface {
		Saver[T]
		Fetcher[T]
		Finder[T]
		Replacer[T]
		Deleter[T]
	}

	TourRepository interface {
		Repository[*model.Tour]

		// Stats groups the tours rated at least minRating by difficulty.
		Stats(ctx context.Context, minRating float64) ([]model.TourStats, error)

		// MonthlyPlan counts the tour starts per month of year.
		MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error)

		// Distances lists every tour with its distance from origin, nearest first.
		Distances(ctx context.Context, origin model.Point, multiplier float64) ([]model.TourDistance, error)

		SetRatings(ctx context.Context, id model.ID, summary model.RatingSummary) error
	}

	UserRepository interface {
		Repository[*model.User]

		SetActive(ctx context.Context, id model.ID, active bool) error
	}

	ReviewRepository interface {
		Repository[*model.Review]

		// RatingSummary aggregates the reviews of a tour. Quantity is 0 when it has none.
		RatingSummary(ctx context.Context, tourID model.ID) (model.RatingSummary, error)
	}

	BookingRepository interface {
		Repository[*model.Booking]
	}
)
