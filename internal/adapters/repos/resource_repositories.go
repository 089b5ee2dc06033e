package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/pkg/circuitbreaker"
	"github.com/architeacher/natours/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ToursCollection    = "tours"
	UsersCollection    = "users"
	ReviewsCollection  = "reviews"
	BookingsCollection = "bookings"

	statsMinRating = 4.8
)

var (
	activeUsersScope = bson.D{{Key: "isActive", Value: bson.D{{Key: "$ne", Value: false}}}}
	publicToursScope = bson.D{{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}}}

	authorRelation = relation{
		from:         UsersCollection,
		localField:   "user",
		foreignField: idField,
		as:           "author",
		single:       true,
		project:      bson.D{{Key: "name", Value: 1}, {Key: "photo", Value: 1}},
	}

	tourSpec = collectionSpec{
		name:  ToursCollection,
		scope: publicToursScope,
		relations: map[string]relation{
			model.PopulateGuides: {
				from:         UsersCollection,
				localField:   "guides",
				foreignField: idField,
				as:           "guideProfiles",
				localIsArray: true,
				scope:        activeUsersScope,
				project: bson.D{
					{Key: "name", Value: 1},
					{Key: "email", Value: 1},
					{Key: "photo", Value: 1},
					{Key: "role", Value: 1},
				},
			},
			model.PopulateReviews: {
				from:         ReviewsCollection,
				localField:   idField,
				foreignField: "tour",
				as:           "reviews",
				nested:       []relation{authorRelation},
				project:      bson.D{{Key: model.VersionField, Value: 0}},
			},
		},
	}

	userSpec = collectionSpec{
		name:   UsersCollection,
		scope:  activeUsersScope,
		hidden: []string{"password"},
	}

	reviewSpec = collectionSpec{
		name:      ReviewsCollection,
		relations: map[string]relation{model.PopulateUser: authorRelation},
		defaults:  []string{model.PopulateUser},
	}

	bookingSpec = collectionSpec{
		name: BookingsCollection,
		relations: map[string]relation{
			model.PopulateTour: {
				from:         ToursCollection,
				localField:   "tour",
				foreignField: idField,
				as:           "tourSummary",
				single:       true,
				project:      bson.D{{Key: "name", Value: 1}},
			},
			model.PopulateUser: {
				from:         UsersCollection,
				localField:   "user",
				foreignField: idField,
				as:           "customer",
				single:       true,
				project:      bson.D{{Key: "name", Value: 1}, {Key: "email", Value: 1}},
			},
		},
		defaults: []string{model.PopulateTour, model.PopulateUser},
	}
)

type (
	ToursRepository struct {
		*collectionStore[model.Tour, *model.Tour]
	}

	UsersRepository struct {
		*collectionStore[model.User, *model.User]
	}

	ReviewsRepository struct {
		*collectionStore[model.Review, *model.Review]
	}

	BookingsRepository struct {
		*collectionStore[model.Booking, *model.Booking]
	}
)

func NewToursRepository(db *mongo.Database, breaker *circuitbreaker.CircuitBreaker, log logger.Logger) *ToursRepository {
	return &ToursRepository{newCollectionStore[model.Tour, *model.Tour](db, tourSpec, breaker, log)}
}

func NewUsersRepository(db *mongo.Database, breaker *circuitbreaker.CircuitBreaker, log logger.Logger) *UsersRepository {
	return &UsersRepository{newCollectionStore[model.User, *model.User](db, userSpec, breaker, log)}
}

func NewReviewsRepository(db *mongo.Database, breaker *circuitbreaker.CircuitBreaker, log logger.Logger) *ReviewsRepository {
	return &ReviewsRepository{newCollectionStore[model.Review, *model.Review](db, reviewSpec, breaker, log)}
}

func NewBookingsRepository(db *mongo.Database, breaker *circuitbreaker.CircuitBreaker, log logger.Logger) *BookingsRepository {
	return &BookingsRepository{newCollectionStore[model.Booking, *model.Booking](db, bookingSpec, breaker, log)}
}

// Stats falls back to a 4.8 threshold when minRating is not positive.
func (r *ToursRepository) Stats(ctx context.Context, minRating float64) ([]model.TourStats, error) {
	if minRating <= 0 {
		minRating = statsMinRating
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: r.translator.Match(model.Gte("ratingAverage", minRating), r.spec.scope)}},
		{{Key: "$group", Value: bson.D{
			{Key: idField, Value: bson.D{{Key: "$toUpper", Value: "$difficulty"}}},
			{Key: "toursCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "ratingsCount", Value: bson.D{{Key: "$sum", Value: "$ratingQuantity"}}},
			{Key: "ratingAvg", Value: bson.D{{Key: "$avg", Value: "$ratingAverage"}}},
			{Key: "averagePrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
			{Key: "maxPrice", Value: bson.D{{Key: "$max", Value: "$price"}}},
			{Key: "minPrice", Value: bson.D{{Key: "$min", Value: "$price"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "averagePrice", Value: 1}}}},
	}

	return aggregateRows[model.TourStats](ctx, r.collectionStore, pipeline)
}

// MonthlyPlan covers start dates in [year-01-01, year+1-01-01).
func (r *ToursRepository) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: r.spec.scope}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.D{{Key: "startDates", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lt", Value: from.AddDate(1, 0, 0)},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: idField, Value: bson.D{{Key: "$month", Value: "$startDates"}}},
			{Key: "tourCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "tours", Value: bson.D{{Key: "$push", Value: "$name"}}},
		}}},
		{{Key: "$addFields", Value: bson.D{{Key: "month", Value: "$" + idField}}}},
		{{Key: "$project", Value: bson.D{{Key: idField, Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "tourCount", Value: -1}, {Key: "month", Value: 1}}}},
	}

	return aggregateRows[model.MonthlyPlan](ctx, r.collectionStore, pipeline)
}

// Distances needs the 2dsphere index on startLocation; $geoNear must open the pipeline.
func (r *ToursRepository) Distances(ctx context.Context, origin model.Point, multiplier float64) ([]model.TourDistance, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: model.GeoTypePoint},
				{Key: "coordinates", Value: bson.A{origin.Lng(), origin.Lat()}},
			}},
			{Key: "key", Value: "startLocation"},
			{Key: "distanceField", Value: "distance"},
			{Key: "distanceMultiplier", Value: multiplier},
			{Key: "spherical", Value: true},
			{Key: "query", Value: r.spec.scope},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}, {Key: "distance", Value: 1}}}},
	}

	return aggregateRows[model.TourDistance](ctx, r.collectionStore, pipeline)
}

// SetRatings writes the review aggregates without touching the version.
func (r *ToursRepository) SetRatings(ctx context.Context, id model.ID, summary model.RatingSummary) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "ratingQuantity", Value: summary.Quantity},
		{Key: "ratingAverage", Value: summary.Average},
	}}}

	// Ratings follow reviews of secret tours too.
	return r.update(ctx, bson.D{{Key: idField, Value: id}}, update)
}

func (r *UsersRepository) SetActive(ctx context.Context, id model.ID, active bool) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "isActive", Value: active}}}}

	// Unscoped so a deactivated account can be restored.
	return r.update(ctx, bson.D{{Key: idField, Value: id}}, update)
}

func (r *ReviewsRepository) RatingSummary(ctx context.Context, tourID model.ID) (model.RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "tour", Value: tourID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: idField, Value: "$tour"},
			{Key: "quantity", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "average", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	}

	rows, err := aggregateRows[model.RatingSummary](ctx, r.collectionStore, pipeline)
	if err != nil {
		return model.RatingSummary{}, err
	}

	if len(rows) == 0 {
		return model.RatingSummary{}, nil
	}

	return rows[0], nil
}

// aggregateRows runs a pipeline whose output is not the collection's own document type.
func aggregateRows[R any, T any, P model.Document[T]](ctx context.Context, store *collectionStore[T, P], pipeline mongo.Pipeline) ([]R, error) {
	store.logger.Debug().Interface("pipeline", pipeline).Msg("aggregate")

	rows, err := guard(store.breaker, func() ([]R, error) {
		rows := make([]R, 0)
		if err := aggregateInto(ctx, store.collection, pipeline, &rows); err != nil {
			return nil, err
		}

		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", store.spec.name, err)
	}

	return rows, nil
}
