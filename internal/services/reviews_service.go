package services

import (
	"context"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/pkg/logger"
)

// ReviewsService keeps the rating aggregates of a tour in step with its reviews.
type ReviewsService struct {
	*ResourceService[*model.Review]

	reviews      ports.ReviewRepository
	tours        ports.TourRepository
	invalidators []ports.CacheInvalidator
	logger       logger.Logger
}

var _ ports.ReviewsService = (*ReviewsService)(nil)

func NewReviewsService(
	reviews ports.ReviewRepository,
	tours ports.TourRepository,
	maxLimit int,
	log logger.Logger,
	invalidators ...ports.CacheInvalidator,
) *ReviewsService {
	return &ReviewsService{
		ResourceService: NewResourceService[*model.Review](reviews, model.ReviewSchema, maxLimit),
		reviews:         reviews,
		tours:           tours,
		invalidators:    invalidators,
		logger:          log.Component("reviews_service"),
	}
}

func (s *ReviewsService) CreateOne(ctx context.Context, review *model.Review) (*model.Review, error) {
	created, err := s.ResourceService.CreateOne(ctx, review)
	if err != nil {
		return created, err
	}

	s.recomputeRatings(ctx, created.Tour)

	return created, nil
}

// UpdateOne recomputes the ratings of the review's tour, and of the tour it
// left when the patch moves it.
func (s *ReviewsService) UpdateOne(ctx context.Context, id model.ID, patch model.Patch) (*model.Review, error) {
	current, err := s.reviews.FetchByID(ctx, id)
	if err != nil {
		return current, err
	}

	previousTour := current.Tour

	updated, err := s.ResourceService.UpdateOne(ctx, id, patch)
	if err != nil {
		return updated, err
	}

	s.recomputeRatings(ctx, updated.Tour)

	if previousTour != updated.Tour {
		s.recomputeRatings(ctx, previousTour)
	}

	return updated, nil
}

func (s *ReviewsService) DeleteOne(ctx context.Context, id model.ID) error {
	deleted, err := s.delete(ctx, id)
	if err != nil {
		return err
	}

	s.recomputeRatings(ctx, deleted.Tour)

	return nil
}

// recomputeRatings runs after the write has landed; a failure leaves the
// previous aggregates in place and is only logged.
func (s *ReviewsService) recomputeRatings(ctx context.Context, tourID model.ID) {
	log := s.logger.WithContext(ctx)

	summary, err := s.reviews.RatingSummary(ctx, tourID)
	if err != nil {
		log.Error().Err(err).Str("tour_id", tourID.String()).Msg("failed to aggregate ratings")

		return
	}

	if summary.Quantity == 0 {
		summary.Average = model.DefaultRatingAverage
	}

	summary.Average = model.RoundRating(summary.Average)

	if err := s.tours.SetRatings(ctx, tourID, summary); err != nil {
		log.Error().Err(err).Str("tour_id", tourID.String()).Msg("failed to store ratings")

		return
	}

	invalidateCaches(ctx, s.logger, s.invalidators)
}
