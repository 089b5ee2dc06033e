package services

import (
	"context"
	"net/http"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/pkg/logger"
)

const (
	statsMinRating = 4.8

	startLocationField = "startLocation"
)

// ToursService adds the tour reports to the generic CRUD operations and drops
// cached reports whenever a tour changes.
type ToursService struct {
	*ResourceService[*model.Tour]

	repo         ports.TourRepository
	invalidators []ports.CacheInvalidator
	logger       logger.Logger
}

var _ ports.ToursService = (*ToursService)(nil)

func NewToursService(
	repo ports.TourRepository,
	maxLimit int,
	log logger.Logger,
	invalidators ...ports.CacheInvalidator,
) *ToursService {
	return &ToursService{
		ResourceService: NewResourceService[*model.Tour](repo, model.TourSchema, maxLimit),
		repo:            repo,
		invalidators:    invalidators,
		logger:          log.Component("tours_service"),
	}
}

func (s *ToursService) CreateOne(ctx context.Context, tour *model.Tour) (*model.Tour, error) {
	created, err := s.ResourceService.CreateOne(ctx, tour)
	if err == nil {
		s.invalidate(ctx)
	}

	return created, err
}

func (s *ToursService) UpdateOne(ctx context.Context, id model.ID, patch model.Patch) (*model.Tour, error) {
	updated, err := s.ResourceService.UpdateOne(ctx, id, patch)
	if err == nil {
		s.invalidate(ctx)
	}

	return updated, err
}

func (s *ToursService) DeleteOne(ctx context.Context, id model.ID) error {
	err := s.ResourceService.DeleteOne(ctx, id)
	if err == nil {
		s.invalidate(ctx)
	}

	return err
}

func (s *ToursService) Stats(ctx context.Context) ([]model.TourStats, error) {
	return s.repo.Stats(ctx, statsMinRating)
}

func (s *ToursService) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	if year < 1000 || year > 9999 {
		return nil, model.NewAppError(http.StatusBadRequest, "Please provide a valid four digit year.")
	}

	return s.repo.MonthlyPlan(ctx, year)
}

func (s *ToursService) ToursWithin(ctx context.Context, circle model.GeoCircle) ([]*model.Tour, error) {
	return s.repo.Find(ctx, model.NewCriteria().Where(model.GeoWithin(startLocationField, circle)))
}

func (s *ToursService) Distances(ctx context.Context, origin model.Point, unit model.DistanceUnit) ([]model.TourDistance, error) {
	return s.repo.Distances(ctx, origin, unit.DistanceMultiplier())
}

// invalidate is best effort; stale reports expire with their TTL.
func (s *ToursService) invalidate(ctx context.Context) {
	invalidateCaches(ctx, s.logger, s.invalidators)
}

func invalidateCaches(ctx context.Context, log logger.Logger, invalidators []ports.CacheInvalidator) {
	for _, invalidator := range invalidators {
		if err := invalidator.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate cached reports")
		}
	}
}
