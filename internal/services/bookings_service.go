package services

import (
	"context"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
)

type BookingsService struct {
	*ResourceService[*model.Booking]

	tours ports.TourRepository
}

var _ ports.BookingsService = (*BookingsService)(nil)

func NewBookingsService(bookings ports.BookingRepository, tours ports.TourRepository, maxLimit int) *BookingsService {
	return &BookingsService{
		ResourceService: NewResourceService[*model.Booking](bookings, model.BookingSchema, maxLimit),
		tours:           tours,
	}
}

// BookTour charges the tour price at the time of booking.
func (s *BookingsService) BookTour(ctx context.Context, tourID model.ID, user *model.User) (*model.Booking, error) {
	tour, err := s.tours.FetchByID(ctx, tourID)
	if err != nil {
		return nil, err
	}

	return s.CreateOne(ctx, model.NewBooking(tour, user))
}
