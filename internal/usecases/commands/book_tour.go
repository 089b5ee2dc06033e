package commands

import (
	"context"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/pkg/decorator"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	BookTourCommand struct {
		TourID model.ID
		User   *model.User
	}

	BookTourCommandHandler = decorator.CommandHandler[BookTourCommand, *model.Booking]

	bookTourCommandHandler struct {
		bookingsService ports.BookingsService
	}
)

func NewBookTourCommandHandler(
	svc ports.BookingsService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) BookTourCommandHandler {
	return decorator.ApplyCommandDecorators[BookTourCommand, *model.Booking](
		bookTourCommandHandler{bookingsService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h bookTourCommandHandler) Handle(ctx context.Context, cmd BookTourCommand) (*model.Booking, error) {
	return h.bookingsService.BookTour(ctx, cmd.TourID, cmd.User)
}
