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
	// UpdateMeCommand changes the profile of the authenticated user.
	UpdateMeCommand struct {
		User  *model.User
		Patch model.Patch
	}

	DeactivateMeCommand struct {
		User *model.User
	}

	UpdateMeCommandHandler     = decorator.CommandHandler[UpdateMeCommand, *model.User]
	DeactivateMeCommandHandler = decorator.CommandHandler[DeactivateMeCommand, DeleteResult]

	updateMeCommandHandler struct {
		usersService ports.UsersService
	}

	deactivateMeCommandHandler struct {
		usersService ports.UsersService
	}
)

func NewUpdateMeCommandHandler(
	svc ports.UsersService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) UpdateMeCommandHandler {
	return decorator.ApplyCommandDecorators[UpdateMeCommand, *model.User](
		updateMeCommandHandler{usersService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h updateMeCommandHandler) Handle(ctx context.Context, cmd UpdateMeCommand) (*model.User, error) {
	return h.usersService.UpdateMe(ctx, cmd.User, cmd.Patch)
}

func NewDeactivateMeCommandHandler(
	svc ports.UsersService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) DeactivateMeCommandHandler {
	return decorator.ApplyCommandDecorators[DeactivateMeCommand, DeleteResult](
		deactivateMeCommandHandler{usersService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h deactivateMeCommandHandler) Handle(ctx context.Context, cmd DeactivateMeCommand) (DeleteResult, error) {
	if err := h.usersService.DeactivateMe(ctx, cmd.User); err != nil {
		return DeleteResult{Success: false}, err
	}

	return DeleteResult{Success: true}, nil
}
