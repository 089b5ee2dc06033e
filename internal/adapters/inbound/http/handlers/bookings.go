package handlers

import (
	"net/http"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/internal/usecases/commands"
)

type BookingHandler struct {
	app         *usecases.WebApplication
	errorWriter shared.ErrorWriter
}

func NewBookingHandler(app *usecases.WebApplication, errorWriter shared.ErrorWriter) *BookingHandler {
	return &BookingHandler{app: app, errorWriter: errorWriter}
}

// BookTour books the tour in the path for the signed in user at the tour's price.
// The route shares its id segment with the booking routes, so the tour id sits under "id".
func (h *BookingHandler) BookTour(w http.ResponseWriter, r *http.Request) {
	tourID, err := pathID(r, ParamID)
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	booking, err := h.app.Commands.BookTour.Handle(r.Context(), commands.BookTourCommand{
		TourID: tourID,
		User:   middleware.CurrentUser(r.Context()),
	})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteData(w, http.StatusCreated, booking)
}
