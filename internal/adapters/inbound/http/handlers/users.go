package handlers

import (
	"net/http"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/internal/usecases/commands"
)

// AccountHandler serves the routes of the signed in user. They all run behind Protect.
type AccountHandler struct {
	app         *usecases.WebApplication
	users       *ResourceHandler[model.User, *model.User]
	errorWriter shared.ErrorWriter
}

func NewAccountHandler(
	app *usecases.WebApplication,
	users *ResourceHandler[model.User, *model.User],
	errorWriter shared.ErrorWriter,
) *AccountHandler {
	return &AccountHandler{app: app, users: users, errorWriter: errorWriter}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.users.get(w, r, middleware.CurrentUser(r.Context()).ID)
}

func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	patch, err := readPatch(r)
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	updated, err := h.app.Commands.UpdateMe.Handle(r.Context(), commands.UpdateMeCommand{
		User:  middleware.CurrentUser(r.Context()),
		Patch: patch,
	})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteData(w, http.StatusOK, updated)
}

func (h *AccountHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	_, err := h.app.Commands.DeactivateMe.Handle(r.Context(), commands.DeactivateMeCommand{
		User: middleware.CurrentUser(r.Context()),
	})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteNoContent(w)
}
