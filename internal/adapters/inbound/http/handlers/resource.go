package handlers

import (
	"net/http"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/internal/usecases/commands"
	"github.com/architeacher/natours/internal/usecases/queries"
)

type (
	// ResourceOptions tailor the generic handlers to one route.
	ResourceOptions[E model.Entity] struct {
		// IDParam is the route parameter holding the document id, "id" when empty.
		IDParam string

		// Populate names the relations resolved by Get.
		Populate []string

		// Scope narrows List to what the route addresses, e.g. the reviews of one tour.
		Scope func(r *http.Request) (model.Specification, error)

		// Prefill completes a decoded entity from the route before Create.
		Prefill func(r *http.Request, entity E) error
	}

	// ResourceHandler serves the CRUD routes of one resource.
	ResourceHandler[T any, E model.Document[T]] struct {
		commands    usecases.ResourceCommands[E]
		queries     usecases.ResourceQueries[E]
		errorWriter shared.ErrorWriter
		options     ResourceOptions[E]
	}
)

func NewResourceHandler[T any, E model.Document[T]](
	cmds usecases.ResourceCommands[E],
	qs usecases.ResourceQueries[E],
	errorWriter shared.ErrorWriter,
	options ResourceOptions[E],
) *ResourceHandler[T, E] {
	return &ResourceHandler[T, E]{
		commands:    cmds,
		queries:     qs,
		errorWriter: errorWriter,
		options:     options,
	}
}

// WithOptions returns a copy of h serving a differently scoped route.
func (h *ResourceHandler[T, E]) WithOptions(options ResourceOptions[E]) *ResourceHandler[T, E] {
	clone := *h
	clone.options = options

	return &clone
}

func (h *ResourceHandler[T, E]) idParam() string {
	if h.options.IDParam == "" {
		return ParamID
	}

	return h.options.IDParam
}

func (h *ResourceHandler[T, E]) Create(w http.ResponseWriter, r *http.Request) {
	entity := E(new(T))
	if err := decodeBody(r, entity); err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	if h.options.Prefill != nil {
		if err := h.options.Prefill(r, entity); err != nil {
			h.errorWriter.Write(w, r, err)

			return
		}
	}

	created, err := h.commands.CreateOne.Handle(r.Context(), commands.CreateOneCommand[E]{Entity: entity})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteJSON(w, http.StatusCreated, shared.Envelope{
		Status:  shared.StatusSuccess,
		Message: "New doc created",
		Data:    shared.DataBody{Data: created},
	})
}

func (h *ResourceHandler[T, E]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.idParam())
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	h.get(w, r, id)
}

func (h *ResourceHandler[T, E]) get(w http.ResponseWriter, r *http.Request, id model.ID) {
	entity, err := h.queries.GetOne.Execute(r.Context(), queries.GetOneQuery[E]{ID: id, Populate: h.options.Populate})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteData(w, http.StatusOK, entity)
}

func (h *ResourceHandler[T, E]) List(w http.ResponseWriter, r *http.Request) {
	var scope model.Specification

	if h.options.Scope != nil {
		var err error
		if scope, err = h.options.Scope(r); err != nil {
			h.errorWriter.Write(w, r, err)

			return
		}
	}

	entities, err := h.queries.GetAll.Execute(r.Context(), queries.GetAllQuery[E]{
		Query: model.NewQuerySpec(r.URL.Query()),
		Scope: scope,
	})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteList(w, entities)
}

func (h *ResourceHandler[T, E]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.idParam())
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	patch, err := readPatch(r)
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	updated, err := h.commands.UpdateOne.Handle(r.Context(), commands.UpdateOneCommand[E]{ID: id, Patch: patch})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteData(w, http.StatusOK, updated)
}

func (h *ResourceHandler[T, E]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.idParam())
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	if _, err := h.commands.DeleteOne.Handle(r.Context(), commands.DeleteOneCommand[E]{ID: id}); err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteNoContent(w)
}
