package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/architeacher/natours/internal/domain/model"
)

const (
	ParamID     = "id"
	ParamTourID = "tourId"
)

// decodeBody reads a JSON document into target. Size limit errors pass through untouched.
func decodeBody(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return bodyError(err)
	}

	return nil
}

func readPatch(r *http.Request) (model.Patch, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyError(err)
	}

	return model.Patch(raw), nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}

	if errors.Is(err, io.EOF) {
		return model.WrapAppError(err, http.StatusBadRequest, "Request body must not be empty.")
	}

	return model.WrapAppError(err, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
}

func pathID(r *http.Request, name string) (model.ID, error) {
	return model.ParseID(chi.URLParam(r, name))
}
