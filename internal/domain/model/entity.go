package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ID identifies a stored document. Values are UUIDv7 strings, so they sort by creation time.
type ID string

type (
	// Base holds the bookkeeping fields shared by every document.
	Base struct {
		ID        ID        `bson:"_id" json:"id"`
		CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
		Version   int       `bson:"__v" json:"-"`
	}

	// Entity is implemented by every stored document type.
	Entity interface {
		EntityID() ID
		// ResetIdentity clears the id, creation time and version so a write assigns fresh ones.
		ResetIdentity()
		// Prepare assigns defaults and derived fields before a write.
		Prepare(now time.Time) error
		Validate() error
	}

	// Document constrains generic code to pointers of entity structs.
	Document[T any] interface {
		*T
		Entity
	}

	// Patch is a partial JSON document merged onto an existing entity.
	Patch json.RawMessage
)

func NewID() ID {
	return ID(uuid.Must(uuid.NewV7()).String())
}

func ParseID(raw string) (ID, error) {
	if _, err := uuid.Parse(raw); err != nil {
		return "", &InvalidIDError{Path: "_id", Value: raw}
	}

	return ID(raw), nil
}

func (id ID) String() string { return string(id) }
func (id ID) IsZero() bool   { return id == "" }

func (b *Base) EntityID() ID { return b.ID }

func (b *Base) ResetIdentity() {
	b.ID = ""
	b.CreatedAt = time.Time{}
	b.Version = 0
}

// initialize assigns the id and creation time of a new document.
func (b *Base) initialize(now time.Time) {
	if b.ID.IsZero() {
		b.ID = NewID()
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = now.UTC()
	}
}

// Apply merges the patch onto target. Unknown fields are ignored; type mismatches are rejected.
func (p Patch) Apply(target any) error {
	if len(p) == 0 {
		return nil
	}

	if err := json.Unmarshal(p, target); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			errs := NewValidationErrors()
			errs.Add(typeErr.Field, fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type), "invalid_type")

			return errs
		}

		return WrapAppError(fmt.Errorf("%w: %w", ErrInvalidPatch, err), http.StatusBadRequest, "Request body must be a valid JSON object.")
	}

	return nil
}

// Keys lists the top level fields present in the patch.
func (p Patch) Keys() ([]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(p, &fields); err != nil {
		return nil, WrapAppError(fmt.Errorf("%w: %w", ErrInvalidPatch, err), http.StatusBadRequest, "Request body must be a valid JSON object.")
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	return keys, nil
}
