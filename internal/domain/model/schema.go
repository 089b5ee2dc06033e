package model

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"
)

type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindBool
	KindTime
	KindID
)

// Schema lists the stored fields a query may filter, sort or project on.
type Schema struct {
	fields map[string]FieldKind
}

func NewSchema(fields map[string]FieldKind) Schema {
	return Schema{fields: maps.Clone(fields)}
}

func (s Schema) Has(field string) bool {
	_, ok := s.fields[field]

	return ok
}

func (s Schema) Fields() []string {
	return slices.Sorted(maps.Keys(s.fields))
}

// Coerce converts a raw query value into the field's stored type.
func (s Schema) Coerce(field, raw string) (any, error) {
	kind, ok := s.fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryField, field)
	}

	switch kind {
	case KindNumber:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number, got %q", field, raw)
		}

		return value, nil
	case KindBool:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a boolean, got %q", field, raw)
		}

		return value, nil
	case KindTime:
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if value, err := time.Parse(layout, raw); err == nil {
				return value, nil
			}
		}

		return nil, fmt.Errorf("%s must be a date, got %q", field, raw)
	case KindID:
		id, err := ParseID(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid id, got %q", field, raw)
		}

		return id, nil
	default:
		return raw, nil
	}
}
