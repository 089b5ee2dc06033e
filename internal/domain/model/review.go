package model

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

const PopulateUser = "user"

type Review struct {
	Base   `bson:",inline"`
	Review string  `bson:"review" json:"review"`
	Rating float64 `bson:"rating" json:"rating"`
	Tour   ID      `bson:"tour" json:"tour"`
	User   ID      `bson:"user" json:"user"`

	Author *UserProfile `bson:"author,omitempty" json:"-"`
}

var ReviewSchema = NewSchema(map[string]FieldKind{
	"_id":       KindID,
	"review":    KindString,
	"rating":    KindNumber,
	"tour":      KindID,
	"user":      KindID,
	"createdAt": KindTime,
})

func (r *Review) Prepare(now time.Time) error {
	r.initialize(now)
	r.Review = strings.TrimSpace(r.Review)

	return nil
}

func (r *Review) Validate() error {
	errs := NewValidationErrors()

	if utf8.RuneCountInString(r.Review) < 8 {
		errs.Add("review", "A review must have at least 8 characters", "length")
	}

	if r.Rating < 1 || r.Rating > 5 {
		errs.Add("rating", "Rating must be between 1 and 5", "range")
	}

	if r.Tour.IsZero() {
		errs.Add("tour", "Review must belong to a tour.", "required")
	}

	if r.User.IsZero() {
		errs.Add("user", "Review must belong to a user", "required")
	}

	return errs.OrNil()
}

func (r Review) MarshalJSON() ([]byte, error) {
	type review Review

	var user any = r.User
	if r.Author != nil {
		user = r.Author
	}

	return json.Marshal(struct {
		review
		User any `json:"user"`
	}{
		review: review(r),
		User:   user,
	})
}
