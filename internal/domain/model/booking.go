package model

import (
	"encoding/json"
	"time"
)

const PopulateTour = "tour"

type (
	Booking struct {
		Base  `bson:",inline"`
		Tour  ID      `bson:"tour" json:"tour"`
		User  ID      `bson:"user" json:"user"`
		Price float64 `bson:"price" json:"price"`
		Paid  bool    `bson:"paid" json:"paid"`

		TourSummary *TourSummary `bson:"tourSummary,omitempty" json:"-"`
		Customer    *UserProfile `bson:"customer,omitempty" json:"-"`
	}

	TourSummary struct {
		ID   ID     `bson:"_id" json:"id"`
		Name string `bson:"name" json:"name"`
	}
)

var BookingSchema = NewSchema(map[string]FieldKind{
	"_id":       KindID,
	"tour":      KindID,
	"user":      KindID,
	"price":     KindNumber,
	"paid":      KindBool,
	"createdAt": KindTime,
})

// NewBooking prices the booking from the tour at the time of purchase.
func NewBooking(tour *Tour, user *User) *Booking {
	return &Booking{
		Tour:  tour.ID,
		User:  user.ID,
		Price: tour.Price,
		Paid:  true,
	}
}

func (b *Booking) Prepare(now time.Time) error {
	b.initialize(now)

	return nil
}

func (b *Booking) Validate() error {
	errs := NewValidationErrors()

	if b.Tour.IsZero() {
		errs.Add("tour", "Booking must belong to a Tour!", "required")
	}

	if b.User.IsZero() {
		errs.Add("user", "Booking must belong to a User!", "required")
	}

	if b.Price <= 0 {
		errs.Add("price", "Booking must have a price.", "required")
	}

	return errs.OrNil()
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type booking Booking

	var tour, user any = b.Tour, b.User
	if b.TourSummary != nil {
		tour = b.TourSummary
	}

	if b.Customer != nil {
		user = b.Customer
	}

	return json.Marshal(struct {
		booking
		Tour any `json:"tour"`
		User any `json:"user"`
	}{
		booking: booking(b),
		Tour:    tour,
		User:    user,
	})
}
