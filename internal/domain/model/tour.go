package model

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"

	DefaultRatingAverage = 4.5

	PopulateGuides  = "guides"
	PopulateReviews = "reviews"
)

var difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyDifficult}

type (
	Tour struct {
		Base           `bson:",inline"`
		Name           string      `bson:"name" json:"name"`
		Slug           string      `bson:"slug" json:"slug"`
		Duration       int         `bson:"duration" json:"duration"`
		MaxGroupSize   int         `bson:"maxGroupSize" json:"maxGroupSize"`
		Difficulty     Difficulty  `bson:"difficulty" json:"difficulty"`
		RatingAverage  float64     `bson:"ratingAverage" json:"ratingAverage"`
		RatingQuantity int         `bson:"ratingQuantity" json:"ratingQuantity"`
		Price          float64     `bson:"price" json:"price"`
		PriceDiscount  float64     `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty"`
		Summary        string      `bson:"summary" json:"summary"`
		Description    string      `bson:"description,omitempty" json:"description,omitempty"`
		ImageCover     string      `bson:"imageCover" json:"imageCover"`
		Images         []string    `bson:"images,omitempty" json:"images,omitempty"`
		StartDates     []time.Time `bson:"startDates,omitempty" json:"startDates,omitempty"`
		SecretTour     bool        `bson:"secretTour" json:"secretTour,omitempty"`
		StartLocation  *Location   `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
		Locations      []Location  `bson:"locations,omitempty" json:"locations,omitempty"`
		Guides         []ID        `bson:"guides,omitempty" json:"guides,omitempty"`

		GuideProfiles []UserProfile `bson:"guideProfiles,omitempty" json:"-"`
		Reviews       []Review      `bson:"reviews,omitempty" json:"reviews,omitempty"`
	}

	TourStats struct {
		Difficulty   string  `bson:"_id" json:"difficulty"`
		ToursCount   int     `bson:"toursCount" json:"toursCount"`
		RatingsCount int     `bson:"ratingsCount" json:"ratingsCount"`
		RatingAvg    float64 `bson:"ratingAvg" json:"ratingAvg"`
		AveragePrice float64 `bson:"averagePrice" json:"averagePrice"`
		MaxPrice     float64 `bson:"maxPrice" json:"maxPrice"`
		MinPrice     float64 `bson:"minPrice" json:"minPrice"`
	}

	MonthlyPlan struct {
		Month     int      `bson:"month" json:"month"`
		TourCount int      `bson:"tourCount" json:"tourCount"`
		Tours     []string `bson:"tours" json:"tours"`
	}

	TourDistance struct {
		ID       ID      `bson:"_id" json:"id"`
		Name     string  `bson:"name" json:"name"`
		Distance float64 `bson:"distance" json:"distance"`
	}

	RatingSummary struct {
		Quantity int     `bson:"quantity"`
		Average  float64 `bson:"average"`
	}
)

var TourSchema = NewSchema(map[string]FieldKind{
	"_id":            KindID,
	"name":           KindString,
	"slug":           KindString,
	"duration":       KindNumber,
	"maxGroupSize":   KindNumber,
	"difficulty":     KindString,
	"ratingAverage":  KindNumber,
	"ratingQuantity": KindNumber,
	"price":          KindNumber,
	"priceDiscount":  KindNumber,
	"summary":        KindString,
	"description":    KindString,
	"imageCover":     KindString,
	"images":         KindString,
	"startDates":     KindTime,
	"guides":         KindID,
	"createdAt":      KindTime,
})

// DurationWeeks is derived from Duration and never stored.
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

func (t *Tour) Prepare(now time.Time) error {
	t.initialize(now)

	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = slug.Make(t.Name)
	t.RatingAverage = RoundRating(t.RatingAverage)

	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = GeoTypePoint
	}

	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = GeoTypePoint
		}
	}

	return nil
}

func (t *Tour) Validate() error {
	errs := NewValidationErrors()

	switch length := utf8.RuneCountInString(t.Name); {
	case length == 0:
		errs.Add("name", "A tour must have a name", "required")
	case length < 8 || length > 80:
		errs.Add("name", "A tour name must have between 8 and 80 characters", "length")
	}

	if t.Duration <= 0 {
		errs.Add("duration", "A tour must have a duration", "required")
	}

	if t.MaxGroupSize <= 0 {
		errs.Add("maxGroupSize", "A tour must have a group size", "required")
	}

	if !slices.Contains(difficulties, t.Difficulty) {
		errs.Add("difficulty", "Difficulty is either: easy, medium, difficult", "enum")
	}

	if t.RatingAverage < 0 || t.RatingAverage > 5 {
		errs.Add("ratingAverage", "Rating must be between 0 and 5", "range")
	}

	if t.Price < 1 || t.Price > 10000 {
		errs.Add("price", "A tour price must be between 1 and 10000", "range")
	}

	if t.PriceDiscount < 0 || (t.PriceDiscount > 0 && t.PriceDiscount >= t.Price) {
		errs.Add("priceDiscount", fmt.Sprintf("Discount price (%v) should be below the regular price", t.PriceDiscount), "range")
	}

	if t.Summary == "" {
		errs.Add("summary", "A tour must have a summary", "required")
	}

	if t.ImageCover == "" {
		errs.Add("imageCover", "A tour must have a cover image", "required")
	}

	if t.StartLocation != nil {
		t.StartLocation.validate("startLocation", errs)
	}

	for i, location := range t.Locations {
		location.validate(fmt.Sprintf("locations.%d", i), errs)
	}

	return errs.OrNil()
}

func (t Tour) MarshalJSON() ([]byte, error) {
	type tour Tour

	var guides any
	switch {
	case len(t.GuideProfiles) > 0:
		guides = t.GuideProfiles
	case len(t.Guides) > 0:
		guides = t.Guides
	}

	return json.Marshal(struct {
		tour
		Guides        any     `json:"guides,omitempty"`
		DurationWeeks float64 `json:"durationWeeks"`
	}{
		tour:          tour(t),
		Guides:        guides,
		DurationWeeks: t.DurationWeeks(),
	})
}

// RoundRating keeps one decimal, 4.666 becomes 4.7.
func RoundRating(value float64) float64 {
	return math.Round(value*10) / 10
}
