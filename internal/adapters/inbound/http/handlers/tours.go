package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/internal/usecases/queries"
)

const (
	ParamYear     = "year"
	ParamDistance = "distance"
	ParamLatLng   = "latlng"
	ParamUnit     = "unit"
)

// TourReportsHandler serves the aggregate and geo routes of tours.
type TourReportsHandler struct {
	app         *usecases.WebApplication
	errorWriter shared.ErrorWriter
}

func NewTourReportsHandler(app *usecases.WebApplication, errorWriter shared.ErrorWriter) *TourReportsHandler {
	return &TourReportsHandler{app: app, errorWriter: errorWriter}
}

// AliasTopTours rewrites the query into the five best rated, cheapest tours.
func AliasTopTours(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		query.Set(model.QueryKeyLimit, "5")
		query.Set(model.QueryKeySort, "-ratingAverage,price")
		query.Set(model.QueryKeyFields, "name,price,ratingAverage")
		r.URL.RawQuery = query.Encode()

		next.ServeHTTP(w, r)
	})
}

func (h *TourReportsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Queries.TourStats.Execute(r.Context(), queries.TourStatsQuery{})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteData(w, http.StatusOK, stats)
}

func (h *TourReportsHandler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, ParamYear))
	if err != nil {
		h.errorWriter.Write(w, r, model.WrapAppError(err, http.StatusBadRequest, "Please provide a valid four digit year."))

		return
	}

	plan, err := h.app.Queries.MonthlyPlan.Execute(r.Context(), queries.MonthlyPlanQuery{Year: year})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteData(w, http.StatusOK, plan)
}

func (h *TourReportsHandler) ToursWithin(w http.ResponseWriter, r *http.Request) {
	center, unit, err := geoParams(r)
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	rawDistance := chi.URLParam(r, ParamDistance)

	distance, err := strconv.ParseFloat(rawDistance, 64)
	if err != nil {
		h.errorWriter.Write(w, r, model.WrapAppError(err, http.StatusBadRequest, "Invalid distance: "+rawDistance))

		return
	}

	circle, err := model.NewGeoCircle(center, distance, unit)
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	tours, err := h.app.Queries.ToursWithin.Execute(r.Context(), queries.ToursWithinQuery{Circle: circle})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteList(w, tours)
}

func (h *TourReportsHandler) Distances(w http.ResponseWriter, r *http.Request) {
	origin, unit, err := geoParams(r)
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	distances, err := h.app.Queries.Distances.Execute(r.Context(), queries.DistancesQuery{Origin: origin, Unit: unit})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	shared.WriteList(w, distances)
}

func geoParams(r *http.Request) (model.Point, model.DistanceUnit, error) {
	point, err := model.ParseLatLng(chi.URLParam(r, ParamLatLng))
	if err != nil {
		return model.Point{}, "", err
	}

	unit, err := model.ParseDistanceUnit(chi.URLParam(r, ParamUnit))
	if err != nil {
		return model.Point{}, "", err
	}

	return point, unit, nil
}
