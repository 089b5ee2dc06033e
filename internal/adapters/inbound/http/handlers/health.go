package handlers

import (
	"net/http"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/internal/usecases/queries"
)

type HealthHandler struct {
	app         *usecases.WebApplication
	errorWriter shared.ErrorWriter
}

func NewHealthHandler(app *usecases.WebApplication, errorWriter shared.ErrorWriter) *HealthHandler {
	return &HealthHandler{app: app, errorWriter: errorWriter}
}

// Health answers 503 only when every dependency is down; a degraded service still serves.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchHealthReport.Execute(r.Context(), queries.FetchHealthReportQuery{})
	if err != nil {
		h.errorWriter.Write(w, r, err)

		return
	}

	status := http.StatusOK
	if report.Status == model.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-store")
	shared.WriteJSON(w, status, report)
}
