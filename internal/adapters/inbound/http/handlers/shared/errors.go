package shared

import (
	"errors"
	"net/http"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/pkg/logger"
)

const genericErrorMessage = "Something went very wrong!"

// Problem is a classified error ready to be written.
type Problem struct {
	StatusCode  int
	Message     string
	Operational bool
}

// Classify maps an error to the status code and client message it is answered with.
// Errors that are not recognised are programming errors and report operational=false.
func Classify(err error) Problem {
	var (
		appErr       *model.AppError
		validation   *model.ValidationErrors
		invalidID    *model.InvalidIDError
		duplicateKey *model.DuplicateKeyError
		tooLarge     *http.MaxBytesError
	)

	switch {
	case errors.As(err, &appErr):
		return Problem{StatusCode: appErr.StatusCode, Message: appErr.Message, Operational: true}
	case errors.As(err, &validation):
		return Problem{StatusCode: http.StatusBadRequest, Message: "Invalid input data. " + validation.Error(), Operational: true}
	case errors.As(err, &invalidID):
		return Problem{StatusCode: http.StatusBadRequest, Message: invalidID.Error(), Operational: true}
	case errors.As(err, &duplicateKey):
		return Problem{StatusCode: http.StatusBadRequest, Message: duplicateKey.Error(), Operational: true}
	case errors.As(err, &tooLarge):
		return Problem{StatusCode: http.StatusRequestEntityTooLarge, Message: "Request body is too large.", Operational: true}
	case errors.Is(err, model.ErrTokenExpired):
		return Problem{StatusCode: http.StatusUnauthorized, Message: "Your token has expired! Please log in again.", Operational: true}
	case errors.Is(err, model.ErrInvalidToken):
		return Problem{StatusCode: http.StatusUnauthorized, Message: "Invalid token. Please log in again!", Operational: true}
	case errors.Is(err, model.ErrNotFound):
		return Problem{StatusCode: http.StatusNotFound, Message: "No document found with that ID", Operational: true}
	case errors.Is(err, model.ErrUnknownQueryField), errors.Is(err, model.ErrInvalidPatch):
		return Problem{StatusCode: http.StatusBadRequest, Message: err.Error(), Operational: true}
	case errors.Is(err, model.ErrStoreUnavailable):
		return Problem{StatusCode: http.StatusServiceUnavailable, Message: "Service temporarily unavailable, please try again later.", Operational: true}
	}

	return Problem{StatusCode: http.StatusInternalServerError, Message: genericErrorMessage}
}

// ErrorWriter renders errors as envelopes. Development responses carry the
// underlying error; production hides anything that is not operational.
type ErrorWriter struct {
	logger      logger.Logger
	development bool
}

func NewErrorWriter(log logger.Logger, development bool) ErrorWriter {
	return ErrorWriter{logger: log, development: development}
}

func (ew ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	problem := Classify(err)

	log := ew.logger.WithContext(r.Context())
	if problem.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", problem.StatusCode).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", problem.StatusCode).Msg("request rejected")
	}

	body := Envelope{
		Status:    statusFor(problem.StatusCode),
		Message:   problem.Message,
		RequestID: RequestID(r),
	}

	if ew.development {
		body.Error = err.Error()
		if !problem.Operational {
			body.Message = err.Error()
		}
	}

	WriteJSON(w, problem.StatusCode, body)
}

// WriteStatus answers with a bare status and message, for failures raised by middleware.
func (ew ErrorWriter) WriteStatus(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{
		Status:    statusFor(statusCode),
		Message:   message,
		RequestID: RequestID(r),
	})
}

func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(logger.ContextKeyRequestID).(string)

	return id
}

func statusFor(statusCode int) string {
	if statusCode >= http.StatusInternalServerError {
		return StatusError
	}

	return StatusFail
}
