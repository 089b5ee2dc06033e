package shared_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/pkg/logger"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	validation := model.NewValidationErrors()
	validation.Add("name", "A tour must have a name", "required")
	validation.Add("price", "A tour must have a price", "required")

	cases := []struct {
		name        string
		err         error
		status      int
		message     string
		operational bool
	}{
		{
			name:        "app error",
			err:         model.NewAppError(http.StatusForbidden, "User role user is not authorized to perform this action"),
			status:      http.StatusForbidden,
			message:     "User role user is not authorized to perform this action",
			operational: true,
		},
		{
			name:        "validation",
			err:         fmt.Errorf("create tour: %w", validation),
			status:      http.StatusBadRequest,
			message:     "Invalid input data. A tour must have a name. A tour must have a price",
			operational: true,
		},
		{
			name:        "invalid id",
			err:         &model.InvalidIDError{Path: "_id", Value: "wwwww"},
			status:      http.StatusBadRequest,
			message:     "Invalid _id: wwwww",
			operational: true,
		},
		{
			name:        "duplicate key",
			err:         &model.DuplicateKeyError{Value: `"The Forest Hiker"`},
			status:      http.StatusBadRequest,
			message:     `Duplicate field value: "The Forest Hiker". Please use another value!`,
			operational: true,
		},
		{
			name:        "invalid token",
			err:         fmt.Errorf("%w: signature is invalid", model.ErrInvalidToken),
			status:      http.StatusUnauthorized,
			message:     "Invalid token. Please log in again!",
			operational: true,
		},
		{
			name:        "expired token",
			err:         fmt.Errorf("%w: token is expired", model.ErrTokenExpired),
			status:      http.StatusUnauthorized,
			message:     "Your token has expired! Please log in again.",
			operational: true,
		},
		{
			name:        "not found",
			err:         model.ErrNotFound,
			status:      http.StatusNotFound,
			message:     "No document found with that ID",
			operational: true,
		},
		{
			name:        "store unavailable",
			err:         fmt.Errorf("find tours: %w", model.ErrStoreUnavailable),
			status:      http.StatusServiceUnavailable,
			operational: true,
		},
		{
			name:        "body too large",
			err:         &http.MaxBytesError{Limit: 30720},
			status:      http.StatusRequestEntityTooLarge,
			message:     "Request body is too large.",
			operational: true,
		},
		{
			name:    "programming error",
			err:     errors.New("nil map"),
			status:  http.StatusInternalServerError,
			message: "Something went very wrong!",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			problem := shared.Classify(tc.err)
			require.Equal(t, tc.status, problem.StatusCode)
			require.Equal(t, tc.operational, problem.Operational)

			if tc.message != "" {
				require.Equal(t, tc.message, problem.Message)
			}
		})
	}
}

func TestErrorWriter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name            string
		development     bool
		err             error
		expectedStatus  string
		expectedMessage string
		expectDetail    bool
	}{
		{
			name:            "production hides programming errors",
			err:             errors.New("runtime error: index out of range"),
			expectedStatus:  "error",
			expectedMessage: "Something went very wrong!",
		},
		{
			name:            "production keeps operational messages",
			err:             model.ErrNotFound,
			expectedStatus:  "fail",
			expectedMessage: "No document found with that ID",
		},
		{
			name:            "development exposes the error",
			development:     true,
			err:             errors.New("runtime error: index out of range"),
			expectedStatus:  "error",
			expectedMessage: "runtime error: index out of range",
			expectDetail:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			writer := shared.NewErrorWriter(logger.NewTestLogger(), tc.development)

			rec := httptest.NewRecorder()
			writer.Write(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil), tc.err)

			var body shared.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.expectedStatus, body.Status)
			require.Equal(t, tc.expectedMessage, body.Message)
			require.Equal(t, tc.expectDetail, body.Error != "")
			require.Equal(t, shared.ApplicationJSON, rec.Header().Get(shared.ContentTypeHeader))
		})
	}
}

func TestWriteList(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	shared.WriteList[string](rec, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"success","results":0,"data":{"data":[]}}`, rec.Body.String())
}
