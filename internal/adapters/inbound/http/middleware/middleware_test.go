package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/pkg/logger"
)

type authenticatorFunc func(ctx context.Context, token string) (*model.User, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*model.User, error) {
	return f(ctx, token)
}

func newErrorWriter() shared.ErrorWriter {
	return shared.NewErrorWriter(logger.NewTestLogger(), false)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) shared.Envelope {
	t.Helper()

	var body shared.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestRequestTracking(t *testing.T) {
	t.Parallel()

	var seen string

	handler := middleware.RequestTracking()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	t.Run("generates ids", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))

		require.NotEmpty(t, seen)
		require.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))
		require.NotEmpty(t, rec.Header().Get(middleware.CorrelationIDHeader))
	})

	t.Run("keeps incoming ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		req.Header.Set(middleware.CorrelationIDHeader, "corr-42")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "req-42", seen)
		require.Equal(t, "corr-42", rec.Header().Get(middleware.CorrelationIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	handler := middleware.Recovery(logger.NewTestLogger(), newErrorWriter())(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeEnvelope(t, rec)
	require.Equal(t, "error", body.Status)
	require.Equal(t, "Something went very wrong!", body.Message)
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	middleware.SecurityHeaders("v1", true)(okHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "v1", rec.Header().Get("API-Version"))
	require.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	handler := middleware.CORS([]string{"https://natours.dev"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tours", nil)
	req.Header.Set("Origin", "https://natours.dev")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "https://natours.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	req.Header.Set("Origin", "https://evil.example")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	var readErr error

	handler := middleware.BodyLimit(16, newErrorWriter())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("declared length over the limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tours", strings.NewReader(strings.Repeat("a", 32))))

		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("streamed body over the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tours", io.NopCloser(strings.NewReader(strings.Repeat("a", 32))))
		req.ContentLength = -1

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var tooLarge *http.MaxBytesError
		require.ErrorAs(t, readErr, &tooLarge)
	})
}

func TestParameterPollution(t *testing.T) {
	t.Parallel()

	var query map[string][]string

	handler := middleware.ParameterPollution([]string{"duration", "price"})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
	}))

	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/tours?sort=price&sort=duration&duration=5&duration=9", nil))

	require.Equal(t, []string{"duration"}, query["sort"])
	require.Equal(t, []string{"5", "9"}, query["duration"])
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected string
	}{
		{input: "Amazing tour", expected: "Amazing tour"},
		{input: "<b>Amazing</b> tour", expected: "Amazing tour"},
		{input: `<img src=x onerror="alert(1)">Nice`, expected: "Nice"},
		{input: "Hello<script>alert('x')</script> world", expected: "Hello world"},
		{input: "Fish &amp; chips", expected: "Fish & chips"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, middleware.StripTags(tc.input))
		})
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	var (
		body  map[string]any
		query map[string][]string
	)

	handler := middleware.Sanitize()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		body = nil
		_ = json.NewDecoder(r.Body).Decode(&body)
	}))

	payload := `{
		"name": "<h1>The Snow Adventurer</h1>",
		"email": {"$gt": ""},
		"$where": "sleep(1000)",
		"startLocation": {"description": "<i>Aspen</i>", "a.b": 1},
		"price": 997,
		"password": "pass<word>&1234",
		"passwordConfirm": "pass<word>&1234",
		"passwordCurrent": {"$ne": null}
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tours?$where=1&difficulty=easy", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "The Snow Adventurer", body["name"])
	require.Equal(t, map[string]any{}, body["email"])
	require.NotContains(t, body, "$where")
	require.Equal(t, map[string]any{"description": "Aspen"}, body["startLocation"])
	require.InDelta(t, 997, body["price"], 0)
	require.Equal(t, "pass<word>&1234", body["password"])
	require.Equal(t, "pass<word>&1234", body["passwordConfirm"])
	require.Equal(t, map[string]any{}, body["passwordCurrent"])
	require.NotContains(t, query, "$where")
	require.Equal(t, []string{"easy"}, query["difficulty"])
}

func TestConditionalGET(t *testing.T) {
	t.Parallel()

	handler := middleware.ConditionalGET()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteData(w, http.StatusOK, map[string]string{"name": "The Park Camper"})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Equal(t, middleware.ETag(rec.Body.Bytes()), etag)

	cases := []struct {
		name        string
		ifNoneMatch string
		expected    int
	}{
		{name: "same representation", ifNoneMatch: etag, expected: http.StatusNotModified},
		{name: "weak form", ifNoneMatch: "W/" + etag, expected: http.StatusNotModified},
		{name: "list", ifNoneMatch: `"abc", ` + etag, expected: http.StatusNotModified},
		{name: "stale", ifNoneMatch: `"abc"`, expected: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/1", nil)
			req.Header.Set("If-None-Match", tc.ifNoneMatch)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.expected, rec.Code)

			if tc.expected == http.StatusNotModified {
				require.Empty(t, rec.Body.Bytes())
			}
		})
	}
}

func TestProtectAndRestrictTo(t *testing.T) {
	t.Parallel()

	guide := &model.User{Base: model.Base{ID: "guide-1"}, Name: "Steve T. Scaife", Role: model.RoleGuide}

	authenticator := authenticatorFunc(func(_ context.Context, token string) (*model.User, error) {
		switch token {
		case "":
			return nil, model.WrapAppError(model.ErrNotAuthenticated, http.StatusUnauthorized,
				"You are not logged in! Please log in to get access.")
		case "good":
			return guide, nil
		default:
			return nil, model.ErrInvalidToken
		}
	})

	var current *model.User

	protected := middleware.Protect(authenticator, "jwt", newErrorWriter())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current = middleware.CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name     string
		prepare  func(r *http.Request)
		status   int
		message  string
		expected *model.User
	}{
		{
			name:    "no credentials",
			prepare: func(*http.Request) {},
			status:  http.StatusUnauthorized,
			message: "You are not logged in! Please log in to get access.",
		},
		{
			name:     "bearer token",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			status:   http.StatusOK,
			expected: guide,
		},
		{
			name:     "cookie",
			prepare:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: "good"}) },
			status:   http.StatusOK,
			expected: guide,
		},
		{
			name: "cookie wins over header",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "jwt", Value: "good"})
				r.Header.Set("Authorization", "Bearer forged")
			},
			status:   http.StatusOK,
			expected: guide,
		},
		{
			name: "logged out cookie falls back to header",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "jwt", Value: "loggedout"})
				r.Header.Set("Authorization", "Bearer good")
			},
			status:   http.StatusOK,
			expected: guide,
		},
		{
			name:    "bad token",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			status:  http.StatusUnauthorized,
			message: "Invalid token. Please log in again!",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			current = nil

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			tc.prepare(req)

			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.expected, current)

			if tc.message != "" {
				require.Equal(t, tc.message, decodeEnvelope(t, rec).Message)
			}
		})
	}

	t.Run("restrict to", func(t *testing.T) {
		restricted := middleware.RestrictTo(newErrorWriter(), model.RoleAdmin, model.RoleLeadGuide)(okHandler())

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/tours/1", nil)
		req = req.WithContext(middleware.WithCurrentUser(req.Context(), guide))

		rec := httptest.NewRecorder()
		restricted.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "User role guide is not authorized to perform this action", decodeEnvelope(t, rec).Message)
	})
}
