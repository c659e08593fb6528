package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/mess-connect/internal/handler"
)

// Guards reject before a handler runs, so empty handlers are enough here.
func newTestEcho(mw Middleware) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, map[string]handler.Check{"store": func(context.Context) error { return nil }})
	RegisterAPI(e, Handlers{
		Auth:        &handler.AuthHandler{},
		Menu:        &handler.MenuHandler{},
		Complaints:  &handler.FeedbackHandler{},
		Suggestions: &handler.FeedbackHandler{},
		Students:    &handler.StudentHandler{},
		Payments:    &handler.PaymentHandler{},
		Notes:       &handler.NoteHandler{},
		Settings:    &handler.SettingsHandler{},
		Broadcast:   &handler.BroadcastHandler{},
	}, mw)
	return e
}

func TestRegisterAPI_Routes(t *testing.T) {
	e := newTestEcho(Middleware{})
	have := make(map[string]bool)
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	want := []string{
		"GET /healthz",
		"POST /api/register",
		"POST /api/login",
		"POST /api/forgot-password",
		"POST /api/reset-password",
		"GET /api/verify-email",
		"POST /api/verify-email",
		"GET /api/me",
		"GET /api/menu",
		"PUT /api/menu",
		"POST /api/complaints",
		"GET /api/complaints/mine",
		"GET /api/complaints/all",
		"POST /api/complaints/:id/reply",
		"POST /api/suggestions",
		"GET /api/suggestions/mine",
		"GET /api/suggestions/all",
		"POST /api/suggestions/:id/reply",
		"GET /api/students",
		"POST /api/students/:id/approve",
		"POST /api/students/:id/reject",
		"DELETE /api/students/:id",
		"POST /api/students/:id/notify",
		"GET /api/payments/mine",
		"POST /api/payments/create-order",
		"POST /api/payments/verify-payment",
		"POST /api/payments/mark-as-paid",
		"POST /api/payments/guest/create-order",
		"POST /api/payments/guest/verify-payment",
		"GET /api/financials",
		"GET /api/notes",
		"POST /api/notes",
		"PATCH /api/notes/:id",
		"DELETE /api/notes/:id",
		"GET /api/settings",
		"GET /api/settings/fee",
		"PUT /api/settings/fee",
		"PUT /api/settings/rules",
		"POST /api/settings/clear-all-data",
		"POST /api/broadcast",
	}
	for _, r := range want {
		assert.True(t, have[r], "missing route %s", r)
	}
}

func TestRegisterAPI_GuardedWithoutToken(t *testing.T) {
	e := newTestEcho(Middleware{})
	guarded := [][2]string{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/menu"},
		{http.MethodPut, "/api/menu"},
		{http.MethodPost, "/api/complaints"},
		{http.MethodGet, "/api/students"},
		{http.MethodDelete, "/api/students/a@b.c"},
		{http.MethodPost, "/api/payments/mark-as-paid"},
		{http.MethodPatch, "/api/notes/1"},
		{http.MethodPost, "/api/settings/clear-all-data"},
		{http.MethodPost, "/api/broadcast"},
	}
	for _, g := range guarded {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(g[0], g[1], nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, g[0]+" "+g[1])
		assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, rec.Body.String(), g[0]+" "+g[1])
	}
}

func TestRegisterAPI_RateLimitOnCredentialRoutes(t *testing.T) {
	limited := make(map[string]bool)
	deny := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limited[c.Request().Method+" "+c.Path()] = true
			return c.NoContent(http.StatusTooManyRequests)
		}
	}
	e := newTestEcho(Middleware{RateLimit: deny})

	for _, path := range []string{"/api/register", "/api/login", "/api/forgot-password", "/api/reset-password", "/api/payments/guest/create-order"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, path)
	}
	assert.Len(t, limited, 5)
}

func TestRegisterAPI_RestoreStaffRunsBeforeAuthenticate(t *testing.T) {
	var order []string
	mark := func(name string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}
	e := newTestEcho(Middleware{RestoreStaff: mark("restore"), Authenticate: mark("auth")})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{"restore", "auth"}, order)
}
