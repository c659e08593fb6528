package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mess-connect/internal/handler"
	"github.com/iliyamo/mess-connect/internal/model"
)

func weekBody(order ...string) map[string]any {
	days := make([]map[string]string, 0, len(order))
	for _, d := range order {
		days = append(days, map[string]string{"day": d, "breakfast": "Poha", "lunch": "Dal rice " + d, "dinner": "Roti"})
	}
	return map[string]any{"days": days}
}

func TestMenu(t *testing.T) {
	a := newApp(t)
	manager := a.manager(t)
	student := a.student(t, "Asha", "asha@example.com")

	code, env := a.do(t, http.MethodGet, "/api/menu", student, nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[model.Menu](t, env)
	require.Len(t, got.Days, 7)
	assert.Equal(t, "Monday", got.Days[0].Day)

	t.Run("six days", func(t *testing.T) {
		code, env := a.do(t, http.MethodPut, "/api/menu", manager, weekBody("Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Menu must list all 7 days of the week", env.Error)
	})

	t.Run("duplicate day", func(t *testing.T) {
		code, env := a.do(t, http.MethodPut, "/api/menu", manager, weekBody("Monday", "Monday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Duplicate day: Monday", env.Error)
	})

	t.Run("student cannot edit", func(t *testing.T) {
		code, _ := a.do(t, http.MethodPut, "/api/menu", student, weekBody(model.Weekdays...))
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	code, env = a.do(t, http.MethodPut, "/api/menu", manager, weekBody("sunday", "Saturday", "FRIDAY", "Thursday", "Wednesday", "Tuesday", "Monday"))
	require.Equal(t, http.StatusOK, code, env.Error)
	saved := decode[model.Menu](t, env)
	for i, d := range saved.Days {
		assert.Equal(t, model.Weekdays[i], d.Day)
	}
	assert.Equal(t, "Dal rice FRIDAY", saved.Days[4].Lunch)
	assert.Contains(t, a.cache.routes, handler.MenuRoute)

	code, env = a.do(t, http.MethodGet, "/api/menu", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, saved.Days, decode[model.Menu](t, env).Days)
}

func TestNotes(t *testing.T) {
	a := newApp(t)
	manager := a.manager(t)

	code, env := a.do(t, http.MethodPost, "/api/notes", manager, map[string]string{"text": "Order more gas cylinders"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	note := decode[model.Note](t, env)
	assert.False(t, note.Completed)

	code, env = a.do(t, http.MethodPatch, "/api/notes/"+note.ID, manager, map[string]bool{"completed": true})
	require.Equal(t, http.StatusOK, code, env.Error)
	patched := decode[model.Note](t, env)
	assert.True(t, patched.Completed)
	assert.Equal(t, "Order more gas cylinders", patched.Text)

	code, env = a.do(t, http.MethodPatch, "/api/notes/"+note.ID, manager, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "nothing to update", env.Error)

	code, env = a.do(t, http.MethodPatch, "/api/notes/"+note.ID, manager, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Note text is required", env.Error)

	code, env = a.do(t, http.MethodGet, "/api/notes", manager, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[map[string]any](t, env)["notes"], 1)

	code, _ = a.do(t, http.MethodDelete, "/api/notes/"+note.ID, manager, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = a.do(t, http.MethodDelete, "/api/notes/"+note.ID, manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Note not found", env.Error)
}

func TestStudents_ApproveRejectList(t *testing.T) {
	a := newApp(t)
	manager := a.manager(t)
	a.register(t, "Asha", "asha@example.com")
	a.register(t, "Ravi", "ravi@example.com")

	code, env := a.do(t, http.MethodPost, "/api/students/ravi@example.com/reject", manager, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, model.StatusRejected, decode[map[string]any](t, env)["status"])
	assert.NotEmpty(t, a.mail.to("ravi@example.com"))

	code, env = a.do(t, http.MethodGet, "/api/students?status=pending", manager, nil)
	require.Equal(t, http.StatusOK, code)
	pending := decode[map[string][]map[string]any](t, env)["students"]
	require.Len(t, pending, 1)
	assert.Equal(t, "asha@example.com", pending[0]["id"])

	code, env = a.do(t, http.MethodGet, "/api/students?status=archived", manager, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(t, http.MethodPost, "/api/students/"+managerEmail+"/approve", manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Student not found", env.Error)
}

func TestStudents_DeleteCascades(t *testing.T) {
	a := newApp(t)
	student := a.student(t, "Asha", "asha@example.com")
	manager := a.manager(t)

	_, env := a.do(t, http.MethodPost, "/api/complaints", student, map[string]string{"text": "Too much salt in the curry."})
	require.True(t, env.Success, env.Error)
	_, env = a.do(t, http.MethodPost, "/api/suggestions", student, map[string]string{"text": "Serve curd with lunch."})
	require.True(t, env.Success, env.Error)
	_, env = a.do(t, http.MethodPost, "/api/payments/mark-as-paid", manager, map[string]string{"studentId": "asha@example.com"})
	require.True(t, env.Success, env.Error)

	code, env := a.do(t, http.MethodDelete, "/api/students/asha@example.com", manager, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.EqualValues(t, 2, decode[map[string]any](t, env)["removedFeedback"])

	counts, err := a.repos.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts["complaint"])
	assert.Zero(t, counts["suggestion"])
	assert.Zero(t, counts["payment"])

	code, env = a.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "asha@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found.", env.Error)

	code, _ = a.do(t, http.MethodGet, "/api/me", student, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(t, http.MethodDelete, "/api/students/asha@example.com", manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStudents_Notify(t *testing.T) {
	a := newApp(t)
	a.student(t, "Asha", "asha@example.com")
	manager := a.manager(t)

	code, env := a.do(t, http.MethodPost, "/api/students/asha@example.com/notify", manager, map[string]string{
		"subject": "Dues reminder", "message": "Please clear <dues> by Friday.",
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	mails := a.mail.to("asha@example.com")
	last := mails[len(mails)-1]
	assert.Equal(t, "Dues reminder", last.Subject)
	assert.Contains(t, last.HTML, "&lt;dues&gt;")

	code, env = a.do(t, http.MethodPost, "/api/students/asha@example.com/notify", manager, map[string]string{"subject": "", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Subject is required", env.Error)
}

func TestBroadcast(t *testing.T) {
	a := newApp(t)
	a.student(t, "Asha", "asha@example.com")
	a.student(t, "Ravi", "ravi@example.com")
	a.register(t, "Pending", "pending@example.com")

	code, env := a.do(t, http.MethodPost, "/api/broadcast", a.manager(t), map[string]string{
		"subject": "Holiday", "message": "# Mess closed\n\nNo dinner on **Sunday**.",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	out := decode[map[string]int](t, env)
	assert.Equal(t, 2, out["recipients"])
	assert.Equal(t, 2, out["sent"])

	for _, addr := range []string{"asha@example.com", "ravi@example.com"} {
		mails := a.mail.to(addr)
		last := mails[len(mails)-1]
		assert.Equal(t, []string{addr}, last.To)
		assert.Contains(t, last.HTML, "<strong>Sunday</strong>")
	}
	for _, m := range a.mail.to("pending@example.com") {
		assert.NotEqual(t, "Holiday", m.Subject)
	}
}

func TestOutboundCallsGetMoreThanTheStoreBudget(t *testing.T) {
	a := newApp(t)
	student := a.student(t, "Asha", "asha@example.com")
	manager := a.manager(t)

	_, env := a.do(t, http.MethodPost, "/api/students/asha@example.com/notify", manager, map[string]string{"subject": "Hi", "message": "hello"})
	require.True(t, env.Success, env.Error)
	_, env = a.do(t, http.MethodPost, "/api/broadcast", manager, map[string]string{"subject": "Hi", "message": "hello"})
	require.True(t, env.Success, env.Error)
	_, env = a.do(t, http.MethodPost, "/api/payments/create-order", student, map[string]string{})
	require.True(t, env.Success, env.Error)
	_, env = a.do(t, http.MethodPost, "/api/payments/guest/create-order", "", map[string]any{
		"name": "Visitor", "email": "visitor@example.com", "phone": "9876543210", "amount": 50,
	})
	require.True(t, env.Success, env.Error)

	// register, approve, notify and broadcast all mailed
	require.GreaterOrEqual(t, len(a.mail.to("asha@example.com")), 4)
	assert.Greater(t, a.mail.minBudget(), 5*time.Second)
	require.Len(t, a.gateway.budgets, 2)
	assert.Greater(t, minOf(a.gateway.budgets), 5*time.Second)
}

func TestSettings(t *testing.T) {
	a := newApp(t)
	manager := a.manager(t)
	student := a.student(t, "Asha", "asha@example.com")

	code, env := a.do(t, http.MethodPut, "/api/settings/fee", manager, map[string]int{"monthlyFee": -5})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Monthly fee must be a positive number", env.Error)

	code, env = a.do(t, http.MethodPut, "/api/settings/fee", manager, map[string]int{"monthlyFee": 3500})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = a.do(t, http.MethodPut, "/api/settings/rules", manager, map[string]string{"messRules": "Be on time."})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = a.do(t, http.MethodGet, "/api/settings", student, nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[model.Setting](t, env)
	assert.Equal(t, int64(3500), got.MonthlyFee)
	assert.Equal(t, "Be on time.", got.MessRules)

	code, env = a.do(t, http.MethodGet, "/api/settings/fee", manager, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"monthlyFee":3500}`, string(env.Data))

	code, _ = a.do(t, http.MethodGet, "/api/settings/fee", student, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestClearAllData(t *testing.T) {
	a := newApp(t)
	student := a.student(t, "Asha", "asha@example.com")
	manager := a.manager(t)

	_, env := a.do(t, http.MethodPost, "/api/complaints", student, map[string]string{"text": "Tables are never wiped."})
	require.True(t, env.Success, env.Error)
	_, env = a.do(t, http.MethodPost, "/api/notes", manager, map[string]string{"text": "Hire a cleaner"})
	require.True(t, env.Success, env.Error)
	_, env = a.do(t, http.MethodPut, "/api/menu", manager, weekBody(model.Weekdays...))
	require.True(t, env.Success, env.Error)

	code, env := a.do(t, http.MethodPost, "/api/settings/clear-all-data", a.login(t, adminEmail, staffPassword), nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Contains(t, a.cache.routes, handler.MenuRoute)

	counts, err := a.repos.Counts(context.Background())
	require.NoError(t, err)
	for kind, n := range counts {
		assert.Zero(t, n, kind)
	}

	// the next request brings the staff accounts back, and only those
	code, env = a.do(t, http.MethodGet, "/api/settings", manager, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Zero(t, decode[model.Setting](t, env).MonthlyFee)

	counts, err = a.repos.Counts(context.Background())
	require.NoError(t, err)
	for kind, n := range counts {
		if kind == "user" {
			assert.Equal(t, 2, n)
			continue
		}
		assert.Zero(t, n, kind)
	}
	a.login(t, adminEmail, staffPassword)

	code, _ = a.do(t, http.MethodGet, "/api/me", student, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"store":"ok"}}`, rec.Body.String())
}

func TestHealth_Degraded(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", handler.Health(map[string]handler.Check{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"store":"ok","redis":"connection refused"}}`, rec.Body.String())
}
