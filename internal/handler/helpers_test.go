package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mess-connect/internal/cache"
	"github.com/iliyamo/mess-connect/internal/config"
	"github.com/iliyamo/mess-connect/internal/handler"
	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/middleware"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/router"
	"github.com/iliyamo/mess-connect/internal/seed"
	"github.com/iliyamo/mess-connect/internal/service"
	"github.com/iliyamo/mess-connect/internal/storage"
)

const (
	jwtSecret     = "handler-test-secret"
	gatewaySecret = "gw-secret"
	staffPassword = "password"
	managerEmail  = "manager@messconnect.com"
	adminEmail    = "admin@messconnect.com"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mailbox records every mail instead of sending it.
type mailbox struct {
	mu      sync.Mutex
	sent    []service.Mail
	budgets []time.Duration
}

func (m *mailbox) Send(ctx context.Context, mail service.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	m.budgets = append(m.budgets, timeLeft(ctx))
	return nil
}

func (m *mailbox) minBudget() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return minOf(m.budgets)
}

// timeLeft is how long ctx has before its deadline, or -1 without one.
func timeLeft(ctx context.Context) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return -1
	}
	return time.Until(dl)
}

func minOf(ds []time.Duration) time.Duration {
	out := time.Duration(-1)
	for i, d := range ds {
		if i == 0 || d < out {
			out = d
		}
	}
	return out
}

func (m *mailbox) to(addr string) []service.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []service.Mail
	for _, mail := range m.sent {
		for _, rcpt := range mail.To {
			if rcpt == addr {
				out = append(out, mail)
			}
		}
	}
	return out
}

var tokenRe = regexp.MustCompile(`token=([0-9A-Za-z_-]+)`)

// lastToken pulls the token out of the newest mailed link to addr.
func (m *mailbox) lastToken(t *testing.T, addr string) string {
	t.Helper()
	mails := m.to(addr)
	require.NotEmpty(t, mails, "no mail for %s", addr)
	match := tokenRe.FindStringSubmatch(mails[len(mails)-1].HTML)
	require.Len(t, match, 2, "no token link in mail")
	return match[1]
}

type fakeGateway struct {
	mu      sync.Mutex
	n       int
	budgets []time.Duration
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, _ map[string]string) (service.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	g.budgets = append(g.budgets, timeLeft(ctx))
	return service.GatewayOrder{ID: fmt.Sprintf("order_%03d", g.n), Amount: amountPaise, Currency: currency, Receipt: receipt}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return service.VerifyPaymentSignature(gatewaySecret, orderID, paymentID, signature)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type recordingInvalidator struct{ routes []string }

func (r *recordingInvalidator) Invalidate(_ context.Context, route string) {
	r.routes = append(r.routes, route)
}

// app is the whole API mounted on an in-memory store.
type app struct {
	e        *echo.Echo
	repos    *repository.Repos
	mail     *mailbox
	gateway  *fakeGateway
	cache    *recordingInvalidator
	payments *service.PaymentService
}

func newApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()
	log := discardLogger()

	repos := repository.New(kv.NewMemoryStore())
	data, err := seed.Load("")
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, repos, data, 4, log))

	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 60, BcryptCost: 4}
	settings := service.NewSettingsService(repos.Settings, cache.NewMemory[model.Setting](time.Minute), log)
	gateway := &fakeGateway{}
	payments := service.NewPaymentService(repos, settings, gateway, log)
	mail := &mailbox{}
	notifier := service.NewNotifier(mail, "http://mess.test", log)
	images := storage.Inline{}
	inv := &recordingInvalidator{}
	staff := seed.Data{Users: data.Users}
	restore := middleware.NewStaffRestore(func(ctx context.Context) error {
		return seed.Apply(ctx, repos, staff, 4, log)
	}, log)

	e := echo.New()
	e.Validator = handler.NewValidator()
	router.RegisterRoutes(e, map[string]handler.Check{"store": func(context.Context) error { return nil }})
	router.RegisterAPI(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, repos, notifier, log),
		Menu:        handler.NewMenuHandler(repos.Menu, inv, log),
		Complaints:  handler.NewFeedbackHandler(repos.Complaints, images, log, "Complaint", "complaints"),
		Suggestions: handler.NewFeedbackHandler(repos.Suggestions, images, log, "Suggestion", "suggestions"),
		Students:    handler.NewStudentHandler(repos, images, notifier, log),
		Payments:    handler.NewPaymentHandler(payments, repos.Payments, log),
		Notes:       handler.NewNoteHandler(repos.Notes, log),
		Settings:    handler.NewSettingsHandler(settings, repos, inv, restore, log),
		Broadcast:   handler.NewBroadcastHandler(repos.Users, notifier, log),
	}, router.Middleware{
		RestoreStaff: restore.Middleware(),
		Authenticate: middleware.Authenticate(jwtSecret, repos.Users),
	})

	return &app{e: e, repos: repos, mail: mail, gateway: gateway, cache: inv, payments: payments}
}

// envelope is the response wrapper every endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (a *app) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return a.serve(t, req, token)
}

func (a *app) serve(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

func (a *app) login(t *testing.T, email, password string) string {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, env.Error)
	out := decode[struct {
		Token string `json:"token"`
	}](t, env)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (a *app) manager(t *testing.T) string { return a.login(t, managerEmail, staffPassword) }

func (a *app) register(t *testing.T, name, email string) {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": name, "email": email, "phone": "9876543210", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
}

// student registers, approves and logs in a student.
func (a *app) student(t *testing.T, name, email string) string {
	t.Helper()
	a.register(t, name, email)
	code, env := a.do(t, http.MethodPost, "/api/students/"+email+"/approve", a.manager(t), nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	return a.login(t, email, "secret1")
}
