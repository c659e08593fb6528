package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mess-connect/internal/cache"
	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type recordingMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

// fakeGateway signs with a fixed secret and hands out sequential order ids.
type fakeGateway struct {
	secret string
	n      int
	last   struct {
		amount  int64
		receipt string
	}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amountPaise int64, currency, receipt string, _ map[string]string) (GatewayOrder, error) {
	g.n++
	g.last.amount, g.last.receipt = amountPaise, receipt
	return GatewayOrder{ID: "order_" + string(rune('A'+g.n-1)), Amount: amountPaise, Currency: currency}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(g.secret, orderID, paymentID, signature)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type fixture struct {
	repos    *repository.Repos
	settings *SettingsService
	payments *PaymentService
	gateway  *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, kv.NewMemoryStore())
}

func newFixtureOn(t *testing.T, store kv.Store) *fixture {
	t.Helper()
	repos := repository.New(store)
	settings := NewSettingsService(repos.Settings, cache.NewMemory[model.Setting](time.Minute), discardLogger())
	gw := &fakeGateway{secret: "gw-secret"}
	ps := NewPaymentService(repos, settings, gw, discardLogger())
	ps.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return &fixture{repos: repos, settings: settings, payments: ps, gateway: gw}
}

func (f *fixture) student(t *testing.T, email string, status string) *model.User {
	t.Helper()
	u := &model.User{ID: email, Name: "Ravi", Phone: "9876543210", Role: model.RoleStudent, Status: status}
	require.NoError(t, f.repos.Users.Create(context.Background(), u, "secret1", 4))
	return u
}

// flakyStore fails the first Create of a key starting with prefix.
type flakyStore struct {
	kv.Store
	prefix string
	failed bool
}

var errStoreDown = errors.New("storage unavailable")

func (s *flakyStore) Create(ctx context.Context, key string, value []byte) error {
	if !s.failed && strings.HasPrefix(key, s.prefix) {
		s.failed = true
		return errStoreDown
	}
	return s.Store.Create(ctx, key, value)
}
