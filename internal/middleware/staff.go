package middleware

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// StaffRestore writes the seeded staff accounts back on the first request
// after a full data reset. The reset itself leaves every kind empty.
type StaffRestore struct {
	restore func(ctx context.Context) error
	log     *slog.Logger

	mu      sync.Mutex
	pending atomic.Bool
}

func NewStaffRestore(restore func(context.Context) error, log *slog.Logger) *StaffRestore {
	return &StaffRestore{restore: restore, log: log}
}

// Cleared schedules a restore for the next request.
func (s *StaffRestore) Cleared() { s.pending.Store(true) }

// Pending reports whether a restore is still due.
func (s *StaffRestore) Pending() bool { return s.pending.Load() }

// Middleware runs a due restore before the request goes on. A failed
// restore is logged and tried again on the next request.
func (s *StaffRestore) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.pending.Load() {
				s.run(c.Request().Context())
			}
			return next(c)
		}
	}
}

func (s *StaffRestore) run(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.restore(ctx); err != nil {
		s.log.ErrorContext(ctx, "restore staff accounts failed", "error", err)
		return
	}
	s.pending.Store(false)
	s.log.InfoContext(ctx, "staff accounts restored")
}
