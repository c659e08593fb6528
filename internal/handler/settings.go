package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/service"
)

// StaffScheduler brings the staff accounts back some time after a reset.
type StaffScheduler interface {
	Cleared()
}

// SettingsHandler serves the fee, the mess rules and the data reset.
type SettingsHandler struct {
	Settings *service.SettingsService
	Repos    *repository.Repos
	Cache    RouteInvalidator
	Staff    StaffScheduler
	Log      *slog.Logger
}

func NewSettingsHandler(s *service.SettingsService, repos *repository.Repos, cache RouteInvalidator, staff StaffScheduler, log *slog.Logger) *SettingsHandler {
	if s == nil || repos == nil || cache == nil || staff == nil || log == nil {
		panic("nil dependency passed to NewSettingsHandler")
	}
	return &SettingsHandler{Settings: s, Repos: repos, Cache: cache, Staff: staff, Log: log}
}

type feeReq struct {
	MonthlyFee int64 `json:"monthlyFee" validate:"gt=0" msg:"Monthly fee must be a positive number"`
}

type rulesReq struct {
	MessRules string `json:"messRules" validate:"max=20000" msg:"Mess rules must be at most 20000 characters"`
}

func (h *SettingsHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Settings.Get(ctx)
	if err != nil {
		return internalError(c, h.Log, "get settings", err)
	}
	return ok(c, http.StatusOK, s)
}

func (h *SettingsHandler) GetFee(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Settings.Get(ctx)
	if err != nil {
		return internalError(c, h.Log, "get fee", err)
	}
	return ok(c, http.StatusOK, echo.Map{"monthlyFee": s.MonthlyFee})
}

func (h *SettingsHandler) UpdateFee(c echo.Context) error {
	var req feeReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Settings.SetMonthlyFee(ctx, req.MonthlyFee)
	if err != nil {
		return internalError(c, h.Log, "update fee", err)
	}
	return ok(c, http.StatusOK, s)
}

func (h *SettingsHandler) UpdateRules(c echo.Context) error {
	var req rulesReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Settings.SetMessRules(ctx, req.MessRules)
	if err != nil {
		return internalError(c, h.Log, "update rules", err)
	}
	return ok(c, http.StatusOK, s)
}

// ClearAllData wipes every entity kind. The staff accounts come back on
// the next request. Kinds cleared before a failure stay cleared.
func (h *SettingsHandler) ClearAllData(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 4*storeTimeout)
	defer cancel()

	cleared, err := h.Repos.ClearAll(ctx)
	h.Settings.Invalidate(ctx)
	h.Cache.Invalidate(ctx, MenuRoute)
	h.Staff.Cleared()
	if err != nil {
		return internalError(c, h.Log, "clear all data", err)
	}
	h.Log.WarnContext(ctx, "all data cleared", "by", c.Get("user_id"), "cleared", cleared)
	return ok(c, http.StatusOK, echo.Map{"cleared": cleared})
}
