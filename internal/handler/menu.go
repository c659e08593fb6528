package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
)

// MenuRoute is the path whose cached responses a menu update drops.
const MenuRoute = "/api/menu"

// RouteInvalidator drops cached responses of a route.
type RouteInvalidator interface {
	Invalidate(ctx context.Context, route string)
}

type MenuHandler struct {
	Menu  *repository.MenuRepo
	Cache RouteInvalidator
	Log   *slog.Logger
}

func NewMenuHandler(menu *repository.MenuRepo, cache RouteInvalidator, log *slog.Logger) *MenuHandler {
	if menu == nil || cache == nil || log == nil {
		panic("nil dependency passed to NewMenuHandler")
	}
	return &MenuHandler{Menu: menu, Cache: cache, Log: log}
}

type dayMenuReq struct {
	Day       string `json:"day" validate:"required"`
	Breakfast string `json:"breakfast" validate:"max=500"`
	Lunch     string `json:"lunch" validate:"max=500"`
	Dinner    string `json:"dinner" validate:"max=500"`
}

type menuReq struct {
	Days []dayMenuReq `json:"days" validate:"len=7,dive" msg:"Menu must list all 7 days of the week"`
}

// Get returns the weekly menu, or seven empty days before one is saved.
func (h *MenuHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Menu.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		empty := make([]model.DayMenu, len(model.Weekdays))
		for i, d := range model.Weekdays {
			empty[i] = model.DayMenu{Day: d}
		}
		return ok(c, http.StatusOK, model.Menu{ID: model.SingletonID, Days: empty})
	}
	if err != nil {
		return internalError(c, h.Log, "get menu", err)
	}
	return ok(c, http.StatusOK, m)
}

// Update replaces the whole week. Every weekday must appear exactly once;
// days are stored in Monday..Sunday order whatever order they came in.
func (h *MenuHandler) Update(c echo.Context) error {
	var req menuReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	byDay := make(map[string]model.DayMenu, len(req.Days))
	for _, d := range req.Days {
		day := canonicalDay(d.Day)
		if day == "" {
			return fail(c, http.StatusBadRequest, "Unknown day: "+d.Day)
		}
		if _, dup := byDay[day]; dup {
			return fail(c, http.StatusBadRequest, "Duplicate day: "+day)
		}
		byDay[day] = model.DayMenu{
			Day:       day,
			Breakfast: strings.TrimSpace(d.Breakfast),
			Lunch:     strings.TrimSpace(d.Lunch),
			Dinner:    strings.TrimSpace(d.Dinner),
		}
	}
	days := make([]model.DayMenu, 0, len(model.Weekdays))
	for _, d := range model.Weekdays {
		days = append(days, byDay[d])
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Menu.Save(ctx, days)
	if err != nil {
		return internalError(c, h.Log, "save menu", err)
	}
	h.Cache.Invalidate(ctx, MenuRoute)
	return ok(c, http.StatusOK, m)
}

func canonicalDay(s string) string {
	s = strings.TrimSpace(s)
	for _, d := range model.Weekdays {
		if strings.EqualFold(d, s) {
			return d
		}
	}
	return ""
}
