// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/handler"
)

// Handlers bundles every resource handler mounted under /api.
type Handlers struct {
	Auth        *handler.AuthHandler
	Menu        *handler.MenuHandler
	Complaints  *handler.FeedbackHandler
	Suggestions *handler.FeedbackHandler
	Students    *handler.StudentHandler
	Payments    *handler.PaymentHandler
	Notes       *handler.NoteHandler
	Settings    *handler.SettingsHandler
	Broadcast   *handler.BroadcastHandler
}

// Middleware holds the cross-cutting middleware the routes need.
// RestoreStaff and Authenticate run for the whole /api group, in that
// order; RateLimit guards the credential endpoints; MenuCache serves
// repeated menu reads.
type Middleware struct {
	RestoreStaff echo.MiddlewareFunc
	Authenticate echo.MiddlewareFunc
	RateLimit    echo.MiddlewareFunc
	MenuCache    echo.MiddlewareFunc
}

// RegisterRoutes registers routes that sit outside /api.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check) {
	e.GET("/healthz", handler.Health(checks))
}

// RegisterAPI mounts every /api route. Role checks are attached per route
// so that one group can carry public, student and staff endpoints.
func RegisterAPI(e *echo.Echo, h Handlers, mw Middleware) {
	mw.RestoreStaff = orPass(mw.RestoreStaff)
	mw.Authenticate = orPass(mw.Authenticate)
	mw.RateLimit = orPass(mw.RateLimit)
	mw.MenuCache = orPass(mw.MenuCache)

	api := e.Group("/api", mw.RestoreStaff, mw.Authenticate)
	registerPublic(api, h, mw)
	registerShared(api, h, mw)
	registerStudent(api, h)
	registerStaff(api, h)
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}
