package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/middleware"
	"github.com/iliyamo/mess-connect/internal/model"
)

// registerShared mounts what every signed-in role may read.
func registerShared(api *echo.Group, h Handlers, mw Middleware) {
	signedIn := middleware.RequireAuth()
	api.GET("/me", h.Auth.Me, signedIn)
	api.GET("/menu", h.Menu.Get, signedIn, mw.MenuCache)
	api.GET("/settings", h.Settings.Get, signedIn)
}

func registerStudent(api *echo.Group, h Handlers) {
	student := middleware.RequireRole(model.RoleStudent)

	api.POST("/complaints", h.Complaints.Create, student)
	api.GET("/complaints/mine", h.Complaints.Mine, student)
	api.POST("/suggestions", h.Suggestions.Create, student)
	api.GET("/suggestions/mine", h.Suggestions.Mine, student)

	api.GET("/payments/mine", h.Payments.Mine, student)
	api.POST("/payments/create-order", h.Payments.CreateOrder, student)
	api.POST("/payments/verify-payment", h.Payments.Verify, student)
}

// registerStaff mounts the manager endpoints and the ones managers share
// with admins.
func registerStaff(api *echo.Group, h Handlers) {
	manager := middleware.RequireRole(model.RoleManager)
	staff := middleware.RequireRole(model.RoleManager, model.RoleAdmin)

	// ---- Menu ----
	api.PUT("/menu", h.Menu.Update, manager)

	// ---- Feedback ----
	api.GET("/complaints/all", h.Complaints.All, staff)
	api.POST("/complaints/:id/reply", h.Complaints.Reply, manager)
	api.GET("/suggestions/all", h.Suggestions.All, staff)
	api.POST("/suggestions/:id/reply", h.Suggestions.Reply, manager)

	// ---- Students ----
	api.GET("/students", h.Students.List, staff)
	api.POST("/students/:id/approve", h.Students.Approve, manager)
	api.POST("/students/:id/reject", h.Students.Reject, manager)
	api.DELETE("/students/:id", h.Students.Delete, manager)
	api.POST("/students/:id/notify", h.Students.Notify, manager)

	// ---- Payments ----
	api.POST("/payments/mark-as-paid", h.Payments.MarkAsPaid, manager)
	api.GET("/financials", h.Payments.Financials, staff)

	// ---- Notes ----
	api.GET("/notes", h.Notes.List, manager)
	api.POST("/notes", h.Notes.Create, manager)
	api.PATCH("/notes/:id", h.Notes.Update, manager)
	api.DELETE("/notes/:id", h.Notes.Delete, manager)

	// ---- Settings ----
	api.GET("/settings/fee", h.Settings.GetFee, manager)
	api.PUT("/settings/fee", h.Settings.UpdateFee, manager)
	api.PUT("/settings/rules", h.Settings.UpdateRules, manager)
	api.POST("/settings/clear-all-data", h.Settings.ClearAllData, staff)

	api.POST("/broadcast", h.Broadcast.Send, manager)
}
