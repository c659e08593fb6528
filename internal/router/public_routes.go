package router

import "github.com/labstack/echo/v4"

// registerPublic mounts the endpoints reachable without a token.
func registerPublic(api *echo.Group, h Handlers, mw Middleware) {
	api.POST("/register", h.Auth.Register, mw.RateLimit)
	api.POST("/login", h.Auth.Login, mw.RateLimit)
	api.POST("/forgot-password", h.Auth.ForgotPassword, mw.RateLimit)
	api.POST("/reset-password", h.Auth.ResetPassword, mw.RateLimit)
	api.GET("/verify-email", h.Auth.VerifyEmail)
	api.POST("/verify-email", h.Auth.VerifyEmail)

	api.POST("/payments/guest/create-order", h.Payments.GuestCreateOrder, mw.RateLimit)
	api.POST("/payments/guest/verify-payment", h.Payments.GuestVerify)
}
