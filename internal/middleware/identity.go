package middleware

import "github.com/labstack/echo/v4"

// userID identifies the caller for rate limit keys. It returns "anon" when
// nobody is authenticated.
func userID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok && s != "" {
		return s
	}
	return "anon"
}
