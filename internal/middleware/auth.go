package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/utils"
)

// Context keys set by Authenticate.
const (
	userKey   = "user"
	userIDKey = "user_id"
)

// UserLoader fetches the account behind a token subject.
type UserLoader interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Authenticate attaches the caller's user record to the context when the
// request carries a valid bearer token. It never rejects: requests without
// a usable token continue unauthenticated and RequireRole decides.
//
// The user is reloaded on every request, so role changes and deletions
// take effect before the token expires.
func Authenticate(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByEmail(ctx, claims.UserID)
			if err != nil {
				return next(c)
			}
			c.Set(userKey, u)
			c.Set(userIDKey, u.ID)
			return next(c)
		}
	}
}

func bearer(h string) (string, bool) {
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}
