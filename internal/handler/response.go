package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/repository"
)

// storeTimeout bounds every store call made while serving a request.
const storeTimeout = 5 * time.Second

// outboundTimeout is the budget for one gateway or mail API call. The HTTP
// clients give up after 10s, so this leaves room for a full attempt.
const outboundTimeout = 15 * time.Second

// maxOutboundBudget caps requests that fan out to many outbound calls.
const maxOutboundBudget = 10 * time.Minute

// ok writes the success envelope. data must not be nil: clients treat a
// missing data field as a failed request.
func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}

// internalError logs err and answers 500 without leaking details.
func internalError(c echo.Context, log *slog.Logger, op string, err error) error {
	log.ErrorContext(c.Request().Context(), op+" failed", "error", err, "path", c.Path())
	return fail(c, http.StatusInternalServerError, "internal error")
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), storeTimeout)
}

// outboundContext is requestContext for handlers that also make calls
// to the payment gateway or the mailer.
func outboundContext(c echo.Context, calls int) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), outboundBudget(calls))
}

func outboundBudget(calls int) time.Duration {
	d := storeTimeout + time.Duration(max(calls, 1))*outboundTimeout
	return min(d, maxOutboundBudget)
}

// bind decodes the body into req and validates it. The returned message
// is empty on success.
func bind(c echo.Context, req any) string {
	if err := c.Bind(req); err != nil {
		return "invalid request body"
	}
	if err := c.Validate(req); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return ve.Error()
		}
		return "invalid request body"
	}
	return ""
}

// page reads ?cursor= and ?limit=. A missing limit means the default page
// size; out of range values are clamped by the index.
func page(c echo.Context) (cursor string, limit int, msg string) {
	cursor = strings.TrimSpace(c.QueryParam("cursor"))
	raw := strings.TrimSpace(c.QueryParam("limit"))
	if raw == "" {
		return cursor, repository.DefaultPageSize, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, "limit must be a number"
	}
	return cursor, repository.ClampLimit(n), ""
}

// listed writes one page of items under key together with the next
// cursor.
func listed(c echo.Context, key string, items any, next string) error {
	return ok(c, http.StatusOK, echo.Map{key: items, "nextCursor": next})
}
