package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/config"
	"github.com/iliyamo/mess-connect/internal/middleware"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/service"
	"github.com/iliyamo/mess-connect/internal/utils"
)

// AuthHandler serves registration, login and the mailed-token flows.
type AuthHandler struct {
	Cfg    config.Config
	Repos  *repository.Repos
	Notify *service.Notifier
	Log    *slog.Logger
	now    func() time.Time
}

func NewAuthHandler(cfg config.Config, repos *repository.Repos, n *service.Notifier, log *slog.Logger) *AuthHandler {
	if repos == nil || n == nil || log == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Repos: repos, Notify: n, Log: log, now: time.Now}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"min=2" msg:"Name must be at least 2 characters"`
	Email    string `json:"email" validate:"email" msg:"Invalid email address"`
	Phone    string `json:"phone" validate:"phone" msg:"Phone number must be at least 10 digits"`
	Password string `json:"password" validate:"min=6,bcryptlen" msg:"Password must be at least 6 characters"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotReq struct {
	Email string `json:"email" validate:"required,email" msg:"Invalid email address"`
}

type resetReq struct {
	Token    string `json:"token" validate:"required" msg:"Reset token is required"`
	Password string `json:"password" validate:"min=6,bcryptlen" msg:"Password must be at least 6 characters"`
}

type tokenReq struct {
	Token string `json:"token" validate:"required" msg:"Verification token is required"`
}

type loginResp struct {
	userView
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register creates a pending, unverified student and mails a verification
// link. A mail failure does not undo the registration.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := outboundContext(c, 1)
	defer cancel()

	u := &model.User{
		ID:     req.Email,
		Name:   strings.TrimSpace(req.Name),
		Phone:  strings.TrimSpace(req.Phone),
		Role:   model.RoleStudent,
		Status: model.StatusPending,
	}
	if err := h.Repos.Users.Create(ctx, u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusBadRequest, "User with this email already exists.")
		}
		return internalError(c, h.Log, "register", err)
	}

	raw, _, err := h.Repos.Verifications.Issue(ctx, u.ID, h.now())
	if err != nil {
		h.Log.ErrorContext(ctx, "issue verification token failed", "user", u.ID, "error", err)
	} else if err := h.Notify.Verification(ctx, u, raw); err != nil {
		h.Log.ErrorContext(ctx, "send verification mail failed", "user", u.ID, "error", err)
	}
	return ok(c, http.StatusCreated, viewUser(u))
}

// Login checks the password and returns the user with an access token.
// Students that are not approved yet get only their status back.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, "Invalid email or password format.")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Repos.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found.")
		}
		return internalError(c, h.Log, "login", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusBadRequest, "Invalid credentials.")
	}
	if u.Role == model.RoleStudent && u.Status != model.StatusApproved {
		return ok(c, http.StatusOK, echo.Map{"status": u.Status})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, h.Log, "issue access token", err)
	}
	return ok(c, http.StatusOK, loginResp{userView: viewUser(u), Token: access.Token, ExpiresAt: access.Exp})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return ok(c, http.StatusOK, viewUser(u))
}

// ForgotPassword always answers the same way so it cannot be used to find out
// which addresses are registered.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := outboundContext(c, 1)
	defer cancel()

	done := echo.Map{"message": "If an account exists for this email, a reset link has been sent."}
	u, err := h.Repos.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return ok(c, http.StatusOK, done)
	}
	if err != nil {
		return internalError(c, h.Log, "forgot password", err)
	}
	raw, _, err := h.Repos.Resets.Issue(ctx, u.ID, h.now())
	if err != nil {
		return internalError(c, h.Log, "issue reset token", err)
	}
	if err := h.Notify.PasswordReset(ctx, u, raw); err != nil {
		h.Log.ErrorContext(ctx, "send reset mail failed", "user", u.ID, "error", err)
	}
	return ok(c, http.StatusOK, done)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Repos.Resets.Redeem(ctx, strings.TrimSpace(req.Token), h.now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return fail(c, http.StatusBadRequest, "Reset link is invalid or has expired.")
		}
		return internalError(c, h.Log, "redeem reset token", err)
	}
	if err := h.Repos.Users.SetPassword(ctx, t.UserID, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "Reset link is invalid or has expired.")
		}
		return internalError(c, h.Log, "reset password", err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Password has been reset. You can now log in."})
}

// VerifyEmail accepts the token as ?token= (the mailed link) or as a JSON
// body.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("token"))
	if c.Request().Method == http.MethodPost && raw == "" {
		var req tokenReq
		if msg := bind(c, &req); msg != "" {
			return fail(c, http.StatusBadRequest, msg)
		}
		raw = strings.TrimSpace(req.Token)
	}
	if raw == "" {
		return fail(c, http.StatusBadRequest, "Verification token is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Repos.Verifications.Redeem(ctx, raw, h.now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return fail(c, http.StatusBadRequest, "Verification link is invalid or has expired.")
		}
		return internalError(c, h.Log, "redeem verification token", err)
	}
	u, err := h.Repos.Users.MarkVerified(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "Verification link is invalid or has expired.")
		}
		return internalError(c, h.Log, "verify email", err)
	}
	return ok(c, http.StatusOK, viewUser(u))
}
