package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/service"
	"github.com/iliyamo/mess-connect/internal/storage"
)

// StudentHandler is the manager's view of student accounts.
type StudentHandler struct {
	Repos    *repository.Repos
	Images   storage.ImageStore
	Notifier *service.Notifier
	Log      *slog.Logger
}

func NewStudentHandler(repos *repository.Repos, images storage.ImageStore, n *service.Notifier, log *slog.Logger) *StudentHandler {
	if repos == nil || images == nil || n == nil || log == nil {
		panic("nil dependency passed to NewStudentHandler")
	}
	return &StudentHandler{Repos: repos, Images: images, Notifier: n, Log: log}
}

type notifyReq struct {
	Subject string `json:"subject" validate:"required,max=200" msg:"Subject is required"`
	Message string `json:"message" validate:"required,max=10000" msg:"Message is required"`
}

// List returns students, optionally filtered by ?status=.
func (h *StudentHandler) List(c echo.Context) error {
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.StatusPending, model.StatusApproved, model.StatusRejected:
	default:
		return fail(c, http.StatusBadRequest, "status must be one of: pending, approved, rejected")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	students, err := h.Repos.Users.ListStudents(ctx, status)
	if err != nil {
		return internalError(c, h.Log, "list students", err)
	}
	return ok(c, http.StatusOK, echo.Map{"students": viewUsers(students)})
}

func (h *StudentHandler) Approve(c echo.Context) error {
	return h.setStatus(c, model.StatusApproved)
}

func (h *StudentHandler) Reject(c echo.Context) error {
	return h.setStatus(c, model.StatusRejected)
}

func (h *StudentHandler) setStatus(c echo.Context, status string) error {
	ctx, cancel := outboundContext(c, 1)
	defer cancel()

	u, msg, err := h.student(c)
	if msg != "" {
		return fail(c, http.StatusNotFound, msg)
	}
	if err != nil {
		return internalError(c, h.Log, "load student", err)
	}
	u, err = h.Repos.Users.SetStatus(ctx, u.ID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Student not found")
		}
		return internalError(c, h.Log, "set student status", err)
	}
	if err := h.Notifier.StatusChanged(ctx, u); err != nil {
		h.Log.ErrorContext(ctx, "send status mail failed", "user", u.ID, "error", err)
	}
	return ok(c, http.StatusOK, viewUser(u))
}

// student loads the student named by :id. msg is set when there is no
// such student.
func (h *StudentHandler) student(c echo.Context) (*model.User, string, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Repos.Users.GetByEmail(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.Role != model.RoleStudent) {
		return nil, "Student not found", nil
	}
	return u, "", err
}

// Delete removes the student and everything attached to them, then
// releases stored images of their complaints and suggestions.
func (h *StudentHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	removed, err := h.Repos.DeleteStudent(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Student not found")
		}
		return internalError(c, h.Log, "delete student", err)
	}
	for _, f := range removed {
		if f.Image == "" {
			continue
		}
		if err := h.Images.Delete(ctx, f.Image); err != nil {
			h.Log.WarnContext(ctx, "release image failed", "feedback_id", f.ID, "error", err)
		}
	}
	return ok(c, http.StatusOK, echo.Map{"id": repository.NormalizeEmail(c.Param("id")), "removedFeedback": len(removed)})
}

// Notify mails a plain-text message to one student.
func (h *StudentHandler) Notify(c echo.Context) error {
	var req notifyReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	u, msg, err := h.student(c)
	if msg != "" {
		return fail(c, http.StatusNotFound, msg)
	}
	if err != nil {
		return internalError(c, h.Log, "load student", err)
	}
	ctx, cancel := outboundContext(c, 1)
	defer cancel()

	if err := h.Notifier.Direct(ctx, u, strings.TrimSpace(req.Subject), req.Message); err != nil {
		h.Log.ErrorContext(ctx, "send direct mail failed", "user", u.ID, "error", err)
		return fail(c, http.StatusBadRequest, "Could not send the message, please try again later")
	}
	return ok(c, http.StatusOK, echo.Map{"sent": true})
}
