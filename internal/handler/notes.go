package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/repository"
)

// NoteHandler is the manager's to-do list.
type NoteHandler struct {
	Notes *repository.NoteRepo
	Log   *slog.Logger
}

func NewNoteHandler(notes *repository.NoteRepo, log *slog.Logger) *NoteHandler {
	if notes == nil || log == nil {
		panic("nil dependency passed to NewNoteHandler")
	}
	return &NoteHandler{Notes: notes, Log: log}
}

type createNoteReq struct {
	Text string `json:"text" validate:"required,max=2000" msg:"Note text is required"`
}

// updateNoteReq leaves fields that are absent from the body untouched.
type updateNoteReq struct {
	Text      *string `json:"text" validate:"omitempty,max=2000"`
	Completed *bool   `json:"completed"`
}

func (h *NoteHandler) List(c echo.Context) error {
	cursor, limit, msg := page(c)
	if msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	notes, next, err := h.Notes.List(ctx, cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return fail(c, http.StatusBadRequest, "invalid cursor")
		}
		return internalError(c, h.Log, "list notes", err)
	}
	return listed(c, "notes", notes, next)
}

func (h *NoteHandler) Create(c echo.Context) error {
	var req createNoteReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return fail(c, http.StatusBadRequest, "Note text is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Notes.Create(ctx, text)
	if err != nil {
		return internalError(c, h.Log, "create note", err)
	}
	return ok(c, http.StatusCreated, n)
}

func (h *NoteHandler) Update(c echo.Context) error {
	var req updateNoteReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	if req.Text == nil && req.Completed == nil {
		return fail(c, http.StatusBadRequest, "nothing to update")
	}
	if req.Text != nil {
		t := strings.TrimSpace(*req.Text)
		if t == "" {
			return fail(c, http.StatusBadRequest, "Note text is required")
		}
		req.Text = &t
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Notes.Update(ctx, c.Param("id"), repository.NotePatch{Text: req.Text, Completed: req.Completed})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Note not found")
		}
		return internalError(c, h.Log, "update note", err)
	}
	return ok(c, http.StatusOK, n)
}

func (h *NoteHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Notes.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Note not found")
		}
		return internalError(c, h.Log, "delete note", err)
	}
	return ok(c, http.StatusOK, echo.Map{"id": c.Param("id")})
}
