package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/service"
)

// BroadcastHandler mails one markdown message to every approved student.
type BroadcastHandler struct {
	Users  *repository.UserRepo
	Notify *service.Notifier
	Log    *slog.Logger
}

func NewBroadcastHandler(users *repository.UserRepo, n *service.Notifier, log *slog.Logger) *BroadcastHandler {
	if users == nil || n == nil || log == nil {
		panic("nil dependency passed to NewBroadcastHandler")
	}
	return &BroadcastHandler{Users: users, Notify: n, Log: log}
}

type broadcastReq struct {
	Subject string `json:"subject" validate:"required,max=200" msg:"Subject is required"`
	Message string `json:"message" validate:"required,max=20000" msg:"Message is required"`
}

func (h *BroadcastHandler) Send(c echo.Context) error {
	var req broadcastReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	to, err := h.Users.ListStudents(ctx, model.StatusApproved)
	if err != nil {
		return internalError(c, h.Log, "list broadcast recipients", err)
	}
	// Mails go out one by one, so the budget grows with the recipient list.
	sendCtx, cancelSend := outboundContext(c, len(to))
	defer cancelSend()
	sent, err := h.Notify.Broadcast(sendCtx, to, strings.TrimSpace(req.Subject), req.Message)
	if err != nil {
		return internalError(c, h.Log, "render broadcast", err)
	}
	return ok(c, http.StatusOK, echo.Map{"recipients": len(to), "sent": sent})
}
