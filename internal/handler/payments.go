package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mess-connect/internal/middleware"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
	"github.com/iliyamo/mess-connect/internal/service"
)

// PaymentHandler covers student dues, guest payments, cash entries and the
// monthly financial sheet.
type PaymentHandler struct {
	Payments *service.PaymentService
	Repo     *repository.PaymentRepo
	Log      *slog.Logger
}

func NewPaymentHandler(ps *service.PaymentService, repo *repository.PaymentRepo, log *slog.Logger) *PaymentHandler {
	if ps == nil || repo == nil || log == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: ps, Repo: repo, Log: log}
}

// ----- DTOs -----

type duesOrderReq struct {
	Month string `json:"month"`
}

type guestOrderReq struct {
	Name   string `json:"name" validate:"min=2" msg:"Name must be at least 2 characters"`
	Email  string `json:"email" validate:"email" msg:"Invalid email address"`
	Phone  string `json:"phone" validate:"phone" msg:"Phone number must be at least 10 digits"`
	Amount int64  `json:"amount" validate:"gt=0" msg:"Amount must be greater than 0"`
}

type verifyReq struct {
	OrderID   string `json:"orderId" validate:"required" msg:"orderId is required"`
	PaymentID string `json:"paymentId" validate:"required" msg:"paymentId is required"`
	Signature string `json:"signature" validate:"required" msg:"signature is required"`
	Amount    *int64 `json:"amount"`
}

func (r verifyReq) verification() service.Verification {
	return service.Verification{OrderID: r.OrderID, PaymentID: r.PaymentID, Signature: r.Signature, Amount: r.Amount}
}

type markPaidReq struct {
	StudentID string `json:"studentId" validate:"required" msg:"studentId is required"`
	Month     string `json:"month"`
}

// paymentError maps service and repository failures onto responses.
// notFound is the message for a missing record in this context.
func (h *PaymentHandler) paymentError(c echo.Context, op, notFound string, err error) error {
	switch {
	case errors.Is(err, service.ErrGatewayNotConfigured):
		return fail(c, http.StatusBadRequest, "Payment gateway is not configured")
	case errors.Is(err, service.ErrGatewayFailed):
		h.Log.ErrorContext(c.Request().Context(), op+" failed", "error", err)
		return fail(c, http.StatusBadRequest, "Could not reach the payment gateway, please try again later")
	case errors.Is(err, service.ErrInvalidSignature):
		return fail(c, http.StatusBadRequest, "Invalid payment signature")
	case errors.Is(err, service.ErrAmountMismatch):
		return fail(c, http.StatusBadRequest, "Amount does not match the order")
	case errors.Is(err, service.ErrInvalidAmount):
		return fail(c, http.StatusBadRequest, "Amount must be greater than 0")
	case errors.Is(err, service.ErrFeeNotSet):
		return fail(c, http.StatusBadRequest, "Monthly fee has not been set")
	case errors.Is(err, service.ErrInvalidMonth):
		return fail(c, http.StatusBadRequest, "Month must be in YYYY-MM format")
	case errors.Is(err, repository.ErrAlreadyPaid):
		return fail(c, http.StatusBadRequest, "Payment for this month has already been recorded")
	case errors.Is(err, repository.ErrPaymentProcessed):
		return fail(c, http.StatusBadRequest, "payment already processed")
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusNotFound, notFound)
	}
	return internalError(c, h.Log, op, err)
}

// CreateOrder opens a gateway order for the calling student's dues.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req duesOrderReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := outboundContext(c, 1)
	defer cancel()

	out, err := h.Payments.CreateDuesOrder(ctx, u, req.Month)
	if err != nil {
		return h.paymentError(c, "create dues order", "Order not found", err)
	}
	return ok(c, http.StatusOK, out)
}

// Verify credits the student's dues after checkout.
func (h *PaymentHandler) Verify(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req verifyReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Payments.VerifyDues(ctx, u, req.verification())
	if err != nil {
		return h.paymentError(c, "verify dues payment", "Order not found", err)
	}
	return ok(c, http.StatusOK, p)
}

// Mine lists the calling student's payments, newest month first.
func (h *PaymentHandler) Mine(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ps, err := h.Repo.PaymentsByStudent(ctx, u.ID)
	if err != nil {
		return internalError(c, h.Log, "list own payments", err)
	}
	if ps == nil {
		ps = []*model.Payment{}
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Month > ps[j].Month })
	return ok(c, http.StatusOK, echo.Map{
		"payments":     ps,
		"currentMonth": h.Payments.CurrentMonth(),
	})
}

// MarkAsPaid records a cash payment for a student.
func (h *PaymentHandler) MarkAsPaid(c echo.Context) error {
	var req markPaidReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Payments.MarkAsPaid(ctx, req.StudentID, req.Month)
	if err != nil {
		return h.paymentError(c, "mark as paid", "Student not found", err)
	}
	return ok(c, http.StatusCreated, p)
}

// GuestCreateOrder opens a gateway order for someone without an account.
func (h *PaymentHandler) GuestCreateOrder(c echo.Context) error {
	var req guestOrderReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := outboundContext(c, 1)
	defer cancel()

	out, err := h.Payments.CreateGuestOrder(ctx, service.Payer{Name: req.Name, Email: req.Email, Phone: req.Phone}, req.Amount)
	if err != nil {
		return h.paymentError(c, "create guest order", "Order not found", err)
	}
	return ok(c, http.StatusOK, out)
}

func (h *PaymentHandler) GuestVerify(c echo.Context) error {
	var req verifyReq
	if msg := bind(c, &req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.Payments.VerifyGuest(ctx, req.verification())
	if err != nil {
		return h.paymentError(c, "verify guest payment", "Order not found", err)
	}
	return ok(c, http.StatusOK, g)
}

// Financials returns the dues sheet for ?month= (default: current month).
func (h *PaymentHandler) Financials(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f, err := h.Payments.Financials(ctx, c.QueryParam("month"))
	if err != nil {
		return h.paymentError(c, "financials", "Not found", err)
	}
	return ok(c, http.StatusOK, f)
}
