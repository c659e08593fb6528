package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
)

// Currency is the only currency orders are created in.
const Currency = "INR"

// MonthLayout is the format of a dues month.
const MonthLayout = "2006-01"

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrAmountMismatch   = errors.New("amount does not match order")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrFeeNotSet        = errors.New("monthly fee has not been set")
	ErrInvalidMonth     = errors.New("month must be in YYYY-MM format")
)

// Checkout is what a client needs to open the gateway checkout.
type Checkout struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`      // rupees
	AmountPaise int64  `json:"amountPaise"` // what the gateway charges
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId"`
	Month       string `json:"month,omitempty"`
}

// Verification is the payload posted after checkout. Amount is optional;
// when present it must equal the order amount.
type Verification struct {
	OrderID   string
	PaymentID string
	Signature string
	Amount    *int64
}

// Payer identifies a guest.
type Payer struct {
	Name  string
	Email string
	Phone string
}

// PaymentService drives order creation and verification for student dues
// and guest payments, and records cash payments.
type PaymentService struct {
	repos    *repository.Repos
	settings *SettingsService
	gateway  Gateway // nil when not configured
	now      func() time.Time
	log      *slog.Logger
}

func NewPaymentService(repos *repository.Repos, settings *SettingsService, gw Gateway, log *slog.Logger) *PaymentService {
	if repos == nil || settings == nil || log == nil {
		panic("nil dependency passed to NewPaymentService")
	}
	return &PaymentService{repos: repos, settings: settings, gateway: gw, now: time.Now, log: log}
}

// CurrentMonth returns now as YYYY-MM.
func (s *PaymentService) CurrentMonth() string {
	return s.now().UTC().Format(MonthLayout)
}

// ParseMonth validates a YYYY-MM month. Empty means the current month.
func (s *PaymentService) ParseMonth(month string) (string, error) {
	if month == "" {
		return s.CurrentMonth(), nil
	}
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return "", ErrInvalidMonth
	}
	return month, nil
}

// CreateDuesOrder opens a gateway order for the student's fee for month.
func (s *PaymentService) CreateDuesOrder(ctx context.Context, student *model.User, month string) (Checkout, error) {
	if s.gateway == nil {
		return Checkout{}, ErrGatewayNotConfigured
	}
	month, err := s.ParseMonth(month)
	if err != nil {
		return Checkout{}, err
	}
	paid, err := s.repos.Payments.HasPaid(ctx, student.ID, month)
	if err != nil {
		return Checkout{}, err
	}
	if paid {
		return Checkout{}, repository.ErrAlreadyPaid
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return Checkout{}, err
	}
	if st.MonthlyFee <= 0 {
		return Checkout{}, ErrFeeNotSet
	}
	receipt := fmt.Sprintf("dues_%s_%d", month, s.now().Unix())
	o, err := s.openOrder(ctx, &model.Order{
		Purpose:   model.PurposeDues,
		StudentID: student.ID,
		Month:     month,
		Amount:    st.MonthlyFee,
	}, receipt, map[string]string{"studentId": student.ID, "month": month})
	if err != nil {
		return Checkout{}, err
	}
	return s.checkout(o), nil
}

// CreateGuestOrder opens a gateway order for an ad-hoc guest payment.
func (s *PaymentService) CreateGuestOrder(ctx context.Context, payer Payer, amount int64) (Checkout, error) {
	if s.gateway == nil {
		return Checkout{}, ErrGatewayNotConfigured
	}
	if amount <= 0 {
		return Checkout{}, ErrInvalidAmount
	}
	receipt := fmt.Sprintf("guest_%d", s.now().UnixNano())
	o, err := s.openOrder(ctx, &model.Order{
		Purpose:    model.PurposeGuest,
		PayerName:  payer.Name,
		PayerEmail: repository.NormalizeEmail(payer.Email),
		PayerPhone: payer.Phone,
		Amount:     amount,
	}, receipt, map[string]string{"name": payer.Name, "email": payer.Email})
	if err != nil {
		return Checkout{}, err
	}
	return s.checkout(o), nil
}

func (s *PaymentService) openOrder(ctx context.Context, o *model.Order, receipt string, notes map[string]string) (*model.Order, error) {
	g, err := s.gateway.CreateOrder(ctx, o.Amount*100, Currency, receipt, notes)
	if err != nil {
		return nil, err
	}
	o.ID = g.ID
	o.Currency = Currency
	o.CreatedAt = s.now().UTC()
	if err := s.repos.Payments.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PaymentService) checkout(o *model.Order) Checkout {
	return Checkout{
		OrderID:     o.ID,
		Amount:      o.Amount,
		AmountPaise: o.Amount * 100,
		Currency:    o.Currency,
		KeyID:       s.gateway.KeyID(),
		Month:       o.Month,
	}
}

// VerifyDues credits a student's dues after a successful checkout.
func (s *PaymentService) VerifyDues(ctx context.Context, student *model.User, v Verification) (*model.Payment, error) {
	o, err := s.verify(ctx, v, func(o *model.Order) bool {
		return o.Purpose == model.PurposeDues && o.StudentID == student.ID
	})
	if err != nil {
		return nil, err
	}
	p := &model.Payment{
		StudentID:   student.ID,
		StudentName: student.Name,
		Amount:      o.Amount,
		Month:       o.Month,
		Method:      model.MethodRazorpay,
		OrderID:     o.ID,
		PaymentID:   v.PaymentID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repos.Payments.CreatePayment(ctx, p); err != nil {
		if errors.Is(err, repository.ErrAlreadyPaid) {
			s.log.WarnContext(ctx, "gateway payment for a month already paid",
				"student", student.ID, "month", o.Month, "payment_id", v.PaymentID)
			return nil, err
		}
		s.releaseReceipt(ctx, v.PaymentID)
		return nil, err
	}
	s.closeOrder(ctx, o.ID)
	return p, nil
}

// VerifyGuest credits a guest payment after a successful checkout. The
// payer identity comes from the order, not the request.
func (s *PaymentService) VerifyGuest(ctx context.Context, v Verification) (*model.GuestPayment, error) {
	o, err := s.verify(ctx, v, func(o *model.Order) bool { return o.Purpose == model.PurposeGuest })
	if err != nil {
		return nil, err
	}
	g := &model.GuestPayment{
		ID:        v.PaymentID,
		Name:      o.PayerName,
		Email:     o.PayerEmail,
		Phone:     o.PayerPhone,
		Amount:    o.Amount,
		Method:    model.MethodRazorpay,
		OrderID:   o.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repos.Payments.CreateGuestPayment(ctx, g); err != nil {
		if !errors.Is(err, repository.ErrPaymentProcessed) {
			s.releaseReceipt(ctx, v.PaymentID)
		}
		return nil, err
	}
	s.closeOrder(ctx, o.ID)
	return g, nil
}

// verify checks the signature, loads the order and claims the payment id.
// owns decides whether the order may be settled by this caller.
func (s *PaymentService) verify(ctx context.Context, v Verification, owns func(*model.Order) bool) (*model.Order, error) {
	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	if !s.gateway.VerifySignature(v.OrderID, v.PaymentID, v.Signature) {
		return nil, ErrInvalidSignature
	}
	o, err := s.repos.Payments.GetOrder(ctx, v.OrderID)
	if err != nil {
		return nil, err
	}
	if !owns(o) {
		return nil, repository.ErrForbidden
	}
	if v.Amount != nil && *v.Amount != o.Amount {
		return nil, ErrAmountMismatch
	}
	if err := s.repos.Payments.RecordReceipt(ctx, v.PaymentID, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// releaseReceipt undoes the claim of a payment id whose credit failed, so
// the client can retry the verification. It runs even if ctx is done.
func (s *PaymentService) releaseReceipt(ctx context.Context, paymentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repos.Payments.ReleaseReceipt(ctx, paymentID); err != nil {
		s.log.ErrorContext(ctx, "release payment receipt failed", "payment_id", paymentID, "error", err)
	}
}

func (s *PaymentService) closeOrder(ctx context.Context, id string) {
	if err := s.repos.Payments.MarkOrderPaid(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "mark order paid failed", "order_id", id, "error", err)
	}
}

// MarkAsPaid records a cash payment of the current fee.
func (s *PaymentService) MarkAsPaid(ctx context.Context, studentID, month string) (*model.Payment, error) {
	month, err := s.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	u, err := s.repos.Users.GetByEmail(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleStudent {
		return nil, repository.ErrNotFound
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if st.MonthlyFee <= 0 {
		return nil, ErrFeeNotSet
	}
	p := &model.Payment{
		StudentID:   u.ID,
		StudentName: u.Name,
		Amount:      st.MonthlyFee,
		Month:       month,
		Method:      model.MethodCash,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repos.Payments.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// StudentDues is one approved student's standing for a month.
type StudentDues struct {
	StudentID   string         `json:"studentId"`
	StudentName string         `json:"studentName"`
	Phone       string         `json:"phone"`
	Paid        bool           `json:"paid"`
	Payment     *model.Payment `json:"payment,omitempty"`
}

// Financials summarises one month.
type Financials struct {
	Month         string                `json:"month"`
	MonthlyFee    int64                 `json:"monthlyFee"`
	Students      []StudentDues         `json:"students"`
	PaidCount     int                   `json:"paidCount"`
	UnpaidCount   int                   `json:"unpaidCount"`
	Collected     int64                 `json:"collected"`
	Outstanding   int64                 `json:"outstanding"`
	GuestPayments []*model.GuestPayment `json:"guestPayments"`
	GuestTotal    int64                 `json:"guestTotal"`
}

// Financials builds the month's dues sheet over all approved students.
// Guest payments are included when created in that month.
func (s *PaymentService) Financials(ctx context.Context, month string) (Financials, error) {
	month, err := s.ParseMonth(month)
	if err != nil {
		return Financials{}, err
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return Financials{}, err
	}
	students, err := s.repos.Users.ListStudents(ctx, model.StatusApproved)
	if err != nil {
		return Financials{}, err
	}
	payments, err := s.repos.Payments.AllPayments(ctx)
	if err != nil {
		return Financials{}, err
	}
	byStudent := make(map[string]*model.Payment)
	for _, p := range payments {
		if p.Month == month {
			byStudent[p.StudentID] = p
		}
	}

	out := Financials{Month: month, MonthlyFee: st.MonthlyFee, Students: make([]StudentDues, 0, len(students))}
	for _, u := range students {
		d := StudentDues{StudentID: u.ID, StudentName: u.Name, Phone: u.Phone}
		if p, ok := byStudent[u.ID]; ok {
			d.Paid, d.Payment = true, p
			out.PaidCount++
			out.Collected += p.Amount
		} else {
			out.UnpaidCount++
			out.Outstanding += st.MonthlyFee
		}
		out.Students = append(out.Students, d)
	}

	guests, err := s.repos.Payments.AllGuestPayments(ctx)
	if err != nil {
		return Financials{}, err
	}
	out.GuestPayments = make([]*model.GuestPayment, 0)
	for _, g := range guests {
		if g.CreatedAt.UTC().Format(MonthLayout) == month {
			out.GuestPayments = append(out.GuestPayments, g)
			out.GuestTotal += g.Amount
		}
	}
	return out, nil
}
