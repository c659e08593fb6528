package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
)

// PaymentRepo groups the money-related kinds: student payments, guest
// payments, gateway orders and processed-payment receipts.
type PaymentRepo struct {
	payments *Entity[model.Payment]
	guests   *Entity[model.GuestPayment]
	orders   *Entity[model.Order]
	receipts *Entity[model.PaymentReceipt]
}

func NewPaymentRepo(store kv.Store) *PaymentRepo {
	return &PaymentRepo{
		payments: NewEntity(store, "payment", func(p *model.Payment) string { return p.ID }),
		guests:   NewEntity(store, "guest_payment", func(p *model.GuestPayment) string { return p.ID }),
		orders:   NewEntity(store, "order", func(o *model.Order) string { return o.ID }),
		receipts: NewEntity(store, "payment_receipt", func(r *model.PaymentReceipt) string { return r.ID }),
	}
}

// CreatePayment records a student's dues for p.Month. A second payment for
// the same student and month fails with ErrAlreadyPaid.
func (r *PaymentRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	p.ID = model.PaymentKey(p.StudentID, p.Month)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = model.PaymentPaid
	}
	err := r.payments.Create(ctx, p)
	if errors.Is(err, ErrExists) {
		return ErrAlreadyPaid
	}
	return err
}

func (r *PaymentRepo) HasPaid(ctx context.Context, studentID, month string) (bool, error) {
	return r.payments.Exists(ctx, model.PaymentKey(studentID, month))
}

func (r *PaymentRepo) ListPayments(ctx context.Context, cursor string, limit int) ([]*model.Payment, string, error) {
	return r.payments.List(ctx, cursor, limit)
}

func (r *PaymentRepo) AllPayments(ctx context.Context) ([]*model.Payment, error) {
	return r.payments.All(ctx)
}

func (r *PaymentRepo) PaymentsByStudent(ctx context.Context, studentID string) ([]*model.Payment, error) {
	return r.payments.Find(ctx, func(p *model.Payment) bool { return p.StudentID == studentID })
}

// CreateGuestPayment stores g under its gateway payment id.
func (r *PaymentRepo) CreateGuestPayment(ctx context.Context, g *model.GuestPayment) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if g.Status == "" {
		g.Status = model.PaymentPaid
	}
	err := r.guests.Create(ctx, g)
	if errors.Is(err, ErrExists) {
		return ErrPaymentProcessed
	}
	return err
}

func (r *PaymentRepo) AllGuestPayments(ctx context.Context) ([]*model.GuestPayment, error) {
	return r.guests.All(ctx)
}

func (r *PaymentRepo) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = model.OrderCreated
	}
	return r.orders.Create(ctx, o)
}

func (r *PaymentRepo) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return r.orders.Get(ctx, id)
}

func (r *PaymentRepo) MarkOrderPaid(ctx context.Context, id string) error {
	_, err := r.orders.Patch(ctx, id, map[string]any{"status": model.OrderPaid})
	return err
}

// RecordReceipt claims paymentID. The store-level atomic create makes this
// the replay guard: only the first caller for a payment id succeeds, later
// ones get ErrPaymentProcessed.
func (r *PaymentRepo) RecordReceipt(ctx context.Context, paymentID, orderID string) error {
	err := r.receipts.Create(ctx, &model.PaymentReceipt{
		ID:        paymentID,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, ErrExists) {
		return ErrPaymentProcessed
	}
	return err
}

// ReleaseReceipt gives paymentID back so the payment can be verified again.
// Used when crediting fails after the receipt was recorded.
func (r *PaymentRepo) ReleaseReceipt(ctx context.Context, paymentID string) error {
	err := r.receipts.Delete(ctx, paymentID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// DeleteByStudent removes a student's payments and orders.
func (r *PaymentRepo) DeleteByStudent(ctx context.Context, studentID string) error {
	if _, err := r.payments.DeleteWhere(ctx, func(p *model.Payment) bool { return p.StudentID == studentID }); err != nil {
		return err
	}
	_, err := r.orders.DeleteWhere(ctx, func(o *model.Order) bool { return o.StudentID == studentID })
	return err
}
