package model

import "time"

const (
	MethodRazorpay = "razorpay"
	MethodCash     = "cash"

	PaymentPaid = "paid"

	OrderCreated = "created"
	OrderPaid    = "paid"

	PurposeDues  = "dues"
	PurposeGuest = "guest"
)

// Payment settles one student's dues for one month. The id is
// "<studentId>:<month>" so a second payment for the same month collides.
type Payment struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Amount      int64     `json:"amount"` // whole rupees
	Month       string    `json:"month"`  // YYYY-MM
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	OrderID     string    `json:"orderId,omitempty"`
	PaymentID   string    `json:"paymentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PaymentKey returns the natural key of a student's payment for a month.
func PaymentKey(studentID, month string) string { return studentID + ":" + month }

// GuestPayment is a one-off payment by someone without an account. It is
// keyed by the gateway payment id.
type GuestPayment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Method    string    `json:"method"`
	OrderID   string    `json:"orderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order records what a gateway order was created for, so verification uses
// server-side amounts and payer identity instead of client-supplied ones.
type Order struct {
	ID         string    `json:"id"` // gateway order id
	Purpose    string    `json:"purpose"`
	StudentID  string    `json:"studentId,omitempty"`
	Month      string    `json:"month,omitempty"`
	PayerName  string    `json:"payerName,omitempty"`
	PayerEmail string    `json:"payerEmail,omitempty"`
	PayerPhone string    `json:"payerPhone,omitempty"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PaymentReceipt marks a gateway payment id as processed.
type PaymentReceipt struct {
	ID        string    `json:"id"` // gateway payment id
	OrderID   string    `json:"orderId"`
	CreatedAt time.Time `json:"createdAt"`
}
