package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGatewayNotConfigured is returned when no gateway keys are set.
var ErrGatewayNotConfigured = errors.New("payment gateway is not configured")

// ErrGatewayFailed wraps any failure talking to the gateway.
var ErrGatewayFailed = errors.New("payment gateway request failed")

// GatewayOrder is the part of a gateway order the API cares about.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway creates orders and checks checkout signatures.
type Gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Razorpay talks to the Razorpay Orders API with basic auth.
type Razorpay struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewRazorpay returns a client for baseURL. A nil httpClient gets a 10s
// timeout client.
func NewRazorpay(baseURL, keyID, keySecret string, httpClient *http.Client) *Razorpay {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Razorpay{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		http:      httpClient,
	}
}

func (r *Razorpay) KeyID() string { return r.keyID }

func (r *Razorpay) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (GatewayOrder, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return GatewayOrder{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.http.Do(req)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return GatewayOrder{}, fmt.Errorf("%w: status %d: %s", ErrGatewayFailed, resp.StatusCode, bytes.TrimSpace(raw))
	}
	var o GatewayOrder
	if err := json.Unmarshal(raw, &o); err != nil || o.ID == "" {
		return GatewayOrder{}, fmt.Errorf("%w: unexpected order response", ErrGatewayFailed)
	}
	return o, nil
}

// VerifySignature checks a checkout signature in constant time.
func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(r.keySecret, orderID, paymentID, signature)
}

// SignPayment returns the hex HMAC-SHA256 of "orderID|paymentID".
func SignPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature reports whether signature matches SignPayment.
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	want := SignPayment(secret, orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(signature))
}
