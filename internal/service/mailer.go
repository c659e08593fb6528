package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/mess-connect/internal/queue"
)

// Mail is one outbound message with an HTML body.
type Mail struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer sends mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// Resend posts to a Resend-compatible /emails endpoint.
type Resend struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
}

func NewResend(baseURL, apiKey, from string, httpClient *http.Client) *Resend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resend{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, from: from, http: httpClient}
}

func (r *Resend) Send(ctx context.Context, m Mail) error {
	body, err := json.Marshal(map[string]any{
		"from":    r.from,
		"to":      m.To,
		"subject": m.Subject,
		"html":    m.HTML,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send mail: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// LogMailer only logs. It is used when no mail API key is configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer { return &LogMailer{log: log} }

func (l *LogMailer) Send(ctx context.Context, m Mail) error {
	l.log.InfoContext(ctx, "mail not sent, no provider configured",
		"to", strings.Join(m.To, ","), "subject", m.Subject, "html_bytes", len(m.HTML))
	return nil
}

// MailPublisher is the queue side of QueueMailer.
type MailPublisher interface {
	PublishMail(ctx context.Context, ev queue.MailEvent) error
}

// QueueMailer hands mail to the broker; cmd/mailworker delivers it.
type QueueMailer struct {
	pub MailPublisher
}

func NewQueueMailer(pub MailPublisher) *QueueMailer { return &QueueMailer{pub: pub} }

func (q *QueueMailer) Send(ctx context.Context, m Mail) error {
	return q.pub.PublishMail(ctx, queue.MailEvent{To: m.To, Subject: m.Subject, HTML: m.HTML})
}

// DeliverEvent adapts a Mailer to the queue consumer.
func DeliverEvent(m Mailer) queue.MailHandler {
	return func(ctx context.Context, ev queue.MailEvent) error {
		return m.Send(ctx, Mail{To: ev.To, Subject: ev.Subject, HTML: ev.HTML})
	}
}
