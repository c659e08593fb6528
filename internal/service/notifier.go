package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/iliyamo/mess-connect/internal/model"
)

// Notifier builds the application's mails and hands them to a Mailer.
// Send failures are returned; callers decide whether they are fatal.
type Notifier struct {
	mailer Mailer
	appURL string
	log    *slog.Logger
}

func NewNotifier(m Mailer, appURL string, log *slog.Logger) *Notifier {
	if m == nil || log == nil {
		panic("nil dependency passed to NewNotifier")
	}
	return &Notifier{mailer: m, appURL: strings.TrimRight(appURL, "/"), log: log}
}

func (n *Notifier) link(path, token string) string {
	return n.appURL + path + "?token=" + url.QueryEscape(token)
}

// Verification mails the email verification link.
func (n *Notifier) Verification(ctx context.Context, u *model.User, token string) error {
	link := n.link("/verify-email", token)
	body := fmt.Sprintf(`<p>Hi %s,</p><p>Please confirm your email address. The link is valid for 24 hours.</p><p><a href="%s">Verify email</a></p>`,
		html.EscapeString(u.Name), html.EscapeString(link))
	return n.mailer.Send(ctx, Mail{To: []string{u.ID}, Subject: "Verify your Mess Connect account", HTML: mailLayout("Verify your email", body)})
}

// PasswordReset mails the reset link.
func (n *Notifier) PasswordReset(ctx context.Context, u *model.User, token string) error {
	link := n.link("/reset-password", token)
	body := fmt.Sprintf(`<p>Hi %s,</p><p>Someone asked to reset your password. The link is valid for one hour. Ignore this mail if it was not you.</p><p><a href="%s">Reset password</a></p>`,
		html.EscapeString(u.Name), html.EscapeString(link))
	return n.mailer.Send(ctx, Mail{To: []string{u.ID}, Subject: "Reset your Mess Connect password", HTML: mailLayout("Password reset", body)})
}

// StatusChanged tells a student their registration was approved or
// rejected.
func (n *Notifier) StatusChanged(ctx context.Context, u *model.User) error {
	msg := "Your registration has been approved. You can now log in."
	if u.Status == model.StatusRejected {
		msg = "Your registration has been rejected. Please contact the mess manager."
	}
	body := fmt.Sprintf(`<p>Hi %s,</p><p>%s</p>`, html.EscapeString(u.Name), msg)
	return n.mailer.Send(ctx, Mail{To: []string{u.ID}, Subject: "Mess Connect registration " + u.Status, HTML: mailLayout("Registration "+u.Status, body)})
}

// Direct sends a manager's plain-text message to one student.
func (n *Notifier) Direct(ctx context.Context, u *model.User, subject, message string) error {
	body := "<p>" + strings.ReplaceAll(html.EscapeString(message), "\n", "<br>") + "</p>"
	return n.mailer.Send(ctx, Mail{To: []string{u.ID}, Subject: subject, HTML: mailLayout(subject, body)})
}

// Broadcast renders markdown once and sends it to every recipient
// separately so addresses are not disclosed to each other. It returns the
// number of mails handed to the mailer.
func (n *Notifier) Broadcast(ctx context.Context, to []*model.User, subject, markdown string) (int, error) {
	body, err := RenderMarkdown(markdown)
	if err != nil {
		return 0, err
	}
	page := mailLayout(subject, body)
	sent := 0
	for _, u := range to {
		if err := n.mailer.Send(ctx, Mail{To: []string{u.ID}, Subject: subject, HTML: page}); err != nil {
			n.log.ErrorContext(ctx, "broadcast mail failed", "to", u.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
