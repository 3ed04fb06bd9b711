// Package notifications delivers best-effort messages about bookings, modifications
// and payouts by email and in-app push. Failures are logged and never returned to
// the operation that triggered them.
package notifications

import (
	"context"
	"log"
	"strings"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/google/uuid"
)

type Recipient struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

func (r Recipient) displayName() string {
	if r.Name != "" {
		return r.Name
	}
	if i := strings.Index(r.Email, "@"); i > 0 {
		return r.Email[:i]
	}
	return r.Email
}

type Notifier interface {
	Send(ctx context.Context, to Recipient, subject, html string) error
}

// logNotifier is used when no email provider is configured.
type logNotifier struct{}

func (logNotifier) Send(_ context.Context, to Recipient, subject, _ string) error {
	log.Printf("📭 Email not configured, would send %q to %s", subject, to.Email)
	return nil
}

// Mailer is the active email provider, chosen by InitEmailService.
var Mailer Notifier = logNotifier{}

// InitEmailService selects the provider named by EMAIL_PROVIDER (brevo or sendgrid).
func InitEmailService() {
	switch strings.ToLower(config.Config("EMAIL_PROVIDER")) {
	case "brevo":
		if s := NewBrevoService(); s.configured() {
			Mailer = s
			log.Println("✅ Email service initialized with Brevo.")
			return
		}
	case "sendgrid":
		if s := NewSendGridService(); s.configured() {
			Mailer = s
			log.Println("✅ Email service initialized with SendGrid.")
			return
		}
	}
	Mailer = logNotifier{}
	log.Println("⚠️ Email service not configured, notifications will only be logged.")
}
