package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/scheduling"
	"github.com/anjiri1684/tutor_marketplace/websocket"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Kind string

const (
	BookingCreated        Kind = "booking.created"
	BookingApproved       Kind = "booking.approved"
	BookingRejected       Kind = "booking.rejected"
	BookingCancelled      Kind = "booking.cancelled"
	BookingCompleted      Kind = "booking.completed"
	BookingMissed         Kind = "booking.missed"
	BookingReminder       Kind = "booking.reminder"
	ModificationRequested Kind = "modification.requested"
	ModificationApproved  Kind = "modification.approved"
	ModificationRejected  Kind = "modification.rejected"
	ModificationCompleted Kind = "modification.completed"
	ModificationCancelled Kind = "modification.cancelled"
	ModificationExpired   Kind = "modification.expired"
	PayoutRequested       Kind = "payout.requested"
	PayoutApproved        Kind = "payout.approved"
	PayoutDeclined        Kind = "payout.declined"
	PayoutPaid            Kind = "payout.paid"
	WalletFunded          Kind = "wallet.funded"
)

var subjects = map[Kind]string{
	BookingCreated:        "New booking request",
	BookingApproved:       "Your booking is confirmed",
	BookingRejected:       "Your booking was declined",
	BookingCancelled:      "A booking was cancelled",
	BookingCompleted:      "Lesson completed",
	BookingMissed:         "A lesson was missed",
	BookingReminder:       "Reminder: your class starts in 1 hour",
	ModificationRequested: "A schedule change was requested",
	ModificationApproved:  "Your schedule change was approved",
	ModificationRejected:  "Your schedule change was declined",
	ModificationCompleted: "Your lesson schedule was updated",
	ModificationCancelled: "A schedule change was withdrawn",
	ModificationExpired:   "A schedule change request expired",
	PayoutRequested:       "Payout request received",
	PayoutApproved:        "Your payout was approved",
	PayoutDeclined:        "Your payout was declined",
	PayoutPaid:            "Your payout has been sent",
	WalletFunded:          "Funds added to your wallet",
}

var body = template.Must(template.New("notification").Parse(
	`<h1>{{.Subject}}</h1><p>Hi {{.Name}},</p>{{range .Lines}}<p>{{.}}</p>{{end}}`))

// Event is a rendered-on-send notification for one or more users.
type Event struct {
	Kind       Kind                   `json:"kind"`
	Recipients []Recipient            `json:"-"`
	Lines      []string               `json:"lines"`
	Data       map[string]interface{} `json:"data,omitempty"`
	At         time.Time              `json:"at"`
}

func (e Event) Subject() string {
	if s, ok := subjects[e.Kind]; ok {
		return s
	}
	return string(e.Kind)
}

// Render returns the email subject and HTML body for one recipient.
func (e Event) Render(to Recipient) (string, string, error) {
	var buf bytes.Buffer
	err := body.Execute(&buf, struct {
		Subject string
		Name    string
		Lines   []string
	}{e.Subject(), to.displayName(), e.Lines})
	return e.Subject(), buf.String(), err
}

// Dispatch emails every recipient and pushes the event to their open websocket connections.
// It is meant to run in its own goroutine after the triggering transaction commits.
func Dispatch(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	ids := make([]uuid.UUID, 0, len(e.Recipients))
	for _, r := range e.Recipients {
		ids = append(ids, r.UserID)
	}
	websocket.Push(map[string]interface{}{
		"kind":    e.Kind,
		"subject": e.Subject(),
		"lines":   e.Lines,
		"data":    e.Data,
		"at":      e.At,
	}, ids...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, r := range e.Recipients {
		subject, html, err := e.Render(r)
		if err != nil {
			logging.Error("render notification", err, map[string]interface{}{"kind": e.Kind})
			continue
		}
		if err := Mailer.Send(ctx, r, subject, html); err != nil {
			logging.Warn("send notification email", err, map[string]interface{}{"kind": e.Kind, "to": r.Email})
		}
	}
}

func recipients(db *gorm.DB, ids ...uuid.UUID) []Recipient {
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		logging.Warn("load notification recipients", err, nil)
		return nil
	}
	out := make([]Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, Recipient{UserID: u.ID, Name: u.FullName, Email: u.Email})
	}
	return out
}

func bookingWhen(date datatypes.Date, start datatypes.Time) string {
	return fmt.Sprintf("%s at %s", time.Time(date).Format("Mon, 02 Jan 2006"), scheduling.Clock(start))
}

// ForBooking builds an event for both sides of a booking. Call it after commit.
func ForBooking(db *gorm.DB, kind Kind, b *models.Booking, lines ...string) Event {
	lines = append([]string{"Lesson: " + bookingWhen(b.BookingDate, b.StartTime)}, lines...)
	if kind == BookingReminder && b.MeetingLink != nil {
		lines = append(lines, "Meeting link: "+*b.MeetingLink)
	}
	return Event{
		Kind:       kind,
		Recipients: recipients(db, b.StudentID, b.TeacherID),
		Lines:      lines,
		Data:       map[string]interface{}{"booking_id": b.ID, "status": b.Status},
	}
}

func ForModification(db *gorm.DB, kind Kind, m *models.BookingModification) Event {
	var b models.Booking
	if err := db.Select("id", "student_id", "teacher_id").First(&b, "id = ?", m.BookingID).Error; err != nil {
		logging.Warn("load booking for notification", err, map[string]interface{}{"modification_id": m.ID})
	}
	return Event{
		Kind:       kind,
		Recipients: recipients(db, b.StudentID, b.TeacherID),
		Lines: []string{
			fmt.Sprintf("The %s request moves the lesson from %s to %s.", m.Type,
				bookingWhen(m.OriginalDate, m.OriginalStartTime), bookingWhen(m.NewDate, m.NewStartTime)),
		},
		Data: map[string]interface{}{"modification_id": m.ID, "booking_id": m.BookingID, "status": m.Status},
	}
}

func ForPayout(db *gorm.DB, kind Kind, p *models.PayoutRequest) Event {
	lines := []string{fmt.Sprintf("Payout %s for %s %s.", p.Reference, p.Amount.StringFixed(2), p.Currency)}
	if p.AdminNotes != nil && *p.AdminNotes != "" {
		lines = append(lines, "Notes: "+*p.AdminNotes)
	}
	return Event{
		Kind:       kind,
		Recipients: recipients(db, p.TeacherID),
		Lines:      lines,
		Data:       map[string]interface{}{"payout_id": p.ID, "reference": p.Reference, "status": p.Status},
	}
}

func ForWallet(db *gorm.DB, ownerID uuid.UUID, entry *models.UnifiedTransaction) Event {
	return Event{
		Kind:       WalletFunded,
		Recipients: recipients(db, ownerID),
		Lines: []string{fmt.Sprintf("%s %s was added. New balance: %s %s.",
			entry.Amount.StringFixed(2), entry.Currency, entry.BalanceAfter.StringFixed(2), entry.Currency)},
		Data: map[string]interface{}{"transaction_id": entry.ID, "wallet_type": entry.WalletType},
	}
}
