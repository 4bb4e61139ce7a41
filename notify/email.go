package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"

	"github.com/bookable/bookable/timezone"
)

// EmailNotifier delivers events as HTML mail over SMTP.
type EmailNotifier struct {
	host string
	port int
	from string
	pass string
}

// NewEmailNotifierFromEnv returns nil when SMTP_HOST is unset, in which case
// callers should fall back to LogNotifier.
func NewEmailNotifierFromEnv() *EmailNotifier {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return &EmailNotifier{
		host: host,
		port: port,
		from: os.Getenv("EMAIL_USER"),
		pass: os.Getenv("EMAIL_PASS"),
	}
}

func (n *EmailNotifier) Send(_ context.Context, e Event) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", e.CustomerContact)
	m.SetHeader("Subject", subjectFor(e))
	m.SetBody("text/html", bodyFor(e))

	d := gomail.NewDialer(n.host, n.port, n.from, n.pass)
	return d.DialAndSend(m)
}

func subjectFor(e Event) string {
	switch e.Type {
	case EventBookingConfirmed:
		return fmt.Sprintf("Booking confirmed: %s", e.ServiceName)
	case EventBookingCancelled:
		return fmt.Sprintf("Booking cancelled: %s", e.ServiceName)
	case EventBookingRescheduled:
		return fmt.Sprintf("Booking rescheduled: %s", e.ServiceName)
	case EventReminder24h, EventReminder1h:
		return fmt.Sprintf("Reminder: upcoming appointment - %s", e.ServiceName)
	}
	return fmt.Sprintf("Booking update: %s", e.ServiceName)
}

func bodyFor(e Event) string {
	localStart := timezone.FormatInZone(e.StartTime, "Mon, 02 Jan 2006 15:04", e.BusinessTimezone)
	return fmt.Sprintf(`
		<p>Dear %s,</p>
		<p><strong>Details:</strong></p>
		<ul>
			<li><strong>Service:</strong> %s (%d min)</li>
			<li><strong>With:</strong> %s</li>
			<li><strong>Start Time:</strong> %s</li>
		</ul>
		<p>If you need to reschedule or cancel, contact us as soon as possible.</p>
	`, e.CustomerName, e.ServiceName, e.ServiceDuration, e.EmployeeName, localStart)
}
