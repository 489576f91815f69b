package whatsapp

import (
	"fmt"
	"strings"

	"studioflow/internal/models"
	"studioflow/shared/notify"
)

// Composer renders notification bodies. Messages are plain text because the
// bridge does not support rich formatting for every recipient.
type Composer struct {
	// StudioName is prepended so recipients know who is writing.
	StudioName string
}

// EventReminder is the message sent to the client the day before a shoot.
func (c Composer) EventReminder(event notify.UpcomingEvent) string {
	var b strings.Builder
	if c.StudioName != "" {
		fmt.Fprintf(&b, "%s: ", c.StudioName)
	}
	fmt.Fprintf(&b, "Hi %s! A reminder that %s is scheduled for %s.",
		firstName(event.ClientName), event.Title, event.StartDate.Format("Monday, 2 January 2006"))
	if event.Venue != "" {
		fmt.Fprintf(&b, " Venue: %s.", event.Venue)
	}
	b.WriteString(" Reply here if anything has changed.")
	return b.String()
}

// AssignmentNotice tells a crew member they are booked on an event.
func (c Composer) AssignmentNotice(personName, eventTitle string, role models.Role, dates models.DateRange) string {
	var b strings.Builder
	if c.StudioName != "" {
		fmt.Fprintf(&b, "%s: ", c.StudioName)
	}
	fmt.Fprintf(&b, "Hi %s, you are booked as %s for %s on %s.",
		firstName(personName), roleLabel(role), eventTitle, dates.String())
	return b.String()
}

// PaymentReceipt confirms money received against an event.
func (c Composer) PaymentReceipt(clientName, eventTitle string, amount float64) string {
	var b strings.Builder
	if c.StudioName != "" {
		fmt.Fprintf(&b, "%s: ", c.StudioName)
	}
	fmt.Fprintf(&b, "Hi %s, we received your payment of ₹%.2f for %s. Thank you!",
		firstName(clientName), amount, eventTitle)
	return b.String()
}

func firstName(full string) string {
	if full == "" {
		return "there"
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

func roleLabel(r models.Role) string {
	return strings.ReplaceAll(string(r), "_", " ")
}
