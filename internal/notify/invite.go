package notify

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"stable-scheduler/internal/models"
)

// InviteGenerator renders a calendar-invite artifact for an event. The
// bytes are attached to the confirmation email by the notifier's consumer.
type InviteGenerator interface {
	BuildInvite(event models.Event) ([]byte, error)
}

// ICSInviteGenerator produces an iCalendar VEVENT for the event.
type ICSInviteGenerator struct {
	OrganizerName    string
	OrganizerAddress string
}

// icsLocalFormat is a floating (zone-less) timestamp. Event times are barn
// wall-clock times, so the invite must not pin them to UTC.
const icsLocalFormat = "20060102T150405"

func (g *ICSInviteGenerator) BuildInvite(event models.Event) ([]byte, error) {
	if event.Start.IsZero() || event.End.IsZero() {
		return nil, fmt.Errorf("event %s has no schedule", event.ID)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)

	ev := cal.AddEvent(event.ID)
	ev.SetDtStampTime(time.Now().UTC())
	ev.SetProperty(ics.ComponentPropertyDtStart, event.Start.Format(icsLocalFormat))
	ev.SetProperty(ics.ComponentPropertyDtEnd, event.End.Format(icsLocalFormat))
	ev.SetSummary(event.Title)
	if g.OrganizerAddress != "" {
		ev.SetOrganizer("mailto:"+g.OrganizerAddress, ics.WithCN(g.OrganizerName))
	}

	return []byte(cal.Serialize()), nil
}
