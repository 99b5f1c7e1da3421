package calendar

import (
	"context"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventService is the calendar collaborator the tools delegate to.
// Implementations return failure errors: NotFound for unknown ids,
// Collaborator for everything the remote side rejects.
type EventService interface {
	// ListEvents returns the upcoming events of the configured calendar.
	ListEvents(ctx context.Context) ([]*calendar.Event, error)

	// CreateEvent inserts event and returns it as stored, including its id.
	CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)

	// UpdateEvent applies patch to the event with the given id. Only the
	// fields present in patch are changed.
	UpdateEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)

	// DeleteEvent removes the event with the given id.
	DeleteEvent(ctx context.Context, eventID string) error
}

// EventFields is the input of BuildEvent.
// Nil pointers mean "not provided" and are left out of the payload.
type EventFields struct {
	Summary     string
	Description *string
	Location    *string
	TimeZone    *string
	Start       time.Time
	End         time.Time
	Recurrence  []string
}

// EventPatch is the input of BuildPatch. Nil fields are left untouched on
// the stored event.
type EventPatch struct {
	Summary     *string
	Description *string
	Location    *string
	TimeZone    *string
	Start       *time.Time
	End         *time.Time
	Recurrence  []string
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Summary == nil && p.Description == nil && p.Location == nil &&
		p.Start == nil && p.End == nil && len(p.Recurrence) == 0
}

// EventSummary is a flattened view of an event for terminal output.
type EventSummary struct {
	ID       string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Status   string
	Link     string
}

// toEventSummary converts a Google Calendar event to an EventSummary.
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Location: event.Location,
		Status:   event.Status,
		Link:     event.HtmlLink,
	}

	summary.Start, summary.AllDay = parseEventTime(event.Start)
	summary.End, _ = parseEventTime(event.End)

	return summary
}

// Summaries converts a list of events for display.
func Summaries(events []*calendar.Event) []EventSummary {
	out := make([]EventSummary, 0, len(events))
	for _, event := range events {
		out = append(out, toEventSummary(event))
	}
	return out
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t, false
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse("2006-01-02", edt.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
