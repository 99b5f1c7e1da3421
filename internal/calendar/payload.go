package calendar

import (
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/agenda/internal/failure"
)

// BuildEvent assembles the record sent to the calendar on create.
//
// Description and location are set only when provided. A provided empty
// string is still sent, through ForceSendFields, because the API encoder
// drops empty strings otherwise. The time zone falls back to defaultZone.
func BuildEvent(f EventFields, defaultZone string) (*calendar.Event, error) {
	if strings.TrimSpace(f.Summary) == "" {
		return nil, failure.Validation("summary", "is required")
	}
	if f.Start.IsZero() {
		return nil, failure.Validation("start", "is required")
	}
	if !f.End.After(f.Start) {
		return nil, failure.Validation("end", "must be after start")
	}

	zone, loc, err := zoneFor(f.TimeZone, defaultZone)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary: f.Summary,
		Start:   eventDateTime(f.Start, loc, zone),
		End:     eventDateTime(f.End, loc, zone),
	}
	setOptional(event, "Description", f.Description)
	setOptional(event, "Location", f.Location)
	if len(f.Recurrence) > 0 {
		event.Recurrence = recurrenceLines(f.Recurrence)
	}

	return event, nil
}

// BuildPatch assembles the partial record sent to the calendar on update.
// Only the fields set in p appear in the result; an empty patch yields an
// event that encodes as {}.
func BuildPatch(p EventPatch, defaultZone string) (*calendar.Event, error) {
	event := &calendar.Event{}

	if p.Summary != nil {
		if strings.TrimSpace(*p.Summary) == "" {
			return nil, failure.Validation("summary", "must not be empty")
		}
		event.Summary = *p.Summary
	}
	setOptional(event, "Description", p.Description)
	setOptional(event, "Location", p.Location)

	if p.Start != nil && p.End != nil && !p.End.After(*p.Start) {
		return nil, failure.Validation("end", "must be after start")
	}

	if p.Start != nil || p.End != nil {
		zone, loc, err := zoneFor(p.TimeZone, defaultZone)
		if err != nil {
			return nil, err
		}
		if p.Start != nil {
			event.Start = eventDateTime(*p.Start, loc, zone)
		}
		if p.End != nil {
			event.End = eventDateTime(*p.End, loc, zone)
		}
	}

	if len(p.Recurrence) > 0 {
		event.Recurrence = recurrenceLines(p.Recurrence)
	}

	return event, nil
}

func setOptional(event *calendar.Event, field string, value *string) {
	if value == nil {
		return
	}
	switch field {
	case "Description":
		event.Description = *value
	case "Location":
		event.Location = *value
	}
	if *value == "" {
		event.ForceSendFields = append(event.ForceSendFields, field)
	}
}

func zoneFor(zone *string, defaultZone string) (string, *time.Location, error) {
	name := defaultZone
	if zone != nil && *zone != "" {
		name = *zone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return "", nil, failure.Validation("timeZone", "unknown time zone %q", name)
	}
	return name, loc, nil
}

func eventDateTime(t time.Time, loc *time.Location, zone string) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.In(loc).Format(time.RFC3339),
		TimeZone: zone,
	}
}

func recurrenceLines(rules []string) []string {
	lines := make([]string, 0, len(rules))
	for _, rule := range rules {
		if !strings.HasPrefix(strings.ToUpper(rule), "RRULE:") {
			rule = "RRULE:" + rule
		}
		lines = append(lines, rule)
	}
	return lines
}
