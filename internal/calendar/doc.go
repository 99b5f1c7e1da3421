// Package calendar is the Google Calendar side of agenda.
//
// BuildEvent and BuildPatch turn validated tool arguments into the
// calendar.Event payloads the API expects. Client implements EventService
// on top of the Calendar v3 API and maps its errors onto failure kinds:
// 404 and 410 become NotFound, deadline expiry becomes Timeout, anything
// else is a Collaborator failure.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, calendar.ClientConfig{CalendarID: "primary"}, opts...)
//	if err != nil {
//	    return err
//	}
//
//	event, err := calendar.BuildEvent(calendar.EventFields{
//	    Summary: "Reunião com o João",
//	    Start:   start,
//	    End:     start.Add(time.Hour),
//	}, "America/Sao_Paulo")
//	if err != nil {
//	    return err
//	}
//	created, err := client.CreateEvent(ctx, event)
package calendar
