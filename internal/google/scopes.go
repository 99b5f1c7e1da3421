package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// CalendarScopes are the OAuth scopes agenda requests. Reading and writing
// events is all the tools need; calendar metadata stays out of reach.
var CalendarScopes = []string{
	calendar.CalendarEventsScope,
}
