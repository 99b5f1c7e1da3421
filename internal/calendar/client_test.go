package calendar

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/agenda/internal/calendar/calendartest"
	"github.com/teemow/agenda/internal/failure"
)

func newTestClient(t *testing.T, now time.Time) (*Client, *calendartest.Server) {
	t.Helper()

	srv := calendartest.NewServer(t, "agenda@example.com")
	client, err := NewClient(context.Background(), ClientConfig{
		CalendarID: "agenda@example.com",
		MaxResults: 10,
		Now:        func() time.Time { return now },
	}, srv.ClientOptions()...)
	require.NoError(t, err)
	return client, srv
}

func TestNewClient_Defaults(t *testing.T) {
	srv := calendartest.NewServer(t, DefaultCalendarID)
	client, err := NewClient(context.Background(), ClientConfig{}, srv.ClientOptions()...)
	require.NoError(t, err)

	assert.Equal(t, DefaultCalendarID, client.CalendarID())
	assert.Equal(t, int64(DefaultMaxResults), client.maxResults)
}

func TestClient_ListEvents(t *testing.T) {
	now := time.Date(2025, time.August, 4, 12, 0, 0, 0, time.UTC)
	client, srv := newTestClient(t, now)

	srv.Seed(&calendar.Event{Summary: "depois", Start: &calendar.EventDateTime{DateTime: "2025-08-06T10:00:00-03:00"}})
	srv.Seed(&calendar.Event{Summary: "antes", Start: &calendar.EventDateTime{DateTime: "2025-08-05T10:00:00-03:00"}})

	events, err := client.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "antes", events[0].Summary)

	call := srv.LastCall()
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "/calendars/agenda@example.com/events", call.Path)
	assert.Equal(t, []string{"2025-08-04T12:00:00Z"}, call.Query["timeMin"])
	assert.Equal(t, []string{"true"}, call.Query["singleEvents"])
	assert.Equal(t, []string{"startTime"}, call.Query["orderBy"])
	assert.Equal(t, []string{"10"}, call.Query["maxResults"])
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	client, srv := newTestClient(t, time.Now())
	ctx := context.Background()

	loc, err := time.LoadLocation(saoPaulo)
	require.NoError(t, err)
	start := time.Date(2025, time.August, 5, 9, 0, 0, 0, loc)

	event, err := BuildEvent(EventFields{Summary: "Reunião com o João", Start: start, End: start.Add(time.Hour)}, saoPaulo)
	require.NoError(t, err)

	created, err := client.CreateEvent(ctx, event)
	require.NoError(t, err)
	require.NotEmpty(t, created.Id)
	assert.Equal(t, "2025-08-05T09:00:00-03:00", created.Start.DateTime)

	body := srv.LastCall().Body
	assert.NotContains(t, body, "description")
	assert.NotContains(t, body, "location")

	patch, err := BuildPatch(EventPatch{Summary: strPtr("Reunião de time")}, saoPaulo)
	require.NoError(t, err)

	updated, err := client.UpdateEvent(ctx, created.Id, patch)
	require.NoError(t, err)
	assert.Equal(t, "Reunião de time", updated.Summary)
	assert.Equal(t, "2025-08-05T09:00:00-03:00", updated.Start.DateTime, "start must be untouched")
	assert.Equal(t, map[string]any{"summary": "Reunião de time"}, srv.LastCall().Body)
	assert.Equal(t, http.MethodPatch, srv.LastCall().Method)

	require.NoError(t, client.DeleteEvent(ctx, created.Id))
	assert.Nil(t, srv.Event(created.Id))

	// Google answers 410 for an already deleted event.
	err = client.DeleteEvent(ctx, created.Id)
	require.Error(t, err)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}

func TestClient_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		client, _ := newTestClient(t, time.Now())
		err := client.DeleteEvent(ctx, "missing")
		assert.Equal(t, failure.KindNotFound, failure.KindOf(err))

		_, err = client.UpdateEvent(ctx, "missing", &calendar.Event{Summary: "x"})
		assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
	})

	t.Run("server error", func(t *testing.T) {
		client, srv := newTestClient(t, time.Now())
		srv.FailWith(http.StatusForbidden)

		_, err := client.ListEvents(ctx)
		require.Error(t, err)
		assert.Equal(t, failure.KindCollaborator, failure.KindOf(err))
	})

	t.Run("deadline", func(t *testing.T) {
		client, srv := newTestClient(t, time.Now())
		srv.SetDelay(time.Second)

		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := client.ListEvents(ctx)
		require.Error(t, err)
		assert.Equal(t, failure.KindTimeout, failure.KindOf(err))
	})
}

func TestSummaries(t *testing.T) {
	summaries := Summaries([]*calendar.Event{
		nil,
		{
			Id:       "evt1",
			Summary:  "Reunião",
			Location: "Sala 2",
			Status:   "confirmed",
			Start:    &calendar.EventDateTime{DateTime: "2025-08-05T09:00:00-03:00"},
			End:      &calendar.EventDateTime{DateTime: "2025-08-05T10:00:00-03:00"},
		},
		{
			Id:    "evt2",
			Start: &calendar.EventDateTime{Date: "2025-08-07"},
			End:   &calendar.EventDateTime{Date: "2025-08-08"},
		},
	})

	require.Len(t, summaries, 3)
	assert.Equal(t, EventSummary{}, summaries[0])
	assert.Equal(t, "evt1", summaries[1].ID)
	assert.False(t, summaries[1].AllDay)
	assert.Equal(t, time.Hour, summaries[1].End.Sub(summaries[1].Start))
	assert.True(t, summaries[2].AllDay)
}
