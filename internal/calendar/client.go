package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/agenda/internal/failure"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

const (
	// DefaultCalendarID is the calendar the tools act on unless configured otherwise.
	DefaultCalendarID = "primary"

	// DefaultMaxResults caps how many upcoming events a listing returns.
	DefaultMaxResults = 50
)

// ClientConfig configures a Client.
type ClientConfig struct {
	CalendarID string
	MaxResults int64

	// Metrics and Logger are optional.
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger

	// Now is the clock used for the lower bound of listings. Defaults to time.Now.
	Now func() time.Time
}

// Client is the EventService backed by the Google Calendar API.
type Client struct {
	svc        *calendar.Service
	calendarID string
	maxResults int64
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

var _ EventService = (*Client)(nil)

// NewClient creates a Calendar client. opts carry the credentials (see the
// google package) and, in tests, the endpoint.
func NewClient(ctx context.Context, cfg ClientConfig, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	c := &Client{
		svc:        svc,
		calendarID: cfg.CalendarID,
		maxResults: cfg.MaxResults,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if c.calendarID == "" {
		c.calendarID = DefaultCalendarID
	}
	if c.maxResults <= 0 {
		c.maxResults = DefaultMaxResults
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.With(logging.Operation("calendar"), slog.String("calendar_id", c.calendarID))

	return c, nil
}

// CalendarID returns the id of the calendar the client acts on.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// ListEvents lists the upcoming events, expanded to single instances and
// ordered by start time.
func (c *Client) ListEvents(ctx context.Context) ([]*calendar.Event, error) {
	var events []*calendar.Event
	err := c.do(ctx, instrumentation.OperationList, "", func(ctx context.Context) error {
		resp, err := c.svc.Events.List(c.calendarID).
			Context(ctx).
			TimeMin(c.now().Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(c.maxResults).
			Do()
		if err != nil {
			return err
		}
		events = resp.Items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CreateEvent inserts event into the calendar.
func (c *Client) CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	var created *calendar.Event
	err := c.do(ctx, instrumentation.OperationInsert, "", func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateEvent patches the event with the given id.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	var updated *calendar.Event
	err := c.do(ctx, instrumentation.OperationPatch, eventID, func(ctx context.Context) error {
		var err error
		updated, err = c.svc.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEvent deletes the event with the given id. Deleting an event that
// is already gone fails with a NotFound error.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.do(ctx, instrumentation.OperationDelete, eventID, func(ctx context.Context) error {
		return c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	})
}

// do runs call inside a Google API span, records its metrics and maps the
// returned error onto a failure kind.
func (c *Client) do(ctx context.Context, operation, eventID string, call func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation,
		instrumentation.NewSpanAttributeBuilder().WithEventID(eventID).Build()...)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	duration := time.Since(start)

	if err != nil {
		mapped := mapError(operation, eventID, err)
		kind := string(failure.KindOf(mapped))
		instrumentation.SetSpanError(span, err, kind)
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, instrumentation.StatusError, duration)
		c.logger.WarnContext(ctx, "calendar call failed",
			slog.String("google_operation", operation),
			logging.EventID(eventID),
			slog.String(logging.KeyFailureKind, kind),
			logging.Err(err))
		return mapped
	}

	instrumentation.SetSpanSuccess(span)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, instrumentation.StatusSuccess, duration)
	c.logger.DebugContext(ctx, "calendar call succeeded",
		slog.String("google_operation", operation),
		logging.EventID(eventID),
		logging.Duration(duration))
	return nil
}

// mapError translates a Google API error. 404 and 410 both mean the event
// does not exist (410 is what Google returns for an already deleted event).
func mapError(operation, eventID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Timeout(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound, http.StatusGone:
			return failure.NotFound(eventID, err)
		}
	}

	return failure.Collaborator("calendar "+operation, err)
}
