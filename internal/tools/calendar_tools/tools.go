package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/failure"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/timeparse"
	"github.com/teemow/agenda/internal/tools/common"
)

// Tool names.
const (
	ToolListEvents  = "busca_eventos"
	ToolCreateEvent = "criar_evento"
	ToolUpdateEvent = "atualizar_evento"
	ToolDeleteEvent = "deletar_evento"
)

// Config wires the tools to their collaborators.
type Config struct {
	Events   calendar.EventService
	Resolver *timeparse.Resolver

	// Zone is the default time zone of created events. Defaults to the
	// resolver's zone.
	Zone string

	// Metrics is optional.
	Metrics *instrumentation.Metrics
}

// Tools implements the calendar tools.
type Tools struct {
	events   calendar.EventService
	resolver *timeparse.Resolver
	zone     string
	metrics  *instrumentation.Metrics
}

// New creates the calendar tools.
func New(cfg Config) (*Tools, error) {
	if cfg.Events == nil {
		return nil, fmt.Errorf("calendar tools need an event service")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("calendar tools need a time resolver")
	}
	zone := cfg.Zone
	if zone == "" {
		zone = cfg.Resolver.Zone()
	}
	return &Tools{
		events:   cfg.Events,
		resolver: cfg.Resolver,
		zone:     zone,
		metrics:  cfg.Metrics,
	}, nil
}

// All returns the tool declarations in the order they are offered to the model.
func (t *Tools) All() []common.Tool {
	return []common.Tool{
		{Schema: listEventsSchema(), Handler: common.Typed(t.ListEvents)},
		{Schema: createEventSchema(), Handler: common.Typed(t.CreateEvent)},
		{Schema: updateEventSchema(), Handler: common.Typed(t.UpdateEvent)},
		{Schema: deleteEventSchema(), Handler: common.Typed(t.DeleteEvent)},
	}
}

// Schemas returns the tool schemas without wiring any collaborator, for
// documentation.
func Schemas() []mcp.Tool {
	return []mcp.Tool{listEventsSchema(), createEventSchema(), updateEventSchema(), deleteEventSchema()}
}

// Register creates the calendar tools and adds them to r.
func Register(r *common.Registry, cfg Config) error {
	tools, err := New(cfg)
	if err != nil {
		return err
	}
	if err := r.Register(tools.All()...); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}
	return nil
}

// zoneOf returns the requested zone, or the default one when unset.
func (t *Tools) zoneOf(requested *string) string {
	if requested != nil && *requested != "" {
		return *requested
	}
	return t.zone
}

// resolve resolves a start expression and counts the outcome.
func (t *Tools) resolve(ctx context.Context, text, zone string) (timeparse.Interval, error) {
	interval, err := t.resolver.Resolve(text, timeparse.Options{Zone: zone})
	t.recordResolution(ctx, err)
	return interval, err
}

// resolveEnd resolves an end expression. Named days read against the
// resolver's clock like the start does; a bare time falls on start's date.
func (t *Tools) resolveEnd(ctx context.Context, text, zone string, start time.Time) (time.Time, error) {
	end, err := t.resolver.ResolveEnd(text, start, timeparse.Options{Zone: zone})
	t.recordResolution(ctx, err)
	return end, err
}

func (t *Tools) recordResolution(ctx context.Context, err error) {
	switch {
	case err == nil:
		t.metrics.RecordDateResolution(ctx, instrumentation.ResolutionResolved)
	case failure.Is(err, failure.KindParse):
		t.metrics.RecordDateResolution(ctx, instrumentation.ResolutionUnparsed)
	}
}
