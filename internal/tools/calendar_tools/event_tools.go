package calendar_tools

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/teambition/rrule-go"
	gcalendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/failure"
)

// ListEventsArgs are the arguments of busca_eventos. It takes none.
type ListEventsArgs struct{}

// CreateEventArgs are the arguments of criar_evento.
type CreateEventArgs struct {
	Summary     string  `json:"summary"`
	DataNatural string  `json:"dataNatural"`
	DataFim     *string `json:"dataFim,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	TimeZone    *string `json:"timeZone,omitempty"`
	Recorrencia *string `json:"recorrencia,omitempty"`
}

// UpdateEventArgs are the arguments of atualizar_evento. Nil fields are
// left untouched on the stored event.
type UpdateEventArgs struct {
	EventID     string  `json:"eventId"`
	Summary     *string `json:"summary,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	DataNatural *string `json:"dataNatural,omitempty"`
	DataFim     *string `json:"dataFim,omitempty"`
	TimeZone    *string `json:"timeZone,omitempty"`
	Recorrencia *string `json:"recorrencia,omitempty"`
}

// DeleteEventArgs are the arguments of deletar_evento.
type DeleteEventArgs struct {
	EventID string `json:"eventId"`
}

// DeleteResult is what deletar_evento returns.
type DeleteResult struct {
	EventID string `json:"eventId"`
	Deleted bool   `json:"deleted"`
}

func listEventsSchema() mcp.Tool {
	return mcp.NewTool(ToolListEvents,
		mcp.WithDescription("Busca todos os eventos futuros registrados na agenda"),
	)
}

func createEventSchema() mcp.Tool {
	return mcp.NewTool(ToolCreateEvent,
		mcp.WithDescription("Cria um evento no Google Calendar"),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Título do evento"),
		),
		mcp.WithString("dataNatural",
			mcp.Required(),
			mcp.Description(`Data e hora de início em linguagem natural, ex: "amanhã às 14h", ou em ISO 8601`),
		),
		mcp.WithString("dataFim",
			mcp.Description("Data e hora de término. Sem ela o evento dura uma hora"),
		),
		mcp.WithString("description",
			mcp.Description("Descrição do evento"),
		),
		mcp.WithString("location",
			mcp.Description("Local do evento"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Fuso horário no formato IANA (padrão: America/Sao_Paulo)"),
		),
		mcp.WithString("recorrencia",
			mcp.Description(`Regra de recorrência RFC 5545, ex: "FREQ=WEEKLY;BYDAY=MO"`),
		),
	)
}

func updateEventSchema() mcp.Tool {
	return mcp.NewTool(ToolUpdateEvent,
		mcp.WithDescription("Atualiza um evento existente no Google Calendar pelo ID. Só os campos informados são alterados"),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("ID do evento a ser atualizado"),
		),
		mcp.WithString("summary",
			mcp.Description("Novo título do evento"),
		),
		mcp.WithString("description",
			mcp.Description("Nova descrição do evento"),
		),
		mcp.WithString("location",
			mcp.Description("Novo local do evento"),
		),
		mcp.WithString("dataNatural",
			mcp.Description(`Nova data e hora do evento em linguagem natural, ex: "próxima segunda às 10h"`),
		),
		mcp.WithString("dataFim",
			mcp.Description("Nova data e hora de término"),
		),
		mcp.WithString("timeZone",
			mcp.Description("Fuso horário no formato IANA"),
		),
		mcp.WithString("recorrencia",
			mcp.Description("Nova regra de recorrência RFC 5545"),
		),
	)
}

func deleteEventSchema() mcp.Tool {
	return mcp.NewTool(ToolDeleteEvent,
		mcp.WithDescription("Remove um evento do Google Calendar pelo ID"),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("ID do evento que será removido"),
		),
	)
}

// ListEvents returns the upcoming events as the calendar reports them.
func (t *Tools) ListEvents(ctx context.Context, _ ListEventsArgs) (any, error) {
	events, err := t.events.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*gcalendar.Event{}
	}
	return events, nil
}

// CreateEvent resolves the dates, builds the event and creates it.
func (t *Tools) CreateEvent(ctx context.Context, args CreateEventArgs) (any, error) {
	zone := t.zoneOf(args.TimeZone)

	interval, err := t.resolve(ctx, args.DataNatural, zone)
	if err != nil {
		return nil, err
	}
	if args.DataFim != nil {
		interval.End, err = t.resolveEnd(ctx, *args.DataFim, zone, interval.Start)
		if err != nil {
			return nil, err
		}
	}

	recurrence, err := recurrenceOf(args.Recorrencia)
	if err != nil {
		return nil, err
	}

	event, err := calendar.BuildEvent(calendar.EventFields{
		Summary:     args.Summary,
		Description: args.Description,
		Location:    args.Location,
		TimeZone:    &zone,
		Start:       interval.Start,
		End:         interval.End,
		Recurrence:  recurrence,
	}, t.zone)
	if err != nil {
		return nil, err
	}

	return t.events.CreateEvent(ctx, event)
}

// UpdateEvent patches the event with the fields that were given. A new
// start without an end keeps the default duration; an eventId alone sends
// an empty patch.
func (t *Tools) UpdateEvent(ctx context.Context, args UpdateEventArgs) (any, error) {
	zone := t.zoneOf(args.TimeZone)
	patch := calendar.EventPatch{
		Summary:     args.Summary,
		Description: args.Description,
		Location:    args.Location,
		TimeZone:    &zone,
	}

	if args.DataNatural != nil {
		interval, err := t.resolve(ctx, *args.DataNatural, zone)
		if err != nil {
			return nil, err
		}
		patch.Start = &interval.Start
		patch.End = &interval.End
	}
	if args.DataFim != nil {
		var start time.Time
		if patch.Start != nil {
			start = *patch.Start
		}
		end, err := t.resolveEnd(ctx, *args.DataFim, zone, start)
		if err != nil {
			return nil, err
		}
		patch.End = &end
	}

	recurrence, err := recurrenceOf(args.Recorrencia)
	if err != nil {
		return nil, err
	}
	patch.Recurrence = recurrence

	event, err := calendar.BuildPatch(patch, t.zone)
	if err != nil {
		return nil, err
	}

	return t.events.UpdateEvent(ctx, args.EventID, event)
}

// DeleteEvent removes the event. A second delete of the same id fails with
// a not-found failure.
func (t *Tools) DeleteEvent(ctx context.Context, args DeleteEventArgs) (any, error) {
	if err := t.events.DeleteEvent(ctx, args.EventID); err != nil {
		return nil, err
	}
	return DeleteResult{EventID: args.EventID, Deleted: true}, nil
}

// recurrenceOf validates an optional RRULE. A blank rule counts as absent.
func recurrenceOf(rule *string) ([]string, error) {
	if rule == nil || strings.TrimSpace(*rule) == "" {
		return nil, nil
	}

	body := strings.TrimSpace(*rule)
	if len(body) >= len("RRULE:") && strings.EqualFold(body[:len("RRULE:")], "RRULE:") {
		body = body[len("RRULE:"):]
	}
	if _, err := rrule.StrToRRule(body); err != nil {
		return nil, failure.Validation("recorrencia", "invalid recurrence rule %q: %v", *rule, err)
	}
	return []string{"RRULE:" + body}, nil
}
