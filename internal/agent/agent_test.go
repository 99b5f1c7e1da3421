package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	gcalendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/calendar/calendartest"
	"github.com/teemow/agenda/internal/failure"
	"github.com/teemow/agenda/internal/timeparse"
	"github.com/teemow/agenda/internal/tools/calendar_tools"
	"github.com/teemow/agenda/internal/tools/common"
)

// scriptedModel replays canned responses and records what it was sent.
type scriptedModel struct {
	mu        sync.Mutex
	responses []func(messages []llms.MessageContent) (*llms.ContentResponse, error)
	calls     [][]llms.MessageContent
	options   []llms.CallOptions
}

var _ llms.Model = (*scriptedModel)(nil)

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	m.calls = append(m.calls, append([]llms.MessageContent(nil), messages...))
	m.options = append(m.options, opts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := len(m.calls) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i](messages)
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func answer(text string) func([]llms.MessageContent) (*llms.ContentResponse, error) {
	return func([]llms.MessageContent) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
	}
}

func toolCall(id, name, args string) func([]llms.MessageContent) (*llms.ContentResponse, error) {
	return func([]llms.MessageContent) (*llms.ContentResponse, error) {
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:           id,
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
			}},
		}}}, nil
	}
}

func fail(err error) func([]llms.MessageContent) (*llms.ContentResponse, error) {
	return func([]llms.MessageContent) (*llms.ContentResponse, error) {
		return nil, err
	}
}

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

// fixedNow is Monday 2025-08-04 10:00 in São Paulo.
func fixedNow(t *testing.T) func() time.Time {
	loc := saoPaulo(t)
	return func() time.Time { return time.Date(2025, time.August, 4, 10, 0, 0, 0, loc) }
}

func newCalendarRegistry(t *testing.T) (*common.Registry, *calendartest.Server) {
	t.Helper()
	clock := fixedNow(t)

	srv := calendartest.NewServer(t, calendar.DefaultCalendarID)
	client, err := calendar.NewClient(context.Background(), calendar.ClientConfig{Now: clock}, srv.ClientOptions()...)
	require.NoError(t, err)
	resolver, err := timeparse.NewResolver("", timeparse.WithClock(clock))
	require.NoError(t, err)

	r := common.NewRegistry(nil)
	require.NoError(t, calendar_tools.Register(r, calendar_tools.Config{Events: client, Resolver: resolver}))
	return r, srv
}

func newTestAgent(t *testing.T, cfg Config, model llms.Model, tools ToolExecutor) *Agent {
	t.Helper()
	a, err := New(cfg, model, tools, WithClock(fixedNow(t)))
	require.NoError(t, err)
	return a
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.NotEmpty(t, msg.Parts)
	text, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok, "part is %T", msg.Parts[0])
	return text.Text
}

func toolResponseOf(t *testing.T, msg llms.MessageContent) llms.ToolCallResponse {
	t.Helper()
	require.Equal(t, llms.ChatMessageTypeTool, msg.Role)
	require.Len(t, msg.Parts, 1)
	resp, ok := msg.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok, "part is %T", msg.Parts[0])
	return resp
}

func TestNew(t *testing.T) {
	r, _ := newCalendarRegistry(t)

	_, err := New(Config{}, nil, r)
	assert.Error(t, err)

	_, err = New(Config{}, &scriptedModel{}, nil)
	assert.Error(t, err)

	_, err = New(Config{MaxSteps: -1}, &scriptedModel{}, r)
	assert.Error(t, err)

	cfg := Config{Model: "gpt-4o-mini"}
	a, err := New(cfg, &scriptedModel{}, r)
	require.NoError(t, err)

	cfg.Model = "changed"
	got := a.Config()
	assert.Equal(t, "gpt-4o-mini", got.Model, "config is copied")
	assert.Equal(t, DefaultName, got.Name)
	assert.Equal(t, DefaultInstructions, got.Instructions)
	assert.Equal(t, DefaultMaxSteps, got.MaxSteps)
	assert.Equal(t, DefaultZone, got.Location.String())
}

func TestAugment(t *testing.T) {
	r, _ := newCalendarRegistry(t)

	off := newTestAgent(t, Config{}, &scriptedModel{}, r)
	assert.Equal(t, "marca reunião amanhã às 9h", off.Augment("marca reunião amanhã às 9h"))

	on := newTestAgent(t, Config{DateContext: true}, &scriptedModel{}, r)
	assert.Equal(t,
		"marca reunião amanhã às 9h. Tenha noção da data e horário atual: 04/08/2025 10:00:00.",
		on.Augment("marca reunião amanhã às 9h"))

	utc := newTestAgent(t, Config{DateContext: true, Location: time.UTC}, &scriptedModel{}, r)
	assert.Equal(t,
		"oi. Tenha noção da data e horário atual: 04/08/2025 13:00:00.",
		utc.Augment("oi"))
}

func TestAsk_PlainAnswer(t *testing.T) {
	r, srv := newCalendarRegistry(t)
	model := &scriptedModel{responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){
		answer("Olá! Como posso ajudar com a sua agenda?"),
	}}
	a := newTestAgent(t, Config{Model: "gpt-4o-mini", Temperature: 0.2}, model, r)

	got, err := a.Ask(context.Background(), "oi")
	require.NoError(t, err)
	assert.Equal(t, "Olá! Como posso ajudar com a sua agenda?", got)
	assert.Empty(t, srv.Calls())

	require.Len(t, model.calls, 1)
	messages := model.calls[0]
	require.Len(t, messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	assert.Equal(t, DefaultInstructions, textOf(t, messages[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)
	assert.Equal(t, "oi", textOf(t, messages[1]))

	opts := model.options[0]
	assert.Equal(t, "gpt-4o-mini", opts.Model)
	assert.InDelta(t, 0.2, opts.Temperature, 1e-9)
	names := []string{}
	for _, tool := range opts.Tools {
		names = append(names, tool.Function.Name)
	}
	assert.Equal(t, []string{"busca_eventos", "criar_evento", "atualizar_evento", "deletar_evento"}, names)
}

func TestAsk_CreatesEvent(t *testing.T) {
	r, srv := newCalendarRegistry(t)
	model := &scriptedModel{responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){
		toolCall("call_1", "criar_evento", `{"summary":"Reunião com o João","dataNatural":"amanhã às 9h"}`),
		answer("Pronto! Marquei a reunião com o João para amanhã às 9h."),
	}}
	a := newTestAgent(t, Config{DateContext: true}, model, r)

	got, err := a.Ask(context.Background(), "marca reunião com o João amanhã às 9h")
	require.NoError(t, err)
	assert.Equal(t, "Pronto! Marquei a reunião com o João para amanhã às 9h.", got)

	require.Len(t, model.calls, 2)
	assert.Equal(t,
		"marca reunião com o João amanhã às 9h. Tenha noção da data e horário atual: 04/08/2025 10:00:00.",
		textOf(t, model.calls[0][1]))

	second := model.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llms.ChatMessageTypeAI, second[2].Role)
	resp := toolResponseOf(t, second[3])
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, "criar_evento", resp.Name)

	var created gcalendar.Event
	require.NoError(t, json.Unmarshal([]byte(resp.Content), &created))
	assert.Equal(t, "2025-08-05T09:00:00-03:00", created.Start.DateTime)
	assert.Equal(t, "2025-08-05T10:00:00-03:00", created.End.DateTime)

	stored := srv.Event(created.Id)
	require.NotNil(t, stored)
	assert.Equal(t, "Reunião com o João", stored.Summary)
}

func TestAsk_ToolErrorsGoBackToTheModel(t *testing.T) {
	r, _ := newCalendarRegistry(t)
	model := &scriptedModel{responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){
		toolCall("call_1", "deletar_evento", `{"eventId":"nao-existe"}`),
		toolCall("call_2", "criar_evento", `{"summary":"x"}`),
		answer("Não encontrei esse evento."),
	}}
	a := newTestAgent(t, Config{}, model, r)

	got, err := a.Ask(context.Background(), "apaga o evento nao-existe")
	require.NoError(t, err)
	assert.Equal(t, "Não encontrei esse evento.", got)

	require.Len(t, model.calls, 3)
	first := toolResponseOf(t, model.calls[1][3])
	assert.True(t, strings.HasPrefix(first.Content, "erro: not_found: "), first.Content)

	second := toolResponseOf(t, model.calls[2][5])
	assert.Equal(t, "erro: validation_failure: dataNatural: is required", second.Content)
}

func TestAsk_Failures(t *testing.T) {
	endless := toolCall("call", "busca_eventos", `{}`)

	tests := []struct {
		name      string
		responses []func([]llms.MessageContent) (*llms.ContentResponse, error)
		maxSteps  int
		wantKind  failure.Kind
		wantMsg   string
	}{
		{
			name:      "model error",
			responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){fail(errors.New("rate limited"))},
			wantKind:  failure.KindAgent,
			wantMsg:   "rate limited",
		},
		{
			name:      "empty answer",
			responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){answer("  ")},
			wantKind:  failure.KindAgent,
			wantMsg:   "empty answer",
		},
		{
			name: "no choices",
			responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){
				func([]llms.MessageContent) (*llms.ContentResponse, error) { return &llms.ContentResponse{}, nil },
			},
			wantKind: failure.KindAgent,
			wantMsg:  "no choices",
		},
		{
			name:      "too many steps",
			responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){endless},
			maxSteps:  3,
			wantKind:  failure.KindAgent,
			wantMsg:   "after 3 model calls",
		},
		{
			name:      "upstream deadline",
			responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){fail(context.DeadlineExceeded)},
			wantKind:  failure.KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newCalendarRegistry(t)
			model := &scriptedModel{responses: tt.responses}
			a := newTestAgent(t, Config{MaxSteps: tt.maxSteps}, model, r)

			got, err := a.Ask(context.Background(), "oi")
			require.Error(t, err)
			assert.Empty(t, got)
			assert.Equal(t, tt.wantKind, failure.KindOf(err))
			assert.Contains(t, failure.Message(err), tt.wantMsg)
		})
	}
}

func TestAsk_ContextDeadline(t *testing.T) {
	r, _ := newCalendarRegistry(t)
	model := &scriptedModel{responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){answer("tarde demais")}}
	a := newTestAgent(t, Config{}, model, r)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := a.Ask(ctx, "oi")
	require.Error(t, err)
	assert.Equal(t, failure.KindTimeout, failure.KindOf(err))
}

func TestAsk_Canceled(t *testing.T) {
	r, _ := newCalendarRegistry(t)
	model := &scriptedModel{responses: []func([]llms.MessageContent) (*llms.ContentResponse, error){answer("nunca")}}
	a := newTestAgent(t, Config{}, model, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Ask(ctx, "oi")
	require.Error(t, err)
	assert.Equal(t, failure.KindAgent, failure.KindOf(err))
}
