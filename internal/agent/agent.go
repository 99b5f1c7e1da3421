package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/agenda/internal/failure"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
	"github.com/teemow/agenda/internal/tools/common"
)

// ToolExecutor is the tool surface the agent offers to the model.
// *common.Registry implements it.
type ToolExecutor interface {
	LLMTools() []llms.Tool
	Execute(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Agent answers one utterance at a time. It keeps no conversation state
// and is safe for concurrent use.
type Agent struct {
	cfg     Config
	model   llms.Model
	tools   ToolExecutor
	now     func() time.Time
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithClock replaces time.Now as the source of the date context.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		a.now = now
	}
}

// WithMetrics records agent runs on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates an Agent. cfg is copied.
func New(cfg Config, model llms.Model, tools ToolExecutor, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, fmt.Errorf("agent needs a model")
	}
	if tools == nil {
		return nil, fmt.Errorf("agent needs tools")
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:    cfg,
		model:  model,
		tools:  tools,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.WithOperation(a.logger, "agent")
	return a, nil
}

// Config returns a copy of the agent's configuration.
func (a *Agent) Config() Config {
	return a.cfg
}

// Augment returns the text sent to the model for utterance. With the date
// context enabled it reads
// "<utterance>. Tenha noção da data e horário atual: dd/mm/aaaa hh:mm:ss.".
func (a *Agent) Augment(utterance string) string {
	if !a.cfg.DateContext {
		return utterance
	}
	current := a.now().In(a.cfg.Location).Format(dateContextLayout)
	return fmt.Sprintf("%s. Tenha noção da data e horário atual: %s.", utterance, current)
}

// Ask runs utterance through the model and returns its final answer
// verbatim. Failures are agent failures, or timeouts when ctx expires.
func (a *Agent) Ask(ctx context.Context, utterance string) (string, error) {
	requestID := logging.RequestIDFromContext(ctx)

	ctx, span := instrumentation.StartAgentSpan(ctx,
		instrumentation.NewSpanAttributeBuilder().
			WithRequestID(requestID).
			WithModel(a.cfg.Provider, a.cfg.Model).
			Build()...)
	defer span.End()
	span.SetAttributes(attribute.Bool(instrumentation.SpanAttrDateContext, a.cfg.DateContext))

	logger := logging.WithRequestID(a.logger, requestID)
	logger.DebugContext(ctx, "agent run started", logging.Question(utterance))

	start := time.Now()
	answer, steps, err := a.run(ctx, a.Augment(utterance))
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	kind := ""
	if err != nil {
		err = classify(ctx, err)
		status = instrumentation.StatusError
		kind = string(failure.KindOf(err))
		instrumentation.SetSpanError(span, err, kind)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	a.metrics.RecordAgentRun(ctx, a.cfg.Provider, status, kind, steps, duration)

	logger.InfoContext(ctx, "agent run finished",
		logging.Model(a.cfg.Provider, a.cfg.Model),
		slog.Int("question_length", utf8.RuneCountInString(utterance)),
		slog.Int("tool_steps", steps),
		logging.Status(status),
		logging.Duration(duration),
		slog.String("trace_id", instrumentation.GetTraceID(ctx)),
		logging.Err(err))

	if err != nil {
		return "", err
	}
	return answer, nil
}

// run is the tool loop. It returns the final answer and the number of tool
// calls executed.
func (a *Agent) run(ctx context.Context, prompt string) (string, int, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, a.cfg.Instructions),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	opts := []llms.CallOption{llms.WithTools(a.tools.LLMTools())}
	if a.cfg.Model != "" {
		opts = append(opts, llms.WithModel(a.cfg.Model))
	}
	if a.cfg.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(a.cfg.Temperature))
	}

	steps := 0
	for call := 0; call < a.cfg.MaxSteps; call++ {
		if err := ctx.Err(); err != nil {
			return "", steps, err
		}

		resp, err := a.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return "", steps, fmt.Errorf("model call failed: %w", err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return "", steps, failure.Agentf("model returned no choices")
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			if strings.TrimSpace(choice.Content) == "" {
				return "", steps, failure.Agentf("model returned an empty answer")
			}
			return choice.Content, steps, nil
		}

		instrumentation.AddSpanEvent(trace.SpanFromContext(ctx), "tool_calls",
			attribute.Int("count", len(choice.ToolCalls)))

		messages = append(messages, assistantMessage(choice))
		for _, tc := range choice.ToolCalls {
			steps++
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       toolName(tc),
						Content:    a.callTool(ctx, tc),
					},
				},
			})
		}
	}

	return "", steps, failure.Agentf("no final answer after %d model calls", a.cfg.MaxSteps)
}

// callTool executes one tool call and renders the outcome for the model.
// Failures are reported back as text so the model can recover.
func (a *Agent) callTool(ctx context.Context, tc llms.ToolCall) string {
	if tc.FunctionCall == nil {
		return common.FormatError(failure.Validation("tool", "tool call without a function"))
	}

	result, err := a.tools.Execute(ctx, tc.FunctionCall.Name, json.RawMessage(tc.FunctionCall.Arguments))
	if err != nil {
		a.logger.DebugContext(ctx, "tool call failed",
			logging.Tool(tc.FunctionCall.Name),
			logging.FailureKind(string(failure.KindOf(err))),
			logging.Err(err))
		return common.FormatError(err)
	}

	text, err := common.EncodeResult(result)
	if err != nil {
		return common.FormatError(err)
	}
	return text
}

func assistantMessage(choice *llms.ContentChoice) llms.MessageContent {
	parts := make([]llms.ContentPart, 0, len(choice.ToolCalls)+1)
	if choice.Content != "" {
		parts = append(parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		parts = append(parts, tc)
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts}
}

func toolName(tc llms.ToolCall) string {
	if tc.FunctionCall == nil {
		return ""
	}
	return tc.FunctionCall.Name
}

// classify maps a run error onto the failure taxonomy.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure.Timeout(err)
	}
	if failure.Is(err, failure.KindAgent) {
		return err
	}
	return failure.Agent(err)
}
