package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/tmc/langchaingo/llms"

	"github.com/teemow/agenda/internal/failure"
)

// Handler runs a tool on its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Typed adapts a handler taking a static argument struct. Arguments are
// decoded with encoding/json, so optional fields declared as pointers stay
// nil when absent or null.
func Typed[T any](fn func(ctx context.Context, args T) (any, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args T
		if err := decodeArguments(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

// Tool is a declared tool: its schema and its handler.
type Tool struct {
	Schema  mcp.Tool
	Handler Handler
}

// Name returns the tool name.
func (t Tool) Name() string {
	return t.Schema.Name
}

// Registry holds the tools in registration order. It is filled once at
// startup and read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*argumentSchema
	order   []string
	inst    *Instrumentation
}

// NewRegistry creates an empty registry. inst may be nil.
func NewRegistry(inst *Instrumentation) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*argumentSchema),
		inst:    inst,
	}
}

// Register adds tools to the registry. Names must be unique and input
// schemas must compile.
func (r *Registry) Register(tools ...Tool) error {
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return fmt.Errorf("tool has no name")
		}
		if t.Handler == nil {
			return fmt.Errorf("tool %s has no handler", name)
		}
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("tool %s registered twice", name)
		}
		schema, err := compileSchema(name, t.Schema.InputSchema)
		if err != nil {
			return err
		}
		r.tools[name] = t
		r.schemas[name] = schema
		r.order = append(r.order, name)
	}
	return nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Execute validates args against the schema of the named tool and runs it.
// Validation happens before the handler, so malformed arguments never
// reach the calendar.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, failure.Validation("tool", "unknown tool %q", name)
	}

	schema := r.schemas[name]
	run := func(ctx context.Context, args json.RawMessage) (any, error) {
		if err := schema.validate(args); err != nil {
			return nil, err
		}
		return t.Handler(ctx, normalizeArguments(args))
	}
	return Instrumented(name, r.inst, run)(ctx, args)
}

// LLMTools returns the tools as langchaingo function definitions.
func (r *Registry) LLMTools() []llms.Tool {
	tools := make([]llms.Tool, 0, len(r.order))
	for _, t := range r.Tools() {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Schema.Description,
				Parameters:  parameters(t.Schema.InputSchema),
			},
		})
	}
	return tools
}

// parameters renders an input schema as a plain JSON schema map.
func parameters(schema mcp.ToolInputSchema) map[string]any {
	properties := schema.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	params := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	return params
}

// ToolAdder is the part of *mcpserver.MCPServer RegisterMCP needs.
type ToolAdder interface {
	AddTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc)
}

// RegisterMCP exposes every tool on an MCP server. Failures are returned
// as tool errors carrying the failure kind, not as protocol errors.
func (r *Registry) RegisterMCP(s ToolAdder) {
	for _, t := range r.Tools() {
		name := t.Name()
		s.AddTool(t.Schema, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := json.Marshal(request.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("%s: %v", failure.KindValidation, err)), nil
			}
			result, err := r.Execute(ctx, name, args)
			if err != nil {
				return mcp.NewToolResultError(FormatError(err)), nil
			}
			text, err := EncodeResult(result)
			if err != nil {
				return mcp.NewToolResultError(FormatError(err)), nil
			}
			return mcp.NewToolResultText(text), nil
		})
	}
}

// EncodeResult renders a tool result as JSON text.
func EncodeResult(result any) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}

// FormatError renders a tool failure for the model: "erro: <kind>: <message>".
func FormatError(err error) string {
	return fmt.Sprintf("erro: %s: %s", failure.KindOf(err), failure.Message(err))
}
