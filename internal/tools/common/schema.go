package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/teemow/agenda/internal/failure"
)

// argumentsField is the field reported when the arguments as a whole are unusable.
const argumentsField = "arguments"

// normalizeArguments maps empty input and JSON null to an empty object.
func normalizeArguments(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return trimmed
}

// argumentSchema is the compiled input schema of one tool.
type argumentSchema struct {
	compiled *jsonschema.Schema
	required []string
}

// compileSchema compiles the declared input schema of a tool.
func compileSchema(name string, schema mcp.ToolInputSchema) (*argumentSchema, error) {
	data, err := json.Marshal(parameters(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema of tool %s: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema of tool %s: %w", name, err)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema of tool %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema of tool %s: %w", name, err)
	}
	return &argumentSchema{compiled: compiled, required: schema.Required}, nil
}

// ValidateArguments checks raw against the declared input schema. A null
// value counts as absent, and a required string must not be blank. Fields
// the schema does not declare are ignored.
func ValidateArguments(schema mcp.ToolInputSchema, raw json.RawMessage) error {
	s, err := compileSchema("arguments", schema)
	if err != nil {
		return err
	}
	return s.validate(raw)
}

func (s *argumentSchema) validate(raw json.RawMessage) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(normalizeArguments(raw)))
	if err != nil {
		return failure.Validation(argumentsField, "must be a JSON object: %v", err)
	}

	args, isObject := instance.(map[string]any)
	if isObject {
		for name, value := range args {
			if value == nil {
				delete(args, name)
			}
		}
	}

	if err := s.compiled.Validate(instance); err != nil {
		return schemaFailure(err)
	}

	for _, name := range s.required {
		if v, ok := args[name].(string); ok && strings.TrimSpace(v) == "" {
			return failure.Validation(name, "must not be empty")
		}
	}
	return nil
}

// schemaFailure turns a schema violation into a validation failure naming
// one field. Missing fields are reported before wrong values.
func schemaFailure(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return failure.Validation(argumentsField, "%v", err)
	}

	var missing, invalid []*failure.Error
	for _, leaf := range leaves(ve) {
		switch k := leaf.ErrorKind.(type) {
		case *kind.Required:
			names := append([]string(nil), k.Missing...)
			sort.Strings(names)
			for _, name := range names {
				missing = append(missing, failure.Validation(name, "is required"))
			}
		case *kind.Type:
			field := fieldOf(leaf)
			if field == argumentsField {
				invalid = append(invalid, failure.Validation(field, "must be a JSON object"))
				continue
			}
			invalid = append(invalid, failure.Validation(field, "must be a %s", strings.Join(k.Want, " or ")))
		default:
			invalid = append(invalid, failure.Validation(fieldOf(leaf), "is invalid"))
		}
	}

	if len(missing) > 0 {
		return missing[0]
	}
	if len(invalid) > 0 {
		sort.SliceStable(invalid, func(i, j int) bool { return invalid[i].Field < invalid[j].Field })
		return invalid[0]
	}
	return failure.Validation(argumentsField, "is invalid")
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

// fieldOf names the top-level argument a violation is about.
func fieldOf(ve *jsonschema.ValidationError) string {
	if len(ve.InstanceLocation) == 0 {
		return argumentsField
	}
	return ve.InstanceLocation[0]
}

// decodeArguments decodes validated arguments into the static argument struct.
func decodeArguments(raw json.RawMessage, into any) error {
	err := json.Unmarshal(normalizeArguments(raw), into)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return failure.Validation(typeErr.Field, "must be a %s", typeErr.Type.String())
	}
	return failure.Validation(argumentsField, "must be a JSON object: %v", err)
}
