package survey

import (
	"encoding/json"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
	"github.com/xeipuuv/gojsonschema"
)

// Guardrails rejects tool calls the survey does not expose or whose arguments
// do not match the tool schema.
type Guardrails struct {
	allowlist     map[string][]byte // tool name -> JSON schema
	jsonValidator *JSONValidator
}

// NewGuardrails creates guardrails allowing the given tools.
func NewGuardrails(allowed ...ports.Tool) *Guardrails {
	g := &Guardrails{
		allowlist:     make(map[string][]byte, len(allowed)),
		jsonValidator: NewJSONValidator(),
	}
	for _, t := range allowed {
		g.AddAllowedTool(t)
	}
	return g
}

// AddAllowedTool adds a tool to the allowlist.
func (g *Guardrails) AddAllowedTool(t ports.Tool) {
	g.allowlist[t.Name()] = t.Schema()
}

// ValidateToolCall checks that a tool call is allowed and well-formed.
func (g *Guardrails) ValidateToolCall(call ports.ToolCall) error {
	if call.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	schema, ok := g.allowlist[call.Name]
	if !ok {
		return fmt.Errorf("tool %s is not in allowlist", call.Name)
	}
	return g.jsonValidator.Validate(call.Args, schema)
}

// JSONValidator handles JSON schema validation.
type JSONValidator struct{}

func NewJSONValidator() *JSONValidator {
	return &JSONValidator{}
}

// Validate checks if JSON data conforms to a schema. An empty schema only
// requires valid JSON.
func (v *JSONValidator) Validate(data json.RawMessage, schema []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("data is not valid JSON")
	}
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
