package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxStructuredRepairAttempts limits how many times a caller asks the model
// to fix output that failed validation.
const maxStructuredRepairAttempts = 2

// maxRepairEcho bounds how much of the rejected output is sent back.
const maxRepairEcho = 12000

// ParseStructured extracts JSON from content and validates it against the
// request's schema. Failures wrap ErrMalformedResponse.
func ParseStructured(rf *ResponseFormat, content string) (json.RawMessage, error) {
	var so *structuredSchema
	if rf != nil && len(rf.JSONSchema) > 0 {
		var err error
		if so, err = compileStructured(rf.JSONSchema); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	doc, err := decodeJSONOutput(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if so != nil {
		if doc, err = so.validate(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: re-encode output: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// structuredSchema is a compiled response schema.
type structuredSchema struct {
	schema *jsonschema.Schema
	// listKey is set when the schema is an object whose only required
	// property is an array; a bare array is accepted as that property.
	listKey string
}

// compiled schemas by their raw text
var schemaCache sync.Map

func compileStructured(raw json.RawMessage) (*structuredSchema, error) {
	if cached, ok := schemaCache.Load(string(raw)); ok {
		return cached.(*structuredSchema), nil
	}

	doc, err := unwrapSchema(raw)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	schema, err := c.Compile("response.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	so := &structuredSchema{schema: schema, listKey: listKey(doc)}
	schemaCache.Store(string(raw), so)
	return so, nil
}

func (s *structuredSchema) validate(doc any) (any, error) {
	if arr, ok := doc.([]any); ok && s.listKey != "" {
		doc = map[string]any{s.listKey: arr}
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("output does not match schema: %w", err)
	}
	return doc, nil
}

// unwrapSchema returns the schema document from the wrappers providers use:
// {"name","strict","schema":{...}} and {"type":"json_schema","json_schema":{"schema":{...}}}.
func unwrapSchema(raw json.RawMessage) (map[string]any, error) {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}
	if inner, ok := root["schema"].(map[string]any); ok {
		return inner, nil
	}
	if js, ok := root["json_schema"].(map[string]any); ok {
		if inner, ok := js["schema"].(map[string]any); ok {
			return inner, nil
		}
	}
	return root, nil
}

func listKey(schema map[string]any) string {
	if schema["type"] != "object" {
		return ""
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 {
		return ""
	}
	key, _ := required[0].(string)
	props, _ := schema["properties"].(map[string]any)
	prop, _ := props[key].(map[string]any)
	if prop["type"] != "array" {
		return ""
	}
	return key
}

// decodeJSONOutput decodes model output that should be JSON. It tries the
// text as-is, then without a markdown code fence, then the outermost object
// or array found in surrounding prose.
func decodeJSONOutput(content string) (any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty output")
	}

	var lastErr error
	for _, candidate := range []string{content, unfence(content), outermostJSON(content)} {
		if candidate == "" {
			continue
		}
		var doc any
		if lastErr = json.Unmarshal([]byte(candidate), &doc); lastErr == nil {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("output is not JSON: %v", lastErr)
}

func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	_, body, ok := strings.Cut(s, "\n")
	if !ok {
		return ""
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

func outermostJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func structuredRepairPrompt(schemaRaw json.RawMessage, lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > maxRepairEcho {
		lastOutput = lastOutput[:maxRepairEcho] + "\n...[truncated]"
	}

	return fmt.Sprintf(`Your previous answer could not be used. Reply with JSON only, no markdown fences and no commentary, matching this schema exactly.

Schema:
%s

Previous answer:
%s

Validation issue:
%v`, schemaRaw, lastOutput, issue)
}
