package tables

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/shotlist/internal/table"
)

// Schema is the JSON schema for structured prompt table output.
var Schema = map[string]any{
	"name":   "prompt_table",
	"strict": true,
	"schema": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rows": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"scene": map[string]any{
							"type":        "string",
							"description": "Scene number or identifier as written",
						},
						"shot": map[string]any{
							"type":        "string",
							"description": "Shot identifier, empty when the prompt has none",
						},
						"prompt": map[string]any{
							"type":        "string",
							"description": "Full image prompt text",
						},
					},
					"required":             []string{"scene", "shot", "prompt"},
					"additionalProperties": false,
				},
				"description": "One entry per image prompt, in input order.",
			},
		},
		"required":             []string{"rows"},
		"additionalProperties": false,
	},
}

// Result represents the parsed result of a structured tables call.
type Result struct {
	Rows []table.Record `json:"rows"`
}

// ParseResult decodes validated structured output into records.
func ParseResult(raw json.RawMessage) ([]table.Record, error) {
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode prompt table: %w", err)
	}
	return res.Rows, nil
}
