package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 64 << 10

const draft07 = "http://json-schema.org/draft-07/schema#"

var (
	classifySchema = mustSchema(map[string]any{
		"$schema": draft07,
		"type":    "object",
		"properties": map[string]any{
			"value":   map[string]any{"type": "string", "maxLength": 320},
			"confirm": map[string]any{"type": "string", "maxLength": 320},
		},
		"required":             []string{"value"},
		"additionalProperties": false,
	})

	generateSchema = mustSchema(map[string]any{
		"$schema": draft07,
		"type":    "object",
		"properties": map[string]any{
			"value":    map[string]any{"type": "string", "minLength": 1, "maxLength": 320},
			"confirm":  map[string]any{"type": "string", "maxLength": 320},
			"amount":   map[string]any{"type": []string{"number", "string", "null"}},
			"currency": map[string]any{"type": "string", "maxLength": 8},
		},
		"required":             []string{"value", "confirm"},
		"additionalProperties": false,
	})

	ruleSchema = mustSchema(map[string]any{
		"$schema": draft07,
		"type":    "object",
		"properties": map[string]any{
			"id":         map[string]any{"type": "string", "maxLength": 100},
			"name":       map[string]any{"type": "string", "maxLength": 200},
			"expression": map[string]any{"type": "string", "minLength": 1, "maxLength": 4096},
			"kind":       map[string]any{"type": "string", "minLength": 1},
			"priority":   map[string]any{"type": "integer"},
			"active":     map[string]any{"type": "boolean"},
		},
		"required":             []string{"expression", "kind"},
		"additionalProperties": false,
	})

	evaluateSchema = mustSchema(map[string]any{
		"$schema": draft07,
		"type":    "object",
		"properties": map[string]any{
			"value": map[string]any{"type": "string", "maxLength": 320},
		},
		"required":             []string{"value"},
		"additionalProperties": false,
	})
)

func mustSchema(def map[string]any) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// schemaError lists every schema violation of a request body
type schemaError struct {
	problems []string
}

func (e *schemaError) Error() string {
	return "request body does not match schema: " + strings.Join(e.problems, "; ")
}

// decodeBody validates the request body against schema, then decodes it into v
func decodeBody(r *http.Request, schema *gojsonschema.Schema, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if !result.Valid() {
		se := &schemaError{}
		for _, desc := range result.Errors() {
			se.problems = append(se.problems, desc.String())
		}
		return se
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
