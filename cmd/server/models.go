package main

import (
	"time"

	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
	"github.com/fps2me/fpsqr/internal/logger"
	"github.com/fps2me/fpsqr/rules"
)

// API Request and Response Models with Swagger annotations

// ClassifyRequest represents the request body for classifying an identifier
type ClassifyRequest struct {
	Value   string  `json:"value" example:"8613812345678" binding:"required"`
	Confirm *string `json:"confirm,omitempty" example:"+86-13812345678"`
} // @name ClassifyRequest

// ClassifyResponse represents a classified identifier
type ClassifyResponse struct {
	Identifier   identifier.Identifier        `json:"identifier"`
	Display      string                       `json:"display" example:"+86-13812345678"`
	Label        string                       `json:"label" example:"Mobile number"`
	MatchedRule  string                       `json:"matchedRule,omitempty" example:"mainland-mobile"`
	Confirmation *identifier.ConfirmationPair `json:"confirmation,omitempty"`
	CanGenerate  bool                         `json:"canGenerate" example:"true"`
} // @name ClassifyResponse

// GenerateRequest represents the request body for generating a payload.
// Amount may be a JSON number or the raw text of the amount field.
type GenerateRequest struct {
	Value    string `json:"value" example:"123456789" binding:"required"`
	Confirm  string `json:"confirm" example:"123456789" binding:"required"`
	Amount   any    `json:"amount,omitempty" example:"50"`
	Currency string `json:"currency,omitempty" example:"HKD"`
} // @name GenerateRequest

// GenerateResponse represents the controller snapshot after a generation
type GenerateResponse struct {
	generation.Snapshot
	Label string `json:"label,omitempty" example:"FPS ID"`
} // @name GenerateResponse

// CreateRuleRequest represents the request body for creating a rule
type CreateRuleRequest struct {
	ID         string `json:"id,omitempty" example:"hk-landline"`
	Name       string `json:"name" example:"Eight digits starting with 2 or 3"`
	Expression string `json:"expression" example:"value.matches(\"^[23][0-9]{7}$\")" binding:"required"`
	Kind       string `json:"kind" example:"mobile" binding:"required"`
	Priority   int    `json:"priority" example:"25"`
	Active     *bool  `json:"active,omitempty" example:"true"`
} // @name CreateRuleRequest

// UpdateRuleRequest represents the request body for updating a rule
type UpdateRuleRequest struct {
	Name       string `json:"name" example:"Eight digits"`
	Expression string `json:"expression" example:"value.matches(\"^[0-9]{8}$\")" binding:"required"`
	Kind       string `json:"kind" example:"mobile" binding:"required"`
	Priority   int    `json:"priority" example:"30"`
	Active     *bool  `json:"active,omitempty" example:"true"`
} // @name UpdateRuleRequest

// RulesListResponse represents the response for listing rules
type RulesListResponse struct {
	Rules []*rules.Rule `json:"rules"`
} // @name RulesListResponse

// EvaluateRequest represents the request body for tracing rule evaluation
type EvaluateRequest struct {
	Value string `json:"value" example:"91234567" binding:"required"`
} // @name EvaluateRequest

// EvaluationResultResponse represents a single rule evaluation result
type EvaluationResultResponse struct {
	RuleID   string          `json:"ruleId" example:"hk-mobile"`
	RuleName string          `json:"ruleName" example:"Eight digits"`
	Kind     identifier.Kind `json:"kind" example:"mobile"`
	Matched  bool            `json:"matched" example:"true"`
	Error    *string         `json:"error,omitempty"`
} // @name EvaluationResultResponse

// EvaluateResponse represents the response for rule evaluation
type EvaluateResponse struct {
	Canonical      string                     `json:"canonical" example:"91234567"`
	Kind           identifier.Kind            `json:"kind" example:"mobile"`
	Results        []EvaluationResultResponse `json:"results"`
	EvaluationTime string                     `json:"evaluationTime" example:"45µs"`
} // @name EvaluateResponse

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error" example:"invalid request body"`
	Details string   `json:"details,omitempty"`
	Field   string   `json:"field,omitempty" example:"confirm"`
	Errors  []string `json:"errors,omitempty"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string           `json:"status" example:"healthy"`
	Rules      int              `json:"rules" example:"4"`
	RulesCache rules.CacheStats `json:"rulesCache"`
	Sessions   int              `json:"sessions" example:"12"`
	Uptime     string           `json:"uptime" example:"3h2m1s"`
	Counters   logger.Counters  `json:"counters"`
} // @name HealthResponse

func newEvaluateResponse(canonical string, kind identifier.Kind, results []*rules.EvaluationResult, took time.Duration) EvaluateResponse {
	resp := EvaluateResponse{
		Canonical:      canonical,
		Kind:           kind,
		Results:        make([]EvaluationResultResponse, 0, len(results)),
		EvaluationTime: took.String(),
	}
	for _, r := range results {
		item := EvaluationResultResponse{
			RuleID:   r.RuleID,
			RuleName: r.RuleName,
			Kind:     r.Kind,
			Matched:  r.Matched,
		}
		if r.Error != nil {
			msg := r.Error.Error()
			item.Error = &msg
		}
		resp.Results = append(resp.Results, item)
	}
	return resp
}
