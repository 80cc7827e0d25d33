package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fps2me/fpsqr/form"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
	"github.com/fps2me/fpsqr/internal/logger"
	"github.com/fps2me/fpsqr/internal/session"
	"github.com/fps2me/fpsqr/labels"
	"github.com/fps2me/fpsqr/render"
	"github.com/fps2me/fpsqr/rules"
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ruleList, err := s.engine.Rules()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "rules unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Rules:      len(ruleList),
		RulesCache: s.engine.CacheStats(),
		Sessions:   s.sessions.Len(),
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		Counters:   logger.Snapshot(),
	})
}

// Classification handler
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeBody(r, classifySchema, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	st := form.ApplyAll(form.NewState(form.RewriteOnInput), form.Edited{Field: form.FieldPrimary, Value: req.Value})
	id := identifier.New(req.Value, s.engine)

	resp := ClassifyResponse{
		Identifier: id,
		Display:    st.Primary,
		Label:      labels.For(labels.Match(r.Header.Get("Accept-Language"))).Kind(id.Kind),
	}
	if id.Canonical != "" {
		if m := s.engine.Match(id.Canonical); m != nil {
			resp.MatchedRule = m.RuleID
		}
	}
	if req.Confirm != nil {
		pair := identifier.Confirm(req.Value, *req.Confirm)
		resp.Confirmation = &pair
		resp.CanGenerate = id.Classified() && pair.Matches
	}

	respondJSON(w, http.StatusOK, resp)
}

// Generation handler. Encoding failures are reported with state "failed".
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.generate(w, r)
	if !ok {
		return
	}

	printer := labels.For(labels.Match(r.Header.Get("Accept-Language")))
	respondJSON(w, http.StatusOK, GenerateResponse{
		Snapshot: snap,
		Label:    printer.Kind(snap.Kind),
	})
}

// PNG handler
func (s *Server) handleQRImage(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.generate(w, r)
	if !ok {
		return
	}
	if snap.State != generation.StateSucceeded {
		respondError(w, http.StatusUnprocessableEntity, "generation failed", snap.Err())
		return
	}

	png, err := render.PNG(snap.Payload, s.render)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render qr code", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Request-Id", snap.RequestID)
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// generate runs a JSON generation request through the caller's session.
// It writes the error response itself and returns false on failure.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) (generation.Snapshot, bool) {
	var req GenerateRequest
	if err := decodeBody(r, generateSchema, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return generation.Snapshot{}, false
	}

	sess, ok := s.session(w, r)
	if !ok {
		return generation.Snapshot{}, false
	}

	events := []form.Event{
		form.Reset{},
		form.Edited{Field: form.FieldPrimary, Value: req.Value},
		form.Edited{Field: form.FieldConfirm, Value: req.Confirm},
		form.Edited{Field: form.FieldAmount, Value: amountText(req.Amount)},
	}
	if req.Currency != "" {
		events = append(events, form.Edited{Field: form.FieldCurrency, Value: req.Currency})
	}
	events = append(events, form.Blurred{Field: form.FieldPrimary}, form.Blurred{Field: form.FieldConfirm})

	view := form.Project(sess.Apply(events...), s.engine)
	genReq, err := view.Request()
	if err != nil {
		respondValidation(w, err)
		return generation.Snapshot{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Generation.Timeout.Std())
	defer cancel()

	snap, err := sess.Controller.Generate(ctx, genReq)
	switch {
	case errors.Is(err, generation.ErrBusy):
		respondError(w, http.StatusConflict, "generation already in progress", err)
		return snap, false
	case generation.IsValidation(err):
		respondValidation(w, err)
		return snap, false
	}
	return snap, true
}

// session returns the caller's session, creating one and setting the
// cookie when needed
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}

	sess, created, err := s.sessions.GetOrCreate(id)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "no session available", err)
		return nil, false
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(s.cfg.Server.SessionTTL.Std().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, true
}

func respondValidation(w http.ResponseWriter, err error) {
	var ve *generation.ValidationError
	if !errors.As(err, &ve) {
		respondError(w, http.StatusUnprocessableEntity, "validation failed", err)
		return
	}
	respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Field:   ve.Field,
		Details: ve.Reason,
	})
}

// amountText converts the JSON amount to the text the form would hold
func amountText(v any) string {
	switch a := v.(type) {
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	case string:
		return a
	default:
		return ""
	}
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	ruleList, err := s.engine.Rules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}
	if ruleList == nil {
		ruleList = []*rules.Rule{}
	}

	respondJSON(w, http.StatusOK, RulesListResponse{Rules: ruleList})
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := decodeBody(r, ruleSchema, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	kind, err := identifier.ParseKind(req.Kind)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid kind", err)
		return
	}

	rule := &rules.Rule{
		ID:         req.ID,
		Name:       req.Name,
		Expression: req.Expression,
		Kind:       kind,
		Priority:   req.Priority,
		Active:     req.Active == nil || *req.Active,
	}
	if rule.ID == "" {
		rule.ID = "rule_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if rule.Name == "" {
		rule.Name = rule.ID
	}

	// Add rule (this validates and compiles it)
	if err := s.engine.AddRule(rule); err != nil {
		respondError(w, http.StatusBadRequest, "failed to add rule", err)
		return
	}

	logger.Info("rule created", "rule", rule.ID, "kind", rule.Kind, "priority", rule.Priority)
	respondJSON(w, http.StatusCreated, rule)
}

// Update rule handler
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	var req UpdateRuleRequest
	if err := decodeBody(r, ruleSchema, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	kind, err := identifier.ParseKind(req.Kind)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid kind", err)
		return
	}

	existing, err := s.engine.Rule(ruleID)
	if err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	rule := &rules.Rule{
		ID:         ruleID,
		Name:       req.Name,
		Expression: req.Expression,
		Kind:       kind,
		Priority:   req.Priority,
		Active:     req.Active == nil || *req.Active,
	}
	if rule.Name == "" {
		rule.Name = existing.Name
	}

	if err := s.engine.UpdateRule(rule); err != nil {
		respondError(w, http.StatusBadRequest, "failed to update rule", err)
		return
	}

	logger.Info("rule updated", "rule", rule.ID, "kind", rule.Kind, "priority", rule.Priority)
	respondJSON(w, http.StatusOK, rule)
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	if err := s.engine.DeleteRule(ruleID); err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	logger.Info("rule deleted", "rule", ruleID)
	w.WriteHeader(http.StatusNoContent)
}

// Evaluation trace handler
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeBody(r, evaluateSchema, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	canonical := identifier.Normalize(req.Value)
	startTime := time.Now()

	results, err := s.engine.EvaluateAll(canonical)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "evaluation failed", err)
		return
	}
	kind := s.engine.Classify(canonical)

	respondJSON(w, http.StatusOK, newEvaluateResponse(canonical, kind, results, time.Since(startTime)))
}
