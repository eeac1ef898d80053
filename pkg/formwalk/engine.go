package formwalk

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zeebo/xxh3"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger routes walk diagnostics and debug traces to logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

// Session evaluates one form, possibly many times.
// It owns the definition index and the required-field cache. Both are reset
// automatically when the answer set differs from the previous call.
//
// A Session is not safe for concurrent use. Independent sessions are.
type Session struct {
	form     *Form
	index    *Index
	required *RequiredCollector
	log      *slog.Logger

	fingerprint uint64
	primed      bool
}

// NewSession creates a session for form.
func NewSession(form *Form, opts ...SessionOption) *Session {
	index := NewIndex(form)
	s := &Session{
		form:     form,
		index:    index,
		required: NewRequiredCollector(form, index),
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Walk evaluates the form against answers and builds every projection.
// external is an optional metadata-keyed bundle of previously known answers
// used for the constructed projection.
func (s *Session) Walk(answers Answers, external map[string]any) *Result {
	s.prepare(answers)
	w := newWalker(s.form, answers, external, s.index, s.log)
	result := w.walkForm()
	s.log.Debug("walk finished",
		"form", s.form.ID,
		"fields", len(result.Flat),
		"diagnostics", len(result.Diagnostics))
	return result
}

// Required returns the context paths of required fields currently visible.
func (s *Session) Required(answers Answers) []string {
	s.prepare(answers)
	return s.RequiredIn(s.form.Phases, NewPath(s.form.ID), answers)
}

// RequiredIn collects required fields below phases addressed from base, for
// example the phases of one sub-form row. Unlike Required it does not check
// whether the answers changed; callers invalidate explicitly.
func (s *Session) RequiredIn(phases []*Phase, base Path, answers Answers) []string {
	paths := s.required.Collect(phases, base, answers)
	if paths == nil {
		paths = []string{}
	}
	return paths
}

// Invalidate drops required-field results at or below base, for use when
// answers under that subtree changed.
func (s *Session) Invalidate(base string) int {
	n := s.required.Invalidate(base)
	s.log.Debug("required cache invalidated", "base", base, "entries", n)
	return n
}

// Reset clears both caches.
func (s *Session) Reset() {
	s.index.Reset()
	s.required.Reset()
	s.primed = false
}

// prepare resets the caches when answers differ from the previous call.
func (s *Session) prepare(answers Answers) {
	fp, ok := fingerprint(answers)
	if ok && s.primed && fp == s.fingerprint {
		return
	}
	if s.primed {
		s.log.Debug("answers changed, resetting caches", "form", s.form.ID)
	}
	s.index.Reset()
	s.required.Reset()
	s.fingerprint = fp
	s.primed = ok
}

// fingerprint hashes the canonical JSON of an answer set. Map keys are
// sorted by encoding/json, so equal answer sets hash equally.
func fingerprint(answers Answers) (uint64, bool) {
	data, err := json.Marshal(answers)
	if err != nil {
		return 0, false
	}
	return xxh3.Hash(data), true
}

// Walk evaluates form against answers in a throwaway session.
func Walk(form *Form, answers Answers, external map[string]any, opts ...SessionOption) *Result {
	return NewSession(form, opts...).Walk(answers, external)
}

// Required lists required visible fields in a throwaway session.
func Required(form *Form, answers Answers, opts ...SessionOption) []string {
	return NewSession(form, opts...).Required(answers)
}

// Run decodes a form definition, an answer set and an optional external
// bundle (empty string for none), walks the form and returns the projections
// as indented JSON.
func Run(formJSON, answersJSON, externalJSON string) (string, error) {
	form, answers, err := decodeInputs(formJSON, answersJSON)
	if err != nil {
		return "", err
	}

	var external map[string]any
	if externalJSON != "" {
		if err := json.Unmarshal([]byte(externalJSON), &external); err != nil {
			return "", fmt.Errorf("unmarshal external: %w", err)
		}
	}

	return marshal(Walk(form, answers, external))
}

// RunRequired decodes a form and answers and returns the required visible
// field paths as indented JSON.
func RunRequired(formJSON, answersJSON string) (string, error) {
	form, answers, err := decodeInputs(formJSON, answersJSON)
	if err != nil {
		return "", err
	}
	return marshal(Required(form, answers))
}

func decodeInputs(formJSON, answersJSON string) (*Form, Answers, error) {
	form, err := ParseForm([]byte(formJSON))
	if err != nil {
		return nil, nil, fmt.Errorf("unmarshal form: %w", err)
	}
	answers := Answers{}
	if answersJSON != "" {
		if answers, err = ParseAnswers([]byte(answersJSON)); err != nil {
			return nil, nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return form, answers, nil
}

func marshal(v any) (string, error) {
	result, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(result), nil
}
