package formwalk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlovans/formwalk/internal/testutil"
)

func TestSessionResetsOnNewAnswers(t *testing.T) {
	form := mustForm(t, intakeForm)
	s := NewSession(form, WithLogger(testutil.NewTestLogger(t)))

	assert.Equal(t, []string{"f.p1.s1.age", "f.p1.s1.t1.detail"}, s.Required(Answers{"f.p1.s1.kind": {"B"}}))
	assert.Equal(t, []string{"f.p1.s1.age", "f.p1.s1.secret"}, s.Required(Answers{"f.p1.s1.kind": {"A"}}))
}

func TestSessionKeepsCacheForSameAnswers(t *testing.T) {
	form := mustForm(t, intakeForm)
	s := NewSession(form)

	s.Required(intakeAnswers())
	cached := s.required.Len()
	require.NotZero(t, cached)

	s.Walk(intakeAnswers(), nil)
	assert.Equal(t, cached, s.required.Len())

	s.Reset()
	assert.Zero(t, s.required.Len())
	assert.Zero(t, s.index.Len())
}

func TestSessionInvalidate(t *testing.T) {
	form := mustForm(t, peopleForm)
	s := NewSession(form)
	answers := Answers{
		"f.p.s.gate":             {"open"},
		"f.p.s.sub.row0.rp.rs.x": {"a"},
	}
	sub := form.Phases[0].Sections[0].Fields[1]
	row := ParsePath("f.p.s.sub.row0")

	s.Required(answers)
	assert.Equal(t, []string{"f.p.s.sub.row0.rp.rs.x", "f.p.s.sub.row0.rp.rs.y"}, s.RequiredIn(sub.Phases, row, answers))

	answers["f.p.s.sub.row0.rp.rs.x"] = []any{"b"}
	assert.Equal(t, 2, s.Invalidate("f.p.s.sub.row0"))
	assert.Equal(t, []string{"f.p.s.sub.row0.rp.rs.x"}, s.RequiredIn(sub.Phases, row, answers))
}

func TestWalkIsIdempotentAndPure(t *testing.T) {
	form := mustForm(t, peopleForm)
	answers := Answers{
		"f.p.s.gate":             {"open"},
		"f.p.s.sub.row0.rp.rs.x": {"a"},
		"f.p.s.sub.row1.rp.rs.y": {"b"},
	}
	external := map[string]any{"people": map[string]any{"row0": map[string]any{"x": []any{"old"}}}}

	formBefore, err := json.Marshal(form)
	require.NoError(t, err)
	answersBefore, err := json.Marshal(answers)
	require.NoError(t, err)

	s := NewSession(form)
	first := s.Walk(answers, external)
	second := s.Walk(answers, external)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Walk(form, answers, external))

	formAfter, err := json.Marshal(form)
	require.NoError(t, err)
	answersAfter, err := json.Marshal(answers)
	require.NoError(t, err)
	assert.JSONEq(t, string(formBefore), string(formAfter))
	assert.JSONEq(t, string(answersBefore), string(answersAfter))

	// Mutating the output must not reach the input.
	first.Flat["x"][0][0] = "changed"
	assert.Equal(t, []any{"a"}, answers["f.p.s.sub.row0.rp.rs.x"])
}

func TestRun(t *testing.T) {
	out, err := Run(intakeForm, `{"f.p1.s1.age": [30], "f.p1.s1.kind": ["B"], "f.p1.s1.t1.detail": ["x"]}`, "")
	require.NoError(t, err)

	var result Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, [][]any{{float64(30)}}, result.Flat["age"])
	assert.Contains(t, result.Metadata, "applicant")
	assert.Empty(t, result.Constructed)
	assert.NotContains(t, out, "diagnostics")
}

func TestRunWithExternal(t *testing.T) {
	out, err := Run(intakeForm, "", `{"applicant": {"age": [55]}}`)
	require.NoError(t, err)

	var result Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, map[string][]any{"f.p1.s1.age": {float64(55)}}, result.Constructed)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name                    string
		form, answers, external string
		wantErr                 string
	}{
		{"bad form", `{`, "", "", "unmarshal form"},
		{"bad answers", intakeForm, `{"a": 1}`, "", "unmarshal answers"},
		{"bad external", intakeForm, "", `[`, "unmarshal external"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.form, tt.answers, tt.external)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunRequired(t *testing.T) {
	out, err := RunRequired(intakeForm, `{"f.p1.s1.kind": ["B"]}`)
	require.NoError(t, err)

	var paths []string
	require.NoError(t, json.Unmarshal([]byte(out), &paths))
	assert.Equal(t, []string{"f.p1.s1.age", "f.p1.s1.t1.detail"}, paths)

	out, err = RunRequired(`{"id": "f", "phases": []}`, "")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}
