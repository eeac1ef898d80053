package formwalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intakeAnswers() Answers {
	return Answers{
		"f.p1.s1.age":       {float64(30)},
		"f.p1.s1.kind":      {"B"},
		"f.p1.s1.t1.detail": {"x"},
	}
}

func TestWalkSimpleForm(t *testing.T) {
	form := mustForm(t, `{"id": "f", "phases": [{"id": "p1", "sections": [{"id": "s1", "fields": [
		{"id": "age", "type": "number", "required": true}
	]}]}]}`)

	result := Walk(form, Answers{"f.p1.s1.age": {float64(30)}}, nil)

	assert.Equal(t, map[string]any{
		"p1": map[string]any{"s1": map[string]any{"age": []any{float64(30)}}},
	}, result.Nested)
	assert.Equal(t, map[string][][]any{"age": {{float64(30)}}}, result.Flat)
	assert.Equal(t, result.Nested, result.Possible)
	assert.Empty(t, result.Metadata)
	assert.Empty(t, result.Constructed)
	assert.Empty(t, result.Diagnostics)
}

func TestWalkIntake(t *testing.T) {
	result := Walk(mustForm(t, intakeForm), intakeAnswers(), nil)

	t.Run("nested holds rendered answers with triggers at section level", func(t *testing.T) {
		assert.Equal(t, map[string]any{
			"p1": map[string]any{"s1": map[string]any{
				"age":  []any{float64(30)},
				"kind": []any{"B"},
				"t1":   map[string]any{"detail": []any{"x"}},
			}},
		}, result.Nested)
	})

	t.Run("possible keeps hidden fields and unselected branches", func(t *testing.T) {
		s1 := result.Possible["p1"].(map[string]any)["s1"].(map[string]any)
		assert.Equal(t, []any{}, s1["secret"])
		assert.Equal(t, map[string]any{"detail": []any{"x"}}, s1["t1"])
	})

	t.Run("flat has one entry per rendered occurrence", func(t *testing.T) {
		assert.Equal(t, map[string][][]any{
			"age":    {{float64(30)}},
			"kind":   {{"B"}},
			"detail": {{"x"}},
		}, result.Flat)
	})

	t.Run("metadata nests under the phase bucket", func(t *testing.T) {
		assert.Equal(t, map[string]any{
			"applicant": map[string]any{
				"age":    []any{float64(30)},
				"kind":   []any{"B"},
				"detail": []any{"x"},
			},
		}, result.Metadata)
	})
}

func TestWalkUnselectedTriggerOnlyInPossible(t *testing.T) {
	answers := intakeAnswers()
	answers["f.p1.s1.kind"] = []any{"A"}

	result := Walk(mustForm(t, intakeForm), answers, nil)

	s1 := result.Nested["p1"].(map[string]any)["s1"].(map[string]any)
	assert.NotContains(t, s1, "t1")
	assert.NotContains(t, result.Flat, "detail")

	possible := result.Possible["p1"].(map[string]any)["s1"].(map[string]any)
	assert.Equal(t, map[string]any{"detail": []any{"x"}}, possible["t1"])
}

func TestWalkEmptyAnswers(t *testing.T) {
	form := mustForm(t, `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
		{"id": "name", "type": "text"},
		{"id": "gated", "type": "text", "dependency": [{"type": "visibility", "path": ["p", "s", "name"]}]}
	]}]}]}`)

	result := Walk(form, Answers{}, nil)

	assert.Empty(t, result.Metadata)
	assert.Empty(t, result.Nested)
	assert.Empty(t, result.Flat)
	assert.Equal(t, map[string]any{
		"p": map[string]any{"s": map[string]any{
			"name":  []any{},
			"gated": []any{},
		}},
	}, result.Possible)
}

func TestWalkSubformRows(t *testing.T) {
	answers := Answers{
		"f.p.s.gate":             {"open"},
		"f.p.s.sub.row0.rp.rs.x": {"a"},
		"f.p.s.sub.row1.rp.rs.x": {"c"},
		"f.p.s.sub.row1.rp.rs.y": {"b"},
	}
	result := Walk(mustForm(t, peopleForm), answers, nil)

	s := result.Nested["p"].(map[string]any)["s"].(map[string]any)
	assert.Equal(t, map[string]any{
		"row0": map[string]any{"rp": map[string]any{"rs": map[string]any{"x": []any{"a"}}}},
		"row1": map[string]any{"rp": map[string]any{"rs": map[string]any{"x": []any{"c"}}}},
	}, s["sub"])

	possible := result.Possible["p"].(map[string]any)["s"].(map[string]any)["sub"].(map[string]any)
	assert.Len(t, possible, 2)
	row1 := possible["row1"].(map[string]any)["rp"].(map[string]any)["rs"].(map[string]any)
	assert.Equal(t, []any{"b"}, row1["y"], "hidden branch still recorded")

	assert.Equal(t, [][]any{{"a"}, {"c"}}, result.Flat["x"])
	assert.NotContains(t, result.Flat, "y")

	assert.Equal(t, map[string]any{
		"people": map[string]any{
			"row0": map[string]any{"x": []any{"a"}, "y": []any{}},
			"row1": map[string]any{"x": []any{"c"}, "y": []any{"b"}},
		},
	}, result.Metadata)
}

func TestWalkHiddenSubformPossibleOnly(t *testing.T) {
	answers := Answers{
		"f.p.s.sub.row0.rp.rs.x": {"a"},
	}
	result := Walk(mustForm(t, peopleForm), answers, map[string]any{
		"people": map[string]any{PossibleAnswersKey: map[string]any{"x": []any{"leak"}}},
	})

	assert.Empty(t, result.Nested)
	assert.Empty(t, result.Flat)
	assert.Empty(t, result.Metadata)

	sub := result.Possible["p"].(map[string]any)["s"].(map[string]any)["sub"].(map[string]any)
	assert.Contains(t, sub, "row0")
	require.Contains(t, sub, PossibleAnswersKey)
	sentinel := sub[PossibleAnswersKey].(map[string]any)["rp"].(map[string]any)["rs"].(map[string]any)
	assert.Equal(t, []any{}, sentinel["x"])

	for path := range result.Constructed {
		assert.NotContains(t, path, PossibleAnswersKey)
	}
}

func TestWalkFileSelectTriggers(t *testing.T) {
	answers := Answers{
		"f.p.s.docs":       {file("f1", "a.pdf"), file("f2", "b.pdf")},
		"f.p.s.pick":       {"f1"},
		"f.p.s.ft_f1.note": {"hello"},
	}
	result := Walk(mustForm(t, filesForm), answers, nil)

	s := result.Nested["p"].(map[string]any)["s"].(map[string]any)
	assert.Equal(t, map[string]any{"note": []any{"hello"}}, s["ft_f1"])
	assert.NotContains(t, s, "ft_f2")
	assert.NotContains(t, s, "ft"+PossibleAnswersKey)

	possible := result.Possible["p"].(map[string]any)["s"].(map[string]any)
	assert.Contains(t, possible, "ft_f1")
	assert.Equal(t, map[string]any{"note": []any{}}, possible["ft"+PossibleAnswersKey])

	assert.Equal(t, [][]any{{"hello"}}, result.Flat["note"])
}

func TestInstantiateTriggerLeavesDefinition(t *testing.T) {
	form := mustForm(t, filesForm)
	trigger := form.Phases[0].Sections[0].Fields[2].Triggers[0]

	clone := InstantiateTrigger(trigger, "f1", "a.pdf")
	assert.Equal(t, "ft_f1", clone.ID)
	assert.Equal(t, "Details for a.pdf", clone.Title)
	assert.Equal(t, "ft", trigger.ID)
	assert.Equal(t, "Details for ", trigger.Title)
}

func TestWalkConstructed(t *testing.T) {
	form := mustForm(t, intakeForm)
	first := Walk(form, intakeAnswers(), nil)

	t.Run("round trip through metadata", func(t *testing.T) {
		result := Walk(form, Answers{}, first.Metadata)
		assert.Equal(t, map[string][]any{
			"f.p1.s1.age":       {float64(30)},
			"f.p1.s1.kind":      {"B"},
			"f.p1.s1.t1.detail": {"x"},
		}, result.Constructed)
	})

	t.Run("partial bundle", func(t *testing.T) {
		result := Walk(form, Answers{}, map[string]any{
			"applicant": map[string]any{"age": []any{float64(41)}},
			"age":       []any{float64(99)},
		})
		assert.Equal(t, map[string][]any{"f.p1.s1.age": {float64(41)}}, result.Constructed)
	})

	t.Run("subform rows", func(t *testing.T) {
		answers := Answers{"f.p.s.gate": {"open"}, "f.p.s.sub.row0.rp.rs.x": {"a"}}
		result := Walk(mustForm(t, peopleForm), answers, map[string]any{
			"people": map[string]any{"row0": map[string]any{"x": []any{"old"}}},
		})
		assert.Equal(t, map[string][]any{"f.p.s.sub.row0.rp.rs.x": {"old"}}, result.Constructed)
	})
}

func TestWalkDiagnostics(t *testing.T) {
	form := mustForm(t, `{"id": "f", "phases": [
		{"id": "p", "sections": "oops"},
		{"id": "q", "sections": [42, {"id": "s", "fields": {}}]},
		{"id": "r", "sections": [{"id": "s", "fields": [{"id": "odd", "type": "hologram"}]}]}
	]}`)

	var result *Result
	require.NotPanics(t, func() { result = Walk(form, Answers{"f.r.s.odd": {"x"}}, nil) })

	assert.Equal(t, []Diagnostic{
		{Path: "f.p", Message: "sections missing or not a list"},
		{Path: "f.q", Message: "skipping invalid section at index 0"},
		{Path: "f.q.s", Message: "fields missing or not a list"},
		{Path: "f.r.s.odd", Message: `unknown field type "hologram"`},
	}, result.Diagnostics)

	assert.Equal(t, [][]any{{"x"}}, result.Flat["odd"], "unknown types still record their answer")
	assert.Contains(t, result.Possible, "p")
}

func TestWalkTextTriggers(t *testing.T) {
	form := mustForm(t, `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
		{"id": "a", "type": "text", "triggers": [{"id": "t", "fields": [{"id": "z", "type": "text", "required": true}]}]}
	]}]}]}`)

	t.Run("non-empty answer renders the trigger", func(t *testing.T) {
		answers := Answers{"f.p.s.a": {"x"}, "f.p.s.t.z": {"zz"}}
		result := Walk(form, answers, nil)

		s := result.Nested["p"].(map[string]any)["s"].(map[string]any)
		assert.Equal(t, map[string]any{"z": []any{"zz"}}, s["t"])
		assert.Equal(t, [][]any{{"zz"}}, result.Flat["z"])
		assert.Equal(t, []string{"f.p.s.t.z"}, Required(form, answers))
	})

	t.Run("empty first answer keeps the trigger possible only", func(t *testing.T) {
		answers := Answers{"f.p.s.a": {""}, "f.p.s.t.z": {"zz"}}
		result := Walk(form, answers, nil)

		s := result.Nested["p"].(map[string]any)["s"].(map[string]any)
		assert.NotContains(t, s, "t")
		assert.NotContains(t, result.Flat, "z")

		possible := result.Possible["p"].(map[string]any)["s"].(map[string]any)
		assert.Equal(t, map[string]any{"z": []any{"zz"}}, possible["t"])
		assert.Empty(t, Required(form, answers))
	})
}

func TestWalkMetadataIDClash(t *testing.T) {
	tests := []struct {
		name string
		form string
	}{
		{
			name: "field bucket before section bucket",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [
				{"id": "s1", "fields": [{"id": "a", "type": "text", "metadata": {"id": "dup"}}]},
				{"id": "s2", "metadata": {"id": "dup"}, "fields": [{"id": "b", "type": "text", "metadata": {"id": "b"}}]}
			]}]}`,
		},
		{
			name: "section bucket before field bucket",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [
				{"id": "s2", "metadata": {"id": "dup"}, "fields": [{"id": "b", "type": "text", "metadata": {"id": "b"}}]},
				{"id": "s1", "fields": [{"id": "a", "type": "text", "metadata": {"id": "dup"}}]}
			]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := mustForm(t, tt.form)
			answers := Answers{"f.p.s1.a": {"A"}, "f.p.s2.b": {"B"}}

			result := Walk(form, answers, nil)
			assert.Equal(t, map[string]any{
				"dup": map[string]any{
					MetadataValuesKey: []any{"A"},
					"b":               []any{"B"},
				},
			}, result.Metadata)

			again := Walk(form, Answers{}, result.Metadata)
			assert.Equal(t, map[string][]any{
				"f.p.s1.a": {"A"},
				"f.p.s2.b": {"B"},
			}, again.Constructed)
		})
	}
}

func TestWalkToleratesMistypedFieldMembers(t *testing.T) {
	form := mustForm(t, `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
		{"id": "a", "type": "text", "required": "yes", "minimum": 1.5},
		{"id": "b", "type": "text", "required": "sometimes"}
	]}]}]}`)

	a := form.Phases[0].Sections[0].Fields[0]
	require.NotNil(t, a)
	assert.True(t, a.Required)
	assert.Equal(t, []string{"minimum"}, a.InvalidMembers)

	answers := Answers{"f.p.s.a": {"A"}, "f.p.s.b": {"B"}}
	result := Walk(form, answers, nil)

	assert.Equal(t, map[string]any{
		"p": map[string]any{"s": map[string]any{
			"a": []any{"A"},
			"b": []any{"B"},
		}},
	}, result.Nested)
	assert.Equal(t, []Diagnostic{
		{Path: "f.p.s.a", Message: "ignoring invalid members minimum"},
		{Path: "f.p.s.b", Message: "ignoring invalid members required"},
	}, result.Diagnostics)
	assert.Equal(t, []string{"f.p.s.a"}, Required(form, answers))
}
