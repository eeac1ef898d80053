package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checks(r *Result) []string {
	var out []string
	for _, issue := range r.Issues {
		out = append(out, issue.Check)
	}
	return out
}

func TestLintCleanForm(t *testing.T) {
	form := `{
		"id": "f",
		"phases": [{"id": "p", "sections": [{"id": "s", "fields": [
			{"id": "kind", "type": "radio", "options": [
				{"value": "A"},
				{"value": "B", "triggers": [{"id": "t1", "type": "section", "fields": [{"id": "detail", "type": "text"}]}]}
			]},
			{"id": "shade", "type": "checkbox", "options": [{"value": "x"}],
			 "dependency": [{"type": "options", "path": ["p", "s", "kind"]}]},
			{"id": "why", "type": "text",
			 "dependency": [{"type": "visibility", "path": ["p", "s", "t1", "detail"]}]},
			{"id": "sub", "type": "subformwtable", "phases": [{"id": "rp", "sections": [{"id": "rs", "fields": [
				{"id": "x", "type": "text"},
				{"id": "y", "type": "text", "dependency": [{"type": "visibility", "path": ["p", "s", "sub", "*", "rp", "rs", "x"]}]}
			]}]}]}
		]}]}]
	}`

	result, err := Run(form)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
}

func TestLintChecks(t *testing.T) {
	tests := []struct {
		name  string
		form  string
		valid bool
		want  []string
	}{
		{
			name: "duplicate field ids",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
				{"id": "a", "type": "text"}, {"id": "a", "type": "number"}
			]}]}]}`,
			want: []string{CheckDuplicateID},
		},
		{
			name: "trigger id shadows field id",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
				{"id": "a", "type": "text", "triggers": [{"id": "a", "fields": []}]}
			]}]}]}`,
			want: []string{CheckDuplicateID},
		},
		{
			name: "missing ids",
			form: `{"phases": [{"sections": []}]}`,
			want: []string{CheckMissingID, CheckMissingID},
		},
		{
			name: "malformed containers",
			form: `{"id": "f", "phases": [{"id": "p", "sections": "no"}, {"id": "q", "sections": [{"id": "s", "fields": [1]}]}]}`,
			want: []string{CheckMalformed, CheckMalformed},
		},
		{
			name:  "unknown field type",
			form:  `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [{"id": "a", "type": "slider"}]}]}]}`,
			valid: true,
			want:  []string{CheckUnknownType},
		},
		{
			name: "unresolved dependency",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
				{"id": "a", "type": "text", "dependency": [{"type": "visibility", "path": ["p", "s", "ghost"]}]}
			]}]}]}`,
			want: []string{CheckUnresolvedPath},
		},
		{
			name: "unresolved exclude path",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
				{"id": "docs", "type": "filesupload"},
				{"id": "pick", "type": "fileselect",
				 "dependency": [{"type": "files", "path": ["p", "s", "docs"], "exclude": [["p", "s", "ghost"]]}]}
			]}]}]}`,
			want: []string{CheckUnresolvedPath},
		},
		{
			name:  "unknown dependency type",
			form:  `{"id": "f", "phases": [{"id": "p", "dependency": [{"type": "magic", "path": ["p"]}], "sections": []}]}`,
			valid: true,
			want:  []string{CheckDependencyType},
		},
		{
			name: "options dependency on text field",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
				{"id": "name", "type": "text"},
				{"id": "pick", "type": "radio", "options": [{"value": "x"}],
				 "dependency": [{"type": "options", "path": ["p", "s", "name"]}]}
			]}]}]}`,
			want: []string{CheckOptionsTarget},
		},
		{
			name:  "select without options",
			form:  `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [{"id": "a", "type": "dropdown-multi-select"}]}]}]}`,
			valid: true,
			want:  []string{CheckNoOptions},
		},
		{
			name:  "sub-form without phases",
			form:  `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [{"id": "a", "type": "subformwtable"}]}]}]}`,
			valid: true,
			want:  []string{CheckEmptySubform},
		},
		{
			name:  "mistyped field member",
			form:  `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [{"id": "a", "type": "text", "minimum": "two"}]}]}]}`,
			valid: true,
			want:  []string{CheckInvalidMember},
		},
		{
			name: "trigger with another shape",
			form: `{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
				{"id": "a", "type": "text", "triggers": [{"id": "t", "type": "modal"}]}
			]}]}]}`,
			valid: true,
			want:  []string{CheckTriggerShape},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(tt.form)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, "issues: %+v", result.Issues)
			assert.Equal(t, tt.want, checks(result))
		})
	}
}

func TestLintIssuePaths(t *testing.T) {
	result, err := Run(`{"id": "f", "phases": [{"id": "p", "sections": [{"id": "s", "fields": [
		{"id": "sub", "type": "subformwtable", "phases": [{"id": "rp", "sections": [{"id": "rs", "fields": [
			{"id": "y", "type": "text", "dependency": [{"type": "visibility", "path": ["p", "s", "sub", "*", "rp", "rs", "x"]}]}
		]}]}]}
	]}]}]}`)
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "f.p.s.sub.*.rp.rs.y", result.Issues[0].Path)
	assert.Equal(t, "error", result.Issues[0].Severity)
}

func TestLintParseError(t *testing.T) {
	_, err := Run(`{"id": `)
	assert.Error(t, err)
}
