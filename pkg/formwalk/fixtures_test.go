package formwalk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// intakeForm has a radio whose "B" option triggers a section, and a text
// field shown only when "A" is picked.
const intakeForm = `{
  "id": "f",
  "title": "Intake",
  "phases": [{
    "id": "p1",
    "metadata": {"id": "applicant"},
    "sections": [{
      "id": "s1",
      "fields": [
        {"id": "age", "type": "number", "required": true, "metadata": {"id": "age"}},
        {"id": "kind", "type": "radio", "metadata": {"id": "kind"}, "options": [
          {"value": "A"},
          {"value": "B", "triggers": [{
            "id": "t1", "type": "section",
            "fields": [{"id": "detail", "type": "text", "required": true, "metadata": {"id": "detail"}}]
          }]}
        ]},
        {"id": "secret", "type": "text", "required": true,
         "dependency": [{"type": "visibility", "path": ["p1", "s1", "kind"], "answers": [["A"]]}]}
      ]
    }]
  }]
}`

// peopleForm repeats a row phase through a subformwtable field. Inside a row,
// y is shown only when x in the same row is "a".
const peopleForm = `{
  "id": "f",
  "phases": [{
    "id": "p",
    "sections": [{
      "id": "s",
      "fields": [
        {"id": "gate", "type": "text"},
        {"id": "sub", "type": "subformwtable", "metadata": {"id": "people"},
         "dependency": [{"type": "visibility", "path": ["p", "s", "gate"]}],
         "phases": [{
           "id": "rp",
           "sections": [{
             "id": "rs",
             "fields": [
               {"id": "x", "type": "text", "required": true, "metadata": {"id": "x"}},
               {"id": "y", "type": "text", "required": true, "metadata": {"id": "y"},
                "dependency": [{"type": "visibility", "path": ["p", "s", "sub", "*", "rp", "rs", "x"], "answers": [["a"]]}]}
             ]
           }]
         }]}
      ]
    }]
  }]
}`

// filesForm selects among uploaded files; each selection triggers a section.
const filesForm = `{
  "id": "f",
  "phases": [{
    "id": "p",
    "sections": [{
      "id": "s",
      "fields": [
        {"id": "docs", "type": "filesupload"},
        {"id": "used", "type": "text"},
        {"id": "pick", "type": "fileselect",
         "dependency": [{"type": "files", "path": ["p", "s", "docs"], "exclude": [["p", "s", "used"]]}],
         "triggers": [{"id": "ft", "title": "Details for ", "type": "section",
                       "fields": [{"id": "note", "type": "text"}]}]}
      ]
    }]
  }]
}`

func mustForm(t testing.TB, src string) *Form {
	t.Helper()
	form, err := ParseForm([]byte(src))
	require.NoError(t, err)
	return form
}

func file(id, name string) map[string]any {
	return map[string]any{"id": id, "name": name, "type": "application/pdf"}
}
