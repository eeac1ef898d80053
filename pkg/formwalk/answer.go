package formwalk

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Answers maps a fully qualified context path to its ordered answer values.
// Values are strings, numbers, booleans, file records or lhs/rhs pairs.
type Answers map[string][]any

// Get returns the answer values at path, or nil when unanswered.
func (a Answers) Get(path string) []any {
	return a[path]
}

// Rows returns the sub-form row indices answered under base: the distinct
// segments that immediately follow base in any answer key.
// Rows are sorted numerically when both indices are integers, lexically otherwise.
func (a Answers) Rows(base Path) []string {
	prefix := base.String() + Separator
	seen := make(map[string]bool)
	var rows []string

	for key := range a {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, Separator); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" || seen[rest] {
			continue
		}
		seen[rest] = true
		rows = append(rows, rest)
	}

	sort.Slice(rows, func(i, j int) bool { return rowLess(rows[i], rows[j]) })
	return rows
}

func rowLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	if (errA == nil) != (errB == nil) {
		return errA == nil // numeric rows first
	}
	return a < b
}

// ParseAnswers decodes an answers document.
func ParseAnswers(data []byte) (Answers, error) {
	var answers Answers
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// FileRecord is the typed view of an uploaded file stored as an answer value.
type FileRecord struct {
	ID       string `json:"id"`
	File     string `json:"file,omitempty"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Type     string `json:"type,omitempty"`
	Language string `json:"language,omitempty"`
	URL      string `json:"url,omitempty"`
}

// AsFileRecord converts an object answer value into a FileRecord.
func AsFileRecord(v any) (FileRecord, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return FileRecord{}, false
	}
	rec := FileRecord{
		ID:       displayString(m["id"]),
		File:     stringOf(m["file"]),
		Name:     stringOf(m["name"]),
		Type:     stringOf(m["type"]),
		Language: stringOf(m["language"]),
		URL:      stringOf(m["url"]),
	}
	if f, ok := toFloat(m["size"]); ok {
		rec.Size = int64(f)
	}
	return rec, true
}

// Pair is the lhs/rhs answer produced by mapper fields.
type Pair struct {
	LHS any `json:"lhs"`
	RHS any `json:"rhs"`
}

// AsPair converts an object answer value into a Pair.
func AsPair(v any) (Pair, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Pair{}, false
	}
	lhs, hasL := m["lhs"]
	rhs, hasR := m["rhs"]
	if !hasL || !hasR {
		return Pair{}, false
	}
	return Pair{LHS: lhs, RHS: rhs}, true
}

// isPrimitive reports whether v is a string, number or boolean.
func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := toFloat(v)
	return ok
}

// isEmptyValue reports whether a first answer value counts as "no answer".
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

// valueKey returns a canonical key for answer comparison.
// Numbers compare by value regardless of Go type; composite values compare by
// their canonical JSON encoding.
func valueKey(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	}
	if f, ok := toFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("x:%v", v)
	}
	return "j:" + string(data)
}

// equalMultiset compares two answer lists ignoring order but counting duplicates.
func equalMultiset(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[valueKey(v)]++
	}
	for _, v := range b {
		k := valueKey(v)
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

// keySet indexes answer values by canonical key.
func keySet(values []any) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[valueKey(v)] = true
	}
	return set
}

// displayString renders an answer value the way ids are written in paths.
func displayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if id, ok := t["id"]; ok {
			return displayString(id)
		}
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toFloat converts the numeric Go types produced by decoders to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func cloneValues(values []any) []any {
	out := make([]any, len(values))
	copy(out, values)
	return out
}
