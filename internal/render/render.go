// Package render writes walk results, required-field lists, lint reports and
// snapshot listings as JSON, plain text or tables.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/dlovans/formwalk/internal/config"
	"github.com/dlovans/formwalk/internal/store"
	"github.com/dlovans/formwalk/pkg/formwalk"
	"github.com/dlovans/formwalk/pkg/lint"
)

// Renderer writes output in one format.
type Renderer struct {
	w      io.Writer
	format string

	heading *color.Color
	good    *color.Color
	bad     *color.Color
	warn    *color.Color
}

// New creates a renderer. Colour is enabled only when w is a terminal.
func New(w io.Writer, format string) *Renderer {
	r := &Renderer{
		w:       w,
		format:  format,
		heading: color.New(color.FgCyan, color.Bold),
		good:    color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
	}
	r.SetColor(isTerminal(w))
	return r
}

// SetColor forces colour on or off.
func (r *Renderer) SetColor(on bool) {
	for _, c := range []*color.Color{r.heading, r.good, r.bad, r.warn} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// Result writes the projections of one walk.
func (r *Renderer) Result(res *formwalk.Result) error {
	switch r.format {
	case config.OutputText:
		r.resultText(res)
		return nil
	case config.OutputTable:
		r.resultTable(res)
		return nil
	default:
		return r.json(res)
	}
}

func (r *Renderer) resultText(res *formwalk.Result) {
	r.heading.Fprintln(r.w, "Rendered answers:")
	fields := sortedKeys(res.Flat)
	if len(fields) == 0 {
		fmt.Fprintln(r.w, "  (none)")
	}
	for _, id := range fields {
		for _, values := range res.Flat[id] {
			fmt.Fprintf(r.w, "  %s: %s\n", id, formatValues(values))
		}
	}

	if len(res.Constructed) > 0 {
		r.heading.Fprintln(r.w, "Known from previous answers:")
		for _, path := range sortedKeys(res.Constructed) {
			fmt.Fprintf(r.w, "  %s: %s\n", path, formatValues(res.Constructed[path]))
		}
	}

	r.diagnostics(res.Diagnostics)
}

func (r *Renderer) resultTable(res *formwalk.Result) {
	t := r.newTable()
	t.AppendHeader(table.Row{"Field", "Occurrence", "Values"})
	for _, id := range sortedKeys(res.Flat) {
		for i, values := range res.Flat[id] {
			t.AppendRow(table.Row{id, i + 1, formatValues(values)})
		}
	}
	t.Render()

	if len(res.Constructed) > 0 {
		c := r.newTable()
		c.AppendHeader(table.Row{"Path", "Known value"})
		for _, path := range sortedKeys(res.Constructed) {
			c.AppendRow(table.Row{path, formatValues(res.Constructed[path])})
		}
		c.Render()
	}

	r.diagnostics(res.Diagnostics)
}

func (r *Renderer) diagnostics(diags []formwalk.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	r.warn.Fprintf(r.w, "%d diagnostic(s):\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(r.w, "  %s: %s\n", d.Path, d.Message)
	}
}

// Required writes the required visible field paths.
func (r *Renderer) Required(paths []string) error {
	switch r.format {
	case config.OutputText:
		if len(paths) == 0 {
			r.good.Fprintln(r.w, "No required fields.")
			return nil
		}
		r.heading.Fprintf(r.w, "%d required field(s):\n", len(paths))
		for _, p := range paths {
			fmt.Fprintf(r.w, "  %s\n", p)
		}
		return nil
	case config.OutputTable:
		t := r.newTable()
		t.AppendHeader(table.Row{"#", "Required field"})
		for i, p := range paths {
			t.AppendRow(table.Row{i + 1, p})
		}
		t.Render()
		return nil
	default:
		if paths == nil {
			paths = []string{}
		}
		return r.json(paths)
	}
}

// Lint writes a lint report.
func (r *Renderer) Lint(res *lint.Result) error {
	switch r.format {
	case config.OutputText:
		if len(res.Issues) == 0 {
			r.good.Fprintln(r.w, "No issues found.")
			return nil
		}
		for _, issue := range res.Issues {
			c := r.warn
			if issue.Severity == "error" {
				c = r.bad
			}
			c.Fprintf(r.w, "%-7s ", issue.Severity)
			fmt.Fprintf(r.w, "%s [%s] %s\n", issue.Path, issue.Check, issue.Message)
		}
		return nil
	case config.OutputTable:
		t := r.newTable()
		t.AppendHeader(table.Row{"Severity", "Path", "Check", "Message"})
		for _, issue := range res.Issues {
			t.AppendRow(table.Row{issue.Severity, issue.Path, issue.Check, issue.Message})
		}
		t.Render()
		return nil
	default:
		return r.json(res)
	}
}

// BatchRow summarises the evaluation of one answers file.
type BatchRow struct {
	File        string `json:"file"`
	Required    int    `json:"required"`
	Fields      int    `json:"fields"`
	Diagnostics int    `json:"diagnostics"`
	Error       string `json:"error,omitempty"`
}

// Batch writes one summary line per answers file.
func (r *Renderer) Batch(rows []BatchRow) error {
	switch r.format {
	case config.OutputText:
		for _, row := range rows {
			if row.Error != "" {
				r.bad.Fprintf(r.w, "FAIL ")
				fmt.Fprintf(r.w, "%s: %s\n", row.File, row.Error)
				continue
			}
			r.good.Fprintf(r.w, "ok   ")
			fmt.Fprintf(r.w, "%s: %d required, %d answered field(s), %d diagnostic(s)\n",
				row.File, row.Required, row.Fields, row.Diagnostics)
		}
		return nil
	case config.OutputTable:
		t := r.newTable()
		t.AppendHeader(table.Row{"File", "Required", "Fields", "Diagnostics", "Error"})
		for _, row := range rows {
			t.AppendRow(table.Row{row.File, row.Required, row.Fields, row.Diagnostics, row.Error})
		}
		t.Render()
		return nil
	default:
		return r.json(rows)
	}
}

// Snapshots writes a snapshot listing.
func (r *Renderer) Snapshots(snaps []*store.Snapshot) error {
	switch r.format {
	case config.OutputText:
		if len(snaps) == 0 {
			fmt.Fprintln(r.w, "No snapshots.")
			return nil
		}
		for _, s := range snaps {
			r.heading.Fprintf(r.w, "%s", s.ID)
			fmt.Fprintf(r.w, "  %s  %s  %d required\n", s.FormID, s.CreatedAt.Format(time.RFC3339), len(s.Required))
		}
		return nil
	case config.OutputTable:
		t := r.newTable()
		t.AppendHeader(table.Row{"ID", "Form", "Created", "Required", "Fields"})
		for _, s := range snaps {
			fields := 0
			if s.Result != nil {
				fields = len(s.Result.Flat)
			}
			t.AppendRow(table.Row{s.ID, s.FormID, s.CreatedAt.Format(time.RFC3339), len(s.Required), fields})
		}
		t.Render()
		return nil
	default:
		if snaps == nil {
			snaps = []*store.Snapshot{}
		}
		return r.json(snaps)
	}
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	return t
}

func (r *Renderer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}
