// Package formwalk evaluates declarative, multi-phase form definitions against
// a set of submitted answers.
//
// A form is a tree: form -> phases -> sections -> fields. Fields may carry
// option lists, file selections, repeatable sub-forms and triggers that splice
// extra sections into the tree. Every node may declare dependencies that gate
// whether it is currently rendered. A single walk over the tree produces five
// answer projections (metadata-keyed, nested, flat, possible and constructed).
package formwalk

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Form is the root of a form definition.
// Only `id` and `phases` are needed for evaluation. Everything else is carried
// through for consumers.
type Form struct {
	ID               string    `json:"id"`
	Title            string    `json:"title,omitempty"`
	Type             string    `json:"type,omitempty"` // always "form"
	Metadata         *Metadata `json:"metadata,omitempty"`
	Phases           []*Phase  `json:"phases"`
	ReviewPhaseLabel string    `json:"reviewPhaseLabel,omitempty"`

	// PhasesMalformed is set when `phases` was missing or not a list.
	PhasesMalformed bool `json:"-"`
}

// Phase is a top-level step of a form (or of a sub-form row).
type Phase struct {
	ID          string        `json:"id"`
	Label       string        `json:"label,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Type        string        `json:"type,omitempty"`    // always "phase"
	Subtype     string        `json:"subtype,omitempty"` // "main" or "sub"
	Dependency  []*Dependency `json:"dependency,omitempty"`
	Sections    []*Section    `json:"sections"`
	Metadata    *Metadata     `json:"metadata,omitempty"`

	// SectionsMalformed is set when `sections` was missing or not a list.
	SectionsMalformed bool `json:"-"`
}

// Section groups fields. Triggers attached to options or fields are sections too.
type Section struct {
	ID          string        `json:"id"`
	Title       string        `json:"title,omitempty"`
	Type        string        `json:"type,omitempty"` // always "section"
	Description string        `json:"description,omitempty"`
	Fields      []*Field      `json:"fields"`
	Dependency  []*Dependency `json:"dependency,omitempty"`
	Layout      [][]string    `json:"layout,omitempty"`
	Metadata    *Metadata     `json:"metadata,omitempty"`

	// FieldsMalformed is set when `fields` was missing or not a list.
	FieldsMalformed bool `json:"-"`
}

// Field is a single input. Which of the optional members are meaningful
// depends on Type (see FieldKind).
type Field struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Required    bool          `json:"required,omitempty"`
	Label       string        `json:"label,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Hint        string        `json:"hint,omitempty"`
	Note        string        `json:"note,omitempty"`
	Default     any           `json:"default,omitempty"`
	Dependency  []*Dependency `json:"dependency,omitempty"`
	Metadata    *Metadata     `json:"metadata,omitempty"`

	// Select-like fields
	Options []*Option `json:"options,omitempty"`

	// Text-like and fileselect fields
	Triggers []*Section `json:"triggers,omitempty"`

	// subformwtable
	Phases []*Phase `json:"phases,omitempty"`

	// mapper
	RHSOptions []*Option `json:"rhsOptions,omitempty"`
	LHSLabel   string    `json:"lhsLabel,omitempty"`
	RHSLabel   string    `json:"rhsLabel,omitempty"`

	// fileupload / filesupload
	Filetype    string    `json:"filetype,omitempty"`
	Filetypes   []string  `json:"filetypes,omitempty"`
	LangOptions []*Option `json:"langOptions,omitempty"`
	Minimum     *int      `json:"minimum,omitempty"`

	// mirror
	Path []string `json:"path,omitempty"`

	Addable *Addable `json:"addable,omitempty"`

	// InvalidMembers names the members that were present but could not be
	// decoded into their declared type. They are left at their zero value.
	InvalidMembers []string `json:"-"`
}

// Kind returns the closed field kind for the field's type tag.
func (f *Field) Kind() FieldKind {
	return ParseFieldKind(f.Type)
}

// Option is a selectable value of a select-like field.
type Option struct {
	ID         string      `json:"id,omitempty"`
	Label      string      `json:"label,omitempty"`
	Value      string      `json:"value"`
	Decoration *Decoration `json:"decoration,omitempty"`
	Note       string      `json:"note,omitempty"`
	Triggers   []*Section  `json:"triggers,omitempty"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
}

// Decoration is a UI hint attached to an option.
type Decoration struct {
	Type string `json:"type"` // "tag"
	FG   string `json:"fg,omitempty"`
	BG   string `json:"bg,omitempty"`
}

// Addable marks a text field whose value can be repeated.
type Addable struct {
	Label string `json:"label"`
}

// Metadata is attached to forms, phases, sections, fields and options.
// ID is the opaque key used to bucket answers independently of tree position.
type Metadata struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Hint        string `json:"hint,omitempty"`
	Note        string `json:"note,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"` // ISO 8601
}

// metadataID returns the metadata id of a possibly nil metadata block.
func metadataID(m *Metadata) string {
	if m == nil {
		return ""
	}
	return m.ID
}

// DependencyKind is the evaluation rule of a dependency.
type DependencyKind string

const (
	DependencyVisibility DependencyKind = "visibility"
	DependencyOptions    DependencyKind = "options"
	DependencyFiles      DependencyKind = "files"
)

// Dependency gates a node on the answer of another node addressed by Path.
// Path omits the form id and may contain "*" wildcards for sub-form rows.
type Dependency struct {
	Type DependencyKind `json:"type"`
	Path []string       `json:"path"`

	// Answers lists the accepted answer sets of a visibility dependency.
	// Empty means "any answer".
	Answers [][]any `json:"answers,omitempty"`

	// ExcludePaths lists paths whose answers (file ids) are removed from a
	// files dependency.
	ExcludePaths [][]string `json:"-"`

	// ExcludeValues lists option values dropped from an options dependency.
	ExcludeValues []string `json:"-"`
}

// UnmarshalJSON accepts `exclude` both as a list of paths (files) and as a
// list of option values (options).
func (d *Dependency) UnmarshalJSON(data []byte) error {
	type plain Dependency
	var raw struct {
		plain
		Exclude json.RawMessage `json:"exclude"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Dependency(raw.plain)

	if len(bytes.TrimSpace(raw.Exclude)) == 0 {
		return nil
	}
	var paths [][]string
	if err := json.Unmarshal(raw.Exclude, &paths); err == nil {
		d.ExcludePaths = paths
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw.Exclude, &values); err == nil {
		d.ExcludeValues = values
	}
	// Anything else is ignored; lint reports it.
	return nil
}

// MarshalJSON writes back whichever exclude form was decoded.
func (d Dependency) MarshalJSON() ([]byte, error) {
	type plain Dependency
	out := struct {
		plain
		Exclude any `json:"exclude,omitempty"`
	}{plain: plain(d)}
	switch {
	case len(d.ExcludePaths) > 0:
		out.Exclude = d.ExcludePaths
	case len(d.ExcludeValues) > 0:
		out.Exclude = d.ExcludeValues
	}
	return json.Marshal(out)
}

// UnmarshalJSON tolerates a missing or non-list `phases` member.
func (f *Form) UnmarshalJSON(data []byte) error {
	type plain Form
	var raw struct {
		plain
		Phases json.RawMessage `json:"phases"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Form(raw.plain)
	f.Phases, f.PhasesMalformed = decodeNodes[Phase](raw.Phases)
	return nil
}

// UnmarshalJSON tolerates a missing or non-list `sections` member.
func (p *Phase) UnmarshalJSON(data []byte) error {
	type plain Phase
	var raw struct {
		plain
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Phase(raw.plain)
	p.Sections, p.SectionsMalformed = decodeNodes[Section](raw.Sections)
	return nil
}

// UnmarshalJSON tolerates a missing or non-list `fields` member.
func (s *Section) UnmarshalJSON(data []byte) error {
	type plain Section
	var raw struct {
		plain
		Fields json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Section(raw.plain)
	s.Fields, s.FieldsMalformed = decodeNodes[Field](raw.Fields)
	return nil
}

// UnmarshalJSON decodes a field member by member, so one mistyped optional
// member does not cost the whole field. `required` also accepts boolean-like
// strings such as "true" or "yes".
func (f *Field) UnmarshalJSON(data []byte) error {
	type plain Field
	var p plain
	if err := json.Unmarshal(data, &p); err == nil {
		*f = Field(p)
		return nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	p = plain{}
	for _, name := range names {
		one, err := json.Marshal(map[string]json.RawMessage{name: members[name]})
		if err != nil {
			return err
		}
		if err := json.Unmarshal(one, &p); err == nil {
			continue
		}
		if name == "required" {
			if b, ok := lenientBool(members[name]); ok {
				p.Required = b
				continue
			}
		}
		p.InvalidMembers = append(p.InvalidMembers, name)
	}
	*f = Field(p)
	return nil
}

func lenientBool(raw json.RawMessage) (bool, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off", "":
		return false, true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return b, err == nil
}

// decodeNodes decodes a JSON list of objects.
// A missing or non-list value yields (nil, true). Elements that are not objects,
// or fail to decode, become nil entries so the walker can report and skip them.
func decodeNodes[T any](raw json.RawMessage) ([]*T, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, true
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, true
	}

	nodes := make([]*T, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var node T
		if err := json.Unmarshal(elem, &node); err != nil {
			continue
		}
		nodes[i] = &node
	}
	return nodes, false
}

// ParseForm decodes a form definition.
// Only syntactically invalid JSON is an error; shape problems inside the tree
// are surfaced later as walk diagnostics.
func ParseForm(data []byte) (*Form, error) {
	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, err
	}
	return &form, nil
}
