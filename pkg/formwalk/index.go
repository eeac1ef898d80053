package formwalk

// NodeKind identifies what a definition path resolved to.
type NodeKind int

const (
	NodePhase NodeKind = iota + 1
	NodeSection
	NodeTrigger
	NodeField
)

func (k NodeKind) String() string {
	switch k {
	case NodePhase:
		return "phase"
	case NodeSection:
		return "section"
	case NodeTrigger:
		return "trigger"
	case NodeField:
		return "field"
	default:
		return "none"
	}
}

// Node is a definition node found by the Index.
// Exactly one of Phase, Section or Field is set; triggers use Section.
type Node struct {
	Kind    NodeKind
	Phase   *Phase
	Section *Section
	Field   *Field
}

// Index resolves context paths to definition nodes.
// Lookups are memoized per path for the lifetime of the index; call Reset
// before reusing it for another evaluation session.
type Index struct {
	form  *Form
	cache map[string]Node
}

// NewIndex creates a definition index over form.
func NewIndex(form *Form) *Index {
	return &Index{
		form:  form,
		cache: make(map[string]Node),
	}
}

// Lookup returns the definition node at path.
// The first segment is the form id and is not matched. Besides direct
// phase/section/field ids, a segment below a section may name a trigger
// section declared on one of its fields or their options, and "*" below a
// subformwtable field enters the field's nested phases.
func (ix *Index) Lookup(path string) (Node, bool) {
	if node, ok := ix.cache[path]; ok {
		return node, true
	}

	node, ok := ix.find(Split(path))
	if ok {
		ix.cache[path] = node
	}
	return node, ok
}

// Reset drops every memoized lookup.
func (ix *Index) Reset() {
	ix.cache = make(map[string]Node)
}

// Len returns the number of memoized lookups.
func (ix *Index) Len() int {
	return len(ix.cache)
}

type indexLevel int

const (
	levelPhases indexLevel = iota
	levelSections
	levelFields
	levelField
)

func (ix *Index) find(segs []string) (Node, bool) {
	if ix.form == nil || len(segs) < 2 {
		return Node{}, false
	}

	level := levelPhases
	phases := ix.form.Phases
	var (
		phase   *Phase
		section *Section
		field   *Field
	)

	for i := 1; i < len(segs); i++ {
		key := segs[i]
		last := i == len(segs)-1

		switch level {
		case levelPhases:
			phase = findPhase(phases, key)
			if phase == nil {
				return Node{}, false
			}
			if last {
				return Node{Kind: NodePhase, Phase: phase}, true
			}
			level = levelSections

		case levelSections:
			section = findSection(phase.Sections, key)
			if section == nil {
				return Node{}, false
			}
			if last {
				return Node{Kind: NodeSection, Section: section}, true
			}
			level = levelFields

		case levelFields:
			if field = findField(section.Fields, key); field != nil {
				if last {
					return Node{Kind: NodeField, Field: field}, true
				}
				level = levelField
				continue
			}
			trigger := findTrigger(section.Fields, key)
			if trigger == nil {
				return Node{}, false
			}
			if last {
				return Node{Kind: NodeTrigger, Section: trigger}, true
			}
			section = trigger

		case levelField:
			if field.Kind() != KindSubformWithTable || key != Wildcard {
				return Node{}, false
			}
			phases = field.Phases
			level = levelPhases
		}
	}

	return Node{}, false
}

func findPhase(phases []*Phase, id string) *Phase {
	for _, p := range phases {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

func findSection(sections []*Section, id string) *Section {
	for _, s := range sections {
		if s != nil && s.ID == id {
			return s
		}
	}
	return nil
}

func findField(fields []*Field, id string) *Field {
	for _, f := range fields {
		if f != nil && f.ID == id {
			return f
		}
	}
	return nil
}

// findTrigger looks for a trigger section with the given id on any field of
// a section, first among option triggers, then among field triggers.
func findTrigger(fields []*Field, id string) *Section {
	for _, f := range fields {
		if f == nil {
			continue
		}
		for _, opt := range f.Options {
			if opt == nil {
				continue
			}
			if t := findSection(opt.Triggers, id); t != nil {
				return t
			}
		}
		if t := findSection(f.Triggers, id); t != nil {
			return t
		}
	}
	return nil
}
