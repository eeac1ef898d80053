package formwalk

// Result holds the five answer projections built by one walk.
type Result struct {
	// Metadata buckets raw answers by metadata id. Phases, sections and
	// triggers that declare a metadata id open a nested bucket; sub-form rows
	// nest as {subformKey: {row: {...}}}.
	Metadata map[string]any `json:"metadata"`

	// Nested mirrors the definition tree, holding only rendered, answered fields.
	Nested map[string]any `json:"nested"`

	// Flat maps a field id to one answer list per rendered occurrence.
	Flat map[string][][]any `json:"flat"`

	// Possible mirrors the tree regardless of visibility.
	Possible map[string]any `json:"possible"`

	// Constructed maps a field's context path to the value found in the
	// external metadata bundle along the field's metadata id chain.
	Constructed map[string][]any `json:"constructed"`

	// Diagnostics lists non-fatal structural problems met during the walk.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Diagnostic is an advisory note about a malformed part of the definition.
type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// MetadataValuesKey holds a field's answers inside a metadata bucket when a
// phase, section or sub-form opened a bucket with the same id as the field.
const MetadataValuesKey = "__values__"

// metaScope is a lazily materialised bucket of the metadata projection.
// A bucket (and its ancestors) is only created when something is written
// into it, so scopes without answers never appear in the output.
type metaScope struct {
	parent *metaScope
	key    string
	values map[string]any
}

func newMetaRoot() *metaScope {
	return &metaScope{values: make(map[string]any)}
}

func (s *metaScope) child(key string) *metaScope {
	return &metaScope{parent: s, key: key}
}

func (s *metaScope) bucket() map[string]any {
	if s.values != nil {
		return s.values
	}
	if s.parent == nil {
		s.values = make(map[string]any)
		return s.values
	}
	parent := s.parent.bucket()
	switch existing := parent[s.key].(type) {
	case map[string]any:
		s.values = existing
	case []any:
		s.values = map[string]any{MetadataValuesKey: existing}
		parent[s.key] = s.values
	default:
		s.values = make(map[string]any)
		parent[s.key] = s.values
	}
	return s.values
}

// add appends values to the list bucketed under id. If id already names a
// nested bucket the values go under its MetadataValuesKey entry.
func (s *metaScope) add(id string, values []any) {
	b := s.bucket()
	if nested, ok := b[id].(map[string]any); ok {
		b = nested
		id = MetadataValuesKey
	}
	list, _ := b[id].([]any)
	if list == nil {
		list = make([]any, 0, len(values))
	}
	b[id] = append(list, values...)
}

// metadataList returns the answers recorded for a field in a metadata
// bundle entry, looking inside a nested bucket if needed.
func metadataList(v any) ([]any, bool) {
	switch v := v.(type) {
	case []any:
		return v, true
	case map[string]any:
		list, ok := v[MetadataValuesKey].([]any)
		return list, ok
	}
	return nil, false
}

// frame carries the per-level accumulation targets of a walk.
type frame struct {
	meta     *metaScope
	nested   map[string]any
	possible map[string]any

	// chain is the metadata id path from the root to this level, used to
	// look up the external bundle.
	chain []string

	// possibleOnly marks the what-if walk of a hidden sub-form; it must not
	// touch the constructed projection.
	possibleOnly bool
}

// enter opens a child frame for a phase or section.
func (f *frame) enter(md *Metadata) *frame {
	child := &frame{
		meta:         f.meta,
		nested:       make(map[string]any),
		possible:     make(map[string]any),
		chain:        f.chain,
		possibleOnly: f.possibleOnly,
	}
	if id := metadataID(md); id != "" {
		child.meta = f.meta.child(id)
		child.chain = extendChain(f.chain, id)
	}
	return child
}

// attach stores a child frame's projections under id. Empty nested maps are
// pruned; possible entries are always kept.
func (f *frame) attach(id string, child *frame) {
	if len(child.nested) > 0 {
		f.nested[id] = child.nested
	}
	f.possible[id] = child.possible
}

func extendChain(chain []string, keys ...string) []string {
	out := make([]string, 0, len(chain)+len(keys))
	out = append(out, chain...)
	return append(out, keys...)
}

// lookupChain walks a metadata-keyed bundle along chain.
func lookupChain(bundle map[string]any, chain []string) (any, bool) {
	var cur any = bundle
	for _, key := range chain {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}
