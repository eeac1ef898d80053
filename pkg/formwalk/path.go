package formwalk

import "strings"

// Separator joins the segments of a context path on the wire.
const Separator = "."

// Wildcard in a dependency path stands for the sub-form row index in scope.
const Wildcard = "*"

// Path is a parsed context path: the form id followed by one segment per
// phase, section, field or sub-form row descended.
// The joined string is kept alongside the segments so hot recursive code
// never re-splits or re-joins.
type Path struct {
	segs []string
	str  string
}

// NewPath builds a path from segments.
func NewPath(segments ...string) Path {
	segs := make([]string, len(segments))
	copy(segs, segments)
	return Path{segs: segs, str: Join(segs...)}
}

// ParsePath splits a wire-format context path.
func ParsePath(s string) Path {
	return Path{segs: Split(s), str: s}
}

// Child returns a new path extended by one segment. p is not modified.
func (p Path) Child(seg string) Path {
	segs := make([]string, len(p.segs)+1)
	copy(segs, p.segs)
	segs[len(p.segs)] = seg

	str := seg
	if len(p.segs) > 0 {
		str = p.str + Separator + seg
	}
	return Path{segs: segs, str: str}
}

// String returns the wire form of the path.
func (p Path) String() string { return p.str }

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// Segment returns the i-th segment, or false if out of range.
func (p Path) Segment(i int) (string, bool) {
	if i < 0 || i >= len(p.segs) {
		return "", false
	}
	return p.segs[i], true
}

// Segments returns a copy of the segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segs))
	copy(out, p.segs)
	return out
}

// Join composes a wire-format path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Split decomposes a wire-format path. The empty string has no segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// HasPathPrefix reports whether path equals base or lies underneath it.
// Matching is segment-aware: "f.p1" is not a prefix of "f.p10".
func HasPathPrefix(path, base string) bool {
	if base == "" {
		return true
	}
	return path == base || strings.HasPrefix(path, base+Separator)
}

// ResolvedPath holds both resolutions of a dependency path.
type ResolvedPath struct {
	// WithIndex has wildcards replaced by the row index in scope; it addresses
	// the answer of the target.
	WithIndex string
	// WithoutIndex keeps the wildcards; it addresses the target's definition,
	// which is the same for every row.
	WithoutIndex string
}

// ResolveWildcards resolves a dependency path against the caller's context.
// A "*" at position i of dep takes the segment at position i+1 of current
// (dependency paths omit the leading form id). When current is too short the
// wildcard is left as-is.
func ResolveWildcards(formID string, dep []string, current Path) ResolvedPath {
	resolved := make([]string, 0, len(dep)+1)
	raw := make([]string, 0, len(dep)+1)
	resolved = append(resolved, formID)
	raw = append(raw, formID)

	for i, seg := range dep {
		raw = append(raw, seg)
		if seg == Wildcard {
			if idx, ok := current.Segment(i + 1); ok {
				resolved = append(resolved, idx)
				continue
			}
		}
		resolved = append(resolved, seg)
	}

	return ResolvedPath{
		WithIndex:    Join(resolved...),
		WithoutIndex: Join(raw...),
	}
}
