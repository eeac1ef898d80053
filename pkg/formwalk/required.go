package formwalk

// RequiredCollector enumerates the context paths of required fields that are
// currently visible.
//
// Results are memoized per phase and per section context path. They depend on
// the answers, so the cache must be reset (or invalidated under the affected
// base context) whenever the answers change.
type RequiredCollector struct {
	form  *Form
	index *Index
	cache map[string][]string
}

// NewRequiredCollector creates a collector. index is shared with the
// dependency resolver; pass nil to use a private one.
func NewRequiredCollector(form *Form, index *Index) *RequiredCollector {
	if index == nil {
		index = NewIndex(form)
	}
	return &RequiredCollector{
		form:  form,
		index: index,
		cache: make(map[string][]string),
	}
}

// Collect returns the required visible field paths below phases, which are
// addressed relative to base (the form id for top-level phases, or a
// sub-form row context).
func (c *RequiredCollector) Collect(phases []*Phase, base Path, answers Answers) []string {
	resolver := NewResolver(c.form, answers, c.index)
	return c.collectPhases(resolver, answers, phases, base)
}

func (c *RequiredCollector) collectPhases(r *Resolver, answers Answers, phases []*Phase, base Path) []string {
	var required []string
	for _, phase := range phases {
		if phase == nil {
			continue
		}
		required = append(required, c.walkPhase(r, answers, phase, base)...)
	}
	return required
}

// Invalidate removes every cached entry at or below base and returns how
// many were removed.
func (c *RequiredCollector) Invalidate(base string) int {
	removed := 0
	for key := range c.cache {
		if HasPathPrefix(key, base) {
			delete(c.cache, key)
			removed++
		}
	}
	return removed
}

// Reset drops every cached entry.
func (c *RequiredCollector) Reset() {
	c.cache = make(map[string][]string)
}

// Len returns the number of cached subtrees.
func (c *RequiredCollector) Len() int {
	return len(c.cache)
}

func (c *RequiredCollector) walkPhase(r *Resolver, answers Answers, phase *Phase, base Path) []string {
	ctx := base.Child(phase.ID)
	if cached, ok := c.cache[ctx.String()]; ok {
		return cached
	}

	var required []string
	if r.Evaluate(phase.Dependency, ctx).CanRender {
		for _, section := range phase.Sections {
			if section == nil {
				continue
			}
			required = append(required, c.walkSection(r, answers, section, ctx)...)
		}
	}

	c.cache[ctx.String()] = required
	return required
}

// walkSection collects below a section (or trigger section) attached at container.
func (c *RequiredCollector) walkSection(r *Resolver, answers Answers, section *Section, container Path) []string {
	ctx := container.Child(section.ID)
	if cached, ok := c.cache[ctx.String()]; ok {
		return cached
	}

	var required []string
	if r.Evaluate(section.Dependency, ctx).CanRender {
		for _, field := range section.Fields {
			if field == nil {
				continue
			}
			required = append(required, c.walkField(r, answers, field, ctx)...)
		}
	}

	c.cache[ctx.String()] = required
	return required
}

func (c *RequiredCollector) walkField(r *Resolver, answers Answers, field *Field, container Path) []string {
	ctx := container.Child(field.ID)
	decision := r.Evaluate(field.Dependency, ctx)
	if !decision.CanRender {
		return nil
	}

	var required []string
	if field.Required {
		required = append(required, ctx.String())
	}

	if field.Kind() == KindSubformWithTable {
		for _, row := range answers.Rows(ctx) {
			required = append(required, c.collectPhases(r, answers, field.Phases, ctx.Child(row))...)
		}
		return required
	}

	values := answers.Get(ctx.String())
	for _, visit := range planTriggers(field, values, decision, true) {
		if !visit.render || !isSectionTrigger(visit.section) {
			continue
		}
		required = append(required, c.walkSection(r, answers, visit.section, container)...)
	}
	return required
}
