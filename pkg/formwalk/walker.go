package formwalk

import (
	"fmt"
	"log/slog"
	"strings"
)

// walker holds the state shared by every level of one walk.
// Per-level targets (metadata scope, nested, possible) travel in frames;
// flat and constructed are global to the walk.
type walker struct {
	form     *Form
	answers  Answers
	external map[string]any
	resolver *Resolver
	log      *slog.Logger

	flat        map[string][][]any
	constructed map[string][]any
	diagnostics []Diagnostic
}

func newWalker(form *Form, answers Answers, external map[string]any, index *Index, log *slog.Logger) *walker {
	return &walker{
		form:        form,
		answers:     answers,
		external:    external,
		resolver:    NewResolver(form, answers, index),
		log:         log,
		flat:        make(map[string][][]any),
		constructed: make(map[string][]any),
	}
}

// walkForm descends every phase and returns the finished projections.
func (w *walker) walkForm() *Result {
	root := &frame{
		meta:     newMetaRoot(),
		nested:   make(map[string]any),
		possible: make(map[string]any),
	}
	ctx := NewPath(w.form.ID)

	if w.form.PhasesMalformed {
		w.diagnose(ctx, "phases missing or not a list")
	}
	for i, phase := range w.form.Phases {
		if phase == nil {
			w.diagnose(ctx, fmt.Sprintf("skipping invalid phase at index %d", i))
			continue
		}
		w.walkPhase(phase, ctx, true, root)
	}

	return &Result{
		Metadata:    root.meta.bucket(),
		Nested:      root.nested,
		Flat:        w.flat,
		Possible:    root.possible,
		Constructed: w.constructed,
		Diagnostics: w.diagnostics,
	}
}

func (w *walker) walkPhase(phase *Phase, container Path, canRender bool, parent *frame) {
	ctx := container.Child(phase.ID)
	own := w.resolver.Evaluate(phase.Dependency, ctx).CanRender
	if !own {
		w.log.Debug("phase not renderable", "path", ctx.String())
	}
	render := canRender && own

	f := parent.enter(phase.Metadata)
	defer parent.attach(phase.ID, f)

	if phase.SectionsMalformed {
		w.diagnose(ctx, "sections missing or not a list")
		return
	}
	for i, section := range phase.Sections {
		if section == nil {
			w.diagnose(ctx, fmt.Sprintf("skipping invalid section at index %d", i))
			continue
		}
		w.walkSection(section, ctx, render, f)
	}
}

// walkSection walks a section or a trigger section attached at container.
func (w *walker) walkSection(section *Section, container Path, canRender bool, parent *frame) {
	ctx := container.Child(section.ID)
	own := w.resolver.Evaluate(section.Dependency, ctx).CanRender
	if !own {
		w.log.Debug("section not renderable", "path", ctx.String())
	}
	render := canRender && own

	f := parent.enter(section.Metadata)
	defer parent.attach(section.ID, f)

	if section.FieldsMalformed {
		w.diagnose(ctx, "fields missing or not a list")
		return
	}
	for i, field := range section.Fields {
		if field == nil {
			w.diagnose(ctx, fmt.Sprintf("skipping invalid field at index %d", i))
			continue
		}
		w.walkField(field, ctx, render, f)
	}
}

func (w *walker) walkField(field *Field, container Path, canRender bool, f *frame) {
	ctx := container.Child(field.ID)
	decision := w.resolver.Evaluate(field.Dependency, ctx)
	values := w.answers.Get(ctx.String())
	metaID := metadataID(field.Metadata)
	kind := field.Kind()

	if len(field.InvalidMembers) > 0 {
		w.diagnose(ctx, fmt.Sprintf("ignoring invalid members %s", strings.Join(field.InvalidMembers, ", ")))
	}

	// Project previously known answers back onto this context path.
	if metaID != "" && w.external != nil && !f.possibleOnly {
		if v, ok := lookupChain(w.external, extendChain(f.chain, metaID)); ok {
			if list, ok := metadataList(v); ok {
				w.constructed[ctx.String()] = cloneValues(list)
			}
		}
	}

	render := decision.CanRender && canRender
	if !decision.CanRender {
		w.log.Debug("field not renderable", "path", ctx.String())
	}

	if kind != KindSubformWithTable {
		if canRender && metaID != "" {
			f.meta.add(metaID, values)
		}
		if render && len(values) > 0 {
			f.nested[field.ID] = cloneValues(values)
			w.flat[field.ID] = append(w.flat[field.ID], cloneValues(values))
		}
		f.possible[field.ID] = cloneValues(values)
	}

	switch kind {
	case KindSubformWithTable:
		w.walkSubform(field, ctx, render, f)

	case KindRadio, KindDropdownSingleSelect, KindCheckbox, KindDropdownMultiSelect,
		KindText, KindTextarea, KindNumber, KindPassword, KindFileSelect:
		// Triggers attach at the container's level, not under the field.
		for _, visit := range planTriggers(field, values, decision, render) {
			if !isSectionTrigger(visit.section) {
				w.diagnose(ctx, "skipping trigger that is not a section")
				continue
			}
			w.walkSection(visit.section, container, visit.render, f)
		}

	case KindMirror, KindMapper, KindFileUpload, KindFilesUpload:
		// Inert: no triggers.

	case KindUnknown:
		w.diagnose(ctx, fmt.Sprintf("unknown field type %q", field.Type))
	}
}

// walkSubform walks every answered row of a subformwtable field with fresh
// per-row metadata/nested/possible targets, then merges non-empty rows back
// keyed by row index. A hidden sub-form is walked once more under the
// sentinel row purely to populate the possible projection.
func (w *walker) walkSubform(field *Field, ctx Path, render bool, f *frame) {
	bucket := metadataID(field.Metadata)
	if bucket == "" {
		bucket = field.ID
	}
	rowsMeta := f.meta.child(bucket)

	nestedRows := make(map[string]any)
	possibleRows := make(map[string]any)

	for _, row := range w.answers.Rows(ctx) {
		rf := &frame{
			meta:         rowsMeta.child(row),
			nested:       make(map[string]any),
			possible:     make(map[string]any),
			chain:        extendChain(f.chain, bucket, row),
			possibleOnly: f.possibleOnly,
		}
		w.walkSubformPhases(field, ctx.Child(row), render, rf)

		if len(rf.nested) > 0 {
			nestedRows[row] = rf.nested
		}
		if len(rf.possible) > 0 {
			possibleRows[row] = rf.possible
		}
	}

	if !render {
		sf := &frame{
			meta:         newMetaRoot(),
			nested:       make(map[string]any),
			possible:     make(map[string]any),
			possibleOnly: true,
		}
		w.walkSubformPhases(field, ctx.Child(PossibleAnswersKey), false, sf)
		if len(sf.possible) > 0 {
			possibleRows[PossibleAnswersKey] = sf.possible
		}
	}

	if len(nestedRows) > 0 {
		f.nested[field.ID] = nestedRows
	}
	f.possible[field.ID] = possibleRows
}

func (w *walker) walkSubformPhases(field *Field, rowCtx Path, render bool, rf *frame) {
	for i, phase := range field.Phases {
		if phase == nil {
			w.diagnose(rowCtx, fmt.Sprintf("skipping invalid phase at index %d", i))
			continue
		}
		w.walkPhase(phase, rowCtx, render, rf)
	}
}

func (w *walker) diagnose(ctx Path, message string) {
	w.diagnostics = append(w.diagnostics, Diagnostic{Path: ctx.String(), Message: message})
	w.log.Warn(message, "path", ctx.String())
}
