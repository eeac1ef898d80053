// Package lint provides static analysis for form definitions.
// It detects structural problems without evaluating any answers.
package lint

import (
	"fmt"

	"github.com/dlovans/formwalk/pkg/formwalk"
)

// Issue represents a problem found during static analysis.
type Issue struct {
	Severity string `json:"severity"` // "error", "warning"
	Path     string `json:"path,omitempty"`
	Check    string `json:"check"`
	Message  string `json:"message"`
}

// Result contains all issues found by the linter.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Check names.
const (
	CheckMissingID      = "missing-id"
	CheckDuplicateID    = "duplicate-id"
	CheckMalformed      = "malformed"
	CheckUnknownType    = "unknown-type"
	CheckUnresolvedPath = "unresolved-path"
	CheckDependencyType = "dependency-type"
	CheckOptionsTarget  = "options-target"
	CheckNoOptions      = "no-options"
	CheckEmptySubform   = "empty-subform"
	CheckTriggerShape   = "trigger-shape"
	CheckInvalidMember  = "invalid-member"
)

// Run parses a form definition and analyses it.
func Run(jsonText string) (*Result, error) {
	form, err := formwalk.ParseForm([]byte(jsonText))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return Form(form), nil
}

// Form analyses a decoded form definition.
func Form(form *formwalk.Form) *Result {
	l := &linter{
		form:   form,
		index:  formwalk.NewIndex(form),
		result: &Result{Valid: true, Issues: make([]Issue, 0)},
	}

	root := formwalk.NewPath(form.ID)
	if form.ID == "" {
		l.result.addError("", CheckMissingID, "form has no id")
	}
	if form.PhasesMalformed {
		l.result.addError(root.String(), CheckMalformed, "phases missing or not a list")
	}
	l.phases(form.Phases, root)

	return l.result
}

type linter struct {
	form   *formwalk.Form
	index  *formwalk.Index
	result *Result
}

func (l *linter) phases(phases []*formwalk.Phase, base formwalk.Path) {
	seen := make(map[string]bool)
	for i, phase := range phases {
		if phase == nil {
			l.result.addError(base.String(), CheckMalformed, fmt.Sprintf("phase at index %d is not an object", i))
			continue
		}
		if !l.checkID(base, "phase", phase.ID, i, seen) {
			continue
		}
		ctx := base.Child(phase.ID)
		l.dependencies(ctx, phase.Dependency)

		if phase.SectionsMalformed {
			l.result.addError(ctx.String(), CheckMalformed, "sections missing or not a list")
			continue
		}
		sections := make(map[string]bool)
		for j, section := range phase.Sections {
			if section == nil {
				l.result.addError(ctx.String(), CheckMalformed, fmt.Sprintf("section at index %d is not an object", j))
				continue
			}
			if l.checkID(ctx, "section", section.ID, j, sections) {
				l.section(section, ctx)
			}
		}
	}
}

// section checks a section (or trigger section) attached at container.
// Fields and the triggers they carry share the section's id namespace,
// because triggers are addressed at the section level.
func (l *linter) section(section *formwalk.Section, container formwalk.Path) {
	ctx := container.Child(section.ID)
	l.dependencies(ctx, section.Dependency)

	if section.FieldsMalformed {
		l.result.addError(ctx.String(), CheckMalformed, "fields missing or not a list")
		return
	}

	seen := make(map[string]bool)
	var triggers []*formwalk.Section
	for i, field := range section.Fields {
		if field == nil {
			l.result.addError(ctx.String(), CheckMalformed, fmt.Sprintf("field at index %d is not an object", i))
			continue
		}
		if !l.checkID(ctx, "field", field.ID, i, seen) {
			continue
		}
		l.field(field, ctx)

		for _, opt := range field.Options {
			if opt != nil {
				triggers = append(triggers, opt.Triggers...)
			}
		}
		triggers = append(triggers, field.Triggers...)
	}

	for i, trigger := range triggers {
		if trigger == nil {
			continue
		}
		if trigger.Type != "" && trigger.Type != "section" {
			l.result.addWarning(ctx.String(), CheckTriggerShape,
				fmt.Sprintf("trigger '%s' has type '%s' and will be skipped", trigger.ID, trigger.Type))
			continue
		}
		if l.checkID(ctx, "trigger", trigger.ID, i, seen) {
			l.section(trigger, ctx)
		}
	}
}

func (l *linter) field(field *formwalk.Field, container formwalk.Path) {
	ctx := container.Child(field.ID)
	l.dependencies(ctx, field.Dependency)

	for _, member := range field.InvalidMembers {
		l.result.addWarning(ctx.String(), CheckInvalidMember,
			fmt.Sprintf("field '%s' member '%s' has the wrong type and is ignored", field.ID, member))
	}

	kind := field.Kind()
	switch {
	case kind == formwalk.KindUnknown:
		l.result.addWarning(ctx.String(), CheckUnknownType,
			fmt.Sprintf("field '%s' has unknown type '%s'", field.ID, field.Type))

	case kind.IsSelect() && len(field.Options) == 0:
		l.result.addWarning(ctx.String(), CheckNoOptions,
			fmt.Sprintf("%s field '%s' has no options", kind, field.ID))

	case kind == formwalk.KindSubformWithTable:
		if len(field.Phases) == 0 {
			l.result.addWarning(ctx.String(), CheckEmptySubform,
				fmt.Sprintf("sub-form field '%s' has no phases", field.ID))
			return
		}
		// Rows are addressed through the wildcard segment.
		l.phases(field.Phases, ctx.Child(formwalk.Wildcard))
	}
}

func (l *linter) dependencies(ctx formwalk.Path, deps []*formwalk.Dependency) {
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		switch dep.Type {
		case formwalk.DependencyVisibility, formwalk.DependencyOptions, formwalk.DependencyFiles:
		default:
			l.result.addWarning(ctx.String(), CheckDependencyType,
				fmt.Sprintf("dependency type '%s' is not recognised and will be ignored", dep.Type))
			continue
		}

		node, ok := l.target(ctx, dep.Path)
		if !ok {
			continue
		}
		if dep.Type == formwalk.DependencyOptions {
			if node.Kind != formwalk.NodeField || !node.Field.Kind().IsSelect() {
				l.result.addError(ctx.String(), CheckOptionsTarget,
					fmt.Sprintf("options dependency on '%s' does not target a select field", formwalk.Join(dep.Path...)))
			}
		}
		for _, exclude := range dep.ExcludePaths {
			l.target(ctx, exclude)
		}
	}
}

// target resolves a dependency path in the definition, reporting paths that
// do not resolve.
func (l *linter) target(ctx formwalk.Path, path []string) (formwalk.Node, bool) {
	if len(path) == 0 {
		l.result.addError(ctx.String(), CheckUnresolvedPath, "dependency has an empty path")
		return formwalk.Node{}, false
	}
	resolved := formwalk.ResolveWildcards(l.form.ID, path, ctx)
	node, ok := l.index.Lookup(resolved.WithoutIndex)
	if !ok {
		l.result.addError(ctx.String(), CheckUnresolvedPath,
			fmt.Sprintf("dependency path '%s' does not resolve", formwalk.Join(path...)))
	}
	return node, ok
}

// checkID reports missing and duplicate ids among siblings. It returns false
// when the node cannot be addressed.
func (l *linter) checkID(container formwalk.Path, what, id string, pos int, seen map[string]bool) bool {
	if id == "" {
		l.result.addError(container.String(), CheckMissingID, fmt.Sprintf("%s at index %d has no id", what, pos))
		return false
	}
	if seen[id] {
		l.result.addError(container.Child(id).String(), CheckDuplicateID,
			fmt.Sprintf("%s id '%s' is already used in '%s'", what, id, container))
		return true
	}
	seen[id] = true
	return true
}

func (r *Result) addError(path, check, message string) {
	r.Valid = false
	r.Issues = append(r.Issues, Issue{
		Severity: "error",
		Path:     path,
		Check:    check,
		Message:  message,
	})
}

func (r *Result) addWarning(path, check, message string) {
	r.Issues = append(r.Issues, Issue{
		Severity: "warning",
		Path:     path,
		Check:    check,
		Message:  message,
	})
}
