package formwalk

// Decision is the outcome of evaluating a node's dependency list.
type Decision struct {
	CanRender bool
	// Options are the option objects matched by every options dependency.
	Options []*Option
	// Files are the file records yielded by every files dependency.
	Files []FileRecord
}

// Resolver evaluates dependencies against one answer set.
type Resolver struct {
	form    *Form
	answers Answers
	index   *Index
}

// NewResolver creates a resolver. The index is used to fetch the definition
// (type and options) of dependency targets.
func NewResolver(form *Form, answers Answers, index *Index) *Resolver {
	if index == nil {
		index = NewIndex(form)
	}
	return &Resolver{
		form:    form,
		answers: answers,
		index:   index,
	}
}

// Evaluate decides whether a node with the given dependencies renders at ctx.
//
// A node without dependencies always renders. With an empty answer set every
// dependency-gated node is hidden. Otherwise every entry must hold (AND),
// while matched options and files are aggregated across all entries whether
// or not the entry itself held.
func (r *Resolver) Evaluate(deps []*Dependency, ctx Path) Decision {
	if len(deps) == 0 {
		return Decision{CanRender: true}
	}
	if len(r.answers) == 0 {
		return Decision{CanRender: false}
	}

	decision := Decision{CanRender: true}

	for _, dep := range deps {
		if dep == nil {
			continue
		}
		target := ResolveWildcards(r.form.ID, dep.Path, ctx)
		depAnswers := r.answers.Get(target.WithIndex)

		switch dep.Type {
		case DependencyVisibility:
			decision.CanRender = decision.CanRender && r.visible(dep, depAnswers)

		case DependencyOptions:
			chosen, matched := r.chosenOptions(dep, target, depAnswers)
			decision.Options = append(decision.Options, chosen...)
			decision.CanRender = decision.CanRender && matched

		case DependencyFiles:
			files := r.selectedFiles(dep, ctx, depAnswers)
			decision.Files = append(decision.Files, files...)
			decision.CanRender = decision.CanRender && len(files) > 0
		}
	}

	return decision
}

// visible implements the visibility kind: any answer when no accepted sets
// are declared, otherwise a multiset match against one accepted set.
func (r *Resolver) visible(dep *Dependency, depAnswers []any) bool {
	if len(dep.Answers) == 0 {
		return len(depAnswers) > 0
	}
	for _, accepted := range dep.Answers {
		if equalMultiset(accepted, depAnswers) {
			return true
		}
	}
	return false
}

// chosenOptions returns the target field's options selected by its answer,
// minus the excluded values. matched reports whether the answer selects any
// declared option at all; exclusions narrow the aggregate, not visibility.
func (r *Resolver) chosenOptions(dep *Dependency, target ResolvedPath, depAnswers []any) (chosen []*Option, matched bool) {
	if len(depAnswers) == 0 {
		return nil, false
	}

	node, ok := r.index.Lookup(target.WithoutIndex)
	if !ok || node.Kind != NodeField || !node.Field.Kind().IsSelect() {
		return nil, false
	}

	selected := keySet(depAnswers)
	excluded := make(map[string]bool, len(dep.ExcludeValues))
	for _, v := range dep.ExcludeValues {
		excluded[v] = true
	}

	for _, opt := range node.Field.Options {
		if opt == nil || !selected[valueKey(opt.Value)] {
			continue
		}
		matched = true
		if !excluded[opt.Value] {
			chosen = append(chosen, opt)
		}
	}
	return chosen, matched
}

// selectedFiles returns the file records of the target answer minus the ids
// answered at any exclude path. Primitive answers never count as files.
func (r *Resolver) selectedFiles(dep *Dependency, ctx Path, depAnswers []any) []FileRecord {
	if len(depAnswers) == 0 {
		return nil
	}
	for _, a := range depAnswers {
		if isPrimitive(a) || a == nil {
			return nil
		}
	}

	excluded := make(map[string]bool)
	for _, path := range dep.ExcludePaths {
		target := ResolveWildcards(r.form.ID, path, ctx)
		for _, v := range r.answers.Get(target.WithIndex) {
			excluded[displayString(v)] = true
		}
	}

	var files []FileRecord
	for _, a := range depAnswers {
		rec, ok := AsFileRecord(a)
		if !ok || excluded[rec.ID] {
			continue
		}
		files = append(files, rec)
	}
	return files
}
