package formwalk

// PossibleAnswersKey is the sentinel row index (and trigger id suffix) under
// which hidden what-if branches are recorded in the possible projection.
const PossibleAnswersKey = "__for_possible_answers__"

// InstantiateTrigger returns a copy of trigger whose id is suffixed with
// "_"+key and whose title is suffixed with title. The definition is shared
// across rows and is never modified.
func InstantiateTrigger(trigger *Section, key, title string) *Section {
	clone := *trigger
	clone.ID = trigger.ID + "_" + key
	clone.Title = trigger.Title + title
	return &clone
}

// possibleTrigger returns the copy of trigger walked only to populate the
// possible projection of a fileselect field.
func possibleTrigger(trigger *Section) *Section {
	clone := *trigger
	clone.ID = trigger.ID + PossibleAnswersKey
	return &clone
}

// isSectionTrigger reports whether a trigger has the section shape.
func isSectionTrigger(t *Section) bool {
	return t != nil && (t.Type == "" || t.Type == "section")
}

// triggerVisit is one trigger section to walk, with the ambient render flag
// it is walked under.
type triggerVisit struct {
	section *Section
	render  bool
}

// planTriggers lists the trigger sections reachable from a field and the
// ambient flag each one is walked under. render is the field's own decision
// ANDed with its ambient flag. Alternatives that are not selected are still
// listed with render=false so the possible projection can enumerate them.
func planTriggers(field *Field, values []any, decision Decision, render bool) []triggerVisit {
	var visits []triggerVisit

	switch field.Kind() {
	case KindRadio, KindDropdownSingleSelect, KindCheckbox, KindDropdownMultiSelect:
		selected := keySet(values)
		for _, opt := range field.Options {
			if opt == nil {
				continue
			}
			chosen := selected[valueKey(opt.Value)]
			for _, t := range opt.Triggers {
				visits = append(visits, triggerVisit{section: t, render: render && chosen})
			}
		}

	case KindText, KindTextarea, KindNumber, KindPassword:
		answered := len(values) > 0 && !isEmptyValue(values[0])
		for _, t := range field.Triggers {
			visits = append(visits, triggerVisit{section: t, render: render && answered})
		}

	case KindFileSelect:
		names := make(map[string]string, len(decision.Files))
		for _, f := range decision.Files {
			names[f.ID] = f.Name
		}
		for _, v := range values {
			id := displayString(v)
			for _, t := range field.Triggers {
				if t == nil {
					continue
				}
				visits = append(visits, triggerVisit{section: InstantiateTrigger(t, id, names[id]), render: render})
			}
		}
		for _, t := range field.Triggers {
			if t == nil {
				continue
			}
			visits = append(visits, triggerVisit{section: possibleTrigger(t), render: false})
		}

	case KindSubformWithTable, KindMirror, KindMapper, KindFileUpload, KindFilesUpload, KindUnknown:
		// No triggers.
	}

	return visits
}
