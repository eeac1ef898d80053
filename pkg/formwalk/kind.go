package formwalk

// FieldKind is the closed set of field types understood by the walker.
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindText
	KindTextarea
	KindNumber
	KindPassword
	KindRadio
	KindDropdownSingleSelect
	KindCheckbox
	KindDropdownMultiSelect
	KindFileSelect
	KindSubformWithTable
	KindMirror
	KindMapper
	KindFileUpload
	KindFilesUpload
)

var kindNames = map[FieldKind]string{
	KindText:                 "text",
	KindTextarea:             "textarea",
	KindNumber:               "number",
	KindPassword:             "password",
	KindRadio:                "radio",
	KindDropdownSingleSelect: "dropdown-single-select",
	KindCheckbox:             "checkbox",
	KindDropdownMultiSelect:  "dropdown-multi-select",
	KindFileSelect:           "fileselect",
	KindSubformWithTable:     "subformwtable",
	KindMirror:               "mirror",
	KindMapper:               "mapper",
	KindFileUpload:           "fileupload",
	KindFilesUpload:          "filesupload",
}

var kindsByName = func() map[string]FieldKind {
	m := make(map[string]FieldKind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ParseFieldKind maps a `type` tag to its kind. Unrecognised tags map to KindUnknown.
func ParseFieldKind(tag string) FieldKind {
	if k, ok := kindsByName[tag]; ok {
		return k
	}
	return KindUnknown
}

// String returns the wire tag of the kind.
func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsSelect reports whether the kind carries options that can trigger sections.
func (k FieldKind) IsSelect() bool {
	switch k {
	case KindRadio, KindDropdownSingleSelect, KindCheckbox, KindDropdownMultiSelect:
		return true
	}
	return false
}

// IsText reports whether the kind triggers sections on a non-empty answer.
func (k FieldKind) IsText() bool {
	switch k {
	case KindText, KindTextarea, KindNumber, KindPassword:
		return true
	}
	return false
}
