package fill

// SourceKind says how a field's value is produced from case data.
type SourceKind int

const (
	// SourceSingle resolves one dotted path into the data root.
	SourceSingle SourceKind = iota
	// SourceComposite joins several resolved paths with a separator
	// (e.g. "applicant.firstName" + "applicant.lastName").
	SourceComposite
)

// Source is a typed descriptor mapping a template field to case data. The
// descriptor replaces free-form value plumbing so the orchestrator can never
// mis-type a value: everything resolves to a string before it reaches a form.
type Source struct {
	Kind      SourceKind
	Paths     []string
	Separator string // composite only; defaults to a single space
}

// Single is a convenience constructor for one-path sources.
func Single(path string) Source {
	return Source{Kind: SourceSingle, Paths: []string{path}}
}

// Composite joins the given paths with sep.
func Composite(sep string, paths ...string) Source {
	return Source{Kind: SourceComposite, Paths: paths, Separator: sep}
}

// FieldMap maps template field names to their data sources.
type FieldMap map[string]Source

// FieldError records one field that could not be filled. Collected as data,
// never raised: one malformed field must not block the other 99%.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// Result summarizes a fill pass. Every candidate field lands in exactly one
// of filled / errors / empty.
type Result struct {
	TotalFields int          `json:"totalFields"`
	FilledCount int          `json:"filledCount"`
	EmptyFields []string     `json:"emptyFields"`
	Errors      []FieldError `json:"errors"`
}

// Form is the loaded-template surface the external fill engine exposes.
// SetField must be safe for concurrent calls within a batch.
type Form interface {
	SetField(name, value string) error
	Bytes() ([]byte, error)
}

// Engine opens a template's bytes as a fillable form. The production engine
// wraps the PDF library; tests and local runs use an in-memory form.
type Engine interface {
	Open(template []byte) (Form, error)
}
